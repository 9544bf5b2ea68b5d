package electrum

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	defaultCallTimeout  = 30 * time.Second
	defaultPingInterval = 60 * time.Second

	// resubscribeBatchSize bounds the burst of subscribe requests fired at
	// a server right after a reconnection.
	resubscribeBatchSize = 5

	reconnectMinDelay = 1 * time.Second
	reconnectMaxDelay = 30 * time.Second

	subscriberBuffer = 16
)

// ClientOpts is the struct given to NewClient.
type ClientOpts struct {
	Endpoint string
	// Dial opens the transport. If not given, the default dialer supporting
	// tcp, ssl, ws and wss endpoints is used.
	Dial         DialFunc
	CallTimeout  time.Duration
	PingInterval time.Duration
}

func (o ClientOpts) validate() error {
	return validateEndpoint(o.Endpoint)
}

// Client is a connection-oriented Electrum protocol client. It multiplexes
// correlated JSON-RPC calls and push notifications over a single transport,
// keeps the connection alive with periodic pings and transparently
// reconnects with exponential backoff, re-issuing every active subscription
// once the new socket is up.
type Client struct {
	opts ClientOpts

	mtx      sync.Mutex
	state    State
	conn     Transport
	connDone chan struct{}
	endpoint string

	writeMtx sync.Mutex

	idCounter uint64

	pendingMtx sync.Mutex
	pending    map[uint64]chan *rpcMessage

	registry *registry
	// subGate serializes Subscribe/Unsubscribe with the reconnection-driven
	// resubscription so the two can never interleave on the wire.
	subGate sync.Mutex

	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter

	stateChanges chan State
}

// NewClient returns a new client for the given server endpoint. The client
// starts in the Disconnected state; no socket is opened before Connect.
func NewClient(opts ClientOpts) (*Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Dial == nil {
		opts.Dial = dialEndpoint
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "electrum",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// a server rejection still proves the connection is healthy
			var serverErr *ServerError
			return errors.As(err, &serverErr)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf(
				"circuit breaker %s changed state from %s to %s",
				name, from.String(), to.String(),
			)
		},
	})

	return &Client{
		opts:         opts,
		state:        Disconnected,
		endpoint:     opts.Endpoint,
		pending:      make(map[uint64]chan *rpcMessage),
		registry:     newRegistry(),
		breaker:      breaker,
		limiter:      rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		stateChanges: make(chan State, 8),
	}, nil
}

// Connect dials the configured endpoint, negotiates the protocol version and
// moves the client to the Connected state. If the client holds subscriptions
// from a previous session they are re-issued.
func (c *Client) Connect() error {
	c.mtx.Lock()
	if c.state != Disconnected {
		c.mtx.Unlock()
		return ErrAlreadyConnected
	}
	c.setStateLocked(Connecting)
	endpoint := c.endpoint
	c.mtx.Unlock()

	conn, err := c.opts.Dial(endpoint)
	if err != nil {
		c.setState(Disconnected)
		return err
	}

	c.startConn(conn)
	if err := c.handshake(); err != nil {
		c.setState(Disconnected)
		conn.Close()
		return err
	}

	c.setState(Connected)
	go c.pingLoop(c.currentDone())
	go c.resubscribeAll()
	log.Infof("connected to electrum server %s", endpoint)
	return nil
}

// Disconnect closes the connection and moves the client to the Disconnected
// state. The subscription registry is preserved: a later Connect restores
// every subscription.
func (c *Client) Disconnect() error {
	c.mtx.Lock()
	if c.state == Disconnected {
		c.mtx.Unlock()
		return nil
	}
	conn := c.conn
	c.conn = nil
	c.setStateLocked(Disconnected)
	c.mtx.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.failPending()
	return nil
}

// SwitchServer retargets the client to another endpoint. If connected, the
// current socket is dropped and the reconnection flow dials the new server
// and re-issues every subscription there.
func (c *Client) SwitchServer(endpoint string) error {
	if err := validateEndpoint(endpoint); err != nil {
		return err
	}

	c.mtx.Lock()
	c.endpoint = endpoint
	conn := c.conn
	connected := c.state == Connected
	c.mtx.Unlock()

	if connected && conn != nil {
		log.Infof("switching electrum server to %s", endpoint)
		conn.Close()
	}
	return nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.state
}

// StateChanges returns the channel where connection state transitions are
// notified.
func (c *Client) StateChanges() <-chan State {
	return c.stateChanges
}

// Subscribe registers interest in the given script hash and returns the
// channel where status updates are delivered. The first subscriber of a
// script hash triggers the subscribe request to the server; later ones share
// the server-side subscription. The subscription lasts until the given
// context is done; the last subscriber leaving triggers the unsubscribe.
func (c *Client) Subscribe(
	ctx context.Context, scriptHash string,
) (<-chan StatusUpdate, error) {
	if len(scriptHash) <= 0 {
		return nil, ErrNullScriptHash
	}

	c.subGate.Lock()
	ch := make(chan StatusUpdate, subscriberBuffer)
	first := c.registry.add(scriptHash, ch)
	if first {
		status, err := c.subscribeOnServer(ctx, scriptHash)
		if err != nil {
			c.registry.remove(scriptHash, ch)
			c.subGate.Unlock()
			return nil, err
		}
		c.registry.setStatus(scriptHash, status)
	}
	c.subGate.Unlock()

	go func() {
		<-ctx.Done()
		c.subGate.Lock()
		last := c.registry.remove(scriptHash, ch)
		c.subGate.Unlock()

		if last && c.State() == Connected {
			callCtx, cancel := context.WithTimeout(
				context.Background(), c.opts.CallTimeout,
			)
			defer cancel()
			if _, err := c.call(
				callCtx, methodUnsubscribe, scriptHash,
			); err != nil {
				log.WithError(err).Warnf(
					"failed to unsubscribe script hash %s", scriptHash,
				)
			}
		}
	}()

	return ch, nil
}

// GetBalance returns the confirmed and unconfirmed balance of a script hash.
func (c *Client) GetBalance(
	ctx context.Context, scriptHash string,
) (*Balance, error) {
	res, err := c.call(ctx, methodGetBalance, scriptHash)
	if err != nil {
		return nil, err
	}
	balance := &Balance{}
	if err := json.Unmarshal(res, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// GetHistory returns the confirmed and mempool history of a script hash.
func (c *Client) GetHistory(
	ctx context.Context, scriptHash string,
) ([]HistoryItem, error) {
	res, err := c.call(ctx, methodGetHistory, scriptHash)
	if err != nil {
		return nil, err
	}
	history := make([]HistoryItem, 0)
	if err := json.Unmarshal(res, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// ListUnspent returns the unspent outputs of a script hash.
func (c *Client) ListUnspent(
	ctx context.Context, scriptHash string,
) ([]Unspent, error) {
	res, err := c.call(ctx, methodListUnspent, scriptHash)
	if err != nil {
		return nil, err
	}
	unspents := make([]Unspent, 0)
	if err := json.Unmarshal(res, &unspents); err != nil {
		return nil, err
	}
	return unspents, nil
}

// GetRawTransaction returns the raw transaction with the given id in hex
// format.
func (c *Client) GetRawTransaction(
	ctx context.Context, txid string,
) (string, error) {
	res, err := c.call(ctx, methodGetRawTx, txid)
	if err != nil {
		return "", err
	}
	var txHex string
	if err := json.Unmarshal(res, &txHex); err != nil {
		return "", err
	}
	return txHex, nil
}

// Broadcast submits a signed transaction in hex format to the network and
// returns its id. A rejection by the server is returned as a ServerError.
func (c *Client) Broadcast(ctx context.Context, txHex string) (string, error) {
	res, err := c.call(ctx, methodBroadcast, txHex)
	if err != nil {
		return "", err
	}
	var txid string
	if err := json.Unmarshal(res, &txid); err != nil {
		return "", err
	}
	return txid, nil
}

// RelayFee returns the minimum fee rate accepted by the server's mempool,
// expressed in BTC per kilobyte.
func (c *Client) RelayFee(ctx context.Context) (float64, error) {
	res, err := c.call(ctx, methodRelayFee)
	if err != nil {
		return 0, err
	}
	var fee float64
	if err := json.Unmarshal(res, &fee); err != nil {
		return 0, err
	}
	return fee, nil
}

// Ping keeps the session alive on the server side.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, methodPing)
	return err
}

func (c *Client) startConn(conn Transport) {
	done := make(chan struct{})
	c.mtx.Lock()
	c.conn = conn
	c.connDone = done
	c.mtx.Unlock()
	go c.readLoop(conn, done)
}

func (c *Client) handshake() error {
	ctx, cancel := context.WithTimeout(
		context.Background(), c.opts.CallTimeout,
	)
	defer cancel()
	_, err := c.doCall(ctx, methodVersion, []interface{}{
		clientName, protocolVersion,
	})
	return err
}

// call is the gate of every protocol request: it requires the Connected
// state and goes through the circuit breaker.
func (c *Client) call(
	ctx context.Context, method string, params ...interface{},
) (json.RawMessage, error) {
	if c.State() != Connected {
		return nil, ErrNotConnected
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doCall(ctx, method, params)
	})
	if err != nil {
		return nil, err
	}
	return res.(json.RawMessage), nil
}

func (c *Client) doCall(
	ctx context.Context, method string, params []interface{},
) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	id := atomic.AddUint64(&c.idCounter, 1)
	buf, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan *rpcMessage, 1)
	c.pendingMtx.Lock()
	c.pending[id] = ch
	c.pendingMtx.Unlock()
	defer func() {
		c.pendingMtx.Lock()
		delete(c.pending, id)
		c.pendingMtx.Unlock()
	}()

	c.mtx.Lock()
	conn := c.conn
	c.mtx.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	c.writeMtx.Lock()
	err = conn.WriteMessage(buf)
	c.writeMtx.Unlock()
	if err != nil {
		return nil, err
	}

	select {
	case msg := <-ch:
		if msg == nil {
			return nil, ErrConnectionDropped
		}
		if msg.Error != nil {
			return nil, msg.Error
		}
		return msg.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) readLoop(conn Transport, done chan struct{}) {
	for {
		buf, err := conn.ReadMessage()
		if err != nil {
			close(done)

			// a loop whose socket was already replaced by Disconnect or a
			// newer Connect must not touch the live connection's pending
			// calls
			c.mtx.Lock()
			isCurrent := c.conn == conn
			shouldReconnect := isCurrent && c.state == Connected
			if isCurrent {
				c.conn = nil
			}
			c.mtx.Unlock()

			if isCurrent {
				c.failPending()
			}
			if shouldReconnect {
				log.WithError(err).Warn("connection dropped")
				go c.reconnect()
			}
			return
		}
		c.route(buf)
	}
}

func (c *Client) route(buf []byte) {
	msg := &rpcMessage{}
	if err := json.Unmarshal(buf, msg); err != nil {
		log.WithError(err).Warn("discarded malformed server message")
		return
	}

	if msg.ID != nil {
		c.pendingMtx.Lock()
		ch, ok := c.pending[*msg.ID]
		if ok {
			delete(c.pending, *msg.ID)
		}
		c.pendingMtx.Unlock()
		if !ok {
			log.Warnf("discarded response with unknown id %d", *msg.ID)
			return
		}
		ch <- msg
		return
	}

	if msg.Method == methodSubscribe && len(msg.Params) >= 2 {
		var scriptHash, status string
		if err := json.Unmarshal(msg.Params[0], &scriptHash); err != nil {
			return
		}
		if err := json.Unmarshal(msg.Params[1], &status); err != nil {
			return
		}
		c.registry.dispatch(StatusUpdate{
			ScriptHash: scriptHash,
			Status:     status,
		})
	}
}

// reconnect dials the current endpoint with exponential backoff until the
// connection is restored or the client is explicitly disconnected, then
// re-issues every active subscription.
func (c *Client) reconnect() {
	c.mtx.Lock()
	if c.state != Connected {
		c.mtx.Unlock()
		return
	}
	c.conn = nil
	c.setStateLocked(Reconnecting)
	c.mtx.Unlock()

	delay := reconnectMinDelay
	for {
		c.mtx.Lock()
		if c.state != Reconnecting {
			c.mtx.Unlock()
			return
		}
		endpoint := c.endpoint
		c.mtx.Unlock()

		conn, err := c.opts.Dial(endpoint)
		if err == nil {
			if c.State() != Reconnecting {
				conn.Close()
				return
			}
			c.startConn(conn)
			if err = c.handshake(); err == nil {
				c.setState(Connected)
				go c.pingLoop(c.currentDone())
				c.resubscribeAll()
				log.Infof("reconnected to electrum server %s", endpoint)
				return
			}
			conn.Close()
		}

		log.WithError(err).Warnf(
			"reconnection to %s failed, retrying in %s", endpoint, delay,
		)
		time.Sleep(delay)
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

// resubscribeAll re-issues every subscription of the registry in small
// rate-limited batches. A batch failing is retried once and then skipped,
// the remaining batches are issued regardless.
func (c *Client) resubscribeAll() {
	c.subGate.Lock()
	defer c.subGate.Unlock()

	hashes := c.registry.scriptHashes()
	if len(hashes) <= 0 {
		return
	}
	log.Infof("re-issuing %d subscriptions", len(hashes))

	for start := 0; start < len(hashes); start += resubscribeBatchSize {
		end := start + resubscribeBatchSize
		if end > len(hashes) {
			end = len(hashes)
		}
		batch := hashes[start:end]

		if err := c.limiter.Wait(context.Background()); err != nil {
			return
		}
		if err := c.resubscribeBatch(batch); err != nil {
			if err := c.resubscribeBatch(batch); err != nil {
				log.WithError(err).Warnf(
					"failed to re-subscribe batch of %d script hashes",
					len(batch),
				)
			}
		}
	}
}

func (c *Client) resubscribeBatch(batch []string) error {
	for _, scriptHash := range batch {
		ctx, cancel := context.WithTimeout(
			context.Background(), c.opts.CallTimeout,
		)
		status, err := c.subscribeOnServer(ctx, scriptHash)
		cancel()
		if err != nil {
			return err
		}

		// the status may have moved while the connection was down
		if prev, ok := c.registry.statusOf(scriptHash); ok && prev != status {
			c.registry.dispatch(StatusUpdate{
				ScriptHash: scriptHash,
				Status:     status,
			})
		}
	}
	return nil
}

func (c *Client) subscribeOnServer(
	ctx context.Context, scriptHash string,
) (string, error) {
	res, err := c.call(ctx, methodSubscribe, scriptHash)
	if err != nil {
		return "", err
	}
	var status string
	if len(res) > 0 && string(res) != "null" {
		if err := json.Unmarshal(res, &status); err != nil {
			return "", err
		}
	}
	return status, nil
}

func (c *Client) pingLoop(done chan struct{}) {
	t := time.NewTicker(c.opts.PingInterval)
	defer t.Stop()

	for {
		select {
		case <-done:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(
				context.Background(), c.opts.CallTimeout,
			)
			if err := c.Ping(ctx); err != nil {
				log.WithError(err).Warn("server ping failed")
			}
			cancel()
		}
	}
}

func (c *Client) failPending() {
	c.pendingMtx.Lock()
	defer c.pendingMtx.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) currentDone() chan struct{} {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.connDone
}

func (c *Client) setState(s State) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.setStateLocked(s)
}

func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	select {
	case c.stateChanges <- s:
	default:
	}
}
