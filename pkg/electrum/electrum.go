// Package electrum implements a client for the Electrum wire protocol:
// correlated JSON-RPC requests, push notifications keyed by script hash and
// a connection state machine that transparently reconnects and re-issues
// every active subscription.
package electrum

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	methodVersion     = "server.version"
	methodPing        = "server.ping"
	methodGetBalance  = "blockchain.scripthash.get_balance"
	methodGetHistory  = "blockchain.scripthash.get_history"
	methodListUnspent = "blockchain.scripthash.listunspent"
	methodSubscribe   = "blockchain.scripthash.subscribe"
	methodUnsubscribe = "blockchain.scripthash.unsubscribe"
	methodBroadcast   = "blockchain.transaction.broadcast"
	methodGetRawTx    = "blockchain.transaction.get"
	methodRelayFee    = "blockchain.relayfee"

	clientName      = "faro-daemon"
	protocolVersion = "1.4"
)

var (
	// ErrNullEndpoint ...
	ErrNullEndpoint = errors.New("server endpoint must not be null")
	// ErrInvalidEndpoint ...
	ErrInvalidEndpoint = errors.New(
		"server endpoint must be a tcp://, ssl://, ws:// or wss:// URL",
	)
	// ErrNullScriptHash ...
	ErrNullScriptHash = errors.New("script hash must not be null")
	// ErrNotConnected is returned when a protocol call is attempted while
	// the client is not in the Connected state.
	ErrNotConnected = errors.New("client is not connected")
	// ErrAlreadyConnected ...
	ErrAlreadyConnected = errors.New("client is already connected")
	// ErrConnectionDropped is the failure handed to requests that were
	// in flight when the socket dropped.
	ErrConnectionDropped = errors.New("connection dropped")
)

// ServerError is a failure reported by the server for a single request,
// e.g. the rejection of a broadcasted transaction.
type ServerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server rejected request (%d): %s", e.Code, e.Message)
}

// State is the connection state of a client.
type State int32

const (
	// Disconnected is the initial state and the outcome of an explicit
	// disconnect.
	Disconnected State = iota
	// Connecting ...
	Connecting
	// Connected is the only state in which protocol calls are accepted.
	Connected
	// Reconnecting is entered on socket error or server switch.
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Balance is the confirmed/unconfirmed pair returned for a script hash.
type Balance struct {
	Confirmed   int64 `json:"confirmed"`
	Unconfirmed int64 `json:"unconfirmed"`
}

// Total returns the sum of the confirmed and unconfirmed balance.
func (b Balance) Total() int64 { return b.Confirmed + b.Unconfirmed }

// HistoryItem is one entry of a script hash history. Height 0 means the
// transaction sits in the mempool, -1 that some of its inputs are
// unconfirmed too.
type HistoryItem struct {
	TxHash string `json:"tx_hash"`
	Height int32  `json:"height"`
	Fee    uint64 `json:"fee,omitempty"`
}

// Confirmed returns whether the history entry is included in a block.
func (h HistoryItem) Confirmed() bool { return h.Height > 0 }

// Unspent is an unspent output of a script hash as reported by the server.
type Unspent struct {
	TxHash string `json:"tx_hash"`
	TxPos  uint32 `json:"tx_pos"`
	Value  uint64 `json:"value"`
	Height int32  `json:"height"`
}

// StatusUpdate is the push notification delivered when the status of a
// watched script hash changes. An empty status means the script hash has no
// history at all.
type StatusUpdate struct {
	ScriptHash string
	Status     string
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcMessage struct {
	ID     *uint64           `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	Result json.RawMessage   `json:"result"`
	Error  *ServerError      `json:"error"`
}
