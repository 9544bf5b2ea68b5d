package electrum

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// subscription is the client-side interest in one script hash: the last
// status pushed by the server and the channels of every local subscriber.
type subscription struct {
	scriptHash string
	status     string
	chans      []chan StatusUpdate
}

// registry tracks the set of active subscriptions. It survives socket drops
// and server switches untouched, so a reconnection can re-issue every
// subscribe from it.
type registry struct {
	mtx  sync.RWMutex
	subs map[string]*subscription
}

func newRegistry() *registry {
	return &registry{
		subs: make(map[string]*subscription),
	}
}

// add registers a new subscriber channel for the given script hash and
// returns whether the script hash was not watched before, ie whether the
// caller must issue a subscribe to the server.
func (r *registry) add(scriptHash string, ch chan StatusUpdate) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	sub, ok := r.subs[scriptHash]
	if !ok {
		sub = &subscription{scriptHash: scriptHash}
		r.subs[scriptHash] = sub
	}
	sub.chans = append(sub.chans, ch)
	return !ok
}

// remove drops a subscriber channel and returns whether the script hash is
// left with no subscribers at all, ie whether the caller should issue an
// unsubscribe to the server.
func (r *registry) remove(scriptHash string, ch chan StatusUpdate) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	sub, ok := r.subs[scriptHash]
	if !ok {
		return false
	}
	for i, c := range sub.chans {
		if c == ch {
			sub.chans = append(sub.chans[:i], sub.chans[i+1:]...)
			break
		}
	}
	if len(sub.chans) > 0 {
		return false
	}
	delete(r.subs, scriptHash)
	return true
}

// scriptHashes returns the script hashes currently watched.
func (r *registry) scriptHashes() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	hashes := make([]string, 0, len(r.subs))
	for h := range r.subs {
		hashes = append(hashes, h)
	}
	return hashes
}

// dispatch fans a status update out to every subscriber of its script hash.
// Sends never block: a subscriber that does not drain its channel loses the
// update and a warning is logged. It records the delivered status, so it
// needs the write lock.
func (r *registry) dispatch(update StatusUpdate) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	sub, ok := r.subs[update.ScriptHash]
	if !ok {
		return
	}
	if sub.status == update.Status {
		return
	}
	sub.status = update.Status

	for _, ch := range sub.chans {
		select {
		case ch <- update:
		default:
			log.Warnf(
				"dropped status update for script hash %s: slow subscriber",
				update.ScriptHash,
			)
		}
	}
}

// setStatus records the status returned by the server on (re)subscription
// without notifying subscribers.
func (r *registry) setStatus(scriptHash, status string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if sub, ok := r.subs[scriptHash]; ok {
		sub.status = status
	}
}

// statusOf returns the last known status of a script hash.
func (r *registry) statusOf(scriptHash string) (string, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	sub, ok := r.subs[scriptHash]
	if !ok {
		return "", false
	}
	return sub.status, true
}

func (r *registry) size() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.subs)
}
