package imagecache

import (
	"github.com/go-drift/imagecache/pkg/errors"
)

// LoadKey identifies one load attempt. Keys are allocated on first miss for
// a URL, increase monotonically, and are never reused. They are not
// content-addressed: distinct URLs get distinct keys even for identical
// bytes.
type LoadKey uint64

// listener is one registered interest in a pending load.
type listener struct {
	ch           chan<- ImageResponse
	fn           ResponseFunc
	wantMetadata bool
}

// notify delivers a response to the listener. Delivery is fire-and-forget:
// a full or closed channel drops the notification rather than blocking or
// killing the coordinator.
func (l *listener) notify(resp ImageResponse) {
	defer errors.Recover("imagecache.notify")
	if l.ch != nil {
		select {
		case l.ch <- resp:
		default:
		}
	}
	if l.fn != nil {
		l.fn(resp)
	}
}

// pendingLoad is the mutable state of one in-flight load. It is owned
// exclusively by the coordinator goroutine and destroyed the moment the
// load reaches a terminal state.
type pendingLoad struct {
	url string

	// buffer accumulates response bytes; it only grows, and is handed off
	// (reset to nil) when the fetch completes successfully.
	buffer []byte

	// metadata is set at most once, on the first successful sniff, and
	// never cleared.
	metadata *Metadata

	// fetchDone/fetchErr record the network stream's terminal result,
	// set exactly once.
	fetchDone bool
	fetchErr  error

	// listeners in registration order; append-only while pending.
	listeners []*listener
}

func newPendingLoad(url string) *pendingLoad {
	return &pendingLoad{url: url}
}

func (p *pendingLoad) addListener(l *listener) {
	p.listeners = append(p.listeners, l)
}

// cacheResult reports whether getCached found an existing in-flight load.
type cacheResult int

const (
	cacheHit cacheResult = iota
	cacheMiss
)

// allPendingLoads is the deduplication index: URL -> LoadKey and
// LoadKey -> pendingLoad. The two maps always describe the same set of
// loads; a URL appears here if and only if it has a non-terminal load in
// flight.
type allPendingLoads struct {
	loads    map[LoadKey]*pendingLoad
	urlToKey map[string]LoadKey
	nextKey  LoadKey
}

func newAllPendingLoads() *allPendingLoads {
	return &allPendingLoads{
		loads:    make(map[LoadKey]*pendingLoad),
		urlToKey: make(map[string]LoadKey),
	}
}

// getCached returns the in-flight load for url, creating one on miss. This
// is the deduplication contract: callers issue a fetch only on cacheMiss, so
// at most one fetch and one decode are ever in flight per URL.
func (a *allPendingLoads) getCached(url string) (cacheResult, LoadKey, *pendingLoad) {
	if key, ok := a.urlToKey[url]; ok {
		load, ok := a.loads[key]
		if !ok {
			errors.Invariant("imagecache.getCached", "url %q maps to key %d with no load", url, key)
		}
		return cacheHit, key, load
	}

	a.nextKey++
	key := a.nextKey
	load := newPendingLoad(url)
	a.loads[key] = load
	a.urlToKey[url] = key
	return cacheMiss, key, load
}

// byKey is the hot path routing progress and decode events back to their
// load.
func (a *allPendingLoads) byKey(key LoadKey) (*pendingLoad, bool) {
	load, ok := a.loads[key]
	return load, ok
}

func (a *allPendingLoads) byURL(url string) (*pendingLoad, bool) {
	key, ok := a.urlToKey[url]
	if !ok {
		return nil, false
	}
	load, ok := a.loads[key]
	if !ok {
		errors.Invariant("imagecache.byURL", "url %q maps to key %d with no load", url, key)
	}
	return load, true
}

// remove detaches and returns the load for key, deleting both index entries.
// Desync between the maps means the coordinator itself is buggy; that is
// fatal.
func (a *allPendingLoads) remove(key LoadKey) *pendingLoad {
	load, ok := a.loads[key]
	if !ok {
		errors.Invariant("imagecache.remove", "no pending load for key %d", key)
	}
	mapped, ok := a.urlToKey[load.url]
	if !ok || mapped != key {
		errors.Invariant("imagecache.remove", "url %q not mapped to key %d (got %d, present=%v)", load.url, key, mapped, ok)
	}
	delete(a.loads, key)
	delete(a.urlToKey, load.url)
	return load
}

func (a *allPendingLoads) len() int {
	return len(a.loads)
}

// keysIssued returns how many load keys have been allocated so far.
func (a *allPendingLoads) keysIssued() uint64 {
	return uint64(a.nextKey)
}
