// Package fetch defines the resource-loader contract consumed by the image
// cache.
//
// A Loader streams the raw bytes of a URL as a sequence of progress events:
// headers, zero or more data chunks, and exactly one terminal completion
// carrying the network-level result. The cache routes these events into its
// coordinator; loaders never see cache state.
package fetch

import "context"

// EventKind identifies a progress event in a fetch stream.
type EventKind int

const (
	// EventHeadersAvailable signals that response headers arrived.
	EventHeadersAvailable EventKind = iota
	// EventDataAvailable carries one chunk of response body bytes.
	EventDataAvailable
	// EventResponseComplete terminates the stream with the network result.
	EventResponseComplete
)

func (k EventKind) String() string {
	switch k {
	case EventHeadersAvailable:
		return "headers"
	case EventDataAvailable:
		return "data"
	case EventResponseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Event is one progress notification from a Loader.
type Event struct {
	Kind EventKind
	// Data holds the chunk bytes for EventDataAvailable. The receiver owns
	// the slice; loaders must not reuse it after emitting.
	Data []byte
	// Err holds the network-level result for EventResponseComplete.
	// Nil means the resource was fetched successfully.
	Err error
}

// Headers returns a headers-available event.
func Headers() Event {
	return Event{Kind: EventHeadersAvailable}
}

// Data returns a data-available event carrying chunk.
func Data(chunk []byte) Event {
	return Event{Kind: EventDataAvailable, Data: chunk}
}

// Complete returns a terminal event with the given network result.
func Complete(err error) Event {
	return Event{Kind: EventResponseComplete, Err: err}
}

// Loader streams the resource at a URL.
//
// Implementations call emit sequentially from a single goroutine, finishing
// with exactly one EventResponseComplete. Fetch returns once the stream has
// terminated. There is no cancellation beyond ctx: once issued, a fetch runs
// to completion or failure.
type Loader interface {
	Fetch(ctx context.Context, url string, emit func(Event))
}
