// Package imagecache implements the asynchronous network image cache.
//
// A Cache mediates between an HTTP resource loader, a background decode
// worker pool, and UI consumer code. All mutable cache state is owned by a
// single coordinator goroutine running a blocking select over three inboxes:
// client commands, keyed fetch progress, and decode completions. No other
// goroutine ever touches that state; every interaction is a message.
//
// The central invariant is deduplication: no matter how many concurrent
// requests arrive for a URL, at most one fetch and at most one decode are in
// flight for it at a time, and every requester receives exactly one terminal
// notification. Terminal results are memoized per URL, so repeated requests
// after completion are answered without touching the network.
//
// Failure policy: a network-level failure substitutes the shared placeholder
// image (when one is configured); a decode failure never does. An image that
// cannot be reached and an image that cannot be decoded are different
// failure modes, and only the first one gets a stand-in.
package imagecache

import (
	"context"
	"image"
	"image/draw"
	"sync"

	"github.com/jellydator/ttlcache/v3"

	"github.com/go-drift/imagecache/pkg/decode"
	"github.com/go-drift/imagecache/pkg/errors"
	"github.com/go-drift/imagecache/pkg/fetch"
	"github.com/go-drift/imagecache/pkg/texture"
)

// command is a client message into the coordinator loop.
type command interface {
	isCommand()
}

type requestCommand struct {
	url          string
	ch           chan<- ImageResponse
	fn           ResponseFunc
	wantMetadata bool
}

type queryCommand struct {
	url            string
	usePlaceholder UsePlaceholder
	wantMetadata   bool
	reply          chan queryResult
}

type statsCommand struct {
	reply chan Stats
}

type exitCommand struct {
	ack chan struct{}
}

func (*requestCommand) isCommand() {}
func (*queryCommand) isCommand()   {}
func (*statsCommand) isCommand()   {}
func (*exitCommand) isCommand()    {}

type queryResult struct {
	image    *Image
	metadata *Metadata
	state    ImageState
}

// keyedEvent is one fetch progress event routed to its load.
type keyedEvent struct {
	key   LoadKey
	event fetch.Event
}

// Stats is a point-in-time snapshot of cache occupancy.
type Stats struct {
	// Pending is the number of in-flight loads.
	Pending int
	// Completed is the number of memoized terminal results.
	Completed int
	// KeysIssued is the total number of load keys ever allocated.
	KeysIssued uint64
}

// Cache is the image cache coordinator handle. All methods are safe for
// concurrent use from any goroutine.
type Cache struct {
	cmds     chan command
	progress chan keyedEvent
	done     chan struct{}

	loader     fetch.Loader
	dispatcher *decode.Dispatcher
	registry   texture.Registry

	// Coordinator-owned state; touched only from run().
	pending     *allPendingLoads
	completed   *ttlcache.Cache[string, ImageResponse]
	placeholder *Image

	completedTTLRunning bool
	shutdownOnce        sync.Once
}

// New creates a cache and starts its coordinator goroutine.
func New(opts Options) *Cache {
	loader := opts.Loader
	if loader == nil {
		if opts.FetchTimeout > 0 {
			loader = fetch.NewHTTPLoader(opts.FetchTimeout)
		} else {
			loader = fetch.DefaultHTTPLoader()
		}
	}

	var copts []ttlcache.Option[string, ImageResponse]
	if opts.CompletedCapacity > 0 {
		copts = append(copts, ttlcache.WithCapacity[string, ImageResponse](opts.CompletedCapacity))
	}
	if opts.CompletedTTL > 0 {
		copts = append(copts,
			ttlcache.WithTTL[string, ImageResponse](opts.CompletedTTL),
			ttlcache.WithDisableTouchOnHit[string, ImageResponse](),
		)
	}

	c := &Cache{
		cmds:       make(chan command, 16),
		progress:   make(chan keyedEvent, 64),
		done:       make(chan struct{}),
		loader:     loader,
		dispatcher: decode.NewDispatcher(opts.Workers),
		registry:   opts.Registry,
		pending:    newAllPendingLoads(),
		completed:  ttlcache.New[string, ImageResponse](copts...),
	}

	if opts.CompletedTTL > 0 {
		c.completedTTLRunning = true
		go c.completed.Start()
	}

	if p := loadPlaceholder(opts); p != nil {
		c.registerTexture(p, "placeholder")
		c.placeholder = p
	}

	go c.run()
	return c
}

// RequestImage starts (or joins) a load of url and registers interest in its
// terminal result.
//
// Notifications are delivered to ch (non-blocking sends; give it capacity)
// and/or fn. Either may be nil; with both nil the call is a prefetch. If the
// URL already completed, the memoized response is delivered without a new
// fetch. Exactly one terminal notification is delivered per call.
func (c *Cache) RequestImage(url string, ch chan<- ImageResponse, fn ResponseFunc) {
	c.send(&requestCommand{url: url, ch: ch, fn: fn})
}

// RequestImageAndMetadata is RequestImage with metadata notifications
// enabled: if the image's dimensions become known before the load finishes,
// a ResponseMetadataLoaded notification is delivered first.
func (c *Cache) RequestImageAndMetadata(url string, ch chan<- ImageResponse, fn ResponseFunc) {
	c.send(&requestCommand{url: url, ch: ch, fn: fn, wantMetadata: true})
}

// ImageIfAvailable reports whether a decoded image for url is ready right
// now. It never starts a load.
//
// The returned state distinguishes StatePending (a load is in flight; wait)
// from StateNotRequested (no load was ever started; the caller should issue
// a RequestImage).
func (c *Cache) ImageIfAvailable(url string, usePlaceholder UsePlaceholder) (*Image, ImageState) {
	res := c.query(&queryCommand{url: url, usePlaceholder: usePlaceholder})
	return res.image, res.state
}

// ImageOrMetadataIfAvailable is ImageIfAvailable but also surfaces
// mid-stream metadata: a URL whose dimensions are known while its load is
// still in flight reports StateMetadataAvailable.
func (c *Cache) ImageOrMetadataIfAvailable(url string, usePlaceholder UsePlaceholder) (ImageOrMetadata, ImageState) {
	res := c.query(&queryCommand{url: url, usePlaceholder: usePlaceholder, wantMetadata: true})
	return ImageOrMetadata{Image: res.image, Metadata: res.metadata}, res.state
}

// Placeholder returns the shared placeholder image, or nil if none was
// configured or loadable.
func (c *Cache) Placeholder() *Image {
	return c.placeholder
}

// Stats returns a snapshot of cache occupancy.
func (c *Cache) Stats() Stats {
	cmd := &statsCommand{reply: make(chan Stats, 1)}
	if !c.send(cmd) {
		return Stats{}
	}
	select {
	case s := <-cmd.reply:
		return s
	case <-c.done:
		return Stats{}
	}
}

// Shutdown drains the cache and stops the coordinator. It blocks until
// every in-flight load has reached a terminal state and been delivered;
// requests issued after Shutdown are dropped.
func (c *Cache) Shutdown() {
	cmd := &exitCommand{ack: make(chan struct{})}
	if c.send(cmd) {
		<-cmd.ack
	}
	<-c.done
	c.shutdownOnce.Do(func() {
		c.dispatcher.Close()
		if c.completedTTLRunning {
			c.completed.Stop()
		}
	})
}

// send delivers a command to the coordinator, dropping it if the loop has
// already exited.
func (c *Cache) send(cmd command) bool {
	select {
	case c.cmds <- cmd:
		return true
	case <-c.done:
		return false
	}
}

func (c *Cache) query(q *queryCommand) queryResult {
	q.reply = make(chan queryResult, 1)
	if !c.send(q) {
		return queryResult{state: StateNotRequested}
	}
	select {
	case res := <-q.reply:
		return res
	case <-c.done:
		return queryResult{state: StateNotRequested}
	}
}

// run is the coordinator event loop. It owns all cache state and blocks
// only in the top-level select; handlers never block on I/O.
func (c *Cache) run() {
	defer close(c.done)

	var exitAcks []chan struct{}
	for {
		select {
		case cmd := <-c.cmds:
			switch cmd := cmd.(type) {
			case *requestCommand:
				c.handleRequest(cmd)
			case *queryCommand:
				cmd.reply <- c.handleQuery(cmd)
			case *statsCommand:
				cmd.reply <- Stats{
					Pending:    c.pending.len(),
					Completed:  c.completed.Len(),
					KeysIssued: c.pending.keysIssued(),
				}
			case *exitCommand:
				exitAcks = append(exitAcks, cmd.ack)
			}
		case ev := <-c.progress:
			c.handleProgress(ev)
		case res := <-c.dispatcher.Results():
			c.handleDecode(res)
		}

		// Shutdown acks only once all in-flight work has drained; other
		// goroutines may be blocked waiting on those loads.
		if len(exitAcks) > 0 && c.pending.len() == 0 {
			for _, ack := range exitAcks {
				close(ack)
			}
			return
		}
	}
}

func (c *Cache) handleRequest(cmd *requestCommand) {
	l := &listener{ch: cmd.ch, fn: cmd.fn, wantMetadata: cmd.wantMetadata}

	// Completed fast path: answer from the memoization table.
	if item := c.completed.Get(cmd.url); item != nil {
		l.notify(item.Value())
		return
	}

	result, key, load := c.pending.getCached(cmd.url)
	load.addListener(l)

	// A late registrant still sees metadata before its terminal response.
	if l.wantMetadata && load.metadata != nil {
		l.notify(ImageResponse{Kind: ResponseMetadataLoaded, Metadata: load.metadata})
	}

	if result == cacheMiss {
		c.startFetch(key, cmd.url)
	}
}

// startFetch issues the network load for a fresh key. The adapter goroutine
// tags every progress event with the key and forwards it into the
// coordinator's progress inbox.
func (c *Cache) startFetch(key LoadKey, url string) {
	go func() {
		defer errors.Recover("imagecache.startFetch")
		c.loader.Fetch(context.Background(), url, func(ev fetch.Event) {
			select {
			case c.progress <- keyedEvent{key: key, event: ev}:
			case <-c.done:
			}
		})
	}()
}

func (c *Cache) handleProgress(ev keyedEvent) {
	load, ok := c.pending.byKey(ev.key)
	if !ok {
		// Late or duplicate event for a load that already completed
		// (e.g. progress after failure-driven early completion): drop.
		return
	}

	switch ev.event.Kind {
	case fetch.EventHeadersAvailable:
		// No state change.

	case fetch.EventDataAvailable:
		if load.fetchDone {
			return
		}
		load.buffer = append(load.buffer, ev.event.Data...)
		if load.metadata == nil {
			if meta, ok := decode.SniffMetadata(load.buffer); ok {
				load.metadata = &meta
				resp := ImageResponse{Kind: ResponseMetadataLoaded, Metadata: load.metadata}
				for _, l := range load.listeners {
					if l.wantMetadata {
						l.notify(resp)
					}
				}
			}
		}

	case fetch.EventResponseComplete:
		if load.fetchDone {
			return
		}
		load.fetchDone = true
		load.fetchErr = ev.event.Err

		if ev.event.Err != nil {
			errors.Report(&errors.CacheError{
				Op:   "imagecache.fetch",
				Kind: errors.KindFetch,
				URL:  load.url,
				Err:  ev.event.Err,
			})
			if c.placeholder != nil {
				c.completeLoad(ev.key, ImageResponse{Kind: ResponsePlaceholderLoaded, Image: c.placeholder})
			} else {
				c.completeLoad(ev.key, ImageResponse{Kind: ResponseNone})
			}
			return
		}

		// Hand the accumulated bytes to the decode pool; the load stays
		// pending until the decode completes.
		buffer := load.buffer
		load.buffer = nil
		c.dispatcher.Submit(uint64(ev.key), buffer)
	}
}

func (c *Cache) handleDecode(res decode.Result) {
	key := LoadKey(res.Key)
	load, ok := c.pending.byKey(key)
	if !ok {
		// Unknown key: the load is gone; drop.
		return
	}

	if res.Image == nil {
		errors.Report(&errors.CacheError{
			Op:   "imagecache.decode",
			Kind: errors.KindDecode,
			URL:  load.url,
			Err:  res.Err,
		})
		// Decode failure never substitutes the placeholder: an
		// undecodable image is not "can't reach it".
		c.completeLoad(key, ImageResponse{Kind: ResponseNone})
		return
	}

	img := newImage(res.Image)
	c.registerTexture(img, load.url)
	c.completeLoad(key, ImageResponse{Kind: ResponseLoaded, Image: img})
}

// completeLoad is the shared terminal transition: detach the load from the
// dedup index, memoize the response, and notify listeners in registration
// order.
func (c *Cache) completeLoad(key LoadKey, resp ImageResponse) {
	load := c.pending.remove(key)
	c.completed.Set(load.url, resp, ttlcache.DefaultTTL)
	for _, l := range load.listeners {
		l.notify(resp)
	}
}

// registerTexture uploads the image to the configured registry and attaches
// the returned handle. Registration failure leaves the record usable as a
// plain bitmap.
func (c *Cache) registerTexture(img *Image, url string) {
	if c.registry == nil || img.Width <= 0 || img.Height <= 0 {
		return
	}

	rgba, ok := img.Bitmap.(*image.RGBA)
	if !ok || rgba.Stride != 4*img.Width {
		converted := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
		draw.Draw(converted, converted.Bounds(), img.Bitmap, img.Bitmap.Bounds().Min, draw.Src)
		rgba = converted
	}

	handle, err := c.registry.Register(img.Width, img.Height, texture.FormatRGBA8, rgba.Pix)
	if err != nil {
		errors.Report(&errors.CacheError{
			Op:   "imagecache.registerTexture",
			Kind: errors.KindUnknown,
			URL:  url,
			Err:  err,
		})
		return
	}
	img.Texture = handle
}

func (c *Cache) handleQuery(q *queryCommand) queryResult {
	if item := c.completed.Get(q.url); item != nil {
		resp := item.Value()
		switch resp.Kind {
		case ResponseLoaded:
			return queryResult{image: resp.Image, state: StateAvailable}
		case ResponsePlaceholderLoaded:
			if q.usePlaceholder == UsePlaceholderYes {
				return queryResult{image: resp.Image, state: StateAvailable}
			}
			return queryResult{state: StateLoadError}
		default:
			return queryResult{state: StateLoadError}
		}
	}

	if load, ok := c.pending.byURL(q.url); ok {
		if q.wantMetadata && load.metadata != nil {
			return queryResult{metadata: load.metadata, state: StateMetadataAvailable}
		}
		return queryResult{state: StatePending}
	}

	return queryResult{state: StateNotRequested}
}
