package decode

import (
	"image"
	"runtime"
	"sync"
)

// Result is one decode completion. Image is nil when decoding failed; Err
// then carries the reason.
type Result struct {
	Key   uint64
	Image image.Image
	Err   error
}

type job struct {
	key  uint64
	data []byte
}

// Dispatcher decodes byte buffers on a fixed-size worker pool.
//
// Submit never blocks the caller. Results arrive on the Results channel in
// completion order, which may differ from submission order; consumers must
// route purely by Result.Key.
type Dispatcher struct {
	jobs    chan job
	results chan Result

	workers int
	wg      sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	submitWG sync.WaitGroup
}

// NewDispatcher starts a pool of the given size. A non-positive size uses
// runtime.NumCPU.
func NewDispatcher(workers int) *Dispatcher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	d := &Dispatcher{
		jobs:    make(chan job, 4*workers),
		results: make(chan Result, 4*workers),
		workers: workers,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.jobs {
		img, err := Image(j.data)
		d.results <- Result{Key: j.key, Image: img, Err: err}
	}
}

// Workers returns the pool size.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Submit queues data for decoding under key. It never blocks: if the job
// queue is full the hand-off is completed from a transient goroutine.
// Submit after Close is a no-op.
func (d *Dispatcher) Submit(key uint64, data []byte) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.submitWG.Add(1)
	d.mu.Unlock()

	j := job{key: key, data: data}
	select {
	case d.jobs <- j:
		d.submitWG.Done()
	default:
		go func() {
			d.jobs <- j
			d.submitWG.Done()
		}()
	}
}

// Results returns the completion channel. It is closed after Close once all
// submitted jobs have finished.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

// Close stops accepting jobs, waits for in-flight decodes, and closes the
// results channel. Callers must drain Results concurrently or have consumed
// all outstanding completions already.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.submitWG.Wait()
	close(d.jobs)
	d.wg.Wait()
	close(d.results)
}
