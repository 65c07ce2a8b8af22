// Package reactor implements the single-threaded cooperative event loop
// that the streaming drivers and catalog operations run on. Callbacks are
// dispatched in FIFO order on the goroutine that calls Run, one at a time,
// never preempted. Asynchronous work (file I/O, codec passes offloaded to
// workers) registers itself so that Run keeps pumping until every posted
// completion has been drained.
package reactor

import (
	"sync"
)

// Reactor is a run-to-completion task queue. Schedule may be called from
// any goroutine; scheduled callbacks only ever execute on the goroutine
// that calls Run.
type Reactor struct {
	mu       sync.Mutex
	queue    []func()
	pending  int // asynchronous operations that will post a completion
	wake     chan struct{}
	sleeping bool
}

// New returns an empty reactor.
func New() *Reactor {
	return &Reactor{wake: make(chan struct{}, 1)}
}

// Schedule enqueues fn for execution on the reactor goroutine.
func (r *Reactor) Schedule(fn func()) {
	r.mu.Lock()
	r.queue = append(r.queue, fn)
	r.signalLocked()
	r.mu.Unlock()
}

// BeginAsync records an asynchronous operation whose completion will be
// Scheduled later. Run does not return while operations are outstanding.
func (r *Reactor) BeginAsync() {
	r.mu.Lock()
	r.pending++
	r.mu.Unlock()
}

// EndAsync marks one asynchronous operation as complete. Call it from the
// completion callback (or after scheduling it).
func (r *Reactor) EndAsync() {
	r.mu.Lock()
	if r.pending == 0 {
		r.mu.Unlock()
		panic("reactor: EndAsync without matching BeginAsync")
	}
	r.pending--
	r.signalLocked()
	r.mu.Unlock()
}

func (r *Reactor) signalLocked() {
	if r.sleeping {
		r.sleeping = false
		r.wake <- struct{}{}
	}
}

// Run executes queued callbacks until the queue is empty and no
// asynchronous operations remain outstanding. It runs on the calling
// goroutine; a panic inside a callback propagates out of Run.
func (r *Reactor) Run() {
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			if r.pending == 0 {
				r.mu.Unlock()
				return
			}
			// Completions are still on their way; park until one lands.
			r.sleeping = true
			r.mu.Unlock()
			<-r.wake
			continue
		}
		fn := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		fn()
	}
}
