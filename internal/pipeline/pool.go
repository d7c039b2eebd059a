package pipeline

import (
	"errors"
	"runtime"
	"sync"
)

var (
	errPoolClosed = errors.New("pool closed")
	errPoolFull   = errors.New("pool queue full")
)

// pool runs submitted jobs on a fixed number of workers. Queue positions are
// reserved up front so a caller learns about a full or closed pool before it
// commits to a job.
type pool struct {
	mu      sync.RWMutex
	jobs    chan func()
	slots   chan struct{}
	pending sync.WaitGroup
	wg      sync.WaitGroup
	once    sync.Once
	closed  bool
}

// ticket is one reserved queue position. Exactly one of run or release must
// be called.
type ticket struct {
	p *pool
}

func newPool(size, queue int) *pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
		if size <= 0 {
			size = 1
		}
	}
	if queue < size {
		queue = size * 2
	}
	p := &pool{
		jobs:  make(chan func(), queue),
		slots: make(chan struct{}, queue),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *pool) worker() {
	defer p.wg.Done()
	for fn := range p.jobs {
		<-p.slots
		if fn != nil {
			fn()
		}
	}
}

// reserve claims a queue position without blocking.
func (p *pool) reserve() (ticket, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ticket{}, errPoolClosed
	}
	select {
	case p.slots <- struct{}{}:
	default:
		return ticket{}, errPoolFull
	}
	p.pending.Add(1)
	return ticket{p: p}, nil
}

// run queues fn in the reserved position. It never blocks because jobs and
// slots share one capacity.
func (t ticket) run(fn func()) {
	t.p.jobs <- fn
	t.p.pending.Done()
}

// release gives the position back unused.
func (t ticket) release() {
	<-t.p.slots
	t.p.pending.Done()
}

// stop rejects new reservations, lets outstanding tickets settle and waits
// for queued jobs to finish.
func (p *pool) stop() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		p.pending.Wait()
		close(p.jobs)
		p.wg.Wait()
	})
}
