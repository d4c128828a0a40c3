// File: internal/wpool/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Elastic worker pool for blocking operations. Workers are spawned on demand
// up to a fixed cap and retire from the tail after an idle timeout. A serial
// bitset orders run-queue acquisition by worker index so the first workers
// absorb most of the load and tail workers stay idle long enough to retire.
// The ordering is a scheduling policy, not a correctness requirement.

package wpool

import (
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"
)

var (
	// ErrPoolClosed indicates the pool has been shut down.
	ErrPoolClosed = errors.New("worker pool is closed")
)

// DefaultIdleTimeout is how long a worker stays idle before retiring.
const DefaultIdleTimeout = 5 * time.Second

// Pool runs closures on a bounded set of workers.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	run     *queue.Queue // of func()
	slots   []bool       // active flag per worker slot
	serving []uint64     // serial bitset: bit set while a slot serves the queue or after it retires
	active  int
	idle    int
	closed  bool
	wg      sync.WaitGroup

	name        string
	idleTimeout time.Duration
	log         zerolog.Logger
}

// New builds a pool with up to maxWorkers workers. A zero maxWorkers builds
// the disabled stub whose Spawn panics; callers that run single-threaded
// must execute blocking work inline instead.
func New(maxWorkers int, idleTimeout time.Duration, name string, log zerolog.Logger) *Pool {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	p := &Pool{
		run:         queue.New(),
		slots:       make([]bool, maxWorkers),
		serving:     make([]uint64, (maxWorkers+63)/64),
		name:        name,
		idleTimeout: idleTimeout,
		log:         log,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Spawn enqueues fn and ensures a worker will pick it up, starting a new
// worker when none is idle and the cap allows. A successfully enqueued
// closure is never dropped.
func (p *Pool) Spawn(fn func()) error {
	if len(p.slots) == 0 {
		panic("wpool: spawn on a disabled pool")
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	if p.idle == 0 && p.active < len(p.slots) {
		idx := p.nextInactive()
		p.slots[idx] = true
		p.active++
		p.clearServing(idx)
		p.wg.Add(1)
		go p.worker(idx)
		p.log.Debug().Str("pool", p.name).Int("worker", idx).Msg("spawned worker")
	}
	p.run.Add(fn)
	p.mu.Unlock()
	// Broadcast, not Signal: serial acquisition may force a woken
	// higher-indexed worker back to sleep, and someone still has to take
	// the work.
	p.cond.Broadcast()
	return nil
}

// Close flips every worker inactive, joins them, and then runs any closure
// that was enqueued but never picked up.
func (p *Pool) Close() {
	if len(p.slots) == 0 {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for i := range p.slots {
		p.slots[i] = false
	}
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
	for p.run.Length() > 0 {
		p.run.Remove().(func())()
	}
}

// ActiveWorkers reports how many workers currently exist.
func (p *Pool) ActiveWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Pending reports the number of enqueued, not yet started closures.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run.Length()
}

func (p *Pool) worker(idx int) {
	defer p.wg.Done()
	p.mu.Lock()
	for p.slots[idx] {
		if p.run.Length() > 0 && idx > 0 && !p.lowerServing(idx) {
			// A lower-indexed worker is awake but has not claimed the
			// queue yet; let it go first.
			p.mu.Unlock()
			runtime.Gosched()
			p.mu.Lock()
			continue
		}
		if p.run.Length() > 0 {
			p.setServing(idx)
			for p.slots[idx] && p.run.Length() > 0 {
				fn := p.run.Remove().(func())
				p.mu.Unlock()
				fn()
				p.mu.Lock()
			}
			p.clearServing(idx)
			continue
		}
		if !p.slots[idx] {
			break
		}
		timedOut := false
		tm := time.AfterFunc(p.idleTimeout, func() {
			p.mu.Lock()
			timedOut = true
			p.mu.Unlock()
			p.cond.Broadcast()
		})
		p.idle++
		for p.slots[idx] && p.run.Length() == 0 && !timedOut {
			p.cond.Wait()
		}
		p.idle--
		tm.Stop()
		if timedOut && p.run.Length() == 0 {
			break
		}
	}
	p.active--
	// Mark the slot as serving until Spawn reactivates it, so later workers
	// never wait on a dead predecessor.
	p.setServing(idx)
	p.slots[idx] = false
	p.mu.Unlock()
	p.log.Debug().Str("pool", p.name).Int("worker", idx).Msg("worker retired")
}

func (p *Pool) nextInactive() int {
	for i, active := range p.slots {
		if !active {
			return i
		}
	}
	return -1
}

func (p *Pool) setServing(i int)   { p.serving[i/64] |= 1 << (uint(i) % 64) }
func (p *Pool) clearServing(i int) { p.serving[i/64] &^= 1 << (uint(i) % 64) }

// lowerServing reports whether every slot below i is serving or retired.
func (p *Pool) lowerServing(i int) bool {
	for j := 0; j < i; j++ {
		if p.serving[j/64]&(1<<(uint(j)%64)) == 0 {
			return false
		}
	}
	return true
}
