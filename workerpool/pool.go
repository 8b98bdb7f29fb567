// Package workerpool offloads the per-slot modular exponentiations
// spec §5 requires moving off the orchestrator's single goroutine:
// per-slot ciphertext generation and per-slot server
// verify/close/reveal. Grounded on the teacher's services/graph.go
// (batch-dispatch worker pool) and services/factorization.go (LCM-based
// batch sizing via github.com/cznic/mathutil), simplified from a
// SIMD-batch dispatcher to a plain task-per-slot pool since spec §5
// only requires "offload one activity," not the teacher's full
// multi-module graph scheduler.
package workerpool

import (
	"math"
	"sync"

	"github.com/cznic/mathutil"
)

// Task is a unit of work submitted to the pool.
type Task func() (interface{}, error)

// Handle is a future for a submitted Task's result.
type Handle struct {
	done   chan struct{}
	result interface{}
	err    error
}

// Await blocks until the task completes and returns its result.
func (h *Handle) Await() (interface{}, error) {
	<-h.done
	return h.result, h.err
}

// Pool runs Tasks on a fixed-size goroutine pool. Every worker input is
// an immutable borrow and every result is value-typed (spec §5: "no
// shared mutable state... removes the need for any lock on per-slot
// engines").
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

// New starts a Pool with the given number of worker goroutines.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{tasks: make(chan func(), workers*4)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for t := range p.tasks {
				t()
			}
		}()
	}
	return p
}

// Spawn submits a Task and returns a Handle to its eventual result.
func (p *Pool) Spawn(t Task) *Handle {
	h := &Handle{done: make(chan struct{})}
	p.tasks <- func() {
		defer close(h.done)
		h.result, h.err = t()
	}
	return h
}

// SpawnAll submits every task and blocks until all complete, returning
// results in the same order as the input — the orchestrator's standard
// "offload, then block on completion before sending" pattern (spec §5).
func (p *Pool) SpawnAll(tasks []Task) ([]interface{}, []error) {
	handles := make([]*Handle, len(tasks))
	for i, t := range tasks {
		handles[i] = p.Spawn(t)
	}
	results := make([]interface{}, len(tasks))
	errs := make([]error, len(tasks))
	for i, h := range handles {
		results[i], errs[i] = h.Await()
	}
	return results, errs
}

// Close stops accepting new tasks and waits for in-flight work to drain.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}

// BatchSize computes the least common multiple of a set of per-module
// batch-size preferences, the same sizing rule the teacher's
// services/factorization.go LCM uses to pick one dispatch size that is
// an exact multiple of every module's preferred batch. The orchestrator
// does not call it: its SpawnAll calls take one task per slot (or per
// client within a slot).
func BatchSize(preferences []uint32) uint32 {
	if len(preferences) == 0 {
		return 1
	}

	fMap := make(map[uint32]uint32)
	for _, p := range preferences {
		if p == 0 {
			continue
		}
		for _, t := range mathutil.FactorInt(p) {
			if power, ok := fMap[t.Prime]; !ok || t.Power > power {
				fMap[t.Prime] = t.Power
			}
		}
	}

	lcm := uint32(1)
	for factor, power := range fMap {
		lcm *= mathutil.ModPowUint32(factor, power, math.MaxUint32)
	}
	return lcm
}
