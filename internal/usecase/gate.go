package usecase

import (
	"sync"
	"sync/atomic"
)

// Gate admits at most one holder at a time. A caller that fails to acquire it
// is refused rather than queued.
type Gate struct {
	held atomic.Bool
}

func NewGate() *Gate {
	return &Gate{}
}

// TryAcquire takes the gate if it is free. The returned release func is safe
// to call more than once; only the first call frees the gate.
func (g *Gate) TryAcquire() (release func(), ok bool) {
	if !g.held.CompareAndSwap(false, true) {
		return func() {}, false
	}
	var once sync.Once
	return func() {
		once.Do(func() { g.held.Store(false) })
	}, true
}

// Busy reports whether the gate is currently held.
func (g *Gate) Busy() bool {
	return g.held.Load()
}
