// Package async provides Promise, the awaitable value an event handler can
// return to defer the follow-up update until its work has finished.
package async

import (
	"errors"
	"sync"
	"time"
)

// ErrRejected is the reason used by Reject when none is given
var ErrRejected = errors.New("promise rejected")

// Promise settles once, with a value or an error. Continuations registered
// with OnSettled run exactly once, after settlement.
type Promise struct {
	mu      sync.Mutex
	settled bool
	value   any
	err     error
	waiters []func()
	done    chan struct{}
}

// New creates a pending promise
func New() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolved creates a promise already settled with v
func Resolved(v any) *Promise {
	p := New()
	p.Resolve(v)
	return p
}

// Go runs fn on a new goroutine and settles the promise with its result
func Go(fn func() (any, error)) *Promise {
	p := New()
	go func() {
		v, err := fn()
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(v)
	}()
	return p
}

// After creates a promise that resolves with v once d has elapsed
func After(d time.Duration, v any) *Promise {
	p := New()
	time.AfterFunc(d, func() { p.Resolve(v) })
	return p
}

// Resolve settles the promise with v. Later calls are ignored.
func (p *Promise) Resolve(v any) {
	p.settle(v, nil)
}

// Reject settles the promise with err. Later calls are ignored.
func (p *Promise) Reject(err error) {
	if err == nil {
		err = ErrRejected
	}
	p.settle(nil, err)
}

func (p *Promise) settle(v any, err error) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.settled, p.value, p.err = true, v, err
	waiters := p.waiters
	p.waiters = nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range waiters {
		fn()
	}
}

// OnSettled registers fn to run once the promise settles. If it already
// has, fn runs immediately on the caller's goroutine; otherwise it runs on
// the goroutine that settles the promise.
func (p *Promise) OnSettled(fn func()) {
	p.mu.Lock()
	if !p.settled {
		p.waiters = append(p.waiters, fn)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	fn()
}

// Settled reports whether the promise has settled
func (p *Promise) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settled
}

// Done is closed when the promise settles
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Result returns the settled value and error. It blocks until settlement.
func (p *Promise) Result() (any, error) {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}
