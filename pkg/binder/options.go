package binder

import (
	"log/slog"
	"time"

	"github.com/recera/binder/pkg/expr"
	"github.com/recera/binder/pkg/scheduler"
)

// DefaultTransitionTimeout is how long a transition class stays on a node
// when no animationend or transitionend event arrives
const DefaultTransitionTimeout = 600 * time.Millisecond

// Option configures a Binder
type Option func(*Binder)

// WithTransitionClass sets the class added to every node patched by an
// update. An empty class disables transitions.
func WithTransitionClass(class string) Option {
	return func(b *Binder) {
		b.transitionClass = class
	}
}

// WithTransitionTimeout sets the fallback delay after which the transition
// class is removed
func WithTransitionTimeout(d time.Duration) Option {
	return func(b *Binder) {
		if d > 0 {
			b.transitionTimeout = d
		}
	}
}

// WithLogger sets the logger for binder and evaluation diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(b *Binder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithScheduler sets the scheduler that runs deferred updates and
// transition timeouts. It replaces the default queue, which the binder
// drains itself.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(b *Binder) {
		if s != nil {
			b.sched = s
		}
	}
}

// WithEvaluator sets the expression evaluator
func WithEvaluator(e *expr.Evaluator) Option {
	return func(b *Binder) {
		b.eval = e
	}
}

// WithAutoUpdate sets the initial value of Binder.AutoUpdate
func WithAutoUpdate(on bool) Option {
	return func(b *Binder) {
		b.AutoUpdate = on
	}
}

// UpdateOption configures a single Update call
type UpdateOption func(*updateConfig)

type updateConfig struct {
	transition bool
}

// WithoutTransition suppresses the transition class for this update
func WithoutTransition() UpdateOption {
	return func(c *updateConfig) {
		c.transition = false
	}
}
