// Package binder binds a markup fragment annotated with directives to a
// state record and keeps the rendered tree in sync with it.
//
// Supported directives:
//
//	{{ expr }}            text interpolation
//	@for="items"          repeat the element per list item (item, index, items)
//	@if="expr"            show or hide the element
//	@att:name="expr"      set or remove attribute name
//	@batt:name="expr"     toggle the presence of attribute name
//	@on:event="handler"   call state[handler] when event fires
//
// A Binder is not safe for concurrent use. Every call, and every task run by
// its scheduler, must happen on the goroutine that owns the document. The
// default scheduler queues deferred work (settled handlers, transition
// timeouts) until the owner next calls Bind, Update, Dispatch, Destroy or
// Flush.
package binder

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/recera/binder/pkg/dom"
	"github.com/recera/binder/pkg/expr"
	"github.com/recera/binder/pkg/scheduler"
)

type lifecycle uint8

// drainer is a scheduler whose tasks run when the owner drains it
type drainer interface {
	Drain() int
}

const (
	unbound lifecycle = iota
	bound
	destroyed
)

// Binder renders a directive template against a state record
type Binder struct {
	// AutoUpdate runs Update after every bound event handler. When the
	// handler returns an Awaitable, the update waits until it settles.
	AutoUpdate bool

	root     *dom.Node
	state    expr.Context
	original string
	phase    lifecycle
	bindings store

	eval              *expr.Evaluator
	sched             scheduler.Scheduler
	logger            *slog.Logger
	transitionClass   string
	transitionTimeout time.Duration
	transitions       map[*dom.Node]*transition
}

// New creates a binder for the first node of doc matching selector
func New(doc *dom.Document, selector string, state expr.Context, opts ...Option) (*Binder, error) {
	root, err := doc.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target %q: %w", selector, err)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return NewFromNode(root, state, opts...)
}

// NewFromNode creates a binder for root. The markup of root is captured so
// Destroy can restore it.
func NewFromNode(root *dom.Node, state expr.Context, opts ...Option) (*Binder, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil node", ErrNotFound)
	}
	if state == nil {
		state = expr.Record{}
	}
	b := &Binder{
		root:              root,
		state:             state,
		original:          root.InnerHTML(),
		sched:             scheduler.NewQueue(),
		logger:            slog.Default(),
		transitionTimeout: DefaultTransitionTimeout,
		transitions:       make(map[*dom.Node]*transition),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.eval == nil {
		b.eval = expr.NewEvaluator(expr.WithLogger(b.logger))
	}
	return b, nil
}

// Bind extracts the directives of the target and performs the first
// render. Binding again starts over from the captured markup.
func (b *Binder) Bind() error {
	b.Flush()
	switch b.phase {
	case destroyed:
		return ErrDestroyed
	case bound:
		b.reset()
		if err := b.root.SetInnerHTML(b.original); err != nil {
			return fmt.Errorf("failed to restore template: %w", err)
		}
	}

	b.extract()
	b.phase = bound
	b.render()

	c := b.bindings.counts()
	b.logger.Debug("template bound",
		"text", c.Text, "attributes", c.Attribute, "conditionals", c.Conditional,
		"loops", c.Loop, "events", c.Event)
	return nil
}

// Update re-evaluates every binding and patches what changed. Unchanged
// bindings cause no writes.
func (b *Binder) Update(opts ...UpdateOption) error {
	b.Flush()
	return b.update(opts...)
}

func (b *Binder) update(opts ...UpdateOption) error {
	switch b.phase {
	case destroyed:
		return ErrDestroyed
	case unbound:
		return nil
	}
	cfg := updateConfig{transition: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	b.updateTexts(cfg.transition)
	b.updateConditionals()
	b.updateLoops()
	b.updateAttributes(cfg.transition)
	return nil
}

// State returns the bound state record. It is the caller's record, not a
// copy.
func (b *Binder) State() expr.Context {
	return b.state
}

// SetState writes key in the state record. It does not update.
func (b *Binder) SetState(key string, value any) {
	b.state.Set(key, value)
}

// Root returns the target node
func (b *Binder) Root() *dom.Node {
	return b.root
}

// Counts returns the number of live bindings per category
func (b *Binder) Counts() Counts {
	return b.bindings.counts()
}

// Events lists the live event registrations, loop registrations last
func (b *Binder) Events() []EventInfo {
	var out []EventInfo
	for _, e := range b.bindings.allEvents() {
		out = append(out, EventInfo{Node: e.node, Event: e.event, Handler: e.handler, Index: e.index, Item: e.item})
	}
	return out
}

// Dispatch fires ev at node. Bound handlers run before it returns.
func (b *Binder) Dispatch(node *dom.Node, ev *dom.Event) error {
	if b.phase == destroyed {
		return ErrDestroyed
	}
	if node == nil || ev == nil {
		return errors.New("binder: nil node or event")
	}
	b.Flush()
	node.Dispatch(ev)
	return nil
}

// Destroy removes all listeners, drops every binding and restores the
// markup captured at construction. The binder cannot be used afterwards.
func (b *Binder) Destroy() error {
	if b.phase == destroyed {
		return ErrDestroyed
	}
	b.Flush()
	b.reset()
	b.phase = destroyed
	if err := b.root.SetInnerHTML(b.original); err != nil {
		return fmt.Errorf("failed to restore template: %w", err)
	}
	return nil
}

// Flush runs the deferred work queued on a draining scheduler and returns
// the number of tasks run. Other schedulers run their own tasks, so Flush
// returns 0 for them.
func (b *Binder) Flush() int {
	if d, ok := b.sched.(drainer); ok {
		return d.Drain()
	}
	return 0
}

// reset clears bindings, listeners and pending transitions
func (b *Binder) reset() {
	for _, t := range b.transitions {
		t.cancel()
	}
	b.transitions = make(map[*dom.Node]*transition)
	b.bindings.clear()
}
