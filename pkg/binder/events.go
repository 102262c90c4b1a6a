package binder

import (
	"github.com/recera/binder/pkg/dom"
	"github.com/recera/binder/pkg/expr"
)

// Awaitable is a handler result whose completion can be observed.
// async.Promise implements it.
type Awaitable interface {
	OnSettled(fn func())
}

// listen registers the handler named by d on el. A handler is either the
// key of a callable in scope or an inline statement list such as
// "count += 1". It returns nil when there is nothing to call.
func (b *Binder) listen(el *dom.Node, d Directive, scope expr.Context, item any, index int) *eventBinding {
	key := d.Expr
	inline := !expr.IsIdentifier(key)
	if inline {
		if _, err := expr.CompileStatements(key); err != nil {
			b.logger.Warn("invalid event handler", "event", d.Name, "handler", key, "err", err)
			return nil
		}
	} else if _, ok := expr.Lookup(scope, key); !ok {
		b.logger.Debug("event handler is not callable", "event", d.Name, "handler", key)
		return nil
	}

	e := &eventBinding{node: el, event: d.Name, handler: key, index: index, item: item}
	e.id = el.AddEventListener(d.Name, func(ev *dom.Event) {
		if b.phase != bound {
			return
		}
		var result any
		var err error
		if inline {
			result, err = b.eval.Exec(key, expr.NewOverlay(scope, expr.Record{"event": ev}))
		} else {
			result, err = b.invoke(scope, key, e, ev)
		}
		if err != nil {
			b.logger.Warn("event handler failed", "event", e.event, "handler", key, "err", err)
		}
		b.afterHandler(result)
	})
	return e
}

// invoke calls the handler stored under key with the event, plus the item
// and index inside loops. The handler is looked up at dispatch time so
// replacing it in the state takes effect.
func (b *Binder) invoke(scope expr.Context, key string, e *eventBinding, ev *dom.Event) (any, error) {
	fn, ok := expr.Lookup(scope, key)
	if !ok {
		b.logger.Warn("event handler is not callable", "event", e.event, "handler", key)
		return nil, nil
	}
	args := []any{ev}
	if e.index >= 0 {
		args = append(args, e.item, e.index)
	}
	return expr.Invoke(fn, scope, args...)
}

// afterHandler runs the automatic update. An awaitable result defers it
// until the result settles; each settled result gets its own update.
func (b *Binder) afterHandler(result any) {
	if !b.AutoUpdate {
		return
	}
	if aw, ok := result.(Awaitable); ok {
		aw.OnSettled(func() {
			b.sched.Post(b.autoUpdate)
		})
		return
	}
	b.autoUpdate()
}

func (b *Binder) autoUpdate() {
	if b.phase != bound {
		return
	}
	_ = b.update()
}
