package binder

import (
	"github.com/recera/binder/pkg/dom"
	"github.com/recera/binder/pkg/expr"
)

// updateLoops rebuilds every loop from scratch. Listeners and any other
// per-node state of the previous elements are dropped.
func (b *Binder) updateLoops() {
	for _, l := range b.bindings.loops {
		b.renderLoop(l)
	}
}

func (b *Binder) renderLoop(l *loopBinding) {
	items, ok := expr.ToList(b.eval.Evaluate(l.items, b.state))
	if !ok {
		// not a list: keep what is rendered
		return
	}
	l.reset()

	anchor := l.placeholder
	for i, item := range items {
		el := b.instantiate(l.template, l.parent, b.state, iteration(item, i, items), &l.events)
		if el == nil {
			continue
		}
		l.parent.InsertAfter(el, anchor)
		anchor = el
		l.rendered = append(l.rendered, el)
	}
}

// iteration returns the loop-local bindings of one item
func iteration(item any, index int, items []any) expr.Record {
	return expr.Record{"item": item, "index": index, "items": items}
}

// nestedLoop is a @for inside a loop template, expanded once per outer item
type nestedLoop struct {
	anchor   *dom.Node
	template string
	items    string
}

// instantiate builds one loop element from template, detached from the
// tree. Its directives are resolved against locals layered over outer:
// text first, then attributes and events, then conditionals, and finally
// nested loops, whose items also see the enclosing item as parent.
func (b *Binder) instantiate(template string, parent *dom.Node, outer expr.Context, locals expr.Record, events *[]*eventBinding) *dom.Node {
	nodes, err := parent.ParseFragment(template)
	if err != nil {
		b.logger.Warn("failed to parse loop template", "err", err)
		return nil
	}
	var el *dom.Node
	for _, n := range nodes {
		if n.IsElement() {
			el = n
			break
		}
	}
	if el == nil {
		return nil
	}
	el.RemoveAttr(ForAttr)
	scope := expr.NewOverlay(outer, locals)
	item := locals["item"]
	index, _ := locals["index"].(int)

	nested := b.detachNestedLoops(el)

	el.Walk(func(n *dom.Node) bool {
		if n.Type() == dom.TextNode && expr.HasInterpolation(n.Text()) {
			n.SetText(b.eval.Interpolate(n.Text(), scope))
		}
		return true
	})

	for _, n := range elementsOf(el) {
		for _, d := range directivesOf(n) {
			switch d.Kind {
			case Attr, BoolAttr:
				n.RemoveAttr(d.Raw)
				if d.Valid() {
					b.applyAttribute(&attrBinding{node: n, name: d.Name, expr: d.Expr, boolean: d.Kind == BoolAttr}, scope)
				}
			case On:
				n.RemoveAttr(d.Raw)
				if !d.Valid() {
					continue
				}
				if e := b.listen(n, d, scope, item, index); e != nil {
					*events = append(*events, e)
				}
			}
		}
	}

	for _, n := range elementsOf(el) {
		d, ok := directive(n, If)
		if !ok {
			continue
		}
		n.RemoveAttr(IfAttr)
		if !d.Valid() {
			continue
		}
		if b.eval.Condition(d.Expr, scope) {
			n.SetStyleProperty("display", "")
		} else {
			n.SetStyleProperty("display", "none")
		}
	}

	for _, nl := range nested {
		b.expandNested(nl, scope, item, events)
	}
	return el
}

// detachNestedLoops replaces the outermost @for elements below el with
// anchor comments so the enclosing pass does not resolve their directives
func (b *Binder) detachNestedLoops(el *dom.Node) []nestedLoop {
	var out []nestedLoop
	for _, n := range outermostLoops(el) {
		d, _ := directive(n, For)
		if !d.Valid() {
			n.RemoveAttr(ForAttr)
			continue
		}
		anchor := n.Document().CreateComment("loop:" + d.Expr)
		n.Parent().InsertBefore(anchor, n)
		out = append(out, nestedLoop{anchor: anchor, template: n.OuterHTML(), items: d.Expr})
		n.Remove()
	}
	return out
}

// expandNested renders a nested loop in place of its anchor
func (b *Binder) expandNested(nl nestedLoop, scope expr.Context, parentItem any, events *[]*eventBinding) {
	parent := nl.anchor.Parent()
	defer nl.anchor.Remove()

	items, ok := expr.ToList(b.eval.Evaluate(nl.items, scope))
	if !ok {
		return
	}
	for i, item := range items {
		locals := iteration(item, i, items)
		locals["parent"] = parentItem
		if el := b.instantiate(nl.template, parent, scope, locals, events); el != nil {
			parent.InsertBefore(el, nl.anchor)
		}
	}
}
