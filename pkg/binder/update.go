package binder

import (
	"github.com/recera/binder/pkg/expr"
)

// render is the first pass after extraction. Loops run first so the nodes
// they create exist before anything else is patched. No transitions.
func (b *Binder) render() {
	b.updateLoops()
	b.updateTexts(false)
	b.updateConditionals()
	b.updateAttributes(false)
}

func (b *Binder) updateTexts(transition bool) {
	for _, t := range b.bindings.texts {
		text := b.eval.Interpolate(t.template, b.state)
		if t.node.Text() == text {
			continue
		}
		t.node.SetText(text)
		if transition {
			b.transition(t.node.Parent())
		}
	}
}

func (b *Binder) updateConditionals() {
	for _, c := range b.bindings.conds {
		show := b.eval.Condition(c.expr, b.state)
		if show == c.visible {
			continue
		}
		c.visible = show
		if show {
			c.node.SetStyleProperty("display", c.display)
		} else {
			c.node.SetStyleProperty("display", "none")
		}
	}
}

func (b *Binder) updateAttributes(transition bool) {
	for _, a := range b.bindings.attrs {
		if b.applyAttribute(a, b.state) && transition {
			b.transition(a.node)
		}
	}
}

// applyAttribute evaluates an attribute binding in scope and writes the
// node only when its attribute differs. It reports whether it wrote.
func (b *Binder) applyAttribute(a *attrBinding, scope expr.Context) bool {
	v := b.eval.Evaluate(a.expr, scope)
	has := a.node.HasAttr(a.name)

	if a.boolean {
		on := expr.Truthy(v)
		switch {
		case on && !has:
			a.node.SetAttr(a.name, "")
		case !on && has:
			a.node.RemoveAttr(a.name)
		default:
			return false
		}
		return true
	}

	if v == nil {
		if !has {
			return false
		}
		a.node.RemoveAttr(a.name)
		return true
	}
	s := expr.Stringify(v)
	if cur, _ := a.node.Attr(a.name); has && cur == s {
		return false
	}
	a.node.SetAttr(a.name, s)
	return true
}
