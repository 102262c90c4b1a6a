package binder

import (
	"github.com/recera/binder/pkg/dom"
	"github.com/recera/binder/pkg/expr"
)

// extract populates the binding store from the target subtree. Loops go
// first: their elements leave the tree, so directives inside them are
// resolved per item at render time instead.
func (b *Binder) extract() {
	b.extractLoops()
	b.extractConditionals()
	b.extractTexts()
	b.extractAttributes()
	b.extractEvents()
}

// outermostLoops returns the @for elements below root that have no @for
// ancestor below root
func outermostLoops(root *dom.Node) []*dom.Node {
	var out []*dom.Node
	root.Walk(func(n *dom.Node) bool {
		if n == root || !n.IsElement() || !n.HasAttr(ForAttr) {
			return true
		}
		out = append(out, n)
		return false
	})
	return out
}

func (b *Binder) extractLoops() {
	for _, el := range outermostLoops(b.root) {
		d, _ := directive(el, For)
		parent := el.Parent()
		if !d.Valid() || parent == nil {
			el.RemoveAttr(ForAttr)
			continue
		}
		placeholder := el.Document().CreateComment("loop:" + d.Expr)
		parent.InsertBefore(placeholder, el)
		b.bindings.loops = append(b.bindings.loops, &loopBinding{
			template:    el.OuterHTML(),
			items:       d.Expr,
			parent:      parent,
			placeholder: placeholder,
		})
		el.Remove()
	}
	// A @for on the target itself cannot repeat it
	b.root.RemoveAttr(ForAttr)
}

func (b *Binder) extractConditionals() {
	for _, el := range b.root.ElementsWithAttr(IfAttr) {
		d, _ := directive(el, If)
		el.RemoveAttr(IfAttr)
		if !d.Valid() {
			continue
		}
		display := el.ComputedDisplay()
		if display == "none" || display == "" {
			display = "block"
		}
		b.bindings.conds = append(b.bindings.conds, &condBinding{
			node:    el,
			expr:    d.Expr,
			display: display,
			visible: true,
		})
	}
	b.root.RemoveAttr(IfAttr)
}

func (b *Binder) extractTexts() {
	b.root.Walk(func(n *dom.Node) bool {
		if n.Type() == dom.TextNode && expr.HasInterpolation(n.Text()) {
			b.bindings.texts = append(b.bindings.texts, &textBinding{node: n, template: n.Text()})
		}
		return true
	})
}

// elementsOf returns root and its descendant elements
func elementsOf(root *dom.Node) []*dom.Node {
	return append([]*dom.Node{root}, root.Descendants()...)
}

func (b *Binder) extractAttributes() {
	for _, el := range elementsOf(b.root) {
		for _, d := range directivesOf(el) {
			if d.Kind != Attr && d.Kind != BoolAttr {
				continue
			}
			el.RemoveAttr(d.Raw)
			if !d.Valid() {
				continue
			}
			b.bindings.attrs = append(b.bindings.attrs, &attrBinding{
				node:    el,
				name:    d.Name,
				expr:    d.Expr,
				boolean: d.Kind == BoolAttr,
			})
		}
	}
}

func (b *Binder) extractEvents() {
	for _, el := range elementsOf(b.root) {
		for _, d := range directivesOf(el) {
			if d.Kind != On {
				continue
			}
			el.RemoveAttr(d.Raw)
			if !d.Valid() {
				continue
			}
			if e := b.listen(el, d, b.state, nil, -1); e != nil {
				b.bindings.events = append(b.bindings.events, e)
			}
		}
	}
}
