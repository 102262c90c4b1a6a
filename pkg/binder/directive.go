package binder

import (
	"strings"

	"github.com/recera/binder/pkg/dom"
)

// Kind identifies a directive
type Kind uint8

const (
	// For repeats the host element once per list item
	For Kind = iota + 1
	// If shows or hides the host element
	If
	// Attr sets or removes a string attribute
	Attr
	// BoolAttr toggles the presence of an attribute
	BoolAttr
	// On binds an event handler
	On
)

// Directive attribute names and prefixes
const (
	ForAttr        = "@for"
	IfAttr         = "@if"
	AttrPrefix     = "@att:"
	BoolAttrPrefix = "@batt:"
	EventPrefix    = "@on:"
)

func (k Kind) String() string {
	switch k {
	case For:
		return "for"
	case If:
		return "if"
	case Attr:
		return "att"
	case BoolAttr:
		return "batt"
	case On:
		return "on"
	}
	return "unknown"
}

// Directive is a parsed directive attribute
type Directive struct {
	Kind Kind
	// Name is the target attribute or event name for Attr, BoolAttr and On
	Name string
	// Expr is the attribute value: an expression, list expression or
	// handler key
	Expr string
	// Raw is the attribute name as written
	Raw string
}

// ParseDirective classifies an attribute. ok is false for ordinary
// attributes.
func ParseDirective(a dom.Attr) (d Directive, ok bool) {
	d = Directive{Raw: a.Key, Expr: strings.TrimSpace(a.Val)}
	switch {
	case a.Key == ForAttr:
		d.Kind = For
	case a.Key == IfAttr:
		d.Kind = If
	case strings.HasPrefix(a.Key, AttrPrefix):
		d.Kind, d.Name = Attr, a.Key[len(AttrPrefix):]
	case strings.HasPrefix(a.Key, BoolAttrPrefix):
		d.Kind, d.Name = BoolAttr, a.Key[len(BoolAttrPrefix):]
	case strings.HasPrefix(a.Key, EventPrefix):
		d.Kind, d.Name = On, a.Key[len(EventPrefix):]
	default:
		return Directive{}, false
	}
	return d, true
}

// Valid reports whether the directive is well formed. Malformed directives
// are stripped without creating a binding.
func (d Directive) Valid() bool {
	if d.Expr == "" {
		return false
	}
	switch d.Kind {
	case Attr, BoolAttr, On:
		return d.Name != ""
	}
	return true
}

// directivesOf returns the directives carried by el in attribute order
func directivesOf(el *dom.Node) []Directive {
	var out []Directive
	for _, a := range el.Attrs() {
		if d, ok := ParseDirective(a); ok {
			out = append(out, d)
		}
	}
	return out
}

// directive returns the first directive of the given kind on el
func directive(el *dom.Node, kind Kind) (Directive, bool) {
	for _, d := range directivesOf(el) {
		if d.Kind == kind {
			return d, true
		}
	}
	return Directive{}, false
}
