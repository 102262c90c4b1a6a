package dom

import "strings"

// NodeType identifies the kind of a Node
type NodeType uint8

const (
	// DocumentNode is the root of a parsed document
	DocumentNode NodeType = iota
	// ElementNode represents an element with a tag and attributes
	ElementNode
	// TextNode represents character data
	TextNode
	// CommentNode represents a comment; loop placeholders are comments
	CommentNode
	// DoctypeNode represents a doctype declaration
	DoctypeNode
)

// Attr is a single element attribute
type Attr struct {
	Key string
	Val string
}

// Node is a node of the render tree. Nodes belong to exactly one Document
// and carry a stable ID used in emitted patches.
type Node struct {
	doc  *Document
	id   uint32
	typ  NodeType
	tag  string
	data string
	ns   string

	attrs []Attr

	parent, firstChild, lastChild, prevSibling, nextSibling *Node

	listeners map[string][]listener
}

// ID returns the node's unique ID within its document
func (n *Node) ID() uint32 { return n.id }

// Document returns the owning document
func (n *Node) Document() *Document { return n.doc }

// Type returns the node type
func (n *Node) Type() NodeType { return n.typ }

// Tag returns the lower-case tag name of an element, or "" for other nodes
func (n *Node) Tag() string { return n.tag }

// IsElement reports whether the node is an element
func (n *Node) IsElement() bool { return n.typ == ElementNode }

// Parent returns the parent node, or nil when detached
func (n *Node) Parent() *Node { return n.parent }

// FirstChild returns the first child node
func (n *Node) FirstChild() *Node { return n.firstChild }

// LastChild returns the last child node
func (n *Node) LastChild() *Node { return n.lastChild }

// NextSibling returns the following sibling
func (n *Node) NextSibling() *Node { return n.nextSibling }

// PrevSibling returns the preceding sibling
func (n *Node) PrevSibling() *Node { return n.prevSibling }

// Children returns a snapshot of the child nodes
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.firstChild; c != nil; c = c.nextSibling {
		out = append(out, c)
	}
	return out
}

// Attrs returns a copy of the element's attributes in document order
func (n *Node) Attrs() []Attr {
	out := make([]Attr, len(n.attrs))
	copy(out, n.attrs)
	return out
}

// Attr returns the value of the named attribute
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the named attribute is present
func (n *Node) HasAttr(key string) bool {
	_, ok := n.Attr(key)
	return ok
}

// SetAttr sets an attribute. Every call is a write and emits a patch, even
// when the value is unchanged.
func (n *Node) SetAttr(key, val string) {
	for i, a := range n.attrs {
		if a.Key == key {
			n.attrs[i].Val = val
			n.emit(Patch{Op: OpSetAttribute, NodeID: n.id, Key: key, Value: val})
			return
		}
	}
	n.attrs = append(n.attrs, Attr{Key: key, Val: val})
	n.emit(Patch{Op: OpSetAttribute, NodeID: n.id, Key: key, Value: val})
}

// RemoveAttr removes an attribute if present
func (n *Node) RemoveAttr(key string) {
	for i, a := range n.attrs {
		if a.Key == key {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			n.emit(Patch{Op: OpRemoveAttribute, NodeID: n.id, Key: key})
			return
		}
	}
}

// Text returns the character data of a text or comment node
func (n *Node) Text() string { return n.data }

// SetText replaces the character data of a text or comment node
func (n *Node) SetText(s string) {
	if n.typ != TextNode && n.typ != CommentNode {
		n.SetTextContent(s)
		return
	}
	n.data = s
	n.emit(Patch{Op: OpReplaceText, NodeID: n.id, Value: s})
}

// TextContent returns the concatenated text of the node and its descendants
func (n *Node) TextContent() string {
	switch n.typ {
	case TextNode, CommentNode:
		return n.data
	}
	var sb strings.Builder
	n.Walk(func(c *Node) bool {
		if c.typ == TextNode {
			sb.WriteString(c.data)
		}
		return true
	})
	return sb.String()
}

// SetTextContent replaces all children with a single text node
func (n *Node) SetTextContent(s string) {
	switch n.typ {
	case TextNode, CommentNode:
		n.SetText(s)
		return
	}
	for c := n.firstChild; c != nil; {
		next := c.nextSibling
		c.Remove()
		c = next
	}
	if s != "" {
		n.AppendChild(n.doc.CreateText(s))
	}
}

// Walk visits the node and its descendants in document order. Returning
// false from fn skips the visited node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.firstChild; c != nil; {
		next := c.nextSibling
		c.Walk(fn)
		c = next
	}
}

// Descendants returns every descendant element in document order,
// excluding the node itself.
func (n *Node) Descendants() []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c != n && c.typ == ElementNode {
			out = append(out, c)
		}
		return true
	})
	return out
}

// ElementsWithAttr returns descendant elements carrying the named attribute.
func (n *Node) ElementsWithAttr(key string) []*Node {
	var out []*Node
	for _, el := range n.Descendants() {
		if el.HasAttr(key) {
			out = append(out, el)
		}
	}
	return out
}

// Contains reports whether other is n or one of its descendants
func (n *Node) Contains(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// connected reports whether the node is attached to its document's tree.
func (n *Node) connected() bool {
	for p := n; p != nil; p = p.parent {
		if p == n.doc.root {
			return true
		}
	}
	return false
}

func (n *Node) emit(p Patch) {
	if len(n.doc.observers) == 0 || !n.connected() {
		return
	}
	n.doc.notify(p)
}
