package dom

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ErrInvalidSelector is returned when a selector cannot be compiled
var ErrInvalidSelector = errors.New("dom: invalid selector")

// Document owns a render tree and the observers of its mutations.
type Document struct {
	root      *Node
	nextID    uint32
	observers map[int]func(Patch)
	nextObs   int

	nextListener ListenerID
}

// NewDocument creates an empty document with html, head and body elements.
func NewDocument() *Document {
	doc, err := ParseString("<html><head></head><body></body></html>")
	if err != nil {
		// The fixed markup above always parses.
		panic(err)
	}
	return doc
}

// Parse parses a complete HTML document
func Parse(r io.Reader) (*Document, error) {
	hn, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	doc := &Document{observers: make(map[int]func(Patch))}
	doc.root = doc.fromHTML(hn)
	return doc, nil
}

// ParseString parses a complete HTML document held in a string
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node
func (d *Document) Root() *Node { return d.root }

// Body returns the body element, or nil when the document has none
func (d *Document) Body() *Node {
	var body *Node
	d.root.Walk(func(n *Node) bool {
		if body != nil {
			return false
		}
		if n.typ == ElementNode && n.tag == "body" {
			body = n
			return false
		}
		return true
	})
	return body
}

// QuerySelector returns the first element matching a CSS selector, or nil
// when nothing matches.
func (d *Document) QuerySelector(selector string) (*Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, selector, err)
	}
	back := make(map[*html.Node]*Node)
	hn := toHTML(d.root, back)
	match := sel.MatchFirst(hn)
	if match == nil {
		return nil, nil
	}
	return back[match], nil
}

// Observe registers fn to receive every patch emitted by mutations of
// nodes attached to the document. The returned func unregisters it.
func (d *Document) Observe(fn func(Patch)) (cancel func()) {
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	return func() { delete(d.observers, id) }
}

// CreateElement creates a detached element
func (d *Document) CreateElement(tag string) *Node {
	return d.newNode(ElementNode, strings.ToLower(tag), "")
}

// CreateText creates a detached text node
func (d *Document) CreateText(s string) *Node {
	return d.newNode(TextNode, "", s)
}

// CreateComment creates a detached comment node
func (d *Document) CreateComment(s string) *Node {
	return d.newNode(CommentNode, "", s)
}

func (d *Document) newNode(typ NodeType, tag, data string) *Node {
	d.nextID++
	return &Node{doc: d, id: d.nextID, typ: typ, tag: tag, data: data}
}

func (d *Document) notify(p Patch) {
	for _, fn := range d.observers {
		fn(p)
	}
}
