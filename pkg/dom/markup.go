package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// fromHTML converts a parsed x/net/html tree into render nodes owned by d.
func (d *Document) fromHTML(hn *html.Node) *Node {
	var n *Node
	switch hn.Type {
	case html.DocumentNode:
		n = d.newNode(DocumentNode, "", "")
	case html.ElementNode:
		n = d.newNode(ElementNode, hn.Data, "")
		n.ns = hn.Namespace
		for _, a := range hn.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + a.Key
			}
			n.attrs = append(n.attrs, Attr{Key: key, Val: a.Val})
		}
	case html.TextNode, html.RawNode:
		n = d.newNode(TextNode, "", hn.Data)
	case html.CommentNode:
		n = d.newNode(CommentNode, "", hn.Data)
	case html.DoctypeNode:
		n = d.newNode(DoctypeNode, "", hn.Data)
	default:
		return nil
	}
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		child := d.fromHTML(c)
		if child == nil {
			continue
		}
		// Direct linking: parsing is not a mutation and emits no patches.
		child.parent = n
		child.prevSibling = n.lastChild
		if n.lastChild != nil {
			n.lastChild.nextSibling = child
		} else {
			n.firstChild = child
		}
		n.lastChild = child
	}
	return n
}

// toHTML converts a render subtree to x/net/html nodes. When back is non-nil
// it is filled with the reverse mapping.
func toHTML(n *Node, back map[*html.Node]*Node) *html.Node {
	hn := &html.Node{}
	switch n.typ {
	case DocumentNode:
		hn.Type = html.DocumentNode
	case ElementNode:
		hn.Type = html.ElementNode
		hn.Data = n.tag
		hn.DataAtom = atom.Lookup([]byte(n.tag))
		hn.Namespace = n.ns
		for _, a := range n.attrs {
			hn.Attr = append(hn.Attr, html.Attribute{Key: a.Key, Val: a.Val})
		}
	case TextNode:
		hn.Type = html.TextNode
		hn.Data = n.data
	case CommentNode:
		hn.Type = html.CommentNode
		hn.Data = n.data
	case DoctypeNode:
		hn.Type = html.DoctypeNode
		hn.Data = n.data
	}
	if back != nil {
		back[hn] = n
	}
	for c := n.firstChild; c != nil; c = c.nextSibling {
		hn.AppendChild(toHTML(c, back))
	}
	return hn
}

// contextNode builds the fragment parsing context for n.
func (n *Node) contextNode() *html.Node {
	if n.typ != ElementNode {
		return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	return &html.Node{
		Type:      html.ElementNode,
		Data:      n.tag,
		DataAtom:  atom.Lookup([]byte(n.tag)),
		Namespace: n.ns,
	}
}

// OuterHTML serializes the node including itself
func (n *Node) OuterHTML() string {
	var sb strings.Builder
	if err := html.Render(&sb, toHTML(n, nil)); err != nil {
		return ""
	}
	return sb.String()
}

// InnerHTML serializes the node's children
func (n *Node) InnerHTML() string {
	hn := toHTML(n, nil)
	var sb strings.Builder
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return sb.String()
		}
	}
	return sb.String()
}

// ParseFragment parses markup as the content of n and returns the resulting
// detached nodes.
func (n *Node) ParseFragment(markup string) ([]*Node, error) {
	hns, err := html.ParseFragment(strings.NewReader(markup), n.contextNode())
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	out := make([]*Node, 0, len(hns))
	for _, hn := range hns {
		if c := n.doc.fromHTML(hn); c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

// SetInnerHTML replaces the node's children with the parsed markup.
func (n *Node) SetInnerHTML(markup string) error {
	nodes, err := n.ParseFragment(markup)
	if err != nil {
		return err
	}
	for c := n.firstChild; c != nil; {
		next := c.nextSibling
		c.Remove()
		c = next
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}
