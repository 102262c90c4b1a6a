package dom

import "strings"

// defaultDisplay holds user-agent display values for elements that are not
// block-level. Anything absent defaults to "block", or "inline" for unknown
// phrasing content listed in inlineElements.
var defaultDisplay = map[string]string{
	"li":       "list-item",
	"table":    "table",
	"thead":    "table-header-group",
	"tbody":    "table-row-group",
	"tfoot":    "table-footer-group",
	"tr":       "table-row",
	"td":       "table-cell",
	"th":       "table-cell",
	"caption":  "table-caption",
	"col":      "table-column",
	"colgroup": "table-column-group",
	"head":     "none",
	"script":   "none",
	"style":    "none",
	"template": "none",
	"button":   "inline-block",
	"input":    "inline-block",
	"select":   "inline-block",
	"textarea": "inline-block",
}

var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "br": true,
	"cite": true, "code": true, "data": true, "dfn": true, "em": true, "i": true,
	"img": true, "kbd": true, "label": true, "mark": true, "q": true, "s": true,
	"samp": true, "small": true, "span": true, "strong": true, "sub": true,
	"sup": true, "time": true, "u": true, "var": true, "slot": true,
}

type styleDecl struct {
	prop, val string
}

func parseStyle(s string) []styleDecl {
	var out []styleDecl
	for _, part := range strings.Split(s, ";") {
		prop, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.TrimSpace(val)
		if prop == "" {
			continue
		}
		out = append(out, styleDecl{prop: prop, val: val})
	}
	return out
}

func formatStyle(decls []styleDecl) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.prop+": "+d.val+";")
	}
	return strings.Join(parts, " ")
}

// StyleProperty returns the inline value of a style property
func (n *Node) StyleProperty(prop string) string {
	style, _ := n.Attr("style")
	prop = strings.ToLower(prop)
	for _, d := range parseStyle(style) {
		if d.prop == prop {
			return d.val
		}
	}
	return ""
}

// SetStyleProperty sets an inline style property. An empty value removes the
// property, and the style attribute itself once no declarations remain.
func (n *Node) SetStyleProperty(prop, val string) {
	style, _ := n.Attr("style")
	prop = strings.ToLower(prop)
	decls := parseStyle(style)
	out := decls[:0]
	found := false
	for _, d := range decls {
		if d.prop == prop {
			found = true
			if val == "" {
				continue
			}
			d.val = val
		}
		out = append(out, d)
	}
	if !found && val != "" {
		out = append(out, styleDecl{prop: prop, val: val})
	}
	if len(out) == 0 {
		n.RemoveAttr("style")
		return
	}
	n.SetAttr("style", formatStyle(out))
}

// ComputedDisplay approximates getComputedStyle(el).display: the inline
// display value when set, otherwise the element's user-agent default.
func (n *Node) ComputedDisplay() string {
	if n.typ != ElementNode {
		return ""
	}
	if d := n.StyleProperty("display"); d != "" {
		return d
	}
	if d, ok := defaultDisplay[n.tag]; ok {
		return d
	}
	if inlineElements[n.tag] {
		return "inline"
	}
	return "block"
}

// Classes returns the element's class list
func (n *Node) Classes() []string {
	c, _ := n.Attr("class")
	return strings.Fields(c)
}

// HasClass reports whether the class list contains name
func (n *Node) HasClass(name string) bool {
	for _, c := range n.Classes() {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass adds name to the class list if absent
func (n *Node) AddClass(name string) {
	if name == "" || n.HasClass(name) {
		return
	}
	n.SetAttr("class", strings.Join(append(n.Classes(), name), " "))
}

// RemoveClass removes name from the class list. The class attribute is
// dropped when it becomes empty.
func (n *Node) RemoveClass(name string) {
	if !n.HasClass(name) {
		return
	}
	var keep []string
	for _, c := range n.Classes() {
		if c != name {
			keep = append(keep, c)
		}
	}
	if len(keep) == 0 {
		n.RemoveAttr("class")
		return
	}
	n.SetAttr("class", strings.Join(keep, " "))
}
