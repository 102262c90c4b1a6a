package dom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, markup string) *Document {
	t.Helper()
	doc, err := ParseString(markup)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	return doc
}

func mustQuery(t *testing.T, doc *Document, sel string) *Node {
	t.Helper()
	n, err := doc.QuerySelector(sel)
	if err != nil {
		t.Fatalf("QuerySelector(%q) error = %v", sel, err)
	}
	if n == nil {
		t.Fatalf("QuerySelector(%q) found nothing", sel)
	}
	return n
}

func TestDocument_InnerHTMLRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			name:   "simple",
			markup: `<div id="app"><p>Hello</p></div>`,
			want:   `<p>Hello</p>`,
		},
		{
			name:   "directive attributes survive parsing",
			markup: `<div id="app"><button @on:click="inc">+</button></div>`,
			want:   `<button @on:click="inc">+</button>`,
		},
		{
			name:   "interpolation markers are plain text",
			markup: `<div id="app"><span>{{ count }}</span></div>`,
			want:   `<span>{{ count }}</span>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.markup)
			app := mustQuery(t, doc, "#app")
			if got := app.InnerHTML(); got != tt.want {
				t.Errorf("InnerHTML() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDocument_QuerySelector(t *testing.T) {
	doc := mustParse(t, `<div class="a"><span id="x" class="b c">x</span></div>`)

	n := mustQuery(t, doc, "div.a > span.c")
	if v, _ := n.Attr("id"); v != "x" {
		t.Errorf("matched id = %q, want %q", v, "x")
	}

	missing, err := doc.QuerySelector("#nope")
	if err != nil {
		t.Fatalf("QuerySelector() error = %v", err)
	}
	if missing != nil {
		t.Errorf("QuerySelector(#nope) = %v, want nil", missing)
	}

	if _, err := doc.QuerySelector("div[["); err == nil {
		t.Error("expected error for invalid selector")
	}
}

func TestNode_PatchesForAttachedNodesOnly(t *testing.T) {
	doc := mustParse(t, `<div id="app"></div>`)
	app := mustQuery(t, doc, "#app")

	var rec Recorder
	cancel := doc.Observe(rec.Record)
	defer cancel()

	detached := doc.CreateElement("p")
	detached.SetAttr("class", "x")
	if rec.Len() != 0 {
		t.Fatalf("detached writes emitted %d patches", rec.Len())
	}

	app.AppendChild(detached)
	detached.SetAttr("class", "y")
	detached.SetAttr("class", "y")
	detached.RemoveAttr("class")
	detached.Remove()

	var ops []PatchOp
	for _, p := range rec.Patches() {
		ops = append(ops, p.Op)
	}
	want := []PatchOp{OpInsertNode, OpSetAttribute, OpSetAttribute, OpRemoveAttribute, OpRemoveNode}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Errorf("patch ops mismatch (-want +got):\n%s", diff)
	}
	if got := rec.Patches()[0].Value; got != `<p class="x"></p>` {
		t.Errorf("insert markup = %q", got)
	}
}

func TestNode_InsertAfterKeepsOrder(t *testing.T) {
	doc := mustParse(t, `<ul id="list"><!--anchor--><li>tail</li></ul>`)
	list := mustQuery(t, doc, "#list")
	anchor := list.FirstChild()

	prev := anchor
	for _, s := range []string{"a", "b", "c"} {
		li := doc.CreateElement("li")
		li.SetTextContent(s)
		list.InsertAfter(li, prev)
		prev = li
	}

	want := `<!--anchor--><li>a</li><li>b</li><li>c</li><li>tail</li>`
	if got := list.InnerHTML(); got != want {
		t.Errorf("InnerHTML() = %q, want %q", got, want)
	}
}

func TestNode_ParseFragmentUsesContext(t *testing.T) {
	doc := mustParse(t, `<table><tbody id="rows"></tbody></table>`)
	rows := mustQuery(t, doc, "#rows")

	nodes, err := rows.ParseFragment(`<tr><td>1</td></tr>`)
	if err != nil {
		t.Fatalf("ParseFragment() error = %v", err)
	}
	if len(nodes) != 1 || nodes[0].Tag() != "tr" {
		t.Fatalf("ParseFragment() = %v, want a single tr", nodes)
	}
	if nodes[0].Parent() != nil {
		t.Error("fragment nodes should be detached")
	}
}

func TestNode_Style(t *testing.T) {
	tests := []struct {
		name        string
		markup      string
		wantDisplay string
	}{
		{"block default", `<div id="n"></div>`, "block"},
		{"inline default", `<p><span id="n"></span></p>`, "inline"},
		{"list item", `<ul><li id="n"></li></ul>`, "list-item"},
		{"inline style wins", `<div id="n" style="color: red; display: flex"></div>`, "flex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.markup)
			n := mustQuery(t, doc, "#n")
			if got := n.ComputedDisplay(); got != tt.wantDisplay {
				t.Errorf("ComputedDisplay() = %q, want %q", got, tt.wantDisplay)
			}
		})
	}

	doc := mustParse(t, `<div id="n" style="color: red"></div>`)
	n := mustQuery(t, doc, "#n")
	n.SetStyleProperty("display", "none")
	if got, _ := n.Attr("style"); got != "color: red; display: none;" {
		t.Errorf("style = %q", got)
	}
	n.SetStyleProperty("display", "")
	n.SetStyleProperty("color", "")
	if n.HasAttr("style") {
		t.Error("empty style attribute should be removed")
	}
}

func TestNode_Classes(t *testing.T) {
	doc := mustParse(t, `<div id="n" class="a"></div>`)
	n := mustQuery(t, doc, "#n")

	n.AddClass("flash")
	n.AddClass("flash")
	if got, _ := n.Attr("class"); got != "a flash" {
		t.Errorf("class = %q, want %q", got, "a flash")
	}
	n.RemoveClass("flash")
	if got, _ := n.Attr("class"); got != "a" {
		t.Errorf("class = %q, want %q", got, "a")
	}
}

func TestNode_DispatchBubbles(t *testing.T) {
	doc := mustParse(t, `<div id="outer"><button id="btn">go</button></div>`)
	outer := mustQuery(t, doc, "#outer")
	btn := mustQuery(t, doc, "#btn")

	var order []string
	btn.AddEventListener("click", func(ev *Event) { order = append(order, "btn") })
	id := outer.AddEventListener("click", func(ev *Event) {
		if ev.Target != btn {
			t.Errorf("Target = %v, want button", ev.Target)
		}
		order = append(order, "outer")
	})

	btn.Dispatch(NewEvent("click"))
	if diff := cmp.Diff([]string{"btn", "outer"}, order); diff != "" {
		t.Errorf("dispatch order mismatch (-want +got):\n%s", diff)
	}

	outer.RemoveEventListener("click", id)
	order = nil
	btn.AddEventListener("click", func(ev *Event) { ev.StopPropagation() })
	btn.Dispatch(NewEvent("click"))
	if diff := cmp.Diff([]string{"btn"}, order); diff != "" {
		t.Errorf("dispatch after removal mismatch (-want +got):\n%s", diff)
	}
	if outer.ListenerCount("click") != 0 {
		t.Errorf("ListenerCount() = %d, want 0", outer.ListenerCount("click"))
	}
}

func TestNode_SetInnerHTML(t *testing.T) {
	doc := mustParse(t, `<div id="app"><p>old</p></div>`)
	app := mustQuery(t, doc, "#app")

	if err := app.SetInnerHTML(`<span>new</span> text`); err != nil {
		t.Fatalf("SetInnerHTML() error = %v", err)
	}
	if got := app.InnerHTML(); got != `<span>new</span> text` {
		t.Errorf("InnerHTML() = %q", got)
	}
	if got := app.TextContent(); got != "new text" {
		t.Errorf("TextContent() = %q", got)
	}
}
