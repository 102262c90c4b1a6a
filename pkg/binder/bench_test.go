package binder

import (
	"fmt"
	"strings"
	"testing"

	"github.com/recera/binder/pkg/dom"
	"github.com/recera/binder/pkg/expr"
)

const rowsMarkup = `<table id="app"><tbody><tr @for="rows" @att:class="item.odd ? 'odd' : ''"><td>{{ item.id }}</td><td>{{ item.label }}</td></tr></tbody><tfoot><tr><td>{{ len(rows) }} rows</td></tr></tfoot></table>`

func generateRows(n int) []any {
	rows := make([]any, n)
	for i := range rows {
		rows[i] = map[string]any{"id": i, "label": fmt.Sprintf("row %d", i), "odd": i%2 == 1}
	}
	return rows
}

func bindRows(tb testing.TB, n int) (*dom.Document, *Binder) {
	tb.Helper()
	doc, err := dom.ParseString(rowsMarkup)
	if err != nil {
		tb.Fatalf("ParseString() error = %v", err)
	}
	b, err := New(doc, "#app", expr.Record{"rows": generateRows(n)}, WithLogger(quiet))
	if err != nil {
		tb.Fatalf("New() error = %v", err)
	}
	if err := b.Bind(); err != nil {
		tb.Fatalf("Bind() error = %v", err)
	}
	return doc, b
}

// BenchmarkBind1kRows measures extraction plus the first render of a
// thousand loop items
func BenchmarkBind1kRows(b *testing.B) {
	for i := 0; i < b.N; i++ {
		bindRows(b, 1000)
	}
}

// BenchmarkUpdateText measures an update where only plain bindings are
// re-evaluated
func BenchmarkUpdateText(b *testing.B) {
	doc, err := dom.ParseString(`<div id="app">` + strings.Repeat(`<p @att:title="t">{{ a }} and {{ b }}</p>`, 100) + `</div>`)
	if err != nil {
		b.Fatal(err)
	}
	state := expr.Record{"a": 1, "b": "x", "t": "title"}
	bd, err := New(doc, "#app", state, WithLogger(quiet))
	if err != nil {
		b.Fatal(err)
	}
	if err := bd.Bind(); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		state["a"] = i
		if err := bd.Update(); err != nil {
			b.Fatal(err)
		}
	}
}

func TestBind1kRows(t *testing.T) {
	doc, b := bindRows(t, 1000)
	rows := elementsByTag(b.Root(), "tr")
	if len(rows) != 1001 {
		t.Fatalf("got %d rows, want 1001", len(rows))
	}
	if got := rows[999].TextContent(); got != "999row 999" {
		t.Errorf("row 999 = %q, want %q", got, "999row 999")
	}

	// An update with unchanged state only rebuilds the loop
	var rec dom.Recorder
	cancel := doc.Observe(rec.Record)
	defer cancel()
	if err := b.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	for _, p := range rec.Patches() {
		if p.Op == dom.OpReplaceText || p.Op == dom.OpSetAttribute || p.Op == dom.OpRemoveAttribute {
			t.Fatalf("unexpected patch %v", p)
		}
	}
}
