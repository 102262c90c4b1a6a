package ui

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/binder/internal/live"
	"github.com/recera/binder/pkg/binder"
	"github.com/recera/binder/pkg/dom"
	"github.com/recera/binder/pkg/expr"
	"github.com/recera/binder/pkg/scheduler"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newPlayground(t *testing.T) (Model, chan FlushMsg) {
	t.Helper()
	doc, err := dom.ParseString(`<div id="app"><button @on:click="count += 1">+</button><input @on:change="name = event.value"/><ul><li @for="items" @on:click="pick">{{ item }}</li></ul><p>{{ count }} {{ name }} {{ picked }}</p></div>`)
	require.NoError(t, err)

	loop := scheduler.NewLoop(quiet)
	state := expr.Record{"count": 0, "name": "", "picked": "", "items": []any{"a", "b"}}
	state["pick"] = expr.Func(func(this expr.Context, args []any) (any, error) {
		this.Set("picked", args[1])
		return nil, nil
	})
	b, err := binder.New(doc, "#app", state,
		binder.WithScheduler(loop), binder.WithLogger(quiet), binder.WithAutoUpdate(true))
	require.NoError(t, err)
	require.NoError(t, b.Bind())

	host := live.NewHost(loop, b)
	flushes := make(chan FlushMsg, 8)
	host.OnFlush(func(patches []dom.Patch, r live.Render) {
		flushes <- FlushMsg{Patches: patches, Render: r}
	})
	loop.Start()
	t.Cleanup(loop.Stop)

	m := NewModel(host, "test")
	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = step(t, m, m.loadEvents()())
	return m, flushes
}

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// press applies a key and runs the command it returns
func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(k)
	m = next.(Model)
	if cmd != nil {
		if msg := cmd(); msg != nil {
			m = step(t, m, msg)
		}
	}
	return m
}

func waitFlush(t *testing.T, flushes chan FlushMsg) FlushMsg {
	t.Helper()
	select {
	case f := <-flushes:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no flush")
	}
	return FlushMsg{}
}

func TestModel_ListsEvents(t *testing.T) {
	m, _ := newPlayground(t)
	rows := m.Rows()
	require.Len(t, rows, 4)
	assert.Equal(t, "click", rows[0].Event)
	assert.Equal(t, "count += 1", rows[0].Handler)
	assert.Equal(t, []int{0}, rows[0].Path)
	assert.Equal(t, "change", rows[1].Event)
	assert.Equal(t, EventRow{Event: "click", Handler: "pick", Tag: "li", Path: []int{2, 1}, Index: 1}, rows[3])
	assert.Contains(t, rows[3].Label(), "[1]")
	assert.Contains(t, m.View(), "count += 1")
}

func TestModel_FireEvents(t *testing.T) {
	m, flushes := newPlayground(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NoError(t, m.err)
	f := waitFlush(t, flushes)
	assert.Contains(t, f.Render.Markup, "<p>1  </p>")
	m = step(t, m, f)
	assert.Contains(t, m.markup.View(), "<p>1  </p>")

	// select the second loop item and fire it
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	require.Equal(t, 3, m.selected)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	f = waitFlush(t, flushes)
	assert.Contains(t, f.Render.Markup, "<p>1  b</p>")
}

func TestModel_FireWithValue(t *testing.T) {
	m, flushes := newPlayground(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	require.True(t, m.editing)
	for _, r := range "bob" {
		m = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	assert.True(t, strings.Contains(m.View(), "value:"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.editing)

	f := waitFlush(t, flushes)
	assert.Contains(t, f.Render.Markup, "<p>0 bob </p>")
}

func TestModel_Quit(t *testing.T) {
	m, _ := newPlayground(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.View())
}
