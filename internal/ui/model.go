// Package ui is the terminal playground for a bound template: it lists the
// live event registrations, fires them on the render target and shows the
// resulting markup and mutations.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/recera/binder/internal/live"
	"github.com/recera/binder/pkg/binder"
	"github.com/recera/binder/pkg/dom"
)

// maxLog bounds the mutation log
const maxLog = 200

// EventRow is one live event registration
type EventRow struct {
	Event   string
	Handler string
	Tag     string
	Path    []int
	// Index is the loop item index, -1 outside loops
	Index int
}

// Label renders the row for the event list
func (r EventRow) Label() string {
	s := fmt.Sprintf("%-8s <%s> %s", r.Event, r.Tag, r.Handler)
	if r.Index >= 0 {
		s += fmt.Sprintf(" [%d]", r.Index)
	}
	return s
}

// Messages
type eventsMsg struct {
	rows []EventRow
	err  error
}

type firedMsg struct {
	row EventRow
	err error
}

// FlushMsg reports a flush of the render target
type FlushMsg struct {
	Patches []dom.Patch
	Render  live.Render
}

// Model represents the playground state
type Model struct {
	width  int
	height int

	host  *live.Host
	title string

	rows     []EventRow
	selected int

	markup   viewport.Model
	input    textinput.Model
	editing  bool
	log      []string
	seq      uint64
	showHelp bool
	quitting bool
	err      error
}

// NewModel creates a playground over host
func NewModel(host *live.Host, title string) Model {
	in := textinput.New()
	in.Placeholder = "event value"
	in.CharLimit = 200
	in.Width = 40

	return Model{
		host:   host,
		title:  title,
		markup: viewport.New(80, 20),
		input:  in,
	}
}

// Init loads the current render and the event list
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadEvents(), m.snapshot())
}

func (m Model) loadEvents() tea.Cmd {
	host := m.host
	return func() tea.Msg {
		var rows []EventRow
		err := host.Do(func(b *binder.Binder) error {
			rows = collectRows(b)
			return nil
		})
		return eventsMsg{rows: rows, err: err}
	}
}

func (m Model) snapshot() tea.Cmd {
	host := m.host
	return func() tea.Msg {
		r, err := host.Snapshot()
		if err != nil {
			return eventsMsg{err: err}
		}
		return FlushMsg{Render: r}
	}
}

func collectRows(b *binder.Binder) []EventRow {
	var rows []EventRow
	for _, e := range b.Events() {
		path, ok := live.PathOf(b.Root(), e.Node)
		if !ok {
			continue
		}
		rows = append(rows, EventRow{
			Event:   e.Event,
			Handler: e.Handler,
			Tag:     e.Node.Tag(),
			Path:    path,
			Index:   e.Index,
		})
	}
	return rows
}

func (m Model) fire(row EventRow, value string) tea.Cmd {
	host := m.host
	return func() tea.Msg {
		err := host.Dispatch(live.Event{Type: row.Event, Path: row.Path, Value: value})
		return firedMsg{row: row, err: err}
	}
}

func (m Model) forceUpdate() tea.Cmd {
	host := m.host
	return func() tea.Msg {
		err := host.Do(func(b *binder.Binder) error { return b.Update() })
		return firedMsg{row: EventRow{Event: "update", Index: -1}, err: err}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.markup.Width = msg.Width/2 - 4
		m.markup.Height = msg.Height - 8
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		switch {
		case key.Matches(msg, DefaultKeyMap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, DefaultKeyMap.Help):
			m.showHelp = !m.showHelp
		case key.Matches(msg, DefaultKeyMap.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, DefaultKeyMap.Down):
			if m.selected < len(m.rows)-1 {
				m.selected++
			}
		case key.Matches(msg, DefaultKeyMap.Edit):
			if len(m.rows) > 0 {
				m.editing = true
				m.input.Focus()
				return m, textinput.Blink
			}
		case key.Matches(msg, DefaultKeyMap.Fire):
			if row, ok := m.current(); ok {
				return m, m.fire(row, "")
			}
		case key.Matches(msg, DefaultKeyMap.Update):
			return m, m.forceUpdate()
		default:
			var cmd tea.Cmd
			m.markup, cmd = m.markup.Update(msg)
			return m, cmd
		}
		return m, nil

	case eventsMsg:
		m.err = msg.err
		m.rows = msg.rows
		if m.selected >= len(m.rows) {
			m.selected = max(len(m.rows)-1, 0)
		}
		return m, nil

	case firedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.appendLog(mutedStyle.Render("fired " + msg.row.Label()))
		}
		return m, nil

	case FlushMsg:
		if msg.Render.Seq >= m.seq {
			m.seq = msg.Render.Seq
			m.markup.SetContent(msg.Render.Markup)
		}
		for _, p := range msg.Patches {
			m.appendLog(patchStyle.Render(p.String()))
		}
		if len(msg.Patches) == 0 {
			return m, nil
		}
		// loops may have rebuilt the registered nodes
		return m, m.loadEvents()
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DefaultKeyMap.Cancel):
		m.editing = false
		m.input.Blur()
		return m, nil
	case key.Matches(msg, DefaultKeyMap.Fire):
		m.editing = false
		m.input.Blur()
		value := m.input.Value()
		m.input.SetValue("")
		if row, ok := m.current(); ok {
			return m, m.fire(row, value)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) current() (EventRow, bool) {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return EventRow{}, false
	}
	return m.rows[m.selected], true
}

func (m *Model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLog {
		m.log = m.log[len(m.log)-maxLog:]
	}
}

// Rows returns the listed event registrations
func (m Model) Rows() []EventRow {
	return m.rows
}

// Run starts the playground on the terminal and blocks until it quits
func Run(host *live.Host, title string, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(NewModel(host, title), append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	host.OnFlush(func(patches []dom.Patch, r live.Render) {
		go p.Send(FlushMsg{Patches: patches, Render: r})
	})
	_, err := p.Run()
	return err
}
