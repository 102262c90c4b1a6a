package binder

import (
	"github.com/recera/binder/pkg/dom"
)

// textBinding re-renders one text node. template keeps every {{ }} marker.
type textBinding struct {
	node     *dom.Node
	template string
}

// attrBinding sets, clears or toggles one attribute
type attrBinding struct {
	node    *dom.Node
	name    string
	expr    string
	boolean bool
}

// condBinding toggles an element's display. display is captured once at
// extraction so showing restores it exactly.
type condBinding struct {
	node    *dom.Node
	expr    string
	display string
	visible bool
}

// loopBinding regenerates the elements of a @for on every update. New
// elements are inserted after placeholder in list order.
type loopBinding struct {
	template    string
	items       string
	parent      *dom.Node
	placeholder *dom.Node
	rendered    []*dom.Node
	events      []*eventBinding
}

// eventBinding is a live listener registration
type eventBinding struct {
	node    *dom.Node
	event   string
	handler string
	id      dom.ListenerID
	// index is the loop position for listeners created inside a loop,
	// otherwise -1
	index int
	item  any
}

// EventInfo describes a live event registration
type EventInfo struct {
	Node    *dom.Node
	Event   string
	Handler string
	// Index is the loop position for listeners created inside a loop,
	// otherwise -1
	Index int
	Item  any
}

// Counts reports the number of bindings of each category
type Counts struct {
	Text        int
	Attribute   int
	Conditional int
	Loop        int
	Event       int
}

// store holds the bindings of one bind cycle
type store struct {
	texts  []*textBinding
	attrs  []*attrBinding
	conds  []*condBinding
	loops  []*loopBinding
	events []*eventBinding
}

func (s *store) counts() Counts {
	c := Counts{
		Text:        len(s.texts),
		Attribute:   len(s.attrs),
		Conditional: len(s.conds),
		Loop:        len(s.loops),
		Event:       len(s.events),
	}
	for _, l := range s.loops {
		c.Event += len(l.events)
	}
	return c
}

// allEvents returns the global registrations followed by those of every
// loop, in order.
func (s *store) allEvents() []*eventBinding {
	out := append([]*eventBinding(nil), s.events...)
	for _, l := range s.loops {
		out = append(out, l.events...)
	}
	return out
}

// clear removes every listener and rendered loop element and drops all
// bindings.
func (s *store) clear() {
	for _, e := range s.events {
		e.node.RemoveEventListener(e.event, e.id)
	}
	for _, l := range s.loops {
		l.reset()
	}
	*s = store{}
}

// reset removes the loop's listeners and rendered elements
func (l *loopBinding) reset() {
	for _, e := range l.events {
		e.node.RemoveEventListener(e.event, e.id)
	}
	for _, n := range l.rendered {
		n.Remove()
	}
	l.events = nil
	l.rendered = nil
}
