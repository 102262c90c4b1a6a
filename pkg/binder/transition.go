package binder

import (
	"github.com/recera/binder/pkg/dom"
)

// transition is a pending removal of the transition class from one node
type transition struct {
	node      *dom.Node
	class     string
	listeners map[string]dom.ListenerID
	stopTimer func()
	done      bool
}

var transitionEndEvents = []string{"animationend", "transitionend"}

// transition adds the transition class to n and removes it on the first of
// animationend, transitionend or the fallback timeout. Patching a node
// again restarts its transition.
func (b *Binder) transition(n *dom.Node) {
	if b.transitionClass == "" || n == nil || !n.IsElement() {
		return
	}
	if prev, ok := b.transitions[n]; ok {
		prev.cancel()
	}

	t := &transition{node: n, class: b.transitionClass, listeners: make(map[string]dom.ListenerID, 2)}
	b.transitions[n] = t
	n.AddClass(t.class)

	finish := func() {
		if t.done {
			return
		}
		t.cancel()
		n.RemoveClass(t.class)
		if b.transitions[n] == t {
			delete(b.transitions, n)
		}
	}
	for _, typ := range transitionEndEvents {
		t.listeners[typ] = n.AddEventListener(typ, func(*dom.Event) { finish() })
	}
	t.stopTimer = b.sched.AfterFunc(b.transitionTimeout, finish)
}

// cancel detaches the transition's listeners and timer without touching
// the class
func (t *transition) cancel() {
	if t.done {
		return
	}
	t.done = true
	for typ, id := range t.listeners {
		t.node.RemoveEventListener(typ, id)
	}
	if t.stopTimer != nil {
		t.stopTimer()
	}
}

// pendingTransitions returns the number of transitions not yet finished
func (b *Binder) pendingTransitions() int {
	return len(b.transitions)
}
