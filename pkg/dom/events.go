package dom

// ListenerID identifies a registered event listener for removal
type ListenerID uint64

type listener struct {
	id ListenerID
	fn func(*Event)
}

// Event is dispatched to listeners of a node and bubbles to its ancestors.
type Event struct {
	Type string
	// Value carries the current value of form controls for input and
	// change events.
	Value string
	// Detail carries arbitrary event payload.
	Detail map[string]any

	Target        *Node
	CurrentTarget *Node

	stopped bool
}

// NewEvent creates an event of the given type
func NewEvent(typ string) *Event {
	return &Event{Type: typ}
}

// StopPropagation prevents the event from reaching further ancestors
func (e *Event) StopPropagation() { e.stopped = true }

// Get exposes event fields to expression evaluation.
func (e *Event) Get(key string) (any, bool) {
	switch key {
	case "type":
		return e.Type, true
	case "value":
		return e.Value, true
	case "target":
		return e.Target, true
	case "currentTarget":
		return e.CurrentTarget, true
	case "detail":
		return e.Detail, true
	}
	if v, ok := e.Detail[key]; ok {
		return v, true
	}
	return nil, false
}

// Get exposes node properties to expression evaluation: a few DOM
// properties, then attributes.
func (n *Node) Get(key string) (any, bool) {
	switch key {
	case "tagName":
		return n.tag, true
	case "textContent":
		return n.TextContent(), true
	case "id":
		v, _ := n.Attr("id")
		return v, true
	case "className":
		v, _ := n.Attr("class")
		return v, true
	}
	if v, ok := n.Attr(key); ok {
		return v, true
	}
	return nil, false
}

// AddEventListener registers fn for events of the given type on n
func (n *Node) AddEventListener(typ string, fn func(*Event)) ListenerID {
	if n.listeners == nil {
		n.listeners = make(map[string][]listener)
	}
	n.doc.nextListener++
	id := n.doc.nextListener
	n.listeners[typ] = append(n.listeners[typ], listener{id: id, fn: fn})
	return id
}

// RemoveEventListener unregisters a listener. Unknown IDs are ignored.
func (n *Node) RemoveEventListener(typ string, id ListenerID) {
	ls := n.listeners[typ]
	for i, l := range ls {
		if l.id == id {
			n.listeners[typ] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(n.listeners[typ]) == 0 {
		delete(n.listeners, typ)
	}
}

// ListenerCount returns the number of listeners registered for typ
func (n *Node) ListenerCount(typ string) int {
	return len(n.listeners[typ])
}

// Dispatch delivers ev to n's listeners and then to each ancestor's until
// propagation is stopped.
func (n *Node) Dispatch(ev *Event) {
	if ev.Target == nil {
		ev.Target = n
	}
	for cur := n; cur != nil && !ev.stopped; cur = cur.parent {
		ls := cur.listeners[ev.Type]
		if len(ls) == 0 {
			continue
		}
		ev.CurrentTarget = cur
		// Snapshot: listeners may remove themselves while running.
		snapshot := make([]listener, len(ls))
		copy(snapshot, ls)
		for _, l := range snapshot {
			l.fn(ev)
		}
	}
	ev.CurrentTarget = nil
}
