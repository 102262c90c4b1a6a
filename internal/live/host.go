package live

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/recera/binder/pkg/binder"
	"github.com/recera/binder/pkg/dom"
	"github.com/recera/binder/pkg/scheduler"
)

// ErrBadPath is returned when an event path does not name an element
var ErrBadPath = errors.New("live: event path does not resolve")

// FlushFunc receives the patches of one flush and the resulting render
type FlushFunc func(patches []dom.Patch, r Render)

// Host owns a bound render target and serializes every access to it on a
// scheduler loop. Mutations are collected and flushed once per loop batch.
// The binder must have been created with the same loop as its scheduler.
type Host struct {
	loop *scheduler.Loop
	b    *binder.Binder

	// touched only on the loop
	pending []dom.Patch
	queued  bool
	seq     uint64
	cancel  func()

	mu      sync.Mutex
	onFlush []FlushFunc
}

// NewHost attaches to b's document. It must be called before the loop
// starts or from a loop task.
func NewHost(loop *scheduler.Loop, b *binder.Binder) *Host {
	h := &Host{loop: loop, b: b}
	h.cancel = b.Root().Document().Observe(h.record)
	return h
}

// OnFlush registers fn to run on the loop after each flush
func (h *Host) OnFlush(fn FlushFunc) {
	h.mu.Lock()
	h.onFlush = append(h.onFlush, fn)
	h.mu.Unlock()
}

func (h *Host) record(p dom.Patch) {
	h.pending = append(h.pending, p)
	if !h.queued {
		h.queued = true
		h.loop.Post(h.flush)
	}
}

func (h *Host) flush() {
	patches := h.pending
	h.pending = nil
	h.queued = false
	h.seq++
	r := h.render()

	h.mu.Lock()
	fns := append([]FlushFunc(nil), h.onFlush...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(patches, r)
	}
}

func (h *Host) render() Render {
	return Render{Seq: h.seq, Markup: h.b.Root().InnerHTML(), Events: eventTypes(h.b)}
}

func eventTypes(b *binder.Binder) []string {
	seen := make(map[string]bool)
	var types []string
	for _, e := range b.Events() {
		if !seen[e.Event] {
			seen[e.Event] = true
			types = append(types, e.Event)
		}
	}
	sort.Strings(types)
	return types
}

// Snapshot returns the current render
func (h *Host) Snapshot() (Render, error) {
	var r Render
	err := h.loop.Do(func() { r = h.render() })
	return r, err
}

// Do runs fn with the binder on the loop and waits for it
func (h *Host) Do(fn func(b *binder.Binder) error) error {
	var err error
	if lerr := h.loop.Do(func() { err = fn(h.b) }); lerr != nil {
		return lerr
	}
	return err
}

// Dispatch fires a client event at the element addressed by its path
func (h *Host) Dispatch(evt Event) error {
	return h.Do(func(b *binder.Binder) error {
		node, err := Resolve(b.Root(), evt.Path)
		if err != nil {
			return err
		}
		ev := dom.NewEvent(evt.Type)
		ev.Value = evt.Value
		if evt.Type == "input" || evt.Type == "change" {
			// mirror the control value the way a browser does
			node.SetAttr("value", evt.Value)
		}
		return b.Dispatch(node, ev)
	})
}

// Close detaches from the document
func (h *Host) Close() {
	if err := h.loop.Do(h.cancel); err != nil {
		h.cancel()
	}
}

// Resolve follows an element-child index path from root
func Resolve(root *dom.Node, path []int) (*dom.Node, error) {
	n := root
	for depth, i := range path {
		var elems []*dom.Node
		for _, c := range n.Children() {
			if c.IsElement() {
				elems = append(elems, c)
			}
		}
		if i < 0 || i >= len(elems) {
			return nil, fmt.Errorf("%w: index %d at depth %d", ErrBadPath, i, depth)
		}
		n = elems[i]
	}
	return n, nil
}

// PathOf returns the element-child index path from root to n
func PathOf(root, n *dom.Node) ([]int, bool) {
	var path []int
	for cur := n; cur != root; cur = cur.Parent() {
		parent := cur.Parent()
		if parent == nil {
			return nil, false
		}
		i := 0
		for _, c := range parent.Children() {
			if c == cur {
				break
			}
			if c.IsElement() {
				i++
			}
		}
		path = append([]int{i}, path...)
	}
	return path, true
}
