package dom

import "fmt"

// AppendChild adds child as the last child of n. A child that is still
// attached elsewhere is detached first.
func (n *Node) AppendChild(child *Node) {
	n.InsertBefore(child, nil)
}

// InsertBefore inserts child immediately before ref, which must be a child
// of n. A nil ref appends.
func (n *Node) InsertBefore(child, ref *Node) {
	if ref != nil && ref.parent != n {
		panic(fmt.Sprintf("dom: InsertBefore reference node %d is not a child of %d", ref.id, n.id))
	}
	if child.parent != nil {
		child.Remove()
	}
	child.parent = n
	if ref == nil {
		child.prevSibling = n.lastChild
		if n.lastChild != nil {
			n.lastChild.nextSibling = child
		} else {
			n.firstChild = child
		}
		n.lastChild = child
	} else {
		child.prevSibling = ref.prevSibling
		child.nextSibling = ref
		if ref.prevSibling != nil {
			ref.prevSibling.nextSibling = child
		} else {
			n.firstChild = child
		}
		ref.prevSibling = child
	}

	var before uint32
	if ref != nil {
		before = ref.id
	}
	child.emit(Patch{
		Op:       OpInsertNode,
		NodeID:   child.id,
		ParentID: n.id,
		BeforeID: before,
		Value:    child.OuterHTML(),
	})
}

// InsertAfter inserts child immediately after ref, which must be a child of n.
func (n *Node) InsertAfter(child, ref *Node) {
	if ref == nil {
		n.InsertBefore(child, n.firstChild)
		return
	}
	n.InsertBefore(child, ref.nextSibling)
}

// Remove detaches the node from its parent. Removing a detached node is a no-op.
func (n *Node) Remove() {
	p := n.parent
	if p == nil {
		return
	}
	// Emit while still attached so observers can resolve the node.
	n.emit(Patch{Op: OpRemoveNode, NodeID: n.id})

	if n.prevSibling != nil {
		n.prevSibling.nextSibling = n.nextSibling
	} else {
		p.firstChild = n.nextSibling
	}
	if n.nextSibling != nil {
		n.nextSibling.prevSibling = n.prevSibling
	} else {
		p.lastChild = n.prevSibling
	}
	n.parent, n.prevSibling, n.nextSibling = nil, nil, nil
}
