package dom

import "fmt"

// PatchOp represents the type of patch operation
type PatchOp uint8

const (
	// OpReplaceText replaces text node content
	OpReplaceText PatchOp = 0x01
	// OpSetAttribute sets or replaces an attribute
	OpSetAttribute PatchOp = 0x02
	// OpRemoveNode removes a node
	OpRemoveNode PatchOp = 0x03
	// OpInsertNode inserts a new node
	OpInsertNode PatchOp = 0x04
	// OpRemoveAttribute removes an attribute
	OpRemoveAttribute PatchOp = 0x06
)

// Patch records a single mutation of the render tree.
type Patch struct {
	Op       PatchOp `json:"op"`
	NodeID   uint32  `json:"node"`
	ParentID uint32  `json:"parent,omitempty"` // For insert operations
	BeforeID uint32  `json:"before,omitempty"` // For insert operations (0 means append)
	Key      string  `json:"key,omitempty"`    // Attribute key for set/remove attribute
	Value    string  `json:"value,omitempty"`  // Text content, attribute value or inserted markup
}

// String returns a human-readable representation of the patch
func (p Patch) String() string {
	switch p.Op {
	case OpReplaceText:
		return fmt.Sprintf("ReplaceText(node=%d, text=%q)", p.NodeID, p.Value)
	case OpSetAttribute:
		return fmt.Sprintf("SetAttribute(node=%d, key=%q, value=%q)", p.NodeID, p.Key, p.Value)
	case OpRemoveAttribute:
		return fmt.Sprintf("RemoveAttribute(node=%d, key=%q)", p.NodeID, p.Key)
	case OpRemoveNode:
		return fmt.Sprintf("RemoveNode(node=%d)", p.NodeID)
	case OpInsertNode:
		return fmt.Sprintf("InsertNode(node=%d, parent=%d, before=%d)", p.NodeID, p.ParentID, p.BeforeID)
	default:
		return fmt.Sprintf("Unknown(op=%d)", p.Op)
	}
}

// Recorder collects patches emitted by a document. It is the write-count
// instrument used by tests and by the live preview server.
type Recorder struct {
	patches []Patch
}

// Record appends a patch; it has the signature expected by Document.Observe.
func (r *Recorder) Record(p Patch) {
	r.patches = append(r.patches, p)
}

// Patches returns the recorded patches.
func (r *Recorder) Patches() []Patch {
	return r.patches
}

// Len returns the number of recorded patches.
func (r *Recorder) Len() int {
	return len(r.patches)
}

// Reset discards recorded patches and returns them.
func (r *Recorder) Reset() []Patch {
	p := r.patches
	r.patches = nil
	return p
}
