package live

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/recera/binder/pkg/dom"
)

// maxString bounds decoded strings and lists
const maxString = 16 << 20

var errShortFrame = errors.New("live: frame too short")

// Encoder handles encoding of live protocol messages
type Encoder struct {
	w   io.Writer
	err error
}

// NewEncoder creates a new encoder
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteUvarint writes an unsigned varint
func (e *Encoder) WriteUvarint(v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	e.WriteBytes(buf[:n])
}

// WriteString writes a length-prefixed string
func (e *Encoder) WriteString(s string) {
	e.WriteUvarint(uint64(len(s)))
	e.WriteBytes([]byte(s))
}

// WriteBytes writes raw bytes
func (e *Encoder) WriteBytes(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

// Err returns the first write error
func (e *Encoder) Err() error {
	return e.err
}

// Decoder handles decoding of live protocol messages
type Decoder struct {
	r *bytes.Reader
}

// NewDecoder creates a decoder over a frame body
func NewDecoder(data []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(data)}
}

// ReadUvarint reads an unsigned varint
func (d *Decoder) ReadUvarint() (uint64, error) {
	return binary.ReadUvarint(d.r)
}

// ReadString reads a length-prefixed string
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > maxString || length > uint64(d.r.Len()) {
		return "", errShortFrame
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// ReadByte reads one byte
func (d *Decoder) ReadByte() (byte, error) {
	return d.r.ReadByte()
}

// EncodeRender encodes a render frame
func EncodeRender(r Render) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.WriteBytes([]byte{byte(FrameRender)})
	enc.WriteUvarint(r.Seq)
	enc.WriteString(r.Markup)
	enc.WriteUvarint(uint64(len(r.Events)))
	for _, ev := range r.Events {
		enc.WriteString(ev)
	}
	return buf.Bytes(), enc.Err()
}

// DecodeRender decodes a render frame
func DecodeRender(data []byte) (*Render, error) {
	if len(data) < 1 || MessageType(data[0]) != FrameRender {
		return nil, errors.New("live: not a render frame")
	}
	dec := NewDecoder(data[1:])
	var r Render
	var err error
	if r.Seq, err = dec.ReadUvarint(); err != nil {
		return nil, fmt.Errorf("live: render seq: %w", err)
	}
	if r.Markup, err = dec.ReadString(); err != nil {
		return nil, fmt.Errorf("live: render markup: %w", err)
	}
	n, err := dec.ReadUvarint()
	if err != nil || n > maxString {
		return nil, errShortFrame
	}
	for i := uint64(0); i < n; i++ {
		ev, err := dec.ReadString()
		if err != nil {
			return nil, fmt.Errorf("live: render events: %w", err)
		}
		r.Events = append(r.Events, ev)
	}
	return &r, nil
}

// EncodePatches encodes patches to binary format
func EncodePatches(patches []dom.Patch) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	enc.WriteBytes([]byte{byte(FramePatches)})
	enc.WriteUvarint(uint64(len(patches)))

	for _, p := range patches {
		enc.WriteBytes([]byte{byte(p.Op)})
		enc.WriteUvarint(uint64(p.NodeID))

		switch p.Op {
		case dom.OpReplaceText:
			enc.WriteString(p.Value)
		case dom.OpSetAttribute:
			enc.WriteString(p.Key)
			enc.WriteString(p.Value)
		case dom.OpRemoveAttribute:
			enc.WriteString(p.Key)
		case dom.OpRemoveNode:
		case dom.OpInsertNode:
			enc.WriteUvarint(uint64(p.ParentID))
			enc.WriteUvarint(uint64(p.BeforeID))
			enc.WriteString(p.Value)
		default:
			return nil, fmt.Errorf("live: unknown patch op %d", p.Op)
		}
	}
	return buf.Bytes(), enc.Err()
}

// DecodePatches decodes a patches frame
func DecodePatches(data []byte) ([]dom.Patch, error) {
	if len(data) < 1 || MessageType(data[0]) != FramePatches {
		return nil, errors.New("live: not a patches frame")
	}
	dec := NewDecoder(data[1:])
	n, err := dec.ReadUvarint()
	if err != nil || n > maxString {
		return nil, errShortFrame
	}
	patches := make([]dom.Patch, 0, n)
	for i := uint64(0); i < n; i++ {
		op, err := dec.ReadByte()
		if err != nil {
			return nil, errShortFrame
		}
		id, err := dec.ReadUvarint()
		if err != nil {
			return nil, errShortFrame
		}
		p := dom.Patch{Op: dom.PatchOp(op), NodeID: uint32(id)}
		switch p.Op {
		case dom.OpReplaceText:
			p.Value, err = dec.ReadString()
		case dom.OpSetAttribute:
			if p.Key, err = dec.ReadString(); err == nil {
				p.Value, err = dec.ReadString()
			}
		case dom.OpRemoveAttribute:
			p.Key, err = dec.ReadString()
		case dom.OpRemoveNode:
		case dom.OpInsertNode:
			var parent, before uint64
			if parent, err = dec.ReadUvarint(); err == nil {
				if before, err = dec.ReadUvarint(); err == nil {
					p.Value, err = dec.ReadString()
				}
			}
			p.ParentID, p.BeforeID = uint32(parent), uint32(before)
		default:
			return nil, fmt.Errorf("live: unknown patch op %d", op)
		}
		if err != nil {
			return nil, fmt.Errorf("live: patch %d: %w", i, err)
		}
		patches = append(patches, p)
	}
	return patches, nil
}

// EncodeEvent encodes an event to binary format
func EncodeEvent(evt Event) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.WriteBytes([]byte{byte(FrameEvent)})
	enc.WriteString(evt.Type)
	enc.WriteUvarint(uint64(len(evt.Path)))
	for _, i := range evt.Path {
		enc.WriteUvarint(uint64(i))
	}
	enc.WriteString(evt.Value)
	return buf.Bytes()
}

// DecodeEvent decodes an event from binary format
func DecodeEvent(data []byte) (*Event, error) {
	if len(data) < 3 {
		return nil, errShortFrame
	}
	if MessageType(data[0]) != FrameEvent {
		return nil, errors.New("live: not an event frame")
	}
	dec := NewDecoder(data[1:])
	typ, err := dec.ReadString()
	if err != nil || typ == "" {
		return nil, errors.New("live: failed to decode event type")
	}
	n, err := dec.ReadUvarint()
	if err != nil || n > 1024 {
		return nil, errors.New("live: failed to decode event path")
	}
	evt := &Event{Type: typ, Path: make([]int, 0, n)}
	for i := uint64(0); i < n; i++ {
		idx, err := dec.ReadUvarint()
		if err != nil {
			return nil, errors.New("live: failed to decode event path")
		}
		evt.Path = append(evt.Path, int(idx))
	}
	if evt.Value, err = dec.ReadString(); err != nil {
		return nil, errors.New("live: failed to decode event value")
	}
	return evt, nil
}

// encodeControl encodes a control frame with optional numeric arguments
func encodeControl(msg string, args ...uint64) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.WriteBytes([]byte{byte(FrameControl)})
	enc.WriteString(msg)
	for _, a := range args {
		enc.WriteUvarint(a)
	}
	return buf.Bytes()
}
