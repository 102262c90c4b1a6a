package live

// MessageType is the first byte of every frame
type MessageType uint8

const (
	// FramePatches carries the mutations of one flush (server to client)
	FramePatches MessageType = 0x00
	// FrameEvent carries a DOM event (client to server)
	FrameEvent MessageType = 0x01
	// FrameControl carries HELLO, PING and PONG
	FrameControl MessageType = 0x02
	// FrameRender carries the target markup and the bound event types
	// (server to client)
	FrameRender MessageType = 0x03
)

// Event is a DOM event reported by a client. Path is the element-child
// index path from the bound target to the event target.
type Event struct {
	Type  string
	Path  []int
	Value string
}

// Render is the full state of the target after a flush
type Render struct {
	Seq    uint64
	Markup string
	// Events lists the event types the client must forward
	Events []string
}
