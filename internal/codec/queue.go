package codec

import "github.com/smazurov/codecbridge/pkg/videocore/mmal"

// Direction names the two client queues: DirInput feeds the accelerator,
// DirOutput carries its results.
type Direction int

const (
	DirInput Direction = iota
	DirOutput
)

func (d Direction) String() string {
	if d == DirInput {
		return "input"
	}
	return "output"
}

// ParseDirection converts a queue name to its Direction value.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "input":
		return DirInput, nil
	case "output":
		return DirOutput, nil
	default:
		return 0, NewError(ErrCodeInvalidArgument, "unknown queue "+s, nil)
	}
}

// FieldOrder describes frame interlacing on a buffer or queue.
type FieldOrder int

const (
	FieldAny FieldOrder = iota
	FieldNone
	FieldInterlaced
	FieldInterlacedTB
	FieldInterlacedBT
)

func (f FieldOrder) String() string {
	switch f {
	case FieldNone:
		return "none"
	case FieldInterlaced:
		return "interlaced"
	case FieldInterlacedTB:
		return "interlaced-tb"
	case FieldInterlacedBT:
		return "interlaced-bt"
	default:
		return "any"
	}
}

// ParseFieldOrder converts a field order name to its FieldOrder value.
func ParseFieldOrder(s string) (FieldOrder, error) {
	switch s {
	case "any", "":
		return FieldAny, nil
	case "none":
		return FieldNone, nil
	case "interlaced":
		return FieldInterlaced, nil
	case "interlaced-tb":
		return FieldInterlacedTB, nil
	case "interlaced-bt":
		return FieldInterlacedBT, nil
	default:
		return 0, NewError(ErrCodeInvalidArgument, "unknown field order "+s, nil)
	}
}

// BufferState tracks who owns a buffer.
type BufferState int

const (
	// BufferDequeued: owned by the client.
	BufferDequeued BufferState = iota
	// BufferQueued: handed to the session, not yet submitted.
	BufferQueued
	// BufferActive: submitted to the accelerator.
	BufferActive
	// BufferDone: processed, awaiting dequeue.
	BufferDone
	// BufferError: failed, awaiting dequeue.
	BufferError
)

func (s BufferState) String() string {
	switch s {
	case BufferDequeued:
		return "dequeued"
	case BufferQueued:
		return "queued"
	case BufferActive:
		return "active"
	case BufferDone:
		return "done"
	case BufferError:
		return "error"
	default:
		return "unknown"
	}
}

// Client buffer flags.
const (
	// FlagKeyframe marks a sync frame.
	FlagKeyframe uint32 = 1 << 0
	// FlagLast marks the final buffer of a drained stream.
	FlagLast uint32 = 1 << 1
	// FlagError marks a buffer whose payload failed processing.
	FlagError uint32 = 1 << 2
)

// Buffer is a client-visible frame buffer. The client fills Data,
// BytesUsed, Flags, Timestamp and Field before queuing an input buffer;
// the session fills them before an output buffer is dequeued.
type Buffer struct {
	Index     int
	Direction Direction
	Data      []byte
	BytesUsed uint32
	Flags     uint32

	// Timestamp is the presentation time in nanoseconds.
	Timestamp int64
	Field     FieldOrder
	Sequence  uint32
	State     BufferState

	hw mmal.Buffer
}

// queue is one side of a session: geometry, the allocated buffer set, and
// the pending/completed lists that move buffers between client and port.
type queue struct {
	dir Direction
	fmt *Format

	width        uint32
	height       uint32
	cropWidth    uint32
	cropHeight   uint32
	selectionSet bool
	bytesPerLine uint32
	sizeImage    uint32
	field        FieldOrder
	aspectRatio  mmal.Rational

	sequence           uint32
	streaming          bool
	lastBufferDequeued bool

	buffers   []*Buffer
	pending   []*Buffer
	completed []*Buffer

	eosBuffer mmal.Buffer
	eosInUse  bool

	// supportedEncodings holds what the accelerator reported for the
	// matching port; nil means the full catalog applies.
	supportedEncodings []uint32
}

func (q *queue) popPending() *Buffer {
	if len(q.pending) == 0 {
		return nil
	}
	b := q.pending[0]
	q.pending = q.pending[1:]
	return b
}

// complete moves a buffer to the completed list in the given state.
func (q *queue) complete(b *Buffer, state BufferState) {
	b.State = state
	q.completed = append(q.completed, b)
}

// requeue returns a buffer to the pending list, keeping arrival order.
func (q *queue) requeue(b *Buffer) {
	b.State = BufferQueued
	q.pending = append(q.pending, b)
}

// reset drops list membership without touching geometry. Buffers revert to
// client ownership.
func (q *queue) reset() {
	q.pending = nil
	q.completed = nil
	for _, b := range q.buffers {
		b.State = BufferDequeued
	}
}

// recomputeSizing refreshes stride and buffer size from the current
// geometry and format.
func (q *queue) recomputeSizing(role Role) {
	q.bytesPerLine = BytesPerLine(q.width, q.height, q.fmt, role)
	q.sizeImage = SizeImage(q.bytesPerLine, q.width, q.height, q.fmt)
}
