package mmal

import (
	"math"
	"sync/atomic"
)

// PortDirection identifies which side of a component a port sits on.
type PortDirection int

const (
	PortControl PortDirection = iota
	PortInput
	PortOutput
)

func (d PortDirection) String() string {
	switch d {
	case PortControl:
		return "control"
	case PortInput:
		return "input"
	case PortOutput:
		return "output"
	default:
		return "unknown"
	}
}

// BufferRequirements describes a port's buffer pool sizing.
type BufferRequirements struct {
	Num  uint32
	Size uint32
}

// BufferCallback receives buffers returned by the accelerator. status is
// non-nil when the accelerator failed processing that buffer. Callbacks run
// on the instance's dispatcher goroutine and must not block.
type BufferCallback func(port *Port, buf *Buffer, status error)

// Port is one endpoint of a component. Enabled and the buffer requirements
// are maintained by the Instance implementation; BuffersWithVPU counts
// buffers currently owned by the accelerator and may be read concurrently.
type Port struct {
	Component *Component
	Direction PortDirection

	Enabled           bool
	MinimumBuffer     BufferRequirements
	RecommendedBuffer BufferRequirements
	CurrentBuffer     BufferRequirements
	BuffersWithVPU    atomic.Int32

	Format PortFormat

	// Callback is bound by PortEnable and cleared by PortDisable.
	Callback BufferCallback
}

// Component is an accelerator processing element with a control port and
// one input/output port pair.
type Component struct {
	Name    string
	Enabled bool

	Control *Port
	Input   *Port
	Output  *Port
}

// TimeUnknown marks an unknown PTS or DTS.
const TimeUnknown = int64(math.MinInt64)

// Buffer header flags.
const (
	BufferFlagEOS                uint32 = 1 << 0
	BufferFlagFrameStart         uint32 = 1 << 1
	BufferFlagFrameEnd           uint32 = 1 << 2
	BufferFlagKeyframe           uint32 = 1 << 3
	BufferFlagDiscontinuity      uint32 = 1 << 4
	BufferFlagConfig             uint32 = 1 << 5
	BufferFlagCorrupted          uint32 = 1 << 9
	BufferFlagTransmissionFailed uint32 = 1 << 10
	BufferFlagVideoInterlaced    uint32 = 1 << 12
	BufferFlagVideoTopFieldFirst uint32 = 1 << 13
)

// Buffer is the unit of data exchange with the accelerator. A buffer with a
// non-zero Cmd carries an event instead of payload; for format-changed
// events the decoded payload is in Event.
type Buffer struct {
	Data   []byte
	Length uint32
	Flags  uint32

	// PTS and DTS are in microseconds, TimeUnknown when absent.
	PTS int64
	DTS int64

	Cmd   uint32
	Event *EventFormatChanged

	// UserData is opaque to the instance and round-trips with the buffer.
	UserData any
}
