package events

// Event type constants for kelindar/event.
const (
	TypeSessionOpened uint32 = iota + 1
	TypeSessionClosed
	TypeQueueStateChanged
	TypeResolutionChanged
	TypeEndOfStream
	TypeDrainTimeout
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionOpenedEvent is published when a codec session is created.
type SessionOpenedEvent struct {
	SessionID string `json:"session_id" example:"decode-1" doc:"Session identifier"`
	Role      string `json:"role" example:"decode" doc:"Accelerator role"`
	Timestamp string `json:"timestamp" example:"2026-08-23T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionOpenedEvent.
func (e SessionOpenedEvent) Type() uint32 { return TypeSessionOpened }

// SessionClosedEvent is published when a codec session is torn down.
type SessionClosedEvent struct {
	SessionID string `json:"session_id" example:"decode-1" doc:"Session identifier"`
	Role      string `json:"role" example:"decode" doc:"Accelerator role"`
	Timestamp string `json:"timestamp" example:"2026-08-23T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionClosedEvent.
func (e SessionClosedEvent) Type() uint32 { return TypeSessionClosed }

// QueueStateChangedEvent is published when streaming starts or stops on a
// session queue.
type QueueStateChangedEvent struct {
	SessionID string `json:"session_id" example:"decode-1" doc:"Session identifier"`
	Queue     string `json:"queue" example:"output" doc:"Queue: input or output"`
	Streaming bool   `json:"streaming" example:"true" doc:"Whether the queue is streaming"`
	Timestamp string `json:"timestamp" example:"2026-08-23T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for QueueStateChangedEvent.
func (e QueueStateChangedEvent) Type() uint32 { return TypeQueueStateChanged }

// ResolutionChangedEvent is published when the accelerator signals a
// mid-stream geometry change on the output queue.
type ResolutionChangedEvent struct {
	SessionID  string `json:"session_id" example:"decode-1" doc:"Session identifier"`
	Width      uint32 `json:"width" example:"1920" doc:"New visible width"`
	Height     uint32 `json:"height" example:"1080" doc:"New visible height"`
	Interlaced bool   `json:"interlaced" example:"false" doc:"Whether the new stream is interlaced"`
	Timestamp  string `json:"timestamp" example:"2026-08-23T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ResolutionChangedEvent.
func (e ResolutionChangedEvent) Type() uint32 { return TypeResolutionChanged }

// EndOfStreamEvent is published when the accelerator delivers the final
// buffer of a drained stream.
type EndOfStreamEvent struct {
	SessionID string `json:"session_id" example:"decode-1" doc:"Session identifier"`
	Timestamp string `json:"timestamp" example:"2026-08-23T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for EndOfStreamEvent.
func (e EndOfStreamEvent) Type() uint32 { return TypeEndOfStream }

// DrainTimeoutEvent is published when a port drain did not complete within
// the configured window.
type DrainTimeoutEvent struct {
	SessionID   string `json:"session_id" example:"decode-1" doc:"Session identifier"`
	Queue       string `json:"queue" example:"input" doc:"Queue being drained"`
	Outstanding int    `json:"outstanding" example:"2" doc:"Buffers still held by the accelerator"`
	Timestamp   string `json:"timestamp" example:"2026-08-23T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DrainTimeoutEvent.
func (e DrainTimeoutEvent) Type() uint32 { return TypeDrainTimeout }
