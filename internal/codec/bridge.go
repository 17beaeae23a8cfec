package codec

import (
	"github.com/smazurov/codecbridge/internal/metrics"
	"github.com/smazurov/codecbridge/pkg/videocore/mmal"
)

// jobReady reports whether the bridge has work: at least one pending
// buffer on either streaming queue.
func (s *Session) jobReady() bool {
	return (s.src.streaming && len(s.src.pending) > 0) ||
		(s.dst.streaming && len(s.dst.pending) > 0)
}

// scheduleLocked moves pending buffers to the accelerator. Each pass takes
// at most one buffer per queue; the loop keeps passing until no queue can
// make progress. Abort suppresses new submissions but never blocks the
// pass from completing.
func (s *Session) scheduleLocked() {
	for !s.aborting {
		progressed := false
		if s.src.streaming && s.submitOneLocked(s.src) {
			progressed = true
		}
		if s.dst.streaming && s.submitOneLocked(s.dst) {
			progressed = true
		}
		if !progressed {
			return
		}
	}
}

// submitOneLocked submits the oldest pending buffer on a queue. It reports
// whether the pass made progress; a buffer parked because its port is down
// is not progress.
func (s *Session) submitOneLocked(q *queue) bool {
	b := q.popPending()
	if b == nil {
		return false
	}
	port := s.port(q.dir)
	if port == nil || !port.Enabled {
		q.pending = append([]*Buffer{b}, q.pending...)
		return false
	}
	b.State = BufferActive
	hw := s.toHardwareBuffer(b)
	if err := s.instance.SubmitBuffer(port, hw); err != nil {
		s.logger.Error("Failed submitting buffer", "session", s.id,
			"queue", q.dir.String(), "index", b.Index, "error", err)
		q.complete(b, BufferError)
		metrics.BufferError(q.dir.String())
		return true
	}
	metrics.BufferSubmitted(q.dir.String())
	return true
}

// toHardwareBuffer translates a client buffer for submission. A zero-length
// payload or the client's last-buffer tag becomes an end-of-stream marker;
// presentation time converts from nanoseconds to microseconds, truncating.
func (s *Session) toHardwareBuffer(b *Buffer) *mmal.Buffer {
	hw := &b.hw
	hw.Data = b.Data
	hw.Length = b.BytesUsed
	hw.Flags = mmal.BufferFlagFrameEnd
	if b.Flags&FlagKeyframe != 0 {
		hw.Flags |= mmal.BufferFlagKeyframe
	}
	if b.BytesUsed == 0 || b.Flags&FlagLast != 0 {
		hw.Flags |= mmal.BufferFlagEOS
	}
	hw.PTS = b.Timestamp / 1000
	hw.DTS = mmal.TimeUnknown
	hw.Cmd = 0
	hw.UserData = b

	field := b.Field
	if s.cfg.FieldOverride != FieldAny {
		field = s.cfg.FieldOverride
	}
	// Only the explicit field orders carry interlace bits; plain
	// interlaced submits as progressive.
	switch field {
	case FieldInterlacedBT:
		hw.Flags |= mmal.BufferFlagVideoInterlaced
	case FieldInterlacedTB:
		hw.Flags |= mmal.BufferFlagVideoInterlaced | mmal.BufferFlagVideoTopFieldFirst
	}
	return hw
}
