package codec

import (
	"time"

	"github.com/smazurov/codecbridge/internal/events"
	"github.com/smazurov/codecbridge/internal/metrics"
	"github.com/smazurov/codecbridge/pkg/videocore/mmal"
)

// StartStreaming begins buffer flow on a queue. The component is enabled
// with the first active port. For decode sessions starting the input queue
// also enables the output port so early format-changed events have a
// delivery path before the client configures capture.
func (s *Session) StartStreaming(dir Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewError(ErrCodeSessionClosed, "session closed", nil)
	}
	q := s.queue(dir)
	if q.streaming {
		return NewError(ErrCodeBusy, "queue already streaming", nil)
	}
	if s.component == nil || len(q.buffers) == 0 {
		return NewError(ErrCodeInvalidArgument, "no buffers allocated", nil)
	}

	q.sequence = 0
	q.lastBufferDequeued = false
	s.aborting = false

	if !s.componentEnabled {
		if err := s.instance.ComponentEnable(s.component); err != nil {
			return NewError(ErrCodeHardware, "component enable failed", err)
		}
		s.componentEnabled = true
	}

	port := s.port(dir)
	if port.Enabled {
		// Left enabled across a stop (decode keeps its output port up
		// for event delivery). Cycle it so the buffer count below is
		// renegotiated, preserving the configured count meanwhile.
		savedNum := port.CurrentBuffer.Num
		s.frameDone = make(chan struct{}, 1)
		if err := s.instance.PortDisable(port); err != nil {
			s.logger.Warn("Port disable failed", "session", s.id, "queue", dir.String(), "error", err)
		}
		s.drainPortLocked(port, q)
		port.CurrentBuffer.Num = savedNum
	}

	count := uint32(len(q.buffers))
	if count < port.MinimumBuffer.Num {
		count = port.MinimumBuffer.Num
	}
	if port.CurrentBuffer.Num < count+1 {
		port.CurrentBuffer.Num = count + 1
		if err := s.instance.PortSetFormat(port); err != nil {
			return NewError(ErrCodeHardware, "port format rejected", err)
		}
	}

	if s.role == RoleDecode && dir == DirInput && !s.component.Output.Enabled {
		if err := s.instance.PortEnable(s.component.Output, s.outputBufferCallback); err != nil {
			return NewError(ErrCodeHardware, "output port enable failed", err)
		}
	}

	if dir == DirInput {
		q.eosBuffer = mmal.Buffer{}
		q.eosInUse = false
	}
	if !port.Enabled {
		if err := s.instance.PortEnable(port, s.callbackFor(dir)); err != nil {
			return NewError(ErrCodeHardware, "port enable failed", err)
		}
	}

	q.streaming = true
	s.logger.Info("Streaming started", "session", s.id, "queue", dir.String(), "buffers", count)
	s.publish(events.QueueStateChangedEvent{
		SessionID: s.id, Queue: dir.String(), Streaming: true, Timestamp: timestamp(),
	})
	s.scheduleLocked()
	return nil
}

// StopStreaming halts a queue: pending buffers return to the client, the
// port is disabled and drained within the configured timeout, and the
// component is disabled once both ports are down.
func (s *Session) StopStreaming(dir Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queue(dir)
	if !q.streaming {
		return nil
	}
	q.streaming = false

	// Buffers never submitted go straight back, still marked queued.
	for {
		b := q.popPending()
		if b == nil {
			break
		}
		q.complete(b, BufferQueued)
	}

	port := s.port(dir)
	if port != nil && port.Enabled {
		s.frameDone = make(chan struct{}, 1)
		if err := s.instance.PortDisable(port); err != nil {
			s.logger.Warn("Port disable failed", "session", s.id, "queue", dir.String(), "error", err)
		}
		s.drainPortLocked(port, q)
	}

	if s.component != nil {
		// A decode session keeps the output port alive between capture
		// reconfigurations while input still streams, so format events
		// keep flowing.
		if s.role == RoleDecode && dir == DirOutput && s.component.Input.Enabled {
			if err := s.instance.PortEnable(s.component.Output, s.outputBufferCallback); err != nil {
				s.logger.Warn("Output port re-enable failed", "session", s.id, "error", err)
			}
		}
		if !s.component.Input.Enabled && !s.component.Output.Enabled && s.componentEnabled {
			if err := s.instance.ComponentDisable(s.component); err != nil {
				s.logger.Warn("Component disable failed", "session", s.id, "error", err)
			}
			s.componentEnabled = false
		}
	}

	if dir == DirInput {
		q.eosBuffer = mmal.Buffer{}
		q.eosInUse = false
	}

	s.logger.Info("Streaming stopped", "session", s.id, "queue", dir.String())
	s.publish(events.QueueStateChangedEvent{
		SessionID: s.id, Queue: dir.String(), Streaming: false, Timestamp: timestamp(),
	})
	return nil
}

// drainPortLocked waits for the accelerator to hand back every buffer it
// holds on a disabled port. Called with the session lock held; the lock is
// released while waiting so completion callbacks can run. The wait is
// bounded and advisory: on timeout the outstanding count is logged and the
// teardown proceeds.
func (s *Session) drainPortLocked(port *mmal.Port, q *queue) {
	if port.BuffersWithVPU.Load() == 0 {
		return
	}
	done := s.frameDone
	deadline := time.NewTimer(s.cfg.DrainTimeout)
	defer deadline.Stop()

	s.mu.Unlock()
	defer s.mu.Lock()
	for port.BuffersWithVPU.Load() > 0 {
		select {
		case <-done:
		case <-deadline.C:
			outstanding := int(port.BuffersWithVPU.Load())
			s.logger.Error("Timeout waiting for buffers to drain",
				"session", s.id, "queue", q.dir.String(), "outstanding", outstanding)
			metrics.DrainTimeout()
			s.publish(events.DrainTimeoutEvent{
				SessionID: s.id, Queue: q.dir.String(),
				Outstanding: outstanding, Timestamp: timestamp(),
			})
			return
		}
	}
}
