package codec

import (
	"github.com/smazurov/codecbridge/internal/events"
	"github.com/smazurov/codecbridge/internal/metrics"
	"github.com/smazurov/codecbridge/pkg/videocore/mmal"
)

func (s *Session) callbackFor(dir Direction) mmal.BufferCallback {
	if dir == DirInput {
		return s.inputBufferCallback
	}
	return s.outputBufferCallback
}

// inputBufferCallback handles source buffers returned by the accelerator.
// Runs on the instance dispatcher goroutine.
func (s *Session) inputBufferCallback(port *mmal.Port, hw *mmal.Buffer, status error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hw == &s.src.eosBuffer {
		// The reserved descriptor never maps to a client buffer.
		s.src.eosInUse = false
		return
	}

	b, ok := hw.UserData.(*Buffer)
	if !ok {
		s.logger.Error("Input completion without client buffer", "session", s.id)
		return
	}

	if status != nil {
		s.logger.Error("Accelerator failed input buffer", "session", s.id,
			"index", b.Index, "error", status)
		s.src.complete(b, BufferError)
		metrics.BufferError(DirInput.String())
		s.signalDrainLocked(port)
		return
	}
	if hw.Cmd != 0 {
		s.logger.Error("Unexpected event on input port", "session", s.id, "cmd", mmal.FourCCString(hw.Cmd))
		return
	}

	if port.Enabled {
		s.src.complete(b, BufferDone)
		metrics.BufferCompleted(DirInput.String())
	} else {
		// Mid-disable returns go back to the client as still queued.
		s.src.complete(b, BufferQueued)
	}
	s.buffersProcessedIn++
	s.signalDrainLocked(port)
}

// outputBufferCallback handles destination buffers and events delivered by
// the accelerator. Runs on the instance dispatcher goroutine.
func (s *Session) outputBufferCallback(port *mmal.Port, hw *mmal.Buffer, status error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status != nil {
		if b, ok := hw.UserData.(*Buffer); ok {
			s.logger.Error("Accelerator failed output buffer", "session", s.id,
				"index", b.Index, "error", status)
			s.dst.complete(b, BufferError)
			metrics.BufferError(DirOutput.String())
		}
		s.signalDrainLocked(port)
		return
	}

	if hw.Cmd != 0 {
		if hw.Cmd == mmal.EventFormatChangedID {
			s.handleFormatChangedLocked(hw.Event)
		} else {
			s.logger.Warn("Discarding unexpected event on output port",
				"session", s.id, "cmd", mmal.FourCCString(hw.Cmd))
		}
		return
	}

	b, ok := hw.UserData.(*Buffer)
	if !ok {
		s.logger.Error("Output completion without client buffer", "session", s.id)
		return
	}

	if hw.Length == 0 && hw.Flags&mmal.BufferFlagEOS == 0 {
		// An empty non-EOS buffer is recycled. The port state decides
		// the total outcome: disabled means flush (hand it back as
		// queued), enabled means the accelerator wants it again.
		if !port.Enabled {
			s.dst.complete(b, BufferQueued)
			s.signalDrainLocked(port)
			return
		}
		if err := s.instance.SubmitBuffer(port, hw); err != nil {
			s.logger.Error("Failed recycling output buffer", "session", s.id, "error", err)
			s.dst.complete(b, BufferError)
			metrics.BufferError(DirOutput.String())
		}
		return
	}

	b.BytesUsed = hw.Length
	b.Flags = 0
	if hw.Flags&mmal.BufferFlagEOS != 0 {
		b.Flags |= FlagLast
		metrics.EOSEvent()
		s.publish(events.EndOfStreamEvent{SessionID: s.id, Timestamp: timestamp()})
	}
	if hw.Flags&mmal.BufferFlagKeyframe != 0 {
		b.Flags |= FlagKeyframe
	}
	if hw.PTS != mmal.TimeUnknown {
		b.Timestamp = hw.PTS * 1000
	} else {
		b.Timestamp = 0
	}
	b.Field = fieldFromFlags(hw.Flags)

	state := BufferDone
	if hw.Flags&mmal.BufferFlagCorrupted != 0 {
		state = BufferError
	}
	s.dst.complete(b, state)
	if state == BufferError {
		metrics.BufferError(DirOutput.String())
	} else {
		metrics.BufferCompleted(DirOutput.String())
	}
	s.buffersProcessedOut++
	s.signalDrainLocked(port)
}

// fieldFromFlags decodes interlacing bits. A top-field-first bit without
// the interlaced bit is meaningless and reads as progressive.
func fieldFromFlags(flags uint32) FieldOrder {
	if flags&mmal.BufferFlagVideoInterlaced == 0 {
		return FieldNone
	}
	if flags&mmal.BufferFlagVideoTopFieldFirst != 0 {
		return FieldInterlacedTB
	}
	return FieldInterlacedBT
}

// signalDrainLocked wakes a drain waiter when the port is mid-disable.
// One signal per returned buffer; the waiter rechecks the in-flight count.
func (s *Session) signalDrainLocked(port *mmal.Port) {
	if port.Enabled {
		return
	}
	select {
	case s.frameDone <- struct{}{}:
	default:
	}
}

// handleFormatChangedLocked applies a mid-stream geometry change announced
// by the accelerator to the output queue.
func (s *Session) handleFormatChangedLocked(ev *mmal.EventFormatChanged) {
	if ev == nil || ev.Format.Type != mmal.ESTypeVideo {
		s.logger.Warn("Ignoring non-video format change", "session", s.id)
		return
	}
	q := s.dst
	video := ev.Format.ES

	q.cropWidth = video.Crop.Width
	q.cropHeight = video.Crop.Height
	if q.cropWidth == 0 {
		q.cropWidth = video.Width
	}
	if q.cropHeight == 0 {
		q.cropHeight = video.Height
	}
	q.selectionSet = true
	q.width = video.Width
	q.height = video.Height
	q.bytesPerLine = BytesPerLine(video.Width, video.Height, q.fmt, s.role)
	q.sizeImage = ev.BufferSizeMin

	// Colorspace only updates when the stream reports one.
	if video.ColorSpace != mmal.ColorSpaceUnknown {
		if q.fmt.isYUV() {
			switch video.ColorSpace {
			case mmal.ColorSpaceITUR601:
				s.setColorSpaceLocked(ColorSpaceSMPTE170M)
			case mmal.ColorSpaceITUR709:
				s.setColorSpaceLocked(ColorSpaceREC709)
			}
		} else {
			s.setColorSpaceLocked(ColorSpaceSRGB)
		}
	}

	if video.PAR.Num > 0 && video.PAR.Den > 0 {
		q.aspectRatio = video.PAR
	}

	q.field = s.queryInterlaceLocked()

	if q.streaming {
		// Old-geometry buffers still flow; the next empty dequeue
		// reports exhaustion so the client reallocates.
		q.lastBufferDequeued = true
	}

	metrics.FormatChange()
	s.logger.Info("Stream format changed", "session", s.id,
		"width", q.cropWidth, "height", q.cropHeight, "field", q.field.String())
	s.publish(events.ResolutionChangedEvent{
		SessionID:  s.id,
		Width:      q.cropWidth,
		Height:     q.cropHeight,
		Interlaced: q.field != FieldNone,
		Timestamp:  timestamp(),
	})
}

func (s *Session) setColorSpaceLocked(cs ColorSpace) {
	s.colorSpace = cs
	s.xferFunc, s.ycbcrEnc, s.quantization = colorDefaults(cs)
}

// queryInterlaceLocked asks the accelerator how the new stream is scanned.
// Unreadable means progressive.
func (s *Session) queryInterlaceLocked() FieldOrder {
	port := s.outputPort()
	if port == nil {
		return FieldNone
	}
	var it mmal.InterlaceType
	if err := s.instance.PortParameterGet(port, mmal.ParamVideoInterlaceType, &it); err != nil {
		return FieldNone
	}
	switch it.Mode {
	case mmal.InterlaceFieldsInterleavedUpperFirst:
		return FieldInterlacedTB
	case mmal.InterlaceFieldsInterleavedLowerFirst:
		return FieldInterlacedBT
	default:
		return FieldNone
	}
}
