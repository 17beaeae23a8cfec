package codec

import (
	"github.com/smazurov/codecbridge/pkg/videocore/mmal"
)

// PixFormat is the client view of a queue format. TryFormat and SetFormat
// normalize it in place.
type PixFormat struct {
	FourCC       uint32
	Width        uint32
	Height       uint32
	BytesPerLine uint32
	SizeImage    uint32
	Field        FieldOrder
	ColorSpace   ColorSpace
}

// TryFormat corrects a requested format to what the session would accept
// on a queue, without applying it. The call never fails: unknown formats
// fall back to the queue default and geometry is clamped into range.
func (s *Session) TryFormat(dir Direction, pf *PixFormat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tryFormatLocked(dir, pf)
	return nil
}

func (s *Session) tryFormatLocked(dir Direction, pf *PixFormat) *Format {
	caps := s.role.caps()
	f := FindFormat(pf.FourCC, s.role, dir, s.cfg.DisableBayer)
	if f == nil {
		f = s.queue(dir).fmt
		pf.FourCC = f.FourCC
	}

	if pf.Width > caps.maxWidth {
		pf.Width = caps.maxWidth
	}
	if pf.Height > caps.maxHeight {
		pf.Height = caps.maxHeight
	}

	if !f.Compressed {
		if pf.Width < minWidth {
			pf.Width = minWidth
		}
		if pf.Height < minHeight {
			pf.Height = minHeight
		}
		if caps.alignHeight16 {
			pf.Height = alignUp(pf.Height, 16)
		}
		minBPL := BytesPerLine(pf.Width, pf.Height, f, s.role)
		if pf.BytesPerLine < minBPL {
			pf.BytesPerLine = minBPL
		} else if f.FourCC != PixFmtNV12Col {
			pf.BytesPerLine = alignUp(pf.BytesPerLine, f.bplAlign[s.role])
		}
		pf.SizeImage = SizeImage(pf.BytesPerLine, pf.Width, pf.Height, f)
	} else {
		pf.BytesPerLine = 0
		// Client-provided sizes for compressed data may only grow the
		// computed minimum.
		computed := SizeImage(0, pf.Width, pf.Height, f)
		if pf.SizeImage < computed {
			pf.SizeImage = computed
		}
	}

	if s.role.interlacedInput() {
		switch pf.Field {
		case FieldNone, FieldInterlaced, FieldInterlacedTB, FieldInterlacedBT:
		default:
			pf.Field = FieldNone
		}
	} else {
		pf.Field = FieldNone
	}
	return f
}

// SetFormat applies a format to a queue. Fails with BUSY while buffers are
// allocated. For decode-class roles a compressed input format with known
// geometry is mirrored onto the output queue so clients see a consistent
// default before the stream announces itself.
func (s *Session) SetFormat(dir Direction, pf *PixFormat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewError(ErrCodeSessionClosed, "session closed", nil)
	}
	q := s.queue(dir)
	if len(q.buffers) > 0 {
		return NewError(ErrCodeBusy, "buffers allocated on queue", nil)
	}

	requestedHeight := pf.Height
	f := s.tryFormatLocked(dir, pf)
	q.fmt = f
	q.width = pf.Width
	q.height = pf.Height
	q.cropWidth = pf.Width
	// A stream-announced crop survives format changes. The visible height
	// tracks the client's request before alignment padding.
	if !q.selectionSet || f.Compressed {
		q.cropHeight = requestedHeight
	}
	q.bytesPerLine = pf.BytesPerLine
	q.sizeImage = pf.SizeImage
	q.field = pf.Field
	if pf.ColorSpace != ColorSpaceDefault {
		s.colorSpace = pf.ColorSpace
		s.xferFunc, s.ycbcrEnc, s.quantization = colorDefaults(pf.ColorSpace)
	}

	mirrored := false
	if dir == DirInput && f.Compressed && s.role.caps().alignHeight16 &&
		q.cropWidth > 0 && q.cropHeight > 0 {
		// The compressed source names the stream geometry; carry it to
		// the output queue as the provisional decode geometry.
		dst := s.dst
		dst.cropWidth = q.cropWidth
		dst.cropHeight = q.cropHeight
		dst.width = q.cropWidth
		dst.height = alignUp(q.cropHeight, 16)
		dst.recomputeSizing(s.role)
		mirrored = true
	}

	if s.component != nil {
		if err := s.commitPortFormatLocked(dir); err != nil {
			return err
		}
		if mirrored {
			if err := s.commitPortFormatLocked(DirOutput); err != nil {
				return err
			}
		}
	}
	return nil
}

// commitPortFormatLocked pushes a queue's format to its port. An enabled
// port (the decode output port is kept alive across renegotiation) is
// cycled around the format change with its buffer count preserved.
func (s *Session) commitPortFormatLocked(dir Direction) error {
	port := s.port(dir)
	q := s.queue(dir)
	if !port.Enabled {
		s.applyPortFormatLocked(dir)
		if err := s.instance.PortSetFormat(port); err != nil {
			return NewError(ErrCodeHardware, "port format rejected", err)
		}
		return nil
	}

	savedNum := port.CurrentBuffer.Num
	s.frameDone = make(chan struct{}, 1)
	if err := s.instance.PortDisable(port); err != nil {
		s.logger.Warn("Port disable failed", "session", s.id, "port", dir.String(), "error", err)
	}
	s.drainPortLocked(port, q)
	port.CurrentBuffer.Num = savedNum

	s.applyPortFormatLocked(dir)
	if err := s.instance.PortSetFormat(port); err != nil {
		return NewError(ErrCodeHardware, "port format rejected", err)
	}
	if q.sizeImage < port.MinimumBuffer.Size {
		s.logger.Warn("Buffer size below port minimum after format change",
			"session", s.id, "queue", dir.String(), "size", q.sizeImage, "min", port.MinimumBuffer.Size)
	}
	if err := s.instance.PortEnable(port, s.callbackFor(dir)); err != nil {
		return NewError(ErrCodeHardware, "port re-enable failed", err)
	}
	return nil
}

// applyPortFormatLocked projects queue geometry into the port format
// structure. For raw formats the padded width comes from the stride; the
// column format is padded to whole 128-pixel columns.
func (s *Session) applyPortFormatLocked(dir Direction) {
	q := s.queue(dir)
	port := s.port(dir)
	pf := &port.Format
	pf.Type = mmal.ESTypeVideo
	pf.Encoding = q.fmt.MMALEncoding
	pf.EncodingVariant = 0
	pf.Bitrate = 0

	if q.fmt.Compressed {
		pf.ES = mmal.VideoFormat{Width: q.width, Height: q.height}
		if dir == DirOutput {
			pf.Bitrate = s.ctrl.bitrate
		}
	} else {
		width := (q.bytesPerLine * 8) / q.fmt.Depth
		if q.fmt.FourCC == PixFmtNV12Col {
			width = alignUp(q.width, 128)
		}
		pf.ES = mmal.VideoFormat{
			Width:  width,
			Height: q.height,
			Crop:   mmal.Rect{Width: q.cropWidth, Height: q.cropHeight},
			PAR:    q.aspectRatio,
		}
		pf.ES.ColorSpace = mmalColorSpace(s.colorSpace)
	}
	if dir == DirInput {
		pf.ES.FrameRate = s.framerate
	}
}

func mmalColorSpace(cs ColorSpace) uint32 {
	switch cs {
	case ColorSpaceSMPTE170M:
		return mmal.ColorSpaceITUR601
	case ColorSpaceREC709:
		return mmal.ColorSpaceITUR709
	case ColorSpaceJPEG, ColorSpaceSRGB:
		return mmal.ColorSpaceJPEGJFIF
	default:
		return mmal.ColorSpaceUnknown
	}
}

// Format reports the current format of a queue.
func (s *Session) Format(dir Direction) PixFormat {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queue(dir)
	return PixFormat{
		FourCC:       q.fmt.FourCC,
		Width:        q.width,
		Height:       q.height,
		BytesPerLine: q.bytesPerLine,
		SizeImage:    q.sizeImage,
		Field:        q.field,
		ColorSpace:   s.colorSpace,
	}
}

// Formats lists the formats this session accepts on a queue, narrowed by
// what the accelerator reported once the component exists.
func (s *Session) Formats(dir Direction) []Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SupportedFormats(s.role, dir, s.cfg.DisableBayer, s.queue(dir).supportedEncodings)
}

// FrameSizeRange describes the stepwise frame sizes a format accepts.
type FrameSizeRange struct {
	MinWidth   uint32
	MaxWidth   uint32
	StepWidth  uint32
	MinHeight  uint32
	MaxHeight  uint32
	StepHeight uint32
}

// FrameSizes reports the size range for a pixel format on this session.
// The format must be valid on at least one of the queues.
func (s *Session) FrameSizes(fourcc uint32) (FrameSizeRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if FindFormat(fourcc, s.role, DirInput, s.cfg.DisableBayer) == nil &&
		FindFormat(fourcc, s.role, DirOutput, s.cfg.DisableBayer) == nil {
		return FrameSizeRange{}, NewError(ErrCodeInvalidArgument,
			"format not supported: "+FourCCString(fourcc), nil)
	}
	caps := s.role.caps()
	return FrameSizeRange{
		MinWidth: minWidth, MaxWidth: caps.maxWidth, StepWidth: 2,
		MinHeight: minHeight, MaxHeight: caps.maxHeight, StepHeight: 2,
	}, nil
}

// SelectionTarget names a selection rectangle.
type SelectionTarget int

const (
	SelTargetCrop SelectionTarget = iota
	SelTargetCropDefault
	SelTargetCropBounds
	SelTargetCompose
	SelTargetComposeDefault
	SelTargetComposeBounds
)

func (t SelectionTarget) isCrop() bool {
	return t == SelTargetCrop || t == SelTargetCropDefault || t == SelTargetCropBounds
}

func (s *Session) selectionQueue(dir Direction, target SelectionTarget) (*queue, error) {
	caps := s.role.caps()
	if target.isCrop() {
		if dir != DirInput || !caps.cropOnInput {
			return nil, NewError(ErrCodeNotSupported, "crop selection not supported here", nil)
		}
		return s.src, nil
	}
	if dir != DirOutput || !caps.composeOnOutput {
		return nil, NewError(ErrCodeNotSupported, "compose selection not supported here", nil)
	}
	return s.dst, nil
}

// GetSelection reports a selection rectangle.
func (s *Session) GetSelection(dir Direction, target SelectionTarget) (mmal.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.selectionQueue(dir, target)
	if err != nil {
		return mmal.Rect{}, err
	}
	switch target {
	case SelTargetCropBounds, SelTargetComposeBounds:
		return mmal.Rect{Width: q.width, Height: q.height}, nil
	default:
		return mmal.Rect{Width: q.cropWidth, Height: q.cropHeight}, nil
	}
}

// SetSelection applies a selection rectangle and returns the effective
// value. The decode compose rectangle is stream-defined and read-only; the
// request is adjusted to it.
func (s *Session) SetSelection(dir Direction, target SelectionTarget, r mmal.Rect) (mmal.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.selectionQueue(dir, target)
	if err != nil {
		return mmal.Rect{}, err
	}
	if s.role == RoleDecode {
		return mmal.Rect{Width: q.cropWidth, Height: q.cropHeight}, nil
	}
	if r.Width > q.width {
		r.Width = q.width
	}
	if r.Height > q.height {
		r.Height = q.height
	}
	if r.Width < minWidth {
		r.Width = minWidth
	}
	if r.Height < minHeight {
		r.Height = minHeight
	}
	q.cropWidth = r.Width
	q.cropHeight = r.Height
	q.selectionSet = true
	return mmal.Rect{Width: q.cropWidth, Height: q.cropHeight}, nil
}

// PixelAspect reports the pixel aspect ratio announced by the stream.
// Decode output queue only.
func (s *Session) PixelAspect(dir Direction) (mmal.Rational, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleDecode || dir != DirOutput {
		return mmal.Rational{}, NewError(ErrCodeNotSupported, "pixel aspect only on decode output", nil)
	}
	return s.dst.aspectRatio, nil
}

// SetFramerate sets the nominal frame rate. Input queue only; the value
// rides the input port format.
func (s *Session) SetFramerate(dir Direction, r mmal.Rational) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir != DirInput {
		return NewError(ErrCodeNotSupported, "framerate is set on the input queue", nil)
	}
	if r.Num == 0 || r.Den == 0 {
		return NewError(ErrCodeInvalidArgument, "zero framerate", nil)
	}
	s.framerate = r
	if port := s.inputPort(); port != nil && !port.Enabled {
		s.applyPortFormatLocked(DirInput)
		if err := s.instance.PortSetFormat(port); err != nil {
			s.logger.Warn("Framerate update rejected", "session", s.id, "error", err)
		}
	}
	return nil
}

// Framerate reports the nominal frame rate. Input queue only.
func (s *Session) Framerate(dir Direction) (mmal.Rational, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir != DirInput {
		return mmal.Rational{}, NewError(ErrCodeNotSupported, "framerate is read on the input queue", nil)
	}
	return s.framerate, nil
}
