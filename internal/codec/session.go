// Package codec bridges client-facing dual-queue buffering sessions onto
// accelerator components. Each session owns one component, translates
// buffers between the client and hardware representations, applies
// mid-stream format changes signaled by the accelerator and manages port
// lifecycle with bounded drains.
package codec

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/codecbridge/internal/events"
	"github.com/smazurov/codecbridge/internal/logging"
	"github.com/smazurov/codecbridge/pkg/videocore/mmal"
)

// ColorSpace identifies the color primaries of the stream.
type ColorSpace int

const (
	ColorSpaceDefault ColorSpace = iota
	ColorSpaceSMPTE170M
	ColorSpaceREC709
	ColorSpaceSRGB
	ColorSpaceJPEG
)

func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceSMPTE170M:
		return "smpte170m"
	case ColorSpaceREC709:
		return "rec709"
	case ColorSpaceSRGB:
		return "srgb"
	case ColorSpaceJPEG:
		return "jpeg"
	default:
		return "default"
	}
}

// TransferFunc, YCbCrEncoding and Quantization carry the signal properties
// derived from the color space.
type (
	TransferFunc  int
	YCbCrEncoding int
	Quantization  int
)

const (
	TransferDefault TransferFunc = iota
	Transfer709
	TransferSRGB
)

const (
	YCbCrDefault YCbCrEncoding = iota
	YCbCr601
	YCbCr709
)

const (
	QuantizationDefault Quantization = iota
	QuantizationLimited
	QuantizationFull
)

// colorDefaults maps a color space to its default signal properties.
func colorDefaults(cs ColorSpace) (TransferFunc, YCbCrEncoding, Quantization) {
	switch cs {
	case ColorSpaceSMPTE170M:
		return Transfer709, YCbCr601, QuantizationLimited
	case ColorSpaceREC709:
		return Transfer709, YCbCr709, QuantizationLimited
	case ColorSpaceSRGB:
		return TransferSRGB, YCbCr601, QuantizationFull
	case ColorSpaceJPEG:
		return TransferSRGB, YCbCr601, QuantizationFull
	default:
		return TransferDefault, YCbCrDefault, QuantizationDefault
	}
}

// Config holds the tunables a session inherits from the daemon.
type Config struct {
	// DrainTimeout bounds the wait for buffers to return when a port is
	// disabled. The timeout is advisory: it is logged and the disable
	// proceeds.
	DrainTimeout time.Duration

	// DisableBayer removes Bayer formats from the catalog.
	DisableBayer bool

	// AdvancedDeinterlace selects the high quality deinterlace
	// algorithm for sources up to 800 pixels wide.
	AdvancedDeinterlace bool

	// FieldOverride, when not FieldAny, replaces the per-buffer field
	// order on submitted input buffers.
	FieldOverride FieldOrder
}

// DefaultConfig returns the stock session tunables.
func DefaultConfig() Config {
	return Config{
		DrainTimeout:        2 * time.Second,
		AdvancedDeinterlace: true,
		FieldOverride:       FieldAny,
	}
}

// Options configures NewSession.
type Options struct {
	ID       string
	Role     Role
	Instance mmal.Instance
	Config   Config
	Bus      *events.Bus
}

// Session is one client's bridge to an accelerator component.
type Session struct {
	id       string
	role     Role
	instance mmal.Instance
	cfg      Config
	bus      *events.Bus
	logger   *slog.Logger

	mu  sync.Mutex
	src *queue
	dst *queue

	component        *mmal.Component
	componentEnabled bool

	colorSpace   ColorSpace
	xferFunc     TransferFunc
	ycbcrEnc     YCbCrEncoding
	quantization Quantization

	ctrl      controlState
	framerate mmal.Rational

	aborting bool
	closed   bool

	// frameDone is replaced before each drain; completion callbacks
	// signal it once per returned buffer while the port is disabled.
	frameDone chan struct{}

	buffersProcessedIn  uint64
	buffersProcessedOut uint64
}

// NewSession creates a session for a role. The accelerator component is
// created lazily on the first buffer allocation.
func NewSession(opts *Options) (*Session, error) {
	if opts == nil || opts.Instance == nil {
		return nil, NewError(ErrCodeInvalidArgument, "instance is required", nil)
	}
	if _, ok := roleTable[opts.Role]; !ok {
		return nil, NewError(ErrCodeInvalidArgument, "unknown role", nil)
	}
	id := opts.ID
	if id == "" {
		id = opts.Role.String()
	}
	s := &Session{
		id:         id,
		role:       opts.Role,
		instance:   opts.Instance,
		cfg:        opts.Config,
		bus:        opts.Bus,
		logger:     logging.GetLogger("codec"),
		colorSpace: ColorSpaceREC709,
		ctrl:       defaultControls(),
		framerate:  mmal.Rational{Num: 30, Den: 1},
		frameDone:  make(chan struct{}, 1),
	}
	s.xferFunc, s.ycbcrEnc, s.quantization = colorDefaults(s.colorSpace)
	if s.cfg.DrainTimeout <= 0 {
		s.cfg.DrainTimeout = DefaultConfig().DrainTimeout
	}

	s.src = s.newQueue(DirInput)
	s.dst = s.newQueue(DirOutput)
	s.dst.aspectRatio = mmal.Rational{Num: 1, Den: 1}

	s.logger.Info("Session created", "session", s.id, "role", s.role.String())
	return s, nil
}

func (s *Session) newQueue(dir Direction) *queue {
	f := defaultFormat(s.role, dir)
	if s.role == RoleEncodeImage && dir == DirOutput {
		f = FindFormat(PixFmtJPEG, s.role, dir, s.cfg.DisableBayer)
	}
	q := &queue{
		dir:        dir,
		fmt:        f,
		width:      defaultWidth,
		height:     defaultHeight,
		cropWidth:  defaultWidth,
		cropHeight: defaultHeight,
		field:      FieldNone,
	}
	q.recomputeSizing(s.role)
	return q
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Role returns the session role.
func (s *Session) Role() Role { return s.role }

func (s *Session) queue(dir Direction) *queue {
	if dir == DirInput {
		return s.src
	}
	return s.dst
}

// port maps a client queue to its component port.
func (s *Session) port(dir Direction) *mmal.Port {
	if s.component == nil {
		return nil
	}
	if dir == DirInput {
		return s.component.Input
	}
	return s.component.Output
}

func (s *Session) inputPort() *mmal.Port  { return s.port(DirInput) }
func (s *Session) outputPort() *mmal.Port { return s.port(DirOutput) }

func (s *Session) controlPort() *mmal.Port {
	if s.component == nil {
		return nil
	}
	return s.component.Control
}

func (s *Session) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// RequestBuffers allocates the buffer set for a queue. count zero frees
// the set. The accelerator component is created on first use; its minimum
// requirements can raise the effective count, which is returned.
func (s *Session) RequestBuffers(dir Direction, count int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, NewError(ErrCodeSessionClosed, "session closed", nil)
	}
	q := s.queue(dir)
	if q.streaming {
		return 0, NewError(ErrCodeBusy, "queue is streaming", nil)
	}
	if count == 0 {
		q.buffers = nil
		q.reset()
		return 0, nil
	}

	if s.component == nil {
		if err := s.createComponentLocked(); err != nil {
			// Component creation failure fails this allocation only;
			// the session stays usable for renegotiation.
			return 0, NewError(ErrCodeHardware, "component creation failed", err)
		}
	}

	port := s.port(dir)
	n := uint32(count)
	if n < port.MinimumBuffer.Num {
		n = port.MinimumBuffer.Num
	}
	// One extra slot keeps the reserved end-of-stream descriptor from
	// starving data buffers.
	port.CurrentBuffer.Num = n + 1
	port.CurrentBuffer.Size = q.sizeImage

	q.reset()
	q.buffers = make([]*Buffer, n)
	for idx := range q.buffers {
		q.buffers[idx] = &Buffer{
			Index:     idx,
			Direction: dir,
			Data:      make([]byte, q.sizeImage),
			State:     BufferDequeued,
		}
	}
	s.logger.Debug("Buffers allocated", "session", s.id, "queue", dir.String(), "count", n)
	return int(n), nil
}

// Buffer returns the allocated buffer at index on a queue.
func (s *Session) Buffer(dir Direction, index int) (*Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queue(dir)
	if index < 0 || index >= len(q.buffers) {
		return nil, NewError(ErrCodeInvalidArgument, "buffer index out of range", nil)
	}
	return q.buffers[index], nil
}

// QueueBuffer hands a client-owned buffer to the session for processing.
func (s *Session) QueueBuffer(dir Direction, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewError(ErrCodeSessionClosed, "session closed", nil)
	}
	q := s.queue(dir)
	if index < 0 || index >= len(q.buffers) {
		return NewError(ErrCodeInvalidArgument, "buffer index out of range", nil)
	}
	b := q.buffers[index]
	if b.State != BufferDequeued {
		return NewError(ErrCodeBusy, fmt.Sprintf("buffer %d is %s", index, b.State), nil)
	}
	q.requeue(b)
	s.scheduleLocked()
	return nil
}

// DequeueBuffer returns the next completed buffer on a queue. With no
// buffer ready it reports NOT_READY, or END_OF_STREAM once the final
// buffer of a drained or reconfigured stream has been collected.
func (s *Session) DequeueBuffer(dir Direction) (*Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queue(dir)
	if len(q.completed) == 0 {
		if q.lastBufferDequeued {
			return nil, NewError(ErrCodeEndOfStream, "stream drained", nil)
		}
		return nil, NewError(ErrCodeNotReady, "no buffer ready", nil)
	}
	b := q.completed[0]
	q.completed = q.completed[1:]
	if b.State == BufferDone {
		b.Sequence = q.sequence
		q.sequence++
	}
	if b.State == BufferError {
		b.Flags |= FlagError
	}
	if b.Flags&FlagLast != 0 {
		q.lastBufferDequeued = true
	}
	b.State = BufferDequeued
	return b, nil
}

// SendStopCommand requests a drain: the reserved end-of-stream descriptor
// is injected on the input port so the accelerator emits its final output
// and tags it. Decode and encode roles only.
func (s *Session) SendStopCommand() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.role.caps().supportsCommands {
		return NewError(ErrCodeNotSupported, "commands not supported for role "+s.role.String(), nil)
	}
	if s.component == nil || !s.component.Input.Enabled {
		s.logger.Debug("Stop command with no active input port", "session", s.id)
		return nil
	}
	if s.src.eosInUse {
		s.logger.Warn("EOS buffer already in use", "session", s.id)
		return nil
	}
	s.src.eosInUse = true
	s.src.eosBuffer = mmal.Buffer{Flags: mmal.BufferFlagEOS}
	if err := s.instance.SubmitBuffer(s.component.Input, &s.src.eosBuffer); err != nil {
		s.src.eosInUse = false
		return NewError(ErrCodeHardware, "failed to submit EOS buffer", err)
	}
	return nil
}

// SendStartCommand resumes a stopped stream by clearing the end-of-stream
// condition on the output queue.
func (s *Session) SendStartCommand() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.role.caps().supportsCommands {
		return NewError(ErrCodeNotSupported, "commands not supported for role "+s.role.String(), nil)
	}
	s.dst.lastBufferDequeued = false
	return nil
}

// Abort suppresses new submissions to the accelerator. Buffers already
// submitted still complete.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborting = true
}

// createComponentLocked creates and configures the accelerator component:
// zero-copy transfers, role-specific tuning, initial port formats, and
// replay of cached controls.
func (s *Session) createComponentLocked() error {
	caps := s.role.caps()
	component, err := s.instance.ComponentInit(caps.component)
	if err != nil {
		return err
	}
	s.component = component

	s.pushParam(component.Input, mmal.ParamZeroCopy, boolParam(true))
	s.pushParam(component.Output, mmal.ParamZeroCopy, boolParam(true))

	switch s.role {
	case RoleDecode:
		s.pushParam(component.Input, mmal.ParamVideoValidateTimestamps, boolParam(false))
		s.pushParam(component.Control, mmal.ParamVideoStopOnPARColourChange, boolParam(true))
	case RoleDeinterlace:
		s.pushDeinterlaceParams()
	case RoleEncodeImage:
		s.pushParam(component.Control, mmal.ParamExifDisable, boolParam(false))
		s.pushParam(component.Output, mmal.ParamJPEGIJGScaling, boolParam(true))
	}

	s.refreshSupportedFormatsLocked()

	s.applyPortFormatLocked(DirInput)
	if err := s.instance.PortSetFormat(component.Input); err != nil {
		s.finalizeComponentLocked()
		return err
	}
	s.applyPortFormatLocked(DirOutput)
	if err := s.instance.PortSetFormat(component.Output); err != nil {
		s.finalizeComponentLocked()
		return err
	}

	switch s.role {
	case RoleEncode:
		if s.src.sizeImage < component.Input.MinimumBuffer.Size {
			s.logger.Warn("Source buffer size below port minimum",
				"session", s.id, "size", s.src.sizeImage, "min", component.Input.MinimumBuffer.Size)
		}
		s.pushParam(component.Output, mmal.ParamVideoEncodeSPSTiming, boolParam(true))
		s.pushParam(component.Control, mmal.ParamVideoEncodeHeadersWithFrame, boolParam(true))
		s.pushParam(component.Control, mmal.ParamMinimiseFragmentation, boolParam(true))
		s.pushParam(component.Output, mmal.ParamVideoEncodeSEIEnable, boolParam(true))
	default:
		if s.dst.sizeImage < component.Output.MinimumBuffer.Size {
			s.logger.Warn("Destination buffer size below port minimum",
				"session", s.id, "size", s.dst.sizeImage, "min", component.Output.MinimumBuffer.Size)
		}
	}

	s.applyControlsLocked()
	s.logger.Info("Component created", "session", s.id, "component", caps.component)
	return nil
}

// pushDeinterlaceParams selects the image effect: the advanced algorithm
// only handles sources up to 800 pixels wide.
func (s *Session) pushDeinterlaceParams() {
	effect := mmal.ImageFXDeinterlaceFast
	if s.cfg.AdvancedDeinterlace && s.src.cropWidth <= 800 {
		effect = mmal.ImageFXDeinterlaceAdvanced
	}
	params := mmal.ImageFXParameters{
		Effect:    effect,
		NumParams: 4,
	}
	params.Params[0] = 5          // frame type: interlaced, field order from format
	params.Params[1] = ^uint32(0) // frame interval: derive from timestamps
	params.Params[2] = 0          // half framerate off
	params.Params[3] = 0          // QPU assist off
	s.pushParam(s.inputPort(), mmal.ParamImageEffectParameters, params)
}

// refreshSupportedFormatsLocked queries the encodings each port accepts.
// When the accelerator cannot report them the full catalog stands.
func (s *Session) refreshSupportedFormatsLocked() {
	s.src.supportedEncodings = s.querySupportedEncodings(s.component.Input)
	s.dst.supportedEncodings = s.querySupportedEncodings(s.component.Output)
}

func (s *Session) querySupportedEncodings(port *mmal.Port) []uint32 {
	var enc mmal.SupportedEncodings
	if err := s.instance.PortParameterGet(port, mmal.ParamSupportedEncodings, &enc); err != nil {
		s.logger.Debug("Supported encodings unavailable, assuming full catalog",
			"session", s.id, "port", port.Direction.String(), "error", err)
		return nil
	}
	return enc.Encodings
}

// finalizeComponentLocked tears the component down after a setup failure.
func (s *Session) finalizeComponentLocked() {
	if s.component == nil {
		return
	}
	if err := s.instance.ComponentFinalize(s.component); err != nil {
		s.logger.Warn("Component finalize failed", "session", s.id, "error", err)
	}
	s.component = nil
}

// Close stops both queues and releases the component.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// StopStreaming takes the lock itself and may wait on drains.
	_ = s.StopStreaming(DirInput)
	_ = s.StopStreaming(DirOutput)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.component != nil {
		// The decode output port can be left enabled for event delivery
		// without its queue ever streaming; take any such port down now.
		for _, dir := range []Direction{DirInput, DirOutput} {
			port := s.port(dir)
			if !port.Enabled {
				continue
			}
			s.frameDone = make(chan struct{}, 1)
			if err := s.instance.PortDisable(port); err != nil {
				s.logger.Warn("Port disable failed", "session", s.id, "port", dir.String(), "error", err)
			}
			s.drainPortLocked(port, s.queue(dir))
		}
		if s.componentEnabled {
			if err := s.instance.ComponentDisable(s.component); err != nil {
				s.logger.Warn("Component disable failed", "session", s.id, "error", err)
			}
			s.componentEnabled = false
		}
		s.finalizeComponentLocked()
	}
	s.logger.Info("Session closed", "session", s.id)
	return nil
}

// Stats reports buffer throughput for observation surfaces.
func (s *Session) Stats() (in, out uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffersProcessedIn, s.buffersProcessedOut
}

// Streaming reports whether a queue is streaming.
func (s *Session) Streaming(dir Direction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue(dir).streaming
}
