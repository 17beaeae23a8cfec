package codec

import "github.com/smazurov/codecbridge/pkg/videocore/mmal"

// ControlID names a session control.
type ControlID int

const (
	CtrlBitrate ControlID = iota + 1
	CtrlBitrateMode
	CtrlRepeatSequenceHeader
	CtrlHeaderMode
	CtrlH264IPeriod
	CtrlGOPSize
	CtrlH264Profile
	CtrlH264Level
	CtrlH264MinQP
	CtrlH264MaxQP
	CtrlForceKeyFrame
	CtrlHFlip
	CtrlVFlip
	CtrlIntraRefreshPeriod
	CtrlAUDelimiter
	CtrlSliceMaxMB
	CtrlJPEGQuality
)

// Bitrate modes.
const (
	BitrateModeVBR int64 = iota
	BitrateModeCBR
)

// Header modes.
const (
	HeaderModeSeparate int64 = iota
	HeaderModeJoinedWithFrame
)

// H.264 profiles (control values).
const (
	H264ProfileBaseline int64 = iota
	H264ProfileConstrainedBaseline
	H264ProfileMain
	H264ProfileExtended
	H264ProfileHigh
)

// H.264 levels (control values).
const (
	H264Level10 int64 = iota
	H264Level1B
	H264Level11
	H264Level12
	H264Level13
	H264Level20
	H264Level21
	H264Level22
	H264Level30
	H264Level31
	H264Level32
	H264Level40
	H264Level41
	H264Level42
)

var h264ProfileMap = map[int64]uint32{
	H264ProfileBaseline:            mmal.VideoProfileH264Baseline,
	H264ProfileConstrainedBaseline: mmal.VideoProfileH264ConstrainedBaseline,
	H264ProfileMain:                mmal.VideoProfileH264Main,
	H264ProfileExtended:            mmal.VideoProfileH264Extended,
	H264ProfileHigh:                mmal.VideoProfileH264High,
}

var h264LevelMap = map[int64]uint32{
	H264Level10: mmal.VideoLevelH264_1,
	H264Level1B: mmal.VideoLevelH264_1b,
	H264Level11: mmal.VideoLevelH264_11,
	H264Level12: mmal.VideoLevelH264_12,
	H264Level13: mmal.VideoLevelH264_13,
	H264Level20: mmal.VideoLevelH264_2,
	H264Level21: mmal.VideoLevelH264_21,
	H264Level22: mmal.VideoLevelH264_22,
	H264Level30: mmal.VideoLevelH264_3,
	H264Level31: mmal.VideoLevelH264_31,
	H264Level32: mmal.VideoLevelH264_32,
	H264Level40: mmal.VideoLevelH264_4,
	H264Level41: mmal.VideoLevelH264_41,
	H264Level42: mmal.VideoLevelH264_42,
}

// controlState caches control values so they survive until the component
// exists and can be replayed onto it.
type controlState struct {
	bitrate            uint32
	bitrateMode        int64
	repeatSeqHeader    bool
	headersWithFrame   bool
	gopSize            uint32
	h264Profile        int64
	h264Level          int64
	minQP              uint32
	maxQP              uint32
	hflip              bool
	vflip              bool
	intraRefreshPeriod uint32
	auDelimiter        bool
	sliceMaxMB         uint32
	jpegQuality        uint32
}

func defaultControls() controlState {
	return controlState{
		bitrate:     10_000_000,
		bitrateMode: BitrateModeVBR,
		gopSize:     60,
		h264Profile: H264ProfileHigh,
		h264Level:   H264Level40,
		jpegQuality: 30,
	}
}

// SetControl validates and stores a control value, pushing it to the
// accelerator when the component already exists.
func (s *Session) SetControl(id ControlID, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewError(ErrCodeSessionClosed, "session closed", nil)
	}
	if !s.role.caps().controls[id] {
		return NewError(ErrCodeNotSupported, "control not supported for role "+s.role.String(), nil)
	}
	return s.setControlLocked(id, value)
}

// Control reports the cached value of a control.
func (s *Session) Control(id ControlID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.role.caps().controls[id] {
		return 0, NewError(ErrCodeNotSupported, "control not supported for role "+s.role.String(), nil)
	}
	c := &s.ctrl
	switch id {
	case CtrlBitrate:
		return int64(c.bitrate), nil
	case CtrlBitrateMode:
		return c.bitrateMode, nil
	case CtrlRepeatSequenceHeader:
		return boolValue(c.repeatSeqHeader), nil
	case CtrlHeaderMode:
		if c.headersWithFrame {
			return HeaderModeJoinedWithFrame, nil
		}
		return HeaderModeSeparate, nil
	case CtrlH264IPeriod, CtrlGOPSize:
		return int64(c.gopSize), nil
	case CtrlH264Profile:
		return c.h264Profile, nil
	case CtrlH264Level:
		return c.h264Level, nil
	case CtrlH264MinQP:
		return int64(c.minQP), nil
	case CtrlH264MaxQP:
		return int64(c.maxQP), nil
	case CtrlHFlip:
		return boolValue(c.hflip), nil
	case CtrlVFlip:
		return boolValue(c.vflip), nil
	case CtrlIntraRefreshPeriod:
		return int64(c.intraRefreshPeriod), nil
	case CtrlAUDelimiter:
		return boolValue(c.auDelimiter), nil
	case CtrlSliceMaxMB:
		return int64(c.sliceMaxMB), nil
	case CtrlJPEGQuality:
		return int64(c.jpegQuality), nil
	default:
		return 0, NewError(ErrCodeInvalidArgument, "unknown control", nil)
	}
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (s *Session) setControlLocked(id ControlID, value int64) error {
	c := &s.ctrl
	switch id {
	case CtrlBitrate:
		c.bitrate = uint32(value)
		s.pushParam(s.outputPort(), mmal.ParamVideoBitRate, c.bitrate)
	case CtrlBitrateMode:
		c.bitrateMode = value
		s.pushParam(s.outputPort(), mmal.ParamRateControl, rateControlFor(value))
	case CtrlRepeatSequenceHeader:
		c.repeatSeqHeader = value != 0
		s.pushParam(s.outputPort(), mmal.ParamVideoEncodeInlineHeader, boolParam(c.repeatSeqHeader))
	case CtrlHeaderMode:
		c.headersWithFrame = value == HeaderModeJoinedWithFrame
		s.pushParam(s.controlPort(), mmal.ParamVideoEncodeHeadersWithFrame, boolParam(c.headersWithFrame))
	case CtrlH264IPeriod, CtrlGOPSize:
		// The I-period control is an alias: both names address the
		// single GOP size slot.
		c.gopSize = uint32(value)
		s.pushParam(s.outputPort(), mmal.ParamIntraPeriod, c.gopSize)
	case CtrlH264Profile:
		if _, ok := h264ProfileMap[value]; !ok {
			return NewError(ErrCodeInvalidArgument, "unsupported H.264 profile", nil)
		}
		c.h264Profile = value
		s.pushProfileLevel()
	case CtrlH264Level:
		if _, ok := h264LevelMap[value]; !ok {
			return NewError(ErrCodeInvalidArgument, "unsupported H.264 level", nil)
		}
		c.h264Level = value
		s.pushProfileLevel()
	case CtrlH264MinQP:
		c.minQP = uint32(value)
		s.pushParam(s.outputPort(), mmal.ParamVideoEncodeMinQuant, c.minQP)
	case CtrlH264MaxQP:
		c.maxQP = uint32(value)
		s.pushParam(s.outputPort(), mmal.ParamVideoEncodeMaxQuant, c.maxQP)
	case CtrlForceKeyFrame:
		s.pushParam(s.outputPort(), mmal.ParamVideoRequestIFrame, boolParam(true))
	case CtrlHFlip:
		c.hflip = value != 0
		s.pushMirror()
	case CtrlVFlip:
		c.vflip = value != 0
		s.pushMirror()
	case CtrlIntraRefreshPeriod:
		c.intraRefreshPeriod = uint32(value)
		s.pushIntraRefresh()
	case CtrlAUDelimiter:
		c.auDelimiter = value != 0
		s.pushParam(s.outputPort(), mmal.ParamVideoEncodeH264AUDelimiters, boolParam(c.auDelimiter))
	case CtrlSliceMaxMB:
		c.sliceMaxMB = uint32(value)
		s.pushParam(s.outputPort(), mmal.ParamMBRowsPerSlice, c.sliceMaxMB)
	case CtrlJPEGQuality:
		c.jpegQuality = uint32(value)
		s.pushParam(s.outputPort(), mmal.ParamJPEGQFactor, c.jpegQuality)
	default:
		return NewError(ErrCodeInvalidArgument, "unknown control", nil)
	}
	return nil
}

func rateControlFor(mode int64) mmal.RateControl {
	if mode == BitrateModeCBR {
		return mmal.RateControlConstant
	}
	return mmal.RateControlVariable
}

func boolParam(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// pushParam sets a port parameter when the component exists. Failures are
// logged and otherwise ignored; the cached value stands.
func (s *Session) pushParam(port *mmal.Port, id uint32, value any) {
	if port == nil {
		return
	}
	if err := s.instance.PortParameterSet(port, id, value); err != nil {
		s.logger.Warn("Failed to set port parameter", "session", s.id, "param", id, "error", err)
	}
}

// pushProfileLevel updates the combined profile/level parameter with a
// read-modify-write so the field not being changed keeps its value.
func (s *Session) pushProfileLevel() {
	port := s.outputPort()
	if port == nil {
		return
	}
	var pl mmal.VideoProfile
	if err := s.instance.PortParameterGet(port, mmal.ParamProfile, &pl); err != nil {
		s.logger.Debug("Profile parameter unavailable, starting from zero", "session", s.id, "error", err)
	}
	pl.Profile = h264ProfileMap[s.ctrl.h264Profile]
	pl.Level = h264LevelMap[s.ctrl.h264Level]
	s.pushParam(port, mmal.ParamProfile, pl)
}

func (s *Session) pushMirror() {
	port := s.inputPort()
	if port == nil {
		return
	}
	mirror := mmal.MirrorNone
	switch {
	case s.ctrl.hflip && s.ctrl.vflip:
		mirror = mmal.MirrorBoth
	case s.ctrl.hflip:
		mirror = mmal.MirrorHorizontal
	case s.ctrl.vflip:
		mirror = mmal.MirrorVertical
	}
	s.pushParam(port, mmal.ParamMirror, mirror)
}

func (s *Session) pushIntraRefresh() {
	port := s.outputPort()
	if port == nil {
		return
	}
	var ir mmal.IntraRefresh
	if err := s.instance.PortParameterGet(port, mmal.ParamIntraRefresh, &ir); err != nil {
		s.logger.Debug("Intra refresh parameter unavailable, starting from zero", "session", s.id, "error", err)
	}
	ir.Mode = mmal.IntraRefreshCyclicMRows
	ir.CirMBs = s.ctrl.intraRefreshPeriod
	s.pushParam(port, mmal.ParamIntraRefresh, ir)
}

// applyControlsLocked replays cached control values onto a freshly created
// component.
func (s *Session) applyControlsLocked() {
	switch s.role {
	case RoleEncode:
		s.pushParam(s.outputPort(), mmal.ParamVideoBitRate, s.ctrl.bitrate)
		s.pushParam(s.outputPort(), mmal.ParamRateControl, rateControlFor(s.ctrl.bitrateMode))
		s.pushParam(s.outputPort(), mmal.ParamVideoEncodeInlineHeader, boolParam(s.ctrl.repeatSeqHeader))
		s.pushParam(s.outputPort(), mmal.ParamIntraPeriod, s.ctrl.gopSize)
		s.pushProfileLevel()
		if s.ctrl.minQP > 0 {
			s.pushParam(s.outputPort(), mmal.ParamVideoEncodeMinQuant, s.ctrl.minQP)
		}
		if s.ctrl.maxQP > 0 {
			s.pushParam(s.outputPort(), mmal.ParamVideoEncodeMaxQuant, s.ctrl.maxQP)
		}
		if s.ctrl.hflip || s.ctrl.vflip {
			s.pushMirror()
		}
		if s.ctrl.intraRefreshPeriod > 0 {
			s.pushIntraRefresh()
		}
		if s.ctrl.auDelimiter {
			s.pushParam(s.outputPort(), mmal.ParamVideoEncodeH264AUDelimiters, boolParam(true))
		}
		if s.ctrl.sliceMaxMB > 0 {
			s.pushParam(s.outputPort(), mmal.ParamMBRowsPerSlice, s.ctrl.sliceMaxMB)
		}
	case RoleEncodeImage:
		s.pushParam(s.outputPort(), mmal.ParamJPEGQFactor, s.ctrl.jpegQuality)
	}
}
