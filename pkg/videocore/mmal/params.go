package mmal

// Port parameter identifiers. Boolean parameters are carried as uint32
// zero/non-zero; structured parameters use the types below.
const (
	ParamUnused uint32 = iota
	ParamZeroCopy
	ParamSupportedEncodings
	ParamVideoBitRate
	ParamRateControl
	ParamIntraPeriod
	ParamVideoEncodeMinQuant
	ParamVideoEncodeMaxQuant
	ParamVideoRequestIFrame
	ParamProfile
	ParamVideoEncodeInlineHeader
	ParamVideoEncodeHeadersWithFrame
	ParamVideoEncodeSPSTiming
	ParamMinimiseFragmentation
	ParamVideoEncodeSEIEnable
	ParamVideoEncodeH264AUDelimiters
	ParamIntraRefresh
	ParamMirror
	ParamMBRowsPerSlice
	ParamJPEGQFactor
	ParamJPEGIJGScaling
	ParamExifDisable
	ParamVideoValidateTimestamps
	ParamVideoStopOnPARColourChange
	ParamVideoInterlaceType
	ParamImageEffectParameters
)

// Mirror values for ParamMirror.
type Mirror uint32

const (
	MirrorNone Mirror = iota
	MirrorVertical
	MirrorHorizontal
	MirrorBoth
)

// RateControl values for ParamRateControl.
type RateControl uint32

const (
	RateControlDefault RateControl = iota
	RateControlVariable
	RateControlConstant
)

// VideoProfile is the combined profile/level parameter (ParamProfile).
type VideoProfile struct {
	Profile uint32
	Level   uint32
}

// H.264 profile values.
const (
	VideoProfileH264Baseline uint32 = iota + 25
	VideoProfileH264Main
	VideoProfileH264Extended
	VideoProfileH264High
	VideoProfileH264ConstrainedBaseline
)

// H.264 level values.
const (
	VideoLevelH264_1 uint32 = iota + 14
	VideoLevelH264_1b
	VideoLevelH264_11
	VideoLevelH264_12
	VideoLevelH264_13
	VideoLevelH264_2
	VideoLevelH264_21
	VideoLevelH264_22
	VideoLevelH264_3
	VideoLevelH264_31
	VideoLevelH264_32
	VideoLevelH264_4
	VideoLevelH264_41
	VideoLevelH264_42
)

// IntraRefresh is the structured ParamIntraRefresh value, updated with a
// read-modify-write cycle so unrelated fields survive.
type IntraRefresh struct {
	Mode   uint32
	AirMBs uint32
	AirRef uint32
	CirMBs uint32
	PirMBs uint32
}

// Intra refresh modes.
const (
	IntraRefreshCyclic uint32 = iota
	IntraRefreshAdaptive
	IntraRefreshBoth
	IntraRefreshCyclicMRows uint32 = 0x7F000001
)

// InterlaceMode reported by ParamVideoInterlaceType.
type InterlaceMode uint32

const (
	InterlaceProgressive InterlaceMode = iota
	InterlaceFieldSingleUpperFirst
	InterlaceFieldSingleLowerFirst
	InterlaceFieldsInterleavedUpperFirst
	InterlaceFieldsInterleavedLowerFirst
	InterlaceMixed
)

// InterlaceType is the structured ParamVideoInterlaceType value.
type InterlaceType struct {
	Mode             InterlaceMode
	RepeatFirstField bool
}

// Image effects for ParamImageEffectParameters.
const (
	ImageFXDeinterlaceDouble uint32 = iota + 22
	ImageFXDeinterlaceAdvanced
	ImageFXDeinterlaceFast
)

// ImageFXParameters selects an image effect and its arguments.
type ImageFXParameters struct {
	Effect    uint32
	NumParams uint32
	Params    [6]uint32
}

// SupportedEncodings is the ParamSupportedEncodings value: the encodings a
// port accepts, as packed FourCC codes.
type SupportedEncodings struct {
	Encodings []uint32
}
