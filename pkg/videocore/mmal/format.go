package mmal

// ESType is the elementary stream type of a port format.
type ESType uint32

const (
	ESTypeUnknown ESType = iota
	ESTypeControl
	ESTypeAudio
	ESTypeVideo
	ESTypeSubpicture
)

// Rational is a fraction, used for frame rates and pixel aspect ratios.
type Rational struct {
	Num uint32
	Den uint32
}

// Rect is a region within a frame.
type Rect struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

// VideoFormat is the video-specific part of a port format. Width and Height
// are the padded buffer geometry; Crop is the visible region.
type VideoFormat struct {
	Width      uint32
	Height     uint32
	Crop       Rect
	FrameRate  Rational
	PAR        Rational
	ColorSpace uint32
}

// PortFormat describes the elementary stream on a port.
type PortFormat struct {
	Type            ESType
	Encoding        uint32
	EncodingVariant uint32
	Bitrate         uint32
	Flags           uint32
	ES              VideoFormat
}

// EventFormatChanged is the payload of a format-changed event delivered on
// an output port when the stream geometry or signal properties change.
type EventFormatChanged struct {
	BufferSizeMin         uint32
	BufferNumMin          uint32
	BufferSizeRecommended uint32
	BufferNumRecommended  uint32
	Format                PortFormat
}
