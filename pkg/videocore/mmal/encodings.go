package mmal

// FourCC packs four characters into the little-endian code the accelerator
// uses to identify encodings, color spaces and event types.
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// FourCCString renders a packed code back to its four-character form.
func FourCCString(fourcc uint32) string {
	return string([]byte{
		byte(fourcc),
		byte(fourcc >> 8),
		byte(fourcc >> 16),
		byte(fourcc >> 24),
	})
}

// Uncompressed encodings.
var (
	EncodingI420     = FourCC('I', '4', '2', '0')
	EncodingYV12     = FourCC('Y', 'V', '1', '2')
	EncodingNV12     = FourCC('N', 'V', '1', '2')
	EncodingNV21     = FourCC('N', 'V', '2', '1')
	EncodingRGB16    = FourCC('R', 'G', 'B', '2')
	EncodingYUYV     = FourCC('Y', 'U', 'Y', 'V')
	EncodingUYVY     = FourCC('U', 'Y', 'V', 'Y')
	EncodingYVYU     = FourCC('Y', 'V', 'Y', 'U')
	EncodingVYUY     = FourCC('V', 'Y', 'U', 'Y')
	EncodingYUVUV128 = FourCC('S', 'A', 'N', 'D')
	EncodingRGB24    = FourCC('R', 'G', 'B', '3')
	EncodingBGR24    = FourCC('B', 'G', 'R', '3')
	EncodingBGRA     = FourCC('B', 'G', 'R', 'A')
	EncodingRGBA     = FourCC('R', 'G', 'B', 'A')
)

// Bayer and greyscale encodings.
var (
	EncodingBayerSBGGR8   = FourCC('B', 'A', '8', '1')
	EncodingBayerSGBRG8   = FourCC('G', 'B', 'R', 'G')
	EncodingBayerSGRBG8   = FourCC('G', 'R', 'B', 'G')
	EncodingBayerSRGGB8   = FourCC('R', 'G', 'G', 'B')
	EncodingBayerSBGGR10P = FourCC('p', 'B', 'A', 'A')
	EncodingBayerSGBRG10P = FourCC('p', 'G', 'A', 'A')
	EncodingBayerSGRBG10P = FourCC('p', 'g', 'A', 'A')
	EncodingBayerSRGGB10P = FourCC('p', 'R', 'A', 'A')
	EncodingBayerSBGGR12P = FourCC('p', 'B', '1', '2')
	EncodingBayerSGBRG12P = FourCC('p', 'G', '1', '2')
	EncodingBayerSGRBG12P = FourCC('p', 'g', '1', '2')
	EncodingBayerSRGGB12P = FourCC('p', 'R', '1', '2')
	EncodingBayerSBGGR16  = FourCC('B', 'G', '1', '6')
	EncodingBayerSGBRG16  = FourCC('G', 'B', '1', '6')
	EncodingBayerSGRBG16  = FourCC('G', 'R', '1', '6')
	EncodingBayerSRGGB16  = FourCC('R', 'G', '1', '6')
	EncodingGrey          = FourCC('G', 'R', 'E', 'Y')
	EncodingGreyY10P      = FourCC('Y', '1', '0', 'P')
	EncodingGreyY12P      = FourCC('Y', '1', '2', 'P')
	EncodingGreyY16       = FourCC('Y', '1', '6', ' ')
)

// Compressed encodings.
var (
	EncodingH264  = FourCC('H', '2', '6', '4')
	EncodingMJPEG = FourCC('M', 'J', 'P', 'G')
	EncodingJPEG  = FourCC('J', 'P', 'E', 'G')
	EncodingMP4V  = FourCC('M', 'P', '4', 'V')
	EncodingH263  = FourCC('H', '2', '6', '3')
	EncodingMP2V  = FourCC('M', 'P', '2', 'V')
	EncodingWVC1  = FourCC('W', 'V', 'C', '1')
)

// Color spaces reported in format-changed events.
var (
	ColorSpaceUnknown  uint32
	ColorSpaceITUR601  = FourCC('Y', '6', '0', '1')
	ColorSpaceITUR709  = FourCC('Y', '7', '0', '9')
	ColorSpaceJPEGJFIF = FourCC('Y', 'J', 'F', 'I')
)

// Event types carried in a buffer's Cmd field.
var (
	EventError            = FourCC('E', 'R', 'R', 'O')
	EventEOS              = FourCC('E', 'E', 'O', 'S')
	EventFormatChangedID  = FourCC('E', 'F', 'C', 'H')
	EventParameterChanged = FourCC('E', 'P', 'C', 'H')
)
