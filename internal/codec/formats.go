package codec

import "github.com/smazurov/codecbridge/pkg/videocore/mmal"

// Geometry limits and buffer sizing rules.
const (
	minWidth  = 32
	minHeight = 32

	defaultWidth  = 32
	defaultHeight = 32

	// Compressed buffer sizes: fixed for JPEG, tiered on resolution
	// otherwise.
	compressedBufSizeJPEG    = 4096 << 10
	compressedBufSizeLarge   = 768 << 10
	compressedBufSizeDefault = 512 << 10
)

func fourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// FourCCString renders a client pixel format code as text.
func FourCCString(fourcc uint32) string {
	return mmal.FourCCString(fourcc)
}

// Client pixel format codes.
var (
	PixFmtYUV420  = fourCC('Y', 'U', '1', '2')
	PixFmtYVU420  = fourCC('Y', 'V', '1', '2')
	PixFmtNV12    = fourCC('N', 'V', '1', '2')
	PixFmtNV21    = fourCC('N', 'V', '2', '1')
	PixFmtRGB565  = fourCC('R', 'G', 'B', 'P')
	PixFmtYUYV    = fourCC('Y', 'U', 'Y', 'V')
	PixFmtUYVY    = fourCC('U', 'Y', 'V', 'Y')
	PixFmtYVYU    = fourCC('Y', 'V', 'Y', 'U')
	PixFmtVYUY    = fourCC('V', 'Y', 'U', 'Y')
	PixFmtNV12Col = fourCC('N', 'C', '1', '2')
	PixFmtRGB24   = fourCC('R', 'G', 'B', '3')
	PixFmtBGR24   = fourCC('B', 'G', 'R', '3')
	PixFmtBGR32   = fourCC('B', 'G', 'R', '4')
	PixFmtRGBA32  = fourCC('A', 'B', '2', '4')

	PixFmtSBGGR8   = fourCC('B', 'A', '8', '1')
	PixFmtSGBRG8   = fourCC('G', 'B', 'R', 'G')
	PixFmtSGRBG8   = fourCC('G', 'R', 'B', 'G')
	PixFmtSRGGB8   = fourCC('R', 'G', 'G', 'B')
	PixFmtSBGGR10P = fourCC('p', 'B', 'A', 'A')
	PixFmtSGBRG10P = fourCC('p', 'G', 'A', 'A')
	PixFmtSGRBG10P = fourCC('p', 'g', 'A', 'A')
	PixFmtSRGGB10P = fourCC('p', 'R', 'A', 'A')
	PixFmtSBGGR12P = fourCC('p', 'B', 'C', 'C')
	PixFmtSGBRG12P = fourCC('p', 'G', 'C', 'C')
	PixFmtSGRBG12P = fourCC('p', 'g', 'C', 'C')
	PixFmtSRGGB12P = fourCC('p', 'R', 'C', 'C')
	PixFmtSBGGR16  = fourCC('B', 'Y', 'R', '2')
	PixFmtSGBRG16  = fourCC('G', 'B', '1', '6')
	PixFmtSGRBG16  = fourCC('G', 'R', '1', '6')
	PixFmtSRGGB16  = fourCC('R', 'G', '1', '6')

	PixFmtGrey = fourCC('G', 'R', 'E', 'Y')
	PixFmtY10P = fourCC('Y', '1', '0', 'P')
	PixFmtY12P = fourCC('Y', '1', '2', 'P')
	PixFmtY16  = fourCC('Y', '1', '6', ' ')

	PixFmtH264  = fourCC('H', '2', '6', '4')
	PixFmtMJPEG = fourCC('M', 'J', 'P', 'G')
	PixFmtJPEG  = fourCC('J', 'P', 'E', 'G')
	PixFmtMPEG4 = fourCC('M', 'P', 'G', '4')
	PixFmtH263  = fourCC('H', '2', '6', '3')
	PixFmtMPEG2 = fourCC('M', 'P', 'G', '2')
	PixFmtVC1   = fourCC('V', 'C', '1', 'G')
)

// Format describes one pixel format the bridge can carry.
type Format struct {
	FourCC       uint32
	Depth        uint32
	Compressed   bool
	Bayer        bool
	MMALEncoding uint32

	// bplAlign is the bytesperline alignment per role, indexed by Role.
	bplAlign [numRoles]uint32

	// sizeMultiplierX2 is twice the plane size multiplier: 3 for planar
	// YUV (1.5 planes worth of data), 2 for single-plane formats.
	sizeMultiplierX2 uint32
}

func align32() [numRoles]uint32 {
	return [numRoles]uint32{32, 32, 32, 32, 32}
}

// Planar YUV needs wider strides on the encode and ISP paths.
func alignPlanar() [numRoles]uint32 {
	return [numRoles]uint32{32, 64, 64, 32, 32}
}

func raw(fourcc, depth uint32, enc uint32, multX2 uint32) Format {
	return Format{FourCC: fourcc, Depth: depth, MMALEncoding: enc, bplAlign: align32(), sizeMultiplierX2: multX2}
}

func bayer(fourcc, depth uint32, enc uint32) Format {
	f := raw(fourcc, depth, enc, 2)
	f.Bayer = true
	return f
}

func compressed(fourcc uint32, enc uint32) Format {
	return Format{FourCC: fourcc, Compressed: true, MMALEncoding: enc, bplAlign: align32(), sizeMultiplierX2: 2}
}

var catalog = func() []Format {
	yu12 := raw(PixFmtYUV420, 8, mmal.EncodingI420, 3)
	yu12.bplAlign = alignPlanar()
	yv12 := raw(PixFmtYVU420, 8, mmal.EncodingYV12, 3)
	yv12.bplAlign = alignPlanar()

	return []Format{
		yu12,
		yv12,
		raw(PixFmtNV12, 8, mmal.EncodingNV12, 3),
		raw(PixFmtNV21, 8, mmal.EncodingNV21, 3),
		raw(PixFmtRGB565, 16, mmal.EncodingRGB16, 2),
		raw(PixFmtYUYV, 16, mmal.EncodingYUYV, 2),
		raw(PixFmtUYVY, 16, mmal.EncodingUYVY, 2),
		raw(PixFmtYVYU, 16, mmal.EncodingYVYU, 2),
		raw(PixFmtVYUY, 16, mmal.EncodingVYUY, 2),
		raw(PixFmtNV12Col, 8, mmal.EncodingYUVUV128, 3),
		raw(PixFmtRGB24, 24, mmal.EncodingRGB24, 2),
		raw(PixFmtBGR24, 24, mmal.EncodingBGR24, 2),
		raw(PixFmtBGR32, 32, mmal.EncodingBGRA, 2),
		raw(PixFmtRGBA32, 32, mmal.EncodingRGBA, 2),

		bayer(PixFmtSBGGR8, 8, mmal.EncodingBayerSBGGR8),
		bayer(PixFmtSGBRG8, 8, mmal.EncodingBayerSGBRG8),
		bayer(PixFmtSGRBG8, 8, mmal.EncodingBayerSGRBG8),
		bayer(PixFmtSRGGB8, 8, mmal.EncodingBayerSRGGB8),
		bayer(PixFmtSBGGR10P, 10, mmal.EncodingBayerSBGGR10P),
		bayer(PixFmtSGBRG10P, 10, mmal.EncodingBayerSGBRG10P),
		bayer(PixFmtSGRBG10P, 10, mmal.EncodingBayerSGRBG10P),
		bayer(PixFmtSRGGB10P, 10, mmal.EncodingBayerSRGGB10P),
		bayer(PixFmtSBGGR12P, 12, mmal.EncodingBayerSBGGR12P),
		bayer(PixFmtSGBRG12P, 12, mmal.EncodingBayerSGBRG12P),
		bayer(PixFmtSGRBG12P, 12, mmal.EncodingBayerSGRBG12P),
		bayer(PixFmtSRGGB12P, 12, mmal.EncodingBayerSRGGB12P),
		bayer(PixFmtSBGGR16, 16, mmal.EncodingBayerSBGGR16),
		bayer(PixFmtSGBRG16, 16, mmal.EncodingBayerSGBRG16),
		bayer(PixFmtSGRBG16, 16, mmal.EncodingBayerSGRBG16),
		bayer(PixFmtSRGGB16, 16, mmal.EncodingBayerSRGGB16),

		raw(PixFmtGrey, 8, mmal.EncodingGrey, 2),
		raw(PixFmtY10P, 10, mmal.EncodingGreyY10P, 2),
		raw(PixFmtY12P, 12, mmal.EncodingGreyY12P, 2),
		raw(PixFmtY16, 16, mmal.EncodingGreyY16, 2),

		compressed(PixFmtH264, mmal.EncodingH264),
		compressed(PixFmtMJPEG, mmal.EncodingMJPEG),
		compressed(PixFmtJPEG, mmal.EncodingJPEG),
		compressed(PixFmtMPEG4, mmal.EncodingMP4V),
		compressed(PixFmtH263, mmal.EncodingH263),
		compressed(PixFmtMPEG2, mmal.EncodingMP2V),
		compressed(PixFmtVC1, mmal.EncodingWVC1),
	}
}()

// isYUV reports whether a format carries YUV samples. Used to pick SRGB
// defaults for RGB and Bayer output.
func (f *Format) isYUV() bool {
	switch f.MMALEncoding {
	case mmal.EncodingI420, mmal.EncodingYV12, mmal.EncodingNV12, mmal.EncodingNV21,
		mmal.EncodingYUYV, mmal.EncodingUYVY, mmal.EncodingYVYU, mmal.EncodingVYUY,
		mmal.EncodingYUVUV128:
		return true
	}
	return false
}

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) &^ (a - 1)
}

// directionSupported reports whether a format can sit on the given queue of
// a role: compressed data only on the side the role compresses, raw
// everywhere else (ISP and deinterlace carry raw on both queues).
func directionSupported(f *Format, role Role, dir Direction) bool {
	caps := role.caps()
	if f.Compressed {
		if dir == DirInput {
			return caps.compressedInput
		}
		return caps.compressedOutput
	}
	if dir == DirInput {
		return !caps.compressedInput
	}
	return !caps.compressedOutput
}

// FindFormat looks up a format by client code for a role and queue.
func FindFormat(fourcc uint32, role Role, dir Direction, disableBayer bool) *Format {
	for n := range catalog {
		f := &catalog[n]
		if f.FourCC != fourcc {
			continue
		}
		if f.Bayer && disableBayer {
			return nil
		}
		if !directionSupported(f, role, dir) {
			return nil
		}
		return f
	}
	return nil
}

// findByEncoding maps an accelerator encoding back to a catalog entry.
func findByEncoding(encoding uint32) *Format {
	for n := range catalog {
		if catalog[n].MMALEncoding == encoding {
			return &catalog[n]
		}
	}
	return nil
}

// SupportedFormats lists the formats a role accepts on one queue,
// optionally intersected with the encodings the accelerator reported.
func SupportedFormats(role Role, dir Direction, disableBayer bool, encodings []uint32) []Format {
	var out []Format
	for n := range catalog {
		f := &catalog[n]
		if f.Bayer && disableBayer {
			continue
		}
		if !directionSupported(f, role, dir) {
			continue
		}
		if encodings != nil && !containsEncoding(encodings, f.MMALEncoding) {
			continue
		}
		out = append(out, *f)
	}
	return out
}

func containsEncoding(encodings []uint32, enc uint32) bool {
	for _, e := range encodings {
		if e == enc {
			return true
		}
	}
	return false
}

// defaultFormat picks the first supported format for a role and queue.
func defaultFormat(role Role, dir Direction) *Format {
	for n := range catalog {
		if directionSupported(&catalog[n], role, dir) {
			return &catalog[n]
		}
	}
	return nil
}

// BytesPerLine computes the stride for a format at the given geometry. The
// column format stores 128-pixel wide columns, so its "stride" is the
// column height in lines.
func BytesPerLine(width, height uint32, f *Format, role Role) uint32 {
	if f.FourCC == PixFmtNV12Col {
		return (height * 3) / 2
	}
	return alignUp((width*f.Depth)>>3, f.bplAlign[role])
}

// SizeImage computes the buffer size for a format at the given geometry.
func SizeImage(bytesPerLine, width, height uint32, f *Format) uint32 {
	switch {
	case f.FourCC == PixFmtJPEG:
		return compressedBufSizeJPEG
	case f.Compressed:
		if width*height > 1280*720 {
			return compressedBufSizeLarge
		}
		return compressedBufSizeDefault
	case f.FourCC == PixFmtNV12Col:
		return alignUp(width, 128) * bytesPerLine
	default:
		return (bytesPerLine * height * f.sizeMultiplierX2) >> 1
	}
}
