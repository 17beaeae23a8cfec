package codec

import (
	"testing"

	"github.com/smazurov/codecbridge/pkg/videocore/mmal"
)

func TestTryFormatRawGeometry(t *testing.T) {
	inst := newTestInstance(t)

	tests := []struct {
		name string
		role Role
		dir  Direction
		in   PixFormat
		want PixFormat
	}{
		{
			name: "encode input clamped to minimum",
			role: RoleEncode,
			dir:  DirInput,
			in:   PixFormat{FourCC: PixFmtYUV420, Width: 20, Height: 20},
			want: PixFormat{FourCC: PixFmtYUV420, Width: 32, Height: 32, BytesPerLine: 64, SizeImage: 64 * 32 * 3 / 2},
		},
		{
			name: "decode output height padded to macroblocks",
			role: RoleDecode,
			dir:  DirOutput,
			in:   PixFormat{FourCC: PixFmtYUV420, Width: 1280, Height: 721},
			want: PixFormat{FourCC: PixFmtYUV420, Width: 1280, Height: 736, BytesPerLine: 1280, SizeImage: 1280 * 736 * 3 / 2},
		},
		{
			name: "codec roles clamp to 1920",
			role: RoleEncode,
			dir:  DirInput,
			in:   PixFormat{FourCC: PixFmtYUV420, Width: 4096, Height: 2160},
			want: PixFormat{FourCC: PixFmtYUV420, Width: 1920, Height: 1920, BytesPerLine: 1920, SizeImage: 1920 * 1920 * 3 / 2},
		},
		{
			name: "isp allows large frames",
			role: RoleISP,
			dir:  DirInput,
			in:   PixFormat{FourCC: PixFmtRGB24, Width: 4096, Height: 2160},
			want: PixFormat{FourCC: PixFmtRGB24, Width: 4096, Height: 2160, BytesPerLine: 4096 * 3, SizeImage: 4096 * 3 * 2160},
		},
		{
			name: "client stride may only grow",
			role: RoleISP,
			dir:  DirInput,
			in:   PixFormat{FourCC: PixFmtRGB24, Width: 64, Height: 64, BytesPerLine: 300},
			want: PixFormat{FourCC: PixFmtRGB24, Width: 64, Height: 64, BytesPerLine: 320, SizeImage: 320 * 64},
		},
		{
			name: "column format stride not realigned",
			role: RoleDecode,
			dir:  DirOutput,
			in:   PixFormat{FourCC: PixFmtNV12Col, Width: 1000, Height: 1088, BytesPerLine: 9999},
			want: PixFormat{FourCC: PixFmtNV12Col, Width: 1000, Height: 1088, BytesPerLine: 9999, SizeImage: 1024 * 9999},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, tt.role, inst, DefaultConfig())
			pf := tt.in
			if err := s.TryFormat(tt.dir, &pf); err != nil {
				t.Fatalf("TryFormat failed: %v", err)
			}
			if pf.FourCC != tt.want.FourCC || pf.Width != tt.want.Width || pf.Height != tt.want.Height {
				t.Errorf("geometry = %s %dx%d, want %s %dx%d",
					FourCCString(pf.FourCC), pf.Width, pf.Height,
					FourCCString(tt.want.FourCC), tt.want.Width, tt.want.Height)
			}
			if pf.BytesPerLine != tt.want.BytesPerLine {
				t.Errorf("BytesPerLine = %d, want %d", pf.BytesPerLine, tt.want.BytesPerLine)
			}
			if pf.SizeImage != tt.want.SizeImage {
				t.Errorf("SizeImage = %d, want %d", pf.SizeImage, tt.want.SizeImage)
			}
		})
	}
}

func TestTryFormatCompressed(t *testing.T) {
	inst := newTestInstance(t)
	s := newTestSession(t, RoleDecode, inst, DefaultConfig())

	t.Run("stride cleared and size tiered", func(t *testing.T) {
		pf := PixFormat{FourCC: PixFmtH264, Width: 1920, Height: 1080, BytesPerLine: 1920}
		if err := s.TryFormat(DirInput, &pf); err != nil {
			t.Fatalf("TryFormat failed: %v", err)
		}
		if pf.BytesPerLine != 0 {
			t.Errorf("BytesPerLine = %d, want 0 for compressed", pf.BytesPerLine)
		}
		if pf.SizeImage != 768<<10 {
			t.Errorf("SizeImage = %d, want %d", pf.SizeImage, 768<<10)
		}
	})

	t.Run("client size may exceed the tier", func(t *testing.T) {
		pf := PixFormat{FourCC: PixFmtH264, Width: 640, Height: 480, SizeImage: 2 << 20}
		if err := s.TryFormat(DirInput, &pf); err != nil {
			t.Fatalf("TryFormat failed: %v", err)
		}
		if pf.SizeImage != 2<<20 {
			t.Errorf("SizeImage = %d, want client value kept", pf.SizeImage)
		}
	})

	t.Run("unknown code falls back to queue format", func(t *testing.T) {
		pf := PixFormat{FourCC: 0xdeadbeef, Width: 640, Height: 480}
		if err := s.TryFormat(DirInput, &pf); err != nil {
			t.Fatalf("TryFormat failed: %v", err)
		}
		if FindFormat(pf.FourCC, RoleDecode, DirInput, false) == nil {
			t.Errorf("fallback format %s not valid for the queue", FourCCString(pf.FourCC))
		}
	})

	t.Run("jpeg size is fixed", func(t *testing.T) {
		si := newTestSession(t, RoleEncodeImage, inst, DefaultConfig())
		pf := PixFormat{FourCC: PixFmtJPEG, Width: 320, Height: 240}
		if err := si.TryFormat(DirOutput, &pf); err != nil {
			t.Fatalf("TryFormat failed: %v", err)
		}
		if pf.SizeImage != 4096<<10 {
			t.Errorf("SizeImage = %d, want %d", pf.SizeImage, 4096<<10)
		}
	})
}

func TestTryFormatFieldPolicy(t *testing.T) {
	inst := newTestInstance(t)
	tests := []struct {
		name string
		role Role
		in   FieldOrder
		want FieldOrder
	}{
		{"decode keeps interlaced", RoleDecode, FieldInterlacedTB, FieldInterlacedTB},
		{"decode normalizes any", RoleDecode, FieldAny, FieldNone},
		{"deinterlace keeps interlaced", RoleDeinterlace, FieldInterlaced, FieldInterlaced},
		{"encode forces progressive", RoleEncode, FieldInterlacedTB, FieldNone},
		{"isp forces progressive", RoleISP, FieldInterlacedBT, FieldNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, tt.role, inst, DefaultConfig())
			pf := PixFormat{Width: 640, Height: 480, Field: tt.in}
			pf.FourCC = defaultFormat(tt.role, DirInput).FourCC
			if err := s.TryFormat(DirInput, &pf); err != nil {
				t.Fatalf("TryFormat failed: %v", err)
			}
			if pf.Field != tt.want {
				t.Errorf("Field = %s, want %s", pf.Field, tt.want)
			}
		})
	}
}

func TestSetFormatBusyWithBuffers(t *testing.T) {
	inst := newTestInstance(t)
	s := newTestSession(t, RoleEncode, inst, DefaultConfig())
	if _, err := s.RequestBuffers(DirInput, 2); err != nil {
		t.Fatalf("RequestBuffers failed: %v", err)
	}
	pf := PixFormat{FourCC: PixFmtYUV420, Width: 640, Height: 480}
	wantCode(t, s.SetFormat(DirInput, &pf), ErrCodeBusy)

	if _, err := s.RequestBuffers(DirInput, 0); err != nil {
		t.Fatalf("free failed: %v", err)
	}
	if err := s.SetFormat(DirInput, &pf); err != nil {
		t.Errorf("SetFormat after free failed: %v", err)
	}
}

func TestSetFormatMirrorsDecodeGeometry(t *testing.T) {
	inst := newTestInstance(t)
	s := newTestSession(t, RoleDecode, inst, DefaultConfig())

	pf := PixFormat{FourCC: PixFmtH264, Width: 1280, Height: 720}
	if err := s.SetFormat(DirInput, &pf); err != nil {
		t.Fatalf("SetFormat failed: %v", err)
	}

	out := s.Format(DirOutput)
	if out.Width != 1280 {
		t.Errorf("output width = %d, want 1280", out.Width)
	}
	if out.Height != 736 {
		t.Errorf("output height = %d, want 736 (720 padded to macroblocks)", out.Height)
	}
	if out.SizeImage != 1280*736*3/2 {
		t.Errorf("output SizeImage = %d, want %d", out.SizeImage, 1280*736*3/2)
	}

	// The visible region stays at the stream geometry.
	r, err := s.GetSelection(DirOutput, SelTargetCompose)
	if err != nil {
		t.Fatalf("GetSelection failed: %v", err)
	}
	if r.Width != 1280 || r.Height != 720 {
		t.Errorf("compose = %dx%d, want 1280x720", r.Width, r.Height)
	}
}

func TestSetFormatPreservesStreamCrop(t *testing.T) {
	inst := newTestInstance(t)
	s := newDecodeFlow(t, inst)

	// The stream announces 1080 visible lines over a 1088-line coded frame.
	inst.SendEvent(s.component.Output, mmal.EventFormatChangedID, &mmal.EventFormatChanged{
		BufferSizeMin: 1920 * 1088 * 3 / 2,
		Format: mmal.PortFormat{
			Type: mmal.ESTypeVideo,
			ES: mmal.VideoFormat{
				Width:  1920,
				Height: 1088,
				Crop:   mmal.Rect{Width: 1920, Height: 1080},
			},
		},
	})
	inst.Sync()

	if err := s.StopStreaming(DirOutput); err != nil {
		t.Fatalf("StopStreaming failed: %v", err)
	}
	if _, err := s.RequestBuffers(DirOutput, 0); err != nil {
		t.Fatalf("free failed: %v", err)
	}

	// Reallocating for the new geometry must not lose the visible region.
	pf := PixFormat{FourCC: PixFmtYUV420, Width: 1920, Height: 1088}
	if err := s.SetFormat(DirOutput, &pf); err != nil {
		t.Fatalf("SetFormat failed: %v", err)
	}

	compose, err := s.GetSelection(DirOutput, SelTargetCompose)
	if err != nil {
		t.Fatalf("GetSelection failed: %v", err)
	}
	if compose.Width != 1920 || compose.Height != 1080 {
		t.Errorf("compose = %dx%d, want the stream-set 1920x1080", compose.Width, compose.Height)
	}
	if !s.dst.selectionSet {
		t.Error("stream-set crop lost its protection against format changes")
	}
}

func TestSetFormatCropTracksRequestedHeight(t *testing.T) {
	inst := newTestInstance(t)
	s := newTestSession(t, RoleDecode, inst, DefaultConfig())

	// No stream crop yet: the visible height follows the request before
	// macroblock padding.
	pf := PixFormat{FourCC: PixFmtYUV420, Width: 1280, Height: 721}
	if err := s.SetFormat(DirOutput, &pf); err != nil {
		t.Fatalf("SetFormat failed: %v", err)
	}
	if got := s.Format(DirOutput); got.Height != 736 {
		t.Errorf("coded height = %d, want 736", got.Height)
	}
	compose, err := s.GetSelection(DirOutput, SelTargetCompose)
	if err != nil {
		t.Fatalf("GetSelection failed: %v", err)
	}
	if compose.Width != 1280 || compose.Height != 721 {
		t.Errorf("compose = %dx%d, want 1280x721", compose.Width, compose.Height)
	}
}

func TestSelectionRoleGating(t *testing.T) {
	inst := newTestInstance(t)

	t.Run("encode crops on input", func(t *testing.T) {
		s := newTestSession(t, RoleEncode, inst, DefaultConfig())
		pf := PixFormat{FourCC: PixFmtYUV420, Width: 640, Height: 480}
		if err := s.SetFormat(DirInput, &pf); err != nil {
			t.Fatalf("SetFormat failed: %v", err)
		}

		got, err := s.SetSelection(DirInput, SelTargetCrop, mmal.Rect{Width: 320, Height: 240})
		if err != nil {
			t.Fatalf("SetSelection failed: %v", err)
		}
		if got.Width != 320 || got.Height != 240 {
			t.Errorf("crop = %dx%d, want 320x240", got.Width, got.Height)
		}

		// Oversized requests clamp to the coded frame.
		got, err = s.SetSelection(DirInput, SelTargetCrop, mmal.Rect{Width: 9999, Height: 9999})
		if err != nil {
			t.Fatalf("SetSelection failed: %v", err)
		}
		if got.Width != 640 || got.Height != 480 {
			t.Errorf("clamped crop = %dx%d, want 640x480", got.Width, got.Height)
		}

		_, err = s.SetSelection(DirOutput, SelTargetCompose, mmal.Rect{Width: 100, Height: 100})
		wantCode(t, err, ErrCodeNotSupported)
	})

	t.Run("decode compose is read only", func(t *testing.T) {
		s := newTestSession(t, RoleDecode, inst, DefaultConfig())
		pf := PixFormat{FourCC: PixFmtH264, Width: 1280, Height: 720}
		if err := s.SetFormat(DirInput, &pf); err != nil {
			t.Fatalf("SetFormat failed: %v", err)
		}
		got, err := s.SetSelection(DirOutput, SelTargetCompose, mmal.Rect{Width: 64, Height: 64})
		if err != nil {
			t.Fatalf("SetSelection failed: %v", err)
		}
		if got.Width != 1280 || got.Height != 720 {
			t.Errorf("compose = %dx%d, want the stream-defined 1280x720", got.Width, got.Height)
		}

		_, err = s.SetSelection(DirInput, SelTargetCrop, mmal.Rect{Width: 64, Height: 64})
		wantCode(t, err, ErrCodeNotSupported)
	})

	t.Run("bounds report the coded frame", func(t *testing.T) {
		s := newTestSession(t, RoleISP, inst, DefaultConfig())
		pf := PixFormat{FourCC: PixFmtRGB24, Width: 800, Height: 600}
		if err := s.SetFormat(DirInput, &pf); err != nil {
			t.Fatalf("SetFormat failed: %v", err)
		}
		if _, err := s.SetSelection(DirInput, SelTargetCrop, mmal.Rect{Width: 100, Height: 100}); err != nil {
			t.Fatalf("SetSelection failed: %v", err)
		}
		bounds, err := s.GetSelection(DirInput, SelTargetCropBounds)
		if err != nil {
			t.Fatalf("GetSelection failed: %v", err)
		}
		if bounds.Width != 800 || bounds.Height != 600 {
			t.Errorf("bounds = %dx%d, want 800x600", bounds.Width, bounds.Height)
		}
	})
}

func TestFrameSizes(t *testing.T) {
	inst := newTestInstance(t)

	t.Run("codec role range", func(t *testing.T) {
		s := newTestSession(t, RoleEncode, inst, DefaultConfig())
		r, err := s.FrameSizes(PixFmtYUV420)
		if err != nil {
			t.Fatalf("FrameSizes failed: %v", err)
		}
		want := FrameSizeRange{
			MinWidth: 32, MaxWidth: 1920, StepWidth: 2,
			MinHeight: 32, MaxHeight: 1920, StepHeight: 2,
		}
		if r != want {
			t.Errorf("range = %+v, want %+v", r, want)
		}
	})

	t.Run("isp role range", func(t *testing.T) {
		s := newTestSession(t, RoleISP, inst, DefaultConfig())
		r, err := s.FrameSizes(PixFmtRGB24)
		if err != nil {
			t.Fatalf("FrameSizes failed: %v", err)
		}
		if r.MaxWidth != 16384 || r.MaxHeight != 16384 {
			t.Errorf("max = %dx%d, want 16384x16384", r.MaxWidth, r.MaxHeight)
		}
	})

	t.Run("unknown format rejected", func(t *testing.T) {
		s := newTestSession(t, RoleEncode, inst, DefaultConfig())
		_, err := s.FrameSizes(0xdeadbeef)
		wantCode(t, err, ErrCodeInvalidArgument)
	})
}

func TestPixelAspect(t *testing.T) {
	inst := newTestInstance(t)
	s := newTestSession(t, RoleDecode, inst, DefaultConfig())

	par, err := s.PixelAspect(DirOutput)
	if err != nil {
		t.Fatalf("PixelAspect failed: %v", err)
	}
	if par.Num != 1 || par.Den != 1 {
		t.Errorf("default PAR = %d/%d, want 1/1", par.Num, par.Den)
	}

	_, err = s.PixelAspect(DirInput)
	wantCode(t, err, ErrCodeNotSupported)

	e := newTestSession(t, RoleEncode, inst, DefaultConfig())
	_, err = e.PixelAspect(DirOutput)
	wantCode(t, err, ErrCodeNotSupported)
}

func TestFramerate(t *testing.T) {
	inst := newTestInstance(t)
	s := newTestSession(t, RoleEncode, inst, DefaultConfig())

	fr, err := s.Framerate(DirInput)
	if err != nil {
		t.Fatalf("Framerate failed: %v", err)
	}
	if fr.Num != 30 || fr.Den != 1 {
		t.Errorf("default framerate = %d/%d, want 30/1", fr.Num, fr.Den)
	}

	if err := s.SetFramerate(DirInput, mmal.Rational{Num: 60000, Den: 1001}); err != nil {
		t.Fatalf("SetFramerate failed: %v", err)
	}
	fr, _ = s.Framerate(DirInput)
	if fr.Num != 60000 || fr.Den != 1001 {
		t.Errorf("framerate = %d/%d, want 60000/1001", fr.Num, fr.Den)
	}

	wantCode(t, s.SetFramerate(DirOutput, mmal.Rational{Num: 30, Den: 1}), ErrCodeNotSupported)
	wantCode(t, s.SetFramerate(DirInput, mmal.Rational{}), ErrCodeInvalidArgument)
	_, err = s.Framerate(DirOutput)
	wantCode(t, err, ErrCodeNotSupported)
}
