package imagecodec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
)

func testImage(w, h int, alpha uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: alpha})
		}
	}
	return img
}

func TestNormalize(t *testing.T) {
	src := testImage(4, 3, 128)
	got := Normalize(src)

	if got.Bounds().Dx() != 4 || got.Bounds().Dy() != 3 {
		t.Fatalf("bounds = %v, want 4x3", got.Bounds())
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			c := got.RGBAAt(x, y)
			if c.A != 0xff {
				t.Fatalf("pixel (%d,%d) alpha = %d, want 255", x, y, c.A)
			}
			if c.R != uint8(x) || c.G != uint8(y) || c.B != 200 {
				t.Errorf("pixel (%d,%d) = %v, want colour channels preserved", x, y, c)
			}
		}
	}

	// Mutating the copy must not affect the source.
	got.SetRGBA(0, 0, color.RGBA{A: 0xff})
	if src.NRGBAAt(0, 0).B != 200 {
		t.Error("Normalize aliased the source buffer")
	}
}

func TestNormalizeOffsetBounds(t *testing.T) {
	src := testImage(10, 10, 255).SubImage(image.Rect(2, 3, 6, 8))
	got := Normalize(src)
	if got.Bounds().Min != (image.Point{}) {
		t.Errorf("Min = %v, want origin", got.Bounds().Min)
	}
	if got.Bounds().Dx() != 4 || got.Bounds().Dy() != 5 {
		t.Errorf("bounds = %v, want 4x5", got.Bounds())
	}
	if c := got.RGBAAt(0, 0); c.R != 2 || c.G != 3 {
		t.Errorf("origin pixel = %v, want R=2 G=3", c)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := Normalize(testImage(16, 8, 255))

	uri, err := Encode(src)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(uri, DataURIPrefix) {
		t.Fatalf("Encode() = %q..., want data URI prefix", uri[:30])
	}

	again, err := Encode(src)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if again != uri {
		t.Error("Encode is not deterministic")
	}

	got, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("DecodeDataURI: %v", err)
	}
	if !bytes.Equal(got.Pix, src.Pix) {
		t.Error("round trip changed pixel data")
	}
}

func TestDecodeJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(20, 10, 255), nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Errorf("bounds = %v, want 20x10", img.Bounds())
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("definitely not an image")},
		{"truncated png header", []byte("\x89PNG\r\n\x1a\n\x00\x00")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("Decode() error = %v, want *DecodeError", err)
			}
		})
	}
}

func TestDecodeDataURIRejectsNonURI(t *testing.T) {
	for _, in := range []string{"https://example.com/a.png", "data:image/png,raw", "data:image/png;base64,!!!"} {
		var decErr *DecodeError
		if _, err := DecodeDataURI(in); !errors.As(err, &decErr) {
			t.Errorf("DecodeDataURI(%q) error = %v, want *DecodeError", in, err)
		}
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name         string
		w, h, maxDim int
		wantW, wantH int
	}{
		{"within bounds", 100, 50, 200, 100, 50},
		{"landscape", 400, 200, 100, 100, 50},
		{"portrait", 200, 400, 100, 50, 100},
		{"disabled", 400, 200, 0, 400, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fit(testImage(tt.w, tt.h, 255), tt.maxDim)
			if got.Bounds().Dx() != tt.wantW || got.Bounds().Dy() != tt.wantH {
				t.Errorf("Fit() = %dx%d, want %dx%d", got.Bounds().Dx(), got.Bounds().Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestExtractMetadataWithoutEXIF(t *testing.T) {
	data, err := EncodePNG(testImage(4, 4, 255))
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	meta, err := ExtractMetadata(data)
	if err == nil && (meta.HasGPS || meta.HasDate) {
		t.Errorf("ExtractMetadata() = %+v, want no GPS or date for a bare PNG", meta)
	}
}

func TestClone(t *testing.T) {
	var empty *image.RGBA
	if got := Clone(empty); got != nil {
		t.Errorf("Clone(nil) = %v, want nil", got.Bounds())
	}

	src := Normalize(testImage(2, 2, 255))
	got := Clone(src)
	if got == src || &got.Pix[0] == &src.Pix[0] {
		t.Fatal("Clone() aliases its input")
	}
	if !bytes.Equal(got.Pix, src.Pix) {
		t.Error("Clone() changed pixel values")
	}
}
