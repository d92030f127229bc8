// Package imagecodec converts between in-memory images and the transport
// encodings the storyboard pipeline hands to model backends.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"strings"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// DataURIPrefix is prepended to base64 PNG payloads.
const DataURIPrefix = "data:image/png;base64,"

// DecodeError reports image bytes that could not be decoded.
type DecodeError struct {
	Size int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image (%d bytes): %v", e.Size, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Normalize converts img to an opaque 3-channel RGB image. The returned
// image never aliases the input's pixel buffer.
func Normalize(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}

// Clone returns a normalized copy of img, or nil when img is nil. It takes
// the concrete type so an empty slot never reaches Normalize as a non-nil
// interface.
func Clone(img *image.RGBA) *image.RGBA {
	if img == nil {
		return nil
	}
	return Normalize(img)
}

// EncodePNG serializes img losslessly.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode returns img as a "data:image/png;base64,<payload>" URI.
func Encode(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// Decode turns raw image bytes (PNG, JPEG, GIF, WebP, BMP or TIFF) into a
// normalized RGB image.
func Decode(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("empty payload")}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Size: len(data), Err: err}
	}
	return Normalize(img), nil
}

// DecodeDataURI is the inverse of Encode. Any base64 data URI with an image
// payload is accepted.
func DecodeDataURI(uri string) (*image.RGBA, error) {
	comma := strings.Index(uri, ",")
	if !strings.HasPrefix(uri, "data:") || comma < 0 || !strings.Contains(uri[:comma], ";base64") {
		return nil, &DecodeError{Size: len(uri), Err: fmt.Errorf("not a base64 data URI")}
	}
	data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, &DecodeError{Size: len(uri), Err: err}
	}
	return Decode(data)
}

// Fit scales img down so that its longer edge is at most maxDim pixels,
// preserving aspect ratio. Images already within bounds are returned as is.
func Fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}

	var newW, newH int
	if w >= h {
		newW = maxDim
		newH = h * maxDim / w
	} else {
		newH = maxDim
		newW = w * maxDim / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
