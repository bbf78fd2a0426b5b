// Package imaging normalizes uploaded pictures into the RGB pixel grid the
// recognition pipeline works on.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyImage   = errors.New("image data is empty")
	ErrDecodeImage  = errors.New("cannot decode image")
	ErrInvalidShape = errors.New("image must be height x width x 3")
)

// Image is an 8-bit RGB pixel grid stored row-major, three bytes per pixel.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a black image.
func New(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// Validate reports whether the pixel buffer matches the declared shape.
func (m *Image) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidShape)
	}
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidShape, m.Width, m.Height)
	}
	if len(m.Pix) != m.Width*m.Height*3 {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrInvalidShape, len(m.Pix), m.Width, m.Height)
	}
	return nil
}

// RGB returns the channel values at (x, y).
func (m *Image) RGB(x, y int) (r, g, b uint8) {
	i := (y*m.Width + x) * 3
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// SetRGB writes the channel values at (x, y).
func (m *Image) SetRGB(x, y int, r, g, b uint8) {
	i := (y*m.Width + x) * 3
	m.Pix[i], m.Pix[i+1], m.Pix[i+2] = r, g, b
}

// ColorModel, Bounds and At make Image usable wherever an image.Image is
// expected, e.g. jpeg.Encode.
func (m *Image) ColorModel() color.Model { return color.RGBAModel }

func (m *Image) Bounds() image.Rectangle { return image.Rect(0, 0, m.Width, m.Height) }

func (m *Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(m.Bounds())) {
		return color.RGBA{}
	}
	r, g, b := m.RGB(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// FromImage converts any decoded image to RGB. Alpha is dropped the way a
// plain RGB conversion drops it: premultiplied channels are taken as-is.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	out := New(b.Dx(), b.Dy())

	switch s := src.(type) {
	case *Image:
		copy(out.Pix, s.Pix)
		return out
	case *image.RGBA:
		for y := 0; y < out.Height; y++ {
			row := s.Pix[s.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < out.Width; x++ {
				out.SetRGB(x, y, row[x*4], row[x*4+1], row[x*4+2])
			}
		}
		return out
	}

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			c := color.RGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			out.SetRGB(x, y, c.R, c.G, c.B)
		}
	}
	return out
}

// ToRGBA copies the image into an *image.RGBA with opaque alpha.
func (m *Image) ToRGBA() *image.RGBA {
	dst := image.NewRGBA(m.Bounds())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			r, g, b := m.RGB(x, y)
			o := dst.PixOffset(x, y)
			dst.Pix[o], dst.Pix[o+1], dst.Pix[o+2], dst.Pix[o+3] = r, g, b, 0xff
		}
	}
	return dst
}

// Decode parses an encoded picture (JPEG, PNG, GIF, WebP, BMP) into RGB.
func Decode(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}

	out := FromImage(img)
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeBase64 decodes a base64 payload, optionally carrying a data URL
// prefix such as "data:image/jpeg;base64,".
func DecodeBase64(payload string) (*Image, error) {
	if i := strings.IndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrEmptyImage
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrDecodeImage, err)
	}
	return Decode(data)
}

// EncodeJPEG serializes the image for backends that only accept encoded
// pictures.
func (m *Image) EncodeJPEG(quality int) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, m, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
