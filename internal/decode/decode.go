// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package decode opens image files written by pdfimages and adapts them for
// the classifier. JPEG, PNG, GIF, TIFF, BMP, WebP and the netpbm family
// (PBM/PGM/PPM/PAM) are recognized.
package decode

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	_ "github.com/spakin/netpbm"
	"github.com/spakin/netpbm/npcolor"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pdiddy/pdf-image-extractor/internal/classify"
)

// ErrDecode marks a file that could not be read as an image.
var ErrDecode = errors.New("decoding image")

// Header is the geometry of an image read without decoding its pixels.
type Header struct {
	Width  int
	Height int
	Format string
}

// Probe reads only the header of the image at path.
func Probe(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("%w %s: %w", ErrDecode, path, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Header{}, fmt.Errorf("%w %s: %w", ErrDecode, path, err)
	}
	return Header{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Open decodes the image at path. The file is closed before Open returns.
func Open(path string) (*Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	pngType, isPNG := pngColorType(br)

	img, format, err := image.Decode(br)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, path, err)
	}

	s := FromImage(img)
	s.format = format
	if isPNG && pngType == pngGrayAlpha {
		// image/png widens gray+alpha to NRGBA; keep the declared layout.
		s.colorType, s.channels = classify.ColorGrayscaleAlpha, 2
	}
	slog.Debug("decode: opened", "path", path, "format", format,
		"width", s.Width(), "height", s.Height(), "layout", s.colorType.String(), "channels", s.channels)
	return s, nil
}

// Sample adapts an image.Image to classify.Sample.
type Sample struct {
	img       image.Image
	format    string
	colorType classify.ColorType
	channels  int
}

// FromImage wraps img, deriving its colour layout from its colour model.
func FromImage(img image.Image) *Sample {
	ct, ch := layout(img.ColorModel())
	return &Sample{img: img, colorType: ct, channels: ch}
}

func (s *Sample) Width() int                    { return s.img.Bounds().Dx() }
func (s *Sample) Height() int                   { return s.img.Bounds().Dy() }
func (s *Sample) Channels() int                 { return s.channels }
func (s *Sample) ColorType() classify.ColorType { return s.colorType }

// Format is the name the decoder registered under ("png", "jpeg", "ppm", ...).
func (s *Sample) Format() string { return s.format }

// Image returns the decoded image.
func (s *Sample) Image() image.Image { return s.img }

// RGB returns non-premultiplied 8-bit components so that translucent gray
// pixels stay gray.
func (s *Sample) RGB(x, y int) (r, g, b uint8) {
	o := s.img.Bounds().Min
	c := color.NRGBAModel.Convert(s.img.At(o.X+x, o.Y+y)).(color.NRGBA)
	return c.R, c.G, c.B
}

func layout(m color.Model) (classify.ColorType, int) {
	if p, ok := m.(color.Palette); ok {
		return paletteLayout(p)
	}
	// netpbm models carry their maxval, so match on type.
	switch m.(type) {
	case npcolor.GrayMModel, npcolor.GrayM32Model:
		return classify.ColorGrayscale, 1
	case npcolor.GrayAMModel, npcolor.GrayAM48Model:
		return classify.ColorGrayscaleAlpha, 2
	case npcolor.RGBAMModel, npcolor.RGBAM64Model:
		return classify.ColorTrueColorAlpha, 4
	}
	switch m {
	case color.GrayModel, color.Gray16Model, color.AlphaModel, color.Alpha16Model:
		return classify.ColorGrayscale, 1
	case color.YCbCrModel:
		return classify.ColorTrueColor, 3
	case color.NYCbCrAModel, color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model:
		return classify.ColorTrueColorAlpha, 4
	case color.CMYKModel:
		return classify.ColorCMYK, 4
	}
	return classify.ColorTrueColor, 3
}

func paletteLayout(p color.Palette) (classify.ColorType, int) {
	for _, c := range p {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		if n.R != n.G || n.G != n.B {
			return classify.ColorPalette, 3
		}
	}
	if len(p) <= 2 {
		return classify.ColorBilevel, 1
	}
	return classify.ColorGrayscale, 1
}

const pngGrayAlpha = 4

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// pngColorType peeks at the IHDR chunk without consuming input.
func pngColorType(br *bufio.Reader) (byte, bool) {
	head, err := br.Peek(26)
	if err != nil || !bytes.Equal(head[:8], pngSignature) || string(head[12:16]) != "IHDR" {
		return 0, false
	}
	return head[25], true
}
