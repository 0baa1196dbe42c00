// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package decode

import (
	"bufio"
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf-image-extractor/internal/classify"
)

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func fill(img interface {
	Set(x, y int, c color.Color)
	Bounds() image.Rectangle
}, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "a.png", image.NewRGBA(image.Rect(0, 0, 320, 40)))

	h, err := Probe(path)
	require.NoError(t, err)
	assert.Equal(t, Header{Width: 320, Height: 40, Format: "png"}, h)
}

func TestProbe_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.ppm")
	require.NoError(t, os.WriteFile(path, []byte("definitely not pixels"), 0o644))

	_, err := Probe(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestOpen_Layouts(t *testing.T) {
	dir := t.TempDir()

	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	rgba := image.NewRGBA(image.Rect(0, 0, 8, 8))
	fill(rgba, color.RGBA{R: 255, A: 255})
	bilevel := image.NewPaletted(image.Rect(0, 0, 8, 8), color.Palette{color.Black, color.White})
	grayPal := image.NewPaletted(image.Rect(0, 0, 8, 8), color.Palette{color.Black, color.Gray{Y: 128}, color.White})
	colorPal := image.NewPaletted(image.Rect(0, 0, 8, 8), color.Palette{color.Black, color.RGBA{B: 255, A: 255}})

	tests := []struct {
		name     string
		img      image.Image
		wantType classify.ColorType
		wantCh   int
	}{
		{name: "gray", img: gray, wantType: classify.ColorGrayscale, wantCh: 1},
		{name: "rgba", img: rgba, wantType: classify.ColorTrueColorAlpha, wantCh: 4},
		{name: "bilevel palette", img: bilevel, wantType: classify.ColorBilevel, wantCh: 1},
		{name: "gray palette", img: grayPal, wantType: classify.ColorGrayscale, wantCh: 1},
		{name: "colour palette", img: colorPal, wantType: classify.ColorPalette, wantCh: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePNG(t, dir, tt.name+".png", tt.img)
			s, err := Open(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, s.ColorType())
			assert.Equal(t, tt.wantCh, s.Channels())
			assert.Equal(t, 8, s.Width())
			assert.Equal(t, 8, s.Height())
			assert.Equal(t, "png", s.Format())
		})
	}
}

func TestOpen_JPEG(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	fill(img, color.RGBA{R: 200, G: 40, B: 40, A: 255})

	path := filepath.Join(dir, "img.jpg")
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", s.Format())
	assert.Equal(t, classify.ColorTrueColor, s.ColorType())
	assert.Equal(t, 3, s.Channels())

	r, g, b := s.RGB(3, 3)
	assert.Greater(t, int(r), int(g))
	assert.Greater(t, int(r), int(b))
}

func TestOpen_PPM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp-000.ppm")
	data := append([]byte("P6\n2 1\n255\n"), 255, 0, 0, 7, 7, 7)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Width())
	assert.Equal(t, 1, s.Height())

	r, g, b := s.RGB(0, 0)
	assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b})
	r, g, b = s.RGB(1, 0)
	assert.Equal(t, [3]uint8{7, 7, 7}, [3]uint8{r, g, b})
}

func TestOpen_NetpbmLayouts(t *testing.T) {
	dir := t.TempDir()
	raw := func(header string, pix ...byte) []byte { return append([]byte(header), pix...) }

	tests := []struct {
		name       string
		file       string
		data       []byte
		wantFormat string
		wantType   classify.ColorType
		wantCh     int
	}{
		{name: "pgm", file: "temp-000.pgm", data: raw("P5\n2 2\n255\n", 0, 80, 160, 255),
			wantFormat: "pgm", wantType: classify.ColorGrayscale, wantCh: 1},
		{name: "pgm 16-bit", file: "temp-001.pgm", data: raw("P5\n2 1\n65535\n", 0x12, 0x34, 0xff, 0xff),
			wantFormat: "pgm", wantType: classify.ColorGrayscale, wantCh: 1},
		{name: "pbm", file: "temp-002.pbm", data: raw("P4\n8 2\n", 0xf0, 0x0f),
			wantFormat: "pbm", wantType: classify.ColorBilevel, wantCh: 1},
		{name: "pam gray", file: "temp-003.pam",
			data:       raw("P7\nWIDTH 2\nHEIGHT 1\nDEPTH 1\nMAXVAL 255\nTUPLTYPE GRAYSCALE\nENDHDR\n", 10, 200),
			wantFormat: "pam", wantType: classify.ColorGrayscale, wantCh: 1},
		{name: "pam gray alpha", file: "temp-004.pam",
			data:       raw("P7\nWIDTH 2\nHEIGHT 1\nDEPTH 2\nMAXVAL 255\nTUPLTYPE GRAYSCALE_ALPHA\nENDHDR\n", 10, 255, 200, 128),
			wantFormat: "pam", wantType: classify.ColorGrayscaleAlpha, wantCh: 2},
		{name: "ppm", file: "temp-005.ppm", data: raw("P6\n1 1\n255\n", 1, 2, 3),
			wantFormat: "ppm", wantType: classify.ColorTrueColor, wantCh: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, tt.data, 0o644))

			s, err := Open(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, s.Format())
			assert.Equal(t, tt.wantType, s.ColorType())
			assert.Equal(t, tt.wantCh, s.Channels())
		})
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestSample_OffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 20, 12, 22))
	img.Set(10, 20, color.RGBA{G: 255, A: 255})

	s := FromImage(img)
	assert.Equal(t, 2, s.Width())
	r, g, b := s.RGB(0, 0)
	assert.Equal(t, [3]uint8{0, 255, 0}, [3]uint8{r, g, b})
}

func TestSample_TranslucentGrayStaysGray(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{R: 120, G: 120, B: 120, A: 30})

	r, g, b := FromImage(img).RGB(0, 0)
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}

func TestPNGColorType(t *testing.T) {
	header := func(colorType byte) *bufio.Reader {
		h := append([]byte{}, pngSignature...)
		h = append(h, 0, 0, 0, 13)
		h = append(h, "IHDR"...)
		h = append(h, 0, 0, 1, 0, 0, 0, 1, 0, 8, colorType, 0, 0, 0)
		return bufio.NewReader(bytes.NewReader(h))
	}

	ct, ok := pngColorType(header(pngGrayAlpha))
	assert.True(t, ok)
	assert.Equal(t, byte(pngGrayAlpha), ct)

	_, ok = pngColorType(bufio.NewReader(bytes.NewReader([]byte("P6\n1 1\n255\n"))))
	assert.False(t, ok)
}

func TestClassifyDecodedImages(t *testing.T) {
	dir := t.TempDir()

	colour := image.NewRGBA(image.Rect(0, 0, 300, 300))
	fill(colour, color.RGBA{R: 10, G: 120, B: 250, A: 255})
	grayish := image.NewRGBA(image.Rect(0, 0, 300, 300))
	fill(grayish, color.RGBA{R: 80, G: 80, B: 80, A: 255})

	c := classify.New(250)

	s, err := Open(writePNG(t, dir, "colour.png", colour))
	require.NoError(t, err)
	assert.Equal(t, "color", string(c.Classify(s)))

	s, err = Open(writePNG(t, dir, "gray.png", grayish))
	require.NoError(t, err)
	assert.Equal(t, "grayscale", string(c.Classify(s)))
}
