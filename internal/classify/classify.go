// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify sorts decoded images into small, grayscale, and colour
// categories from their geometry and a sampled scan of their pixels.
package classify

import (
	"iter"

	"github.com/pdiddy/pdf-image-extractor/pkg/types"
)

const (
	// minSampled is the number of pixels that must be checked before the
	// scan may stop early with a colour verdict.
	minSampled = 100
	// ratioDivisor makes the early exit fire at roughly 3% colourful
	// pixels: colourful*33 >= checked.
	ratioDivisor = 33
)

// ColorType is the colour layout an image declares in its header.
type ColorType int

const (
	ColorUnknown ColorType = iota
	ColorBilevel
	ColorGrayscale
	ColorGrayscaleAlpha
	ColorPalette
	ColorTrueColor
	ColorTrueColorAlpha
	ColorCMYK
)

var colorTypeNames = [...]string{
	ColorUnknown:        "unknown",
	ColorBilevel:        "bilevel",
	ColorGrayscale:      "grayscale",
	ColorGrayscaleAlpha: "grayscale-alpha",
	ColorPalette:        "palette",
	ColorTrueColor:      "truecolor",
	ColorTrueColorAlpha: "truecolor-alpha",
	ColorCMYK:           "cmyk",
}

func (c ColorType) String() string {
	if c < 0 || int(c) >= len(colorTypeNames) {
		return "unknown"
	}
	return colorTypeNames[c]
}

// IsGray reports whether the colour type can only hold gray pixels.
func (c ColorType) IsGray() bool {
	return c == ColorBilevel || c == ColorGrayscale || c == ColorGrayscaleAlpha
}

// Sample is the view of a decoded image the classifier works on.
type Sample interface {
	Width() int
	Height() int
	Channels() int
	ColorType() ColorType
	// RGB returns the 8-bit red, green and blue components at (x, y).
	RGB(x, y int) (r, g, b uint8)
}

// Pixel is one sampled RGB triple.
type Pixel struct {
	R, G, B uint8
}

// Colorful reports whether the three components are not all equal.
func (p Pixel) Colorful() bool {
	return p.R != p.G || p.G != p.B
}

// Pixels yields the pixels of s column by column (x outer, y inner). Nothing
// is materialized; breaking out of the range stops the scan.
func Pixels(s Sample) iter.Seq[Pixel] {
	return func(yield func(Pixel) bool) {
		w, h := s.Width(), s.Height()
		for x := 0; x < w; x++ {
			for y := 0; y < h; y++ {
				r, g, b := s.RGB(x, y)
				if !yield(Pixel{R: r, G: g, B: b}) {
					return
				}
			}
		}
	}
}

// Classifier holds the size threshold. The zero value treats no image as small.
type Classifier struct {
	// SmallThreshold is exclusive: an image is small when both its width
	// and height are below it.
	SmallThreshold int
}

// New returns a Classifier with the given small-image threshold.
func New(smallThreshold int) Classifier {
	return Classifier{SmallThreshold: smallThreshold}
}

// IsSmall applies the size gate on its own, for callers that only have
// header geometry.
func (c Classifier) IsSmall(width, height int) bool {
	return width < c.SmallThreshold && height < c.SmallThreshold
}

// Classify returns the category of s. The size gate runs first, then the
// declared colour layout, then the pixel scan.
//
// Images with fewer than 100 pixels never reach the early exit and so come
// out grayscale even when colourful. With the usual thresholds they are
// already small.
func (c Classifier) Classify(s Sample) types.ImageCategory {
	if c.IsSmall(s.Width(), s.Height()) {
		return types.CategorySmall
	}
	if IsColorful(s) {
		return types.CategoryColor
	}
	return types.CategoryGrayscale
}

// IsColorful reports whether at least roughly 3% of the scanned pixels of s
// are colourful. Gray colour types and images with fewer than three channels
// are never colourful and are not scanned.
func IsColorful(s Sample) bool {
	if s.ColorType().IsGray() || s.Channels() < 3 {
		return false
	}

	checked, colorful := 0, 0
	for p := range Pixels(s) {
		checked++
		if p.Colorful() {
			colorful++
		}
		if checked >= minSampled && colorful*ratioDivisor >= checked {
			return true
		}
	}
	return false
}
