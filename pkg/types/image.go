// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ImageCategory is the classification of an extracted image. The three
// values are mutually exclusive.
type ImageCategory string

const (
	CategorySmall     ImageCategory = "small"
	CategoryGrayscale ImageCategory = "grayscale"
	CategoryColor     ImageCategory = "color"
)

// ImageRecord describes one image the sorter has placed. It is the row
// format of the catalog and of its YAML/JSON exports.
type ImageRecord struct {
	ID    int64  `json:"id" yaml:"id"`
	RunID string `json:"run_id" yaml:"run_id"`

	// PDF is the file name of the source PDF.
	PDF string `json:"pdf" yaml:"pdf"`

	// Name is the image file name after the "temp-" prefix was removed.
	Name string `json:"name" yaml:"name"`

	// Path is where the image ended up. Empty when it was deleted.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	Category ImageCategory `json:"category" yaml:"category"`
	Width    int           `json:"width" yaml:"width"`
	Height   int           `json:"height" yaml:"height"`
	Size     int64         `json:"size" yaml:"size"`

	// Digest is the content hash, set when duplicate checking is on.
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`

	// PerceptualHash is a goimagehash string ("p:..."), set for decoded images.
	PerceptualHash string `json:"perceptual_hash,omitempty" yaml:"perceptual_hash,omitempty"`

	// DominantColor is a "#rrggbb" value, set for colour images.
	DominantColor string `json:"dominant_color,omitempty" yaml:"dominant_color,omitempty"`

	Duplicate bool      `json:"duplicate" yaml:"duplicate"`
	Deleted   bool      `json:"deleted" yaml:"deleted"`
	SortedAt  time.Time `json:"sorted_at" yaml:"sorted_at"`
}

// ImageCounts tallies sorting outcomes.
type ImageCounts struct {
	Small      int `json:"small" yaml:"small"`
	Grayscale  int `json:"grayscale" yaml:"grayscale"`
	Color      int `json:"color" yaml:"color"`
	Duplicates int `json:"duplicates" yaml:"duplicates"`
	Failed     int `json:"failed" yaml:"failed"`
}

// Total returns the number of images seen.
func (c ImageCounts) Total() int {
	return c.Small + c.Grayscale + c.Color + c.Duplicates + c.Failed
}

// Add accumulates o into c.
func (c *ImageCounts) Add(o ImageCounts) {
	c.Small += o.Small
	c.Grayscale += o.Grayscale
	c.Color += o.Color
	c.Duplicates += o.Duplicates
	c.Failed += o.Failed
}
