// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// ImagePolicy decides what happens to an image that falls into a category
// the run does not keep alongside the colour images (small images, duplicates).
type ImagePolicy string

const (
	// PolicyKeep leaves the image next to the colour images.
	PolicyKeep ImagePolicy = "keep"
	// PolicyArchive moves the image into a category subfolder.
	PolicyArchive ImagePolicy = "archive"
	// PolicyDelete removes the image from disk.
	PolicyDelete ImagePolicy = "delete"
)

// ParsePolicy validates s as an ImagePolicy.
func ParsePolicy(s string) (ImagePolicy, error) {
	switch p := ImagePolicy(s); p {
	case PolicyKeep, PolicyArchive, PolicyDelete:
		return p, nil
	}
	return "", fmt.Errorf("unknown image policy %q: use keep, archive, or delete", s)
}

// ExtractorBackend selects how the pdfimages tool is started.
type ExtractorBackend string

const (
	BackendExec      ExtractorBackend = "exec"
	BackendContainer ExtractorBackend = "container"
)

// Profile names a preset of size threshold and small-image policy.
type Profile string

const (
	// ProfileDefault archives images under 250x250 into Small/.
	ProfileDefault Profile = "default"
	// ProfileCompact deletes images under 100x100.
	ProfileCompact Profile = "compact"
)

const (
	DefaultSmallThreshold = 250
	CompactSmallThreshold = 100
	DefaultContainerImage = "minidocks/poppler:latest"
	DefaultLogsDir        = "Logs"
)

// DirectoryJob is one source/destination pair from the parameters file.
type DirectoryJob struct {
	// SourceDir holds the PDFs. Only its top level is scanned.
	SourceDir string `json:"source_dir" yaml:"source_dir" mapstructure:"source_dir"`

	// DestDir receives one subdirectory per PDF. Must be absolute.
	DestDir string `json:"dest_dir" yaml:"dest_dir" mapstructure:"dest_dir"`

	// ExcludedFileNames lists PDF file names (case-insensitive) to skip.
	ExcludedFileNames []string `json:"excluded_file_names,omitempty" yaml:"excluded_file_names,omitempty" mapstructure:"excluded_file_names"`
}

// RunConfig holds everything a single run needs. It is built once at
// startup from the parameters file and CLI/env overrides.
type RunConfig struct {
	// PdfImagesPath is the pdfimages executable (exec backend) or the
	// command name inside the container (container backend).
	PdfImagesPath string `json:"pdfimages_path" yaml:"pdfimages_path" mapstructure:"pdfimages_path"`

	// ReextractImages deletes existing destination directories first.
	ReextractImages bool `json:"reextract_images" yaml:"reextract_images" mapstructure:"reextract_images"`

	// SmallThreshold is the pixel size below which (in both dimensions)
	// an image counts as small.
	SmallThreshold int `json:"small_threshold" yaml:"small_threshold" mapstructure:"small_threshold"`

	// SmallImages selects archive (Small/), delete, or keep.
	SmallImages ImagePolicy `json:"small_images" yaml:"small_images" mapstructure:"small_images"`

	// Duplicates selects keep (no duplicate check), archive (Duplicates/), or delete.
	Duplicates ImagePolicy `json:"duplicates" yaml:"duplicates" mapstructure:"duplicates"`

	Backend        ExtractorBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
	ContainerImage string           `json:"container_image,omitempty" yaml:"container_image,omitempty" mapstructure:"container_image"`

	// ExtraArgs are passed to pdfimages before the input file.
	ExtraArgs []string `json:"extra_args,omitempty" yaml:"extra_args,omitempty" mapstructure:"extra_args"`

	LogsDir     string `json:"logs_dir" yaml:"logs_dir" mapstructure:"logs_dir"`
	CatalogPath string `json:"catalog_path,omitempty" yaml:"catalog_path,omitempty" mapstructure:"catalog_path"`

	Jobs []DirectoryJob `json:"jobs" yaml:"jobs" mapstructure:"jobs"`
}

// DefaultRunConfig returns the settings used when nothing overrides them.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		SmallThreshold: DefaultSmallThreshold,
		SmallImages:    PolicyArchive,
		Duplicates:     PolicyKeep,
		Backend:        BackendExec,
		ContainerImage: DefaultContainerImage,
		LogsDir:        DefaultLogsDir,
	}
}

// ApplyProfile overwrites the threshold and small-image policy with the
// values of the named profile.
func (c *RunConfig) ApplyProfile(p Profile) error {
	switch p {
	case ProfileDefault, "":
		c.SmallThreshold = DefaultSmallThreshold
		c.SmallImages = PolicyArchive
	case ProfileCompact:
		c.SmallThreshold = CompactSmallThreshold
		c.SmallImages = PolicyDelete
	default:
		return fmt.Errorf("unknown profile %q: use default or compact", p)
	}
	return nil
}
