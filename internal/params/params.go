// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package params reads and writes the Parameters.txt file that drives a run.
//
// The file is line oriented: each line is trimmed, blank lines and lines
// starting with "//" are ignored, and every other line is "key: value" split
// at the first colon. Keys may repeat: each source_directory_path starts a
// new directory job, and dest_directory_path / excluded_file_name lines
// attach to the job being built.
package params

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/pdiddy/pdf-image-extractor/pkg/types"
)

// FileName is the parameters file looked up next to the executable.
const FileName = "Parameters.txt"

const (
	keyPdfImages      = "pdfimages_exe_path"
	keyReextract      = "reextract_images"
	keySource         = "source_directory_path"
	keyDest           = "dest_directory_path"
	keyExcluded       = "excluded_file_name"
	keyProfile        = "profile"
	keySmallThreshold = "small_threshold"
	keySmallImages    = "small_images"
	keyDuplicates     = "duplicates"
	keyBackend        = "backend"
	keyContainerImage = "container_image"
	keyExtraArgs      = "extra_args"
	keyCatalog        = "catalog_path"
	keyLogs           = "logs_directory"
)

var (
	ErrMissingKey   = errors.New("missing parameter")
	ErrDuplicateKey = errors.New("parameter given more than once")
	ErrInvalidValue = errors.New("invalid parameter value")
)

// singleKeys may appear at most once. The first two are required.
var singleKeys = []string{
	keyPdfImages, keyReextract, keyProfile, keySmallThreshold, keySmallImages,
	keyDuplicates, keyBackend, keyContainerImage, keyExtraArgs, keyCatalog, keyLogs,
}

var requiredKeys = []string{keyPdfImages, keyReextract}

// Line is one meaningful line of the file.
type Line struct {
	Num   int
	Key   string
	Value string
}

// Lines returns the non-comment, non-blank lines of r in order. Lines
// without a colon are returned with an empty Value and the whole text as Key.
func Lines(r io.Reader) ([]Line, error) {
	var lines []Line
	sc := bufio.NewScanner(r)
	num := 0
	for sc.Scan() {
		num++
		text := strings.TrimSpace(sc.Text())
		if num == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		if text == "" || strings.HasPrefix(text, "//") {
			continue
		}
		key, value, _ := strings.Cut(text, ":")
		lines = append(lines, Line{Num: num, Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading parameters: %w", err)
	}
	return lines, nil
}

// LogsDir returns the logs_directory value of the file at path, or "" when
// the file is missing or unreadable or does not set it. It does not validate
// the rest of the file, so it can run before Load.
func LogsDir(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	lines, err := Lines(f)
	if err != nil {
		return ""
	}
	for _, l := range lines {
		if l.Key == keyLogs {
			return l.Value
		}
	}
	return ""
}

// Parse builds a RunConfig from the parameters in r, starting from
// types.DefaultRunConfig. A profile is applied before explicit
// small_threshold and small_images values regardless of line order.
func Parse(r io.Reader) (types.RunConfig, error) {
	cfg := types.DefaultRunConfig()

	lines, err := Lines(r)
	if err != nil {
		return cfg, err
	}

	singles := make(map[string]Line)
	var (
		jobs    []types.DirectoryJob
		pending types.DirectoryJob
		started bool
	)
	for _, l := range lines {
		switch l.Key {
		case keySource:
			if started {
				jobs = append(jobs, pending)
				pending = types.DirectoryJob{}
			}
			pending.SourceDir = l.Value
			started = true
		case keyDest:
			pending.DestDir = l.Value
		case keyExcluded:
			pending.ExcludedFileNames = append(pending.ExcludedFileNames, l.Value)
		default:
			if !slices.Contains(singleKeys, l.Key) {
				continue
			}
			if prev, dup := singles[l.Key]; dup {
				return cfg, fmt.Errorf("%w: %s (lines %d and %d)", ErrDuplicateKey, l.Key, prev.Num, l.Num)
			}
			singles[l.Key] = l
		}
	}
	if started {
		jobs = append(jobs, pending)
	}
	cfg.Jobs = jobs

	for _, k := range requiredKeys {
		if _, ok := singles[k]; !ok {
			return cfg, fmt.Errorf("%w: %s", ErrMissingKey, k)
		}
	}

	cfg.PdfImagesPath = singles[keyPdfImages].Value
	if cfg.ReextractImages, err = parseBool(singles[keyReextract]); err != nil {
		return cfg, err
	}

	if l, ok := singles[keyProfile]; ok && l.Value != "" {
		if err := cfg.ApplyProfile(types.Profile(l.Value)); err != nil {
			return cfg, invalid(l, err)
		}
	}
	if l, ok := singles[keySmallThreshold]; ok && l.Value != "" {
		n, err := strconv.Atoi(l.Value)
		if err != nil || n <= 0 {
			return cfg, invalid(l, fmt.Errorf("want a positive integer"))
		}
		cfg.SmallThreshold = n
	}
	if l, ok := singles[keySmallImages]; ok && l.Value != "" {
		if cfg.SmallImages, err = types.ParsePolicy(l.Value); err != nil {
			return cfg, invalid(l, err)
		}
	}
	if l, ok := singles[keyDuplicates]; ok && l.Value != "" {
		if cfg.Duplicates, err = types.ParsePolicy(l.Value); err != nil {
			return cfg, invalid(l, err)
		}
	}
	if l, ok := singles[keyBackend]; ok && l.Value != "" {
		switch b := types.ExtractorBackend(l.Value); b {
		case types.BackendExec, types.BackendContainer:
			cfg.Backend = b
		default:
			return cfg, invalid(l, fmt.Errorf("use exec or container"))
		}
	}
	if l, ok := singles[keyContainerImage]; ok && l.Value != "" {
		cfg.ContainerImage = l.Value
	}
	if l, ok := singles[keyExtraArgs]; ok {
		cfg.ExtraArgs = strings.Fields(l.Value)
	}
	if l, ok := singles[keyCatalog]; ok {
		cfg.CatalogPath = l.Value
	}
	if l, ok := singles[keyLogs]; ok && l.Value != "" {
		cfg.LogsDir = l.Value
	}

	return cfg, nil
}

// Load parses the parameters file at path.
func Load(path string) (types.RunConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.RunConfig{}, fmt.Errorf("opening parameters file: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Template is written when no parameters file exists yet.
var Template = []string{
	keyPdfImages + ": ",
	keyReextract + ": false",
	"",
	"// Optional settings",
	"// " + keyProfile + ": default",
	"// " + keySmallThreshold + ": 250",
	"// " + keySmallImages + ": archive",
	"// " + keyDuplicates + ": keep",
	"// " + keyBackend + ": exec",
	"// " + keyCatalog + ": ",
	"",
	"// Directory #1",
	keySource + ": ",
	keyDest + ": ",
	keyExcluded + ": ",
	"",
	"// Directory #2",
	keySource + ": ",
	keyDest + ": ",
}

// WriteTemplate writes Template to path. It refuses to replace an existing
// file unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("creating parameters file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range Template {
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing parameters file: %w", err)
	}
	return nil
}

func parseBool(l Line) (bool, error) {
	b, err := strconv.ParseBool(strings.ToLower(l.Value))
	if err != nil {
		return false, invalid(l, fmt.Errorf("want true or false"))
	}
	return b, nil
}

func invalid(l Line, err error) error {
	return fmt.Errorf("%w: line %d: %s %q: %w", ErrInvalidValue, l.Num, l.Key, l.Value, err)
}
