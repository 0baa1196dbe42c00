// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sorter runs the extraction jobs: for every PDF in a job's source
// directory it dumps the embedded images and sorts them into color,
// Grayscale/, Small/ and Duplicates/ by size, content, and colorfulness.
package sorter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/pdf-image-extractor/internal/catalog"
	"github.com/pdiddy/pdf-image-extractor/internal/classify"
	"github.com/pdiddy/pdf-image-extractor/internal/decode"
	"github.com/pdiddy/pdf-image-extractor/internal/dupfind"
	"github.com/pdiddy/pdf-image-extractor/internal/pdfimages"
	"github.com/pdiddy/pdf-image-extractor/pkg/types"
)

const (
	smallDir      = "Small"
	grayscaleDir  = "Grayscale"
	duplicatesDir = "Duplicates"

	// tempPrefix is the file name prefix handed to pdfimages. It is
	// stripped from every image name once the image is sorted.
	tempPrefix = "temp"
)

// Recorder stores the outcome of each sorted image. *catalog.Store
// implements it.
type Recorder interface {
	Record(ctx context.Context, rec types.ImageRecord) (int64, error)
}

// Sorter holds the collaborators of one run.
type Sorter struct {
	cfg        types.RunConfig
	extractor  pdfimages.Extractor
	classifier classify.Classifier
	dups       *dupfind.Finder

	recorder Recorder
	runID    string

	out    io.Writer
	errOut io.Writer
	now    func() time.Time
}

// New returns a Sorter. dups may be nil when cfg.Duplicates is keep.
// Progress goes to out and failures to errOut.
func New(cfg types.RunConfig, ex pdfimages.Extractor, dups *dupfind.Finder, out, errOut io.Writer) *Sorter {
	if dups == nil {
		dups = dupfind.New()
	}
	return &Sorter{
		cfg:        cfg,
		extractor:  ex,
		classifier: classify.New(cfg.SmallThreshold),
		dups:       dups,
		out:        out,
		errOut:     errOut,
		now:        time.Now,
	}
}

// WithRecorder makes the Sorter record every image under runID.
func (s *Sorter) WithRecorder(r Recorder, runID string) *Sorter {
	s.recorder = r
	s.runID = runID
	return s
}

// PDFResult counts what happened to the images of one PDF.
type PDFResult struct {
	PDF string
	// Extracted is the number of files pdfimages left in the subdirectory.
	Extracted int
	// ExtractFailed is set when the tool exited with an error. Whatever it
	// wrote before failing is still sorted.
	ExtractFailed bool

	types.ImageCounts
}

// JobResult holds the outcome of one directory job.
type JobResult struct {
	Job types.DirectoryJob
	// Invalid is set when the job failed validation and nothing ran.
	Invalid bool

	Processed int
	Skipped   int
	Excluded  int
	Failed    int

	Images types.ImageCounts
}

// HasFailures reports whether the job was rejected, or any PDF or image
// failed.
func (r JobResult) HasFailures() bool {
	return r.Invalid || r.Failed > 0 || r.Images.Failed > 0
}

// RunResult aggregates all jobs of a run.
type RunResult struct {
	Jobs   []JobResult
	PDFs   int
	Images types.ImageCounts
}

// HasFailures reports whether any job had failures.
func (r RunResult) HasFailures() bool {
	for _, j := range r.Jobs {
		if j.HasFailures() {
			return true
		}
	}
	return false
}

// RunAll executes every job of the configuration in order. It only returns
// an error when ctx is cancelled; job failures are reported in the result.
func (s *Sorter) RunAll(ctx context.Context) (RunResult, error) {
	var result RunResult
	for _, job := range s.cfg.Jobs {
		jr, err := s.RunJob(ctx, job)
		result.Jobs = append(result.Jobs, jr)
		result.PDFs += jr.Processed
		result.Images.Add(jr.Images)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// RunJob validates job, prepares its destination, and extracts and sorts
// every PDF at the top level of the source directory.
func (s *Sorter) RunJob(ctx context.Context, job types.DirectoryJob) (JobResult, error) {
	result := JobResult{Job: job}

	if msg := validateJob(job); msg != "" {
		fmt.Fprintln(s.out, msg)
		result.Invalid = true
		return result, nil
	}

	fmt.Fprintf(s.out, "Source directory: %s\n", job.SourceDir)
	fmt.Fprintf(s.out, "Dest directory: %s\n", job.DestDir)
	if len(job.ExcludedFileNames) > 0 {
		fmt.Fprintf(s.out, "Excluded file names: %s\n", strings.Join(job.ExcludedFileNames, ", "))
	}

	if s.cfg.ReextractImages {
		if _, err := os.Stat(job.DestDir); err == nil {
			if err := os.RemoveAll(job.DestDir); err != nil {
				fmt.Fprintf(s.errOut, "Failed to delete: %s\n", job.DestDir)
				slog.Debug("sorter: remove dest", "dir", job.DestDir, "err", err)
				result.Invalid = true
				return result, nil
			}
		}
	}
	if err := os.MkdirAll(job.DestDir, 0o755); err != nil {
		fmt.Fprintf(s.errOut, "Failed to create: %s (%v)\n", job.DestDir, err)
		result.Invalid = true
		return result, nil
	}

	pdfs, err := listPDFs(job.SourceDir)
	if err != nil {
		fmt.Fprintf(s.errOut, "Failed to list: %s (%v)\n", job.SourceDir, err)
		result.Invalid = true
		return result, nil
	}

	for _, pdf := range pdfs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		name := filepath.Base(pdf)

		if isExcluded(name, job.ExcludedFileNames) {
			fmt.Fprintf(s.out, "Images extraction skipped for: %s\n", name)
			result.Excluded++
			continue
		}

		subdir := filepath.Join(job.DestDir, strings.TrimSuffix(name, filepath.Ext(name)))
		if _, err := os.Stat(subdir); err == nil {
			fmt.Fprintf(s.out, "Images already extracted for: %s\n", name)
			result.Skipped++
			continue
		}

		pr, err := s.ProcessPDF(ctx, pdf, subdir)
		result.Images.Add(pr.ImageCounts)
		if pr.ExtractFailed {
			result.Failed++
		} else {
			result.Processed++
		}
		if err != nil {
			return result, err
		}
	}

	fmt.Fprintf(s.out, "Job summary: %d extracted, %d skipped, %d excluded, %d failed (images: %d color, %d grayscale, %d small, %d duplicates, %d failed)\n",
		result.Processed, result.Skipped, result.Excluded, result.Failed,
		result.Images.Color, result.Images.Grayscale, result.Images.Small,
		result.Images.Duplicates, result.Images.Failed)
	return result, nil
}

// ProcessPDF extracts the images of pdfPath into subdir and sorts them.
// subdir must not exist yet.
func (s *Sorter) ProcessPDF(ctx context.Context, pdfPath, subdir string) (PDFResult, error) {
	name := filepath.Base(pdfPath)
	result := PDFResult{PDF: name}

	fmt.Fprintf(s.out, "Extracting images for: %s\n", name)
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		fmt.Fprintf(s.errOut, "Failed to create: %s (%v)\n", subdir, err)
		result.ExtractFailed = true
		return result, nil
	}

	prefix := filepath.Join(subdir, tempPrefix)
	if err := s.extractor.Extract(ctx, pdfPath, prefix, s.out, s.errOut); err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		fmt.Fprintf(s.errOut, "%v\n", err)
		result.ExtractFailed = true
	}

	entries, err := os.ReadDir(subdir)
	if err != nil {
		fmt.Fprintf(s.errOut, "Failed to list: %s (%v)\n", subdir, err)
		result.ExtractFailed = true
		return result, nil
	}

	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Extracted++
		s.sortImage(ctx, name, subdir, e.Name(), &result.ImageCounts)
	}

	fmt.Fprintf(s.out, "Sorted %d images for: %s (%d color, %d grayscale, %d small, %d duplicates, %d failed)\n",
		result.Extracted, name, result.Color, result.Grayscale, result.Small, result.Duplicates, result.Failed)
	return result, nil
}

// sortImage routes one extracted file and updates counts.
func (s *Sorter) sortImage(ctx context.Context, pdfName, subdir, fileName string, counts *types.ImageCounts) {
	path := filepath.Join(subdir, fileName)
	newName := strings.ReplaceAll(fileName, tempPrefix+"-", "")

	rec := types.ImageRecord{
		RunID:    s.runID,
		PDF:      pdfName,
		Name:     newName,
		SortedAt: s.now(),
	}
	if fi, err := os.Stat(path); err == nil {
		rec.Size = fi.Size()
	}

	hdr, err := decode.Probe(path)
	if err != nil {
		fmt.Fprintf(s.errOut, "Failed to read image: %s (%v)\n", path, err)
		counts.Failed++
		return
	}
	rec.Width, rec.Height = hdr.Width, hdr.Height

	var indexed string
	if s.cfg.Duplicates != "" && s.cfg.Duplicates != types.PolicyKeep {
		dup, hash, err := s.dups.Check(path)
		switch {
		case err != nil:
			fmt.Fprintf(s.errOut, "Failed to hash: %s (%v)\n", path, err)
		case dup:
			rec.Digest = hash
			rec.Duplicate = true
			if err := s.applyPolicy(s.cfg.Duplicates, path, subdir, duplicatesDir, newName, &rec); err != nil {
				fmt.Fprintf(s.errOut, "%v\n", err)
				counts.Failed++
				return
			}
			counts.Duplicates++
			s.record(ctx, rec)
			return
		default:
			rec.Digest = hash
			indexed = hash
		}
	}

	if s.classifier.IsSmall(hdr.Width, hdr.Height) {
		rec.Category = types.CategorySmall
		if err := s.applyPolicy(s.cfg.SmallImages, path, subdir, smallDir, newName, &rec); err != nil {
			fmt.Fprintf(s.errOut, "%v\n", err)
			counts.Failed++
			return
		}
		counts.Small++
		s.reindex(indexed, path, rec)
		s.record(ctx, rec)
		return
	}

	sample, err := decode.Open(path)
	if err != nil {
		fmt.Fprintf(s.errOut, "Failed to decode image: %s (%v)\n", path, err)
		counts.Failed++
		return
	}
	rec.Category = s.classifier.Classify(sample)
	slog.Debug("sorter: classified", "file", newName, "category", rec.Category,
		"colorType", sample.ColorType(), "width", rec.Width, "height", rec.Height)

	if s.recorder != nil {
		if fp, err := catalog.FingerprintOf(sample.Image(), rec.Category); err == nil {
			rec.PerceptualHash = fp.PerceptualHash
			rec.DominantColor = fp.DominantColor
		} else {
			slog.Debug("sorter: fingerprint", "file", newName, "err", err)
		}
	}

	var moveErr error
	switch rec.Category {
	case types.CategoryGrayscale:
		moveErr = s.applyPolicy(types.PolicyArchive, path, subdir, grayscaleDir, newName, &rec)
		if moveErr == nil {
			counts.Grayscale++
		}
	default:
		moveErr = s.applyPolicy(types.PolicyKeep, path, subdir, "", newName, &rec)
		if moveErr == nil {
			counts.Color++
		}
	}
	if moveErr != nil {
		fmt.Fprintf(s.errOut, "%v\n", moveErr)
		counts.Failed++
		return
	}
	s.reindex(indexed, path, rec)
	s.record(ctx, rec)
}

// reindex points the duplicate index entry added under its temporary name
// at the file's final path, or at "" when the file was deleted.
func (s *Sorter) reindex(hash, from string, rec types.ImageRecord) {
	if hash == "" {
		return
	}
	s.dups.Rename(hash, from, rec.Path)
}

// applyPolicy moves path into subdir/folder (archive), removes it (delete),
// or renames it in place (keep). rec.Path and rec.Deleted are updated.
func (s *Sorter) applyPolicy(p types.ImagePolicy, path, subdir, folder, newName string, rec *types.ImageRecord) error {
	switch p {
	case types.PolicyDelete:
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("deleting %s: %w", path, err)
		}
		rec.Deleted = true
		return nil
	case types.PolicyArchive:
		dir := filepath.Join(subdir, folder)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		return moveFile(path, filepath.Join(dir, newName), rec)
	default:
		return moveFile(path, filepath.Join(subdir, newName), rec)
	}
}

func moveFile(from, to string, rec *types.ImageRecord) error {
	if from != to {
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("moving %s: %w", from, err)
		}
	}
	rec.Path = to
	return nil
}

func (s *Sorter) record(ctx context.Context, rec types.ImageRecord) {
	if s.recorder == nil {
		return
	}
	if _, err := s.recorder.Record(ctx, rec); err != nil {
		fmt.Fprintf(s.errOut, "Failed to record: %s (%v)\n", rec.Name, err)
	}
}

// validateJob returns the message explaining why job cannot run, or "".
func validateJob(job types.DirectoryJob) string {
	if fi, err := os.Stat(job.SourceDir); job.SourceDir == "" || err != nil || !fi.IsDir() {
		return "Source directory not found: " + job.SourceDir
	}
	if job.DestDir == "" || !filepath.IsAbs(job.DestDir) {
		return "Invalid dest directory path: " + job.DestDir
	}
	for _, name := range job.ExcludedFileNames {
		if strings.TrimSpace(name) == "" {
			return "At least one excluded file name is empty."
		}
	}
	return ""
}

// listPDFs returns the .pdf files (any case) directly in dir, sorted by name.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var pdfs []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		pdfs = append(pdfs, filepath.Join(dir, e.Name()))
	}
	return pdfs, nil
}

func isExcluded(name string, excluded []string) bool {
	for _, ex := range excluded {
		if strings.EqualFold(name, ex) {
			return true
		}
	}
	return false
}
