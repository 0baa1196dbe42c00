// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf-image-extractor/internal/catalog"
	"github.com/pdiddy/pdf-image-extractor/internal/container"
	"github.com/pdiddy/pdf-image-extractor/internal/dupfind"
	"github.com/pdiddy/pdf-image-extractor/internal/params"
	"github.com/pdiddy/pdf-image-extractor/internal/pdfimages"
	"github.com/pdiddy/pdf-image-extractor/internal/runlog"
	"github.com/pdiddy/pdf-image-extractor/internal/sorter"
	"github.com/pdiddy/pdf-image-extractor/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract and sort the images of every configured PDF",
	Long: `Run reads the parameters file, then for each directory job extracts the
images of every PDF in the source directory into <dest>/<pdf name>/ and
sorts them. PDFs whose destination subdirectory already exists are skipped
unless reextract_images is true.

If the parameters file does not exist, a template is written and the run
stops so it can be filled in. Everything printed is also written to
Logs/<timestamp>.log.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("profile", "", "preset: default (250px, archive small) or compact (100px, delete small)")
	runCmd.Flags().Int("small-threshold", 0, "images narrower and shorter than this are small")
	runCmd.Flags().String("small-images", "", "small image policy: archive, delete, or keep")
	runCmd.Flags().String("duplicates", "", "duplicate policy: keep, archive, or delete")
	runCmd.Flags().String("backend", "", "pdfimages backend: exec or container")
	runCmd.Flags().String("container-image", "", "image providing pdfimages for the container backend")
	runCmd.Flags().String("catalog", "", "SQLite catalog to record sorted images in")
	runCmd.Flags().String("logs-dir", "", "directory for run logs (default: Logs next to the executable)")
	runCmd.Flags().Bool("reextract", false, "delete existing destination directories first")

	for key, flag := range map[string]string{
		"profile":          "profile",
		"small_threshold":  "small-threshold",
		"small_images":     "small-images",
		"duplicates":       "duplicates",
		"backend":          "backend",
		"container_image":  "container-image",
		"catalog_path":     "catalog",
		"logs_directory":   "logs-dir",
		"reextract_images": "reextract",
	} {
		viper.BindPFlag(key, runCmd.Flags().Lookup(flag))
	}

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	path := paramsPath()
	started := time.Now()

	log, err := openRunLog(cmd.OutOrStdout(), path, v, started)
	if err != nil {
		return err
	}
	defer log.Close()

	cfg, created, err := loadConfig(log, path, v)
	if err != nil || created {
		return err
	}

	level := slog.LevelInfo
	if viper.GetBool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.Logger(level))

	ex, err := newExtractor(cfg)
	if err != nil {
		log.Errorf("%v", err)
		return err
	}
	if err := ex.Check(); err != nil {
		log.Errorf("%v", err)
		return err
	}
	log.Printf("Extractor: %s", ex.Name())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := sorter.New(cfg, ex, dupfind.New(), log.Out(), log.Err())

	runID := strings.TrimSuffix(runlog.FileName(started), ".log")
	var store *catalog.Store
	if cfg.CatalogPath != "" {
		store, err = catalog.Open(cfg.CatalogPath)
		if err != nil {
			log.Errorf("%v", err)
			return err
		}
		defer store.Close()
		if err := store.BeginRun(ctx, runID, started); err != nil {
			log.Errorf("%v", err)
			return err
		}
		s.WithRecorder(store, runID)
	}

	result, runErr := s.RunAll(ctx)

	if store != nil {
		if err := store.FinishRun(context.Background(), runID, time.Now(), result.PDFs, result.Images); err != nil {
			log.Errorf("%v", err)
		}
	}

	log.Printf("Run summary: %d PDFs, %d images (%d color, %d grayscale, %d small, %d duplicates, %d failed)",
		result.PDFs, result.Images.Total(), result.Images.Color, result.Images.Grayscale,
		result.Images.Small, result.Images.Duplicates, result.Images.Failed)

	if runErr != nil {
		log.Errorf("Interrupted: %v", runErr)
		return runErr
	}
	if result.HasFailures() {
		return fmt.Errorf("run finished with failures, see %s", log.Path())
	}
	return nil
}

// openRunLog opens the run log before the parameters are validated, so
// template creation and parse errors are logged too. The directory is the
// logs_directory override, else the parameters file's own setting, else
// the default.
func openRunLog(out io.Writer, paramsFile string, v *viper.Viper, now time.Time) (*runlog.Log, error) {
	dir := v.GetString("logs_directory")
	if dir == "" {
		dir = params.LogsDir(paramsFile)
	}
	if dir == "" {
		dir = types.DefaultLogsDir
	}
	return runlog.Open(runlog.Options{
		Dir:    resolveDir(dir),
		Now:    now,
		Stdout: out,
		Color:  !v.GetBool("no_color"),
	})
}

// loadConfig reads the parameters file at path and applies the overrides
// in v. A missing file is replaced by the template and created is true.
func loadConfig(log *runlog.Log, path string, v *viper.Viper) (cfg types.RunConfig, created bool, err error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := params.WriteTemplate(path, false); err != nil {
			log.Errorf("%v", err)
			return cfg, false, err
		}
		log.Printf("Parameters file created.")
		return cfg, true, nil
	}

	cfg, err = params.Load(path)
	if err != nil {
		log.Errorf("%v", err)
		return cfg, false, err
	}
	if err := applyOverrides(&cfg, v); err != nil {
		log.Errorf("%v", err)
		return cfg, false, err
	}
	return cfg, false, nil
}

// applyOverrides layers config file, environment, and flag values over the
// parameters file. The profile is applied first so explicit threshold and
// policy settings win over it.
func applyOverrides(cfg *types.RunConfig, v *viper.Viper) error {
	if v.IsSet("profile") {
		if err := cfg.ApplyProfile(types.Profile(v.GetString("profile"))); err != nil {
			return err
		}
	}
	if v.IsSet("small_threshold") {
		t := v.GetInt("small_threshold")
		if t <= 0 {
			return fmt.Errorf("small_threshold must be positive, got %d", t)
		}
		cfg.SmallThreshold = t
	}
	if v.IsSet("small_images") {
		p, err := types.ParsePolicy(v.GetString("small_images"))
		if err != nil {
			return fmt.Errorf("small_images: %w", err)
		}
		cfg.SmallImages = p
	}
	if v.IsSet("duplicates") {
		p, err := types.ParsePolicy(v.GetString("duplicates"))
		if err != nil {
			return fmt.Errorf("duplicates: %w", err)
		}
		cfg.Duplicates = p
	}
	if v.IsSet("backend") {
		switch b := types.ExtractorBackend(v.GetString("backend")); b {
		case types.BackendExec, types.BackendContainer:
			cfg.Backend = b
		default:
			return fmt.Errorf("unknown backend %q: use exec or container", b)
		}
	}
	if v.IsSet("container_image") {
		cfg.ContainerImage = v.GetString("container_image")
	}
	if v.IsSet("catalog_path") {
		cfg.CatalogPath = v.GetString("catalog_path")
	}
	if v.IsSet("logs_directory") {
		cfg.LogsDir = v.GetString("logs_directory")
	}
	if v.IsSet("reextract_images") {
		cfg.ReextractImages = v.GetBool("reextract_images")
	}
	return nil
}

// newExtractor builds the backend selected by cfg.Backend.
func newExtractor(cfg types.RunConfig) (pdfimages.Extractor, error) {
	switch cfg.Backend {
	case types.BackendContainer:
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		var command string
		if cfg.PdfImagesPath != "" {
			command = strings.TrimSuffix(filepath.Base(cfg.PdfImagesPath), ".exe")
		}
		return pdfimages.NewContainer(rt, cfg.ContainerImage, command, cfg.ExtraArgs), nil
	default:
		return pdfimages.NewExec(cfg.PdfImagesPath, cfg.ExtraArgs), nil
	}
}
