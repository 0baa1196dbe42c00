// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf-image-extractor/internal/catalog"
	"github.com/pdiddy/pdf-image-extractor/pkg/types"
)

const defaultCatalogPath = "catalog.db"

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the catalog of sorted images (list, export, similar)",
	Long: `Catalog reads the SQLite database that run fills when catalog_path is
set. Every sorted image is recorded with its category, size, content
digest, perceptual hash, and dominant color.`,
}

// --- list subcommand ---

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, or the images matching the filters",
	RunE:  runCatalogList,
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runsOnly, _ := cmd.Flags().GetBool("runs")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()
	w := cmd.OutOrStdout()

	if runsOnly {
		runs, err := store.Runs(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(w, runs)
		}
		fmt.Fprintf(w, "%-18s  %-20s  %5s  %6s  %6s  %6s  %6s  %6s\n",
			"Run", "Started", "PDFs", "Color", "Gray", "Small", "Dups", "Failed")
		fmt.Fprintln(w, strings.Repeat("-", 90))
		for _, r := range runs {
			fmt.Fprintf(w, "%-18s  %-20s  %5d  %6d  %6d  %6d  %6d  %6d\n",
				r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.PDFs,
				r.Color, r.Grayscale, r.Small, r.Duplicates, r.Failed)
		}
		return nil
	}

	images, err := store.List(ctx, filterFromFlags(cmd))
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(w, images)
	}
	if len(images) == 0 {
		fmt.Fprintln(w, "No images found.")
		return nil
	}

	fmt.Fprintf(w, "%-30s  %-20s  %-9s  %-11s  %-7s  %s\n", "PDF", "Image", "Category", "Size", "Color", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range images {
		status := ""
		switch {
		case r.Duplicate && r.Deleted:
			status = "duplicate, deleted"
		case r.Duplicate:
			status = "duplicate"
		case r.Deleted:
			status = "deleted"
		}
		fmt.Fprintf(w, "%-30s  %-20s  %-9s  %-11s  %-7s  %s\n",
			truncate(r.PDF, 30), truncate(r.Name, 20), r.Category,
			fmt.Sprintf("%dx%d", r.Width, r.Height), r.DominantColor, status)
	}
	fmt.Fprintf(w, "\n%d images\n", len(images))
	return nil
}

// --- export subcommand ---

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to YAML or JSON",
	Long: `Export writes the recorded runs and images (or a filtered subset) to
stdout or to the file given by --output.`,
	RunE: runCatalogExport,
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	w := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	ctx := context.Background()
	filter := filterFromFlags(cmd)
	switch format {
	case "yaml", "":
		err = store.ExportYAML(ctx, filter, w)
	case "json":
		err = store.ExportJSON(ctx, filter, w)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", output)
	}
	return nil
}

// --- similar subcommand ---

var catalogSimilarCmd = &cobra.Command{
	Use:   "similar",
	Short: "List visually similar image pairs",
	Long: `Similar compares the perceptual hashes of the recorded images and lists
pairs whose hashes differ in at most --distance bits. Unlike duplicate
detection during a run, this also finds re-encoded or rescaled copies.`,
	RunE: runCatalogSimilar,
}

func runCatalogSimilar(cmd *cobra.Command, args []string) error {
	distance, _ := cmd.Flags().GetInt("distance")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	pairs, err := store.Similar(context.Background(), distance, filterFromFlags(cmd))
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(w, pairs)
	}
	if len(pairs) == 0 {
		fmt.Fprintln(w, "No similar images found.")
		return nil
	}
	for _, p := range pairs {
		fmt.Fprintf(w, "%2d  %s/%s  %s/%s\n", p.Distance, p.A.PDF, p.A.Name, p.B.PDF, p.B.Name)
	}
	fmt.Fprintf(w, "\n%d pairs\n", len(pairs))
	return nil
}

// --- shared helpers ---

func openCatalog(cmd *cobra.Command) (*catalog.Store, error) {
	path, _ := cmd.Flags().GetString("catalog")
	if path == "" {
		path = viper.GetString("catalog_path")
	}
	if path == "" {
		path = defaultCatalogPath
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return catalog.Open(path)
}

func filterFromFlags(cmd *cobra.Command) catalog.Filter {
	runID, _ := cmd.Flags().GetString("run")
	pdf, _ := cmd.Flags().GetString("pdf")
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	return catalog.Filter{
		RunID:    runID,
		PDF:      pdf,
		Category: types.ImageCategory(category),
		Limit:    limit,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate shortens s to n characters, never splitting a multi-byte one.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	catalogCmd.PersistentFlags().String("catalog", "", "catalog database (default: catalog_path or catalog.db)")
	catalogCmd.PersistentFlags().String("run", "", "filter by run ID")
	catalogCmd.PersistentFlags().String("pdf", "", "filter by PDF file name")
	catalogCmd.PersistentFlags().String("category", "", "filter by category: small, grayscale, color")
	catalogCmd.PersistentFlags().Int("limit", 0, "maximum images (0 = all)")

	catalogListCmd.Flags().Bool("runs", false, "list runs instead of images")
	catalogListCmd.Flags().Bool("json", false, "output as JSON")

	catalogExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	catalogExportCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")

	catalogSimilarCmd.Flags().Int("distance", 6, "maximum perceptual hash distance in bits")
	catalogSimilarCmd.Flags().Bool("json", false, "output as JSON")

	// Wire subcommands.
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogExportCmd)
	catalogCmd.AddCommand(catalogSimilarCmd)

	rootCmd.AddCommand(catalogCmd)
}
