// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf-image-extractor/internal/classify"
	"github.com/pdiddy/pdf-image-extractor/internal/decode"
	"github.com/pdiddy/pdf-image-extractor/pkg/types"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [images...]",
	Short: "Print the category of each image",
	Long: `Classify reports whether each image is small, grayscale, or color using
the same rules as run. Nothing is moved.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().Int("threshold", 0, "small image threshold in pixels (default: small_threshold or 250)")
	classifyCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(classifyCmd)
}

// classification is one line of classify output.
type classification struct {
	Path      string              `json:"path"`
	Category  types.ImageCategory `json:"category,omitempty"`
	Width     int                 `json:"width,omitempty"`
	Height    int                 `json:"height,omitempty"`
	ColorType string              `json:"color_type,omitempty"`
	Error     string              `json:"error,omitempty"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	threshold, _ := cmd.Flags().GetInt("threshold")
	if threshold <= 0 {
		threshold = viper.GetInt("small_threshold")
	}
	if threshold <= 0 {
		threshold = types.DefaultSmallThreshold
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	results, failed := classifyFiles(classify.New(threshold), args)
	if err := formatClassifyOutput(cmd.OutOrStdout(), results, jsonOutput); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d image(s) could not be read", failed)
	}
	return nil
}

// classifyFiles applies the size gate from the header and decodes only
// images that pass it.
func classifyFiles(c classify.Classifier, paths []string) ([]classification, int) {
	var failed int
	out := make([]classification, 0, len(paths))
	for _, p := range paths {
		r := classification{Path: p}
		hdr, err := decode.Probe(p)
		if err != nil {
			r.Error = err.Error()
			failed++
			out = append(out, r)
			continue
		}
		r.Width, r.Height = hdr.Width, hdr.Height
		if c.IsSmall(hdr.Width, hdr.Height) {
			r.Category = types.CategorySmall
			out = append(out, r)
			continue
		}
		sample, err := decode.Open(p)
		if err != nil {
			r.Error = err.Error()
			failed++
			out = append(out, r)
			continue
		}
		r.ColorType = sample.ColorType().String()
		r.Category = c.Classify(sample)
		out = append(out, r)
	}
	return out, failed
}

func formatClassifyOutput(w io.Writer, results []classification, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "%-10s  %s (%s)\n", "error", r.Path, r.Error)
			continue
		}
		fmt.Fprintf(w, "%-10s  %s (%dx%d)\n", r.Category, r.Path, r.Width, r.Height)
	}
	return nil
}
