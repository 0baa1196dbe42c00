// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdf-image-extractor/pkg/types"
)

// Export is the document written by ExportYAML and ExportJSON.
type Export struct {
	Runs   []Run               `json:"runs" yaml:"runs"`
	Images []types.ImageRecord `json:"images" yaml:"images"`
}

// ExportYAML writes the runs and the images matching f as YAML.
func (s *Store) ExportYAML(ctx context.Context, f Filter, w io.Writer) error {
	doc, err := s.export(ctx, f)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes the runs and the images matching f as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, f Filter, w io.Writer) error {
	doc, err := s.export(ctx, f)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

func (s *Store) export(ctx context.Context, f Filter) (Export, error) {
	images, err := s.List(ctx, f)
	if err != nil {
		return Export{}, fmt.Errorf("querying for export: %w", err)
	}
	runs, err := s.Runs(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("querying for export: %w", err)
	}
	if f.RunID != "" {
		kept := runs[:0]
		for _, r := range runs {
			if r.ID == f.RunID {
				kept = append(kept, r)
			}
		}
		runs = kept
	}
	return Export{Runs: runs, Images: images}, nil
}
