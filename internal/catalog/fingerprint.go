// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"fmt"
	"image"
	"sort"

	"github.com/cenkalti/dominantcolor"
	"github.com/corona10/goimagehash"

	"github.com/pdiddy/pdf-image-extractor/pkg/types"
)

// Fingerprint holds the visual descriptors stored with an image.
type Fingerprint struct {
	PerceptualHash string
	DominantColor  string
}

// FingerprintOf computes the perceptual hash of img and, for colour images,
// its dominant colour.
func FingerprintOf(img image.Image, category types.ImageCategory) (Fingerprint, error) {
	var fp Fingerprint
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return fp, fmt.Errorf("hashing image: %w", err)
	}
	fp.PerceptualHash = h.ToString()
	if category == types.CategoryColor {
		fp.DominantColor = dominantcolor.Hex(dominantcolor.Find(img))
	}
	return fp, nil
}

// SimilarPair is two catalog images whose perceptual hashes are close.
type SimilarPair struct {
	A        types.ImageRecord `json:"a" yaml:"a"`
	B        types.ImageRecord `json:"b" yaml:"b"`
	Distance int               `json:"distance" yaml:"distance"`
}

// Similar returns pairs of images matching f whose perceptual hashes
// differ in at most maxDistance bits, closest first. Images without a
// hash are skipped. Byte-identical pairs are reported too, with
// distance 0.
func (s *Store) Similar(ctx context.Context, maxDistance int, f Filter) ([]SimilarPair, error) {
	records, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}

	type hashed struct {
		rec  types.ImageRecord
		hash *goimagehash.ImageHash
	}
	var items []hashed
	for _, r := range records {
		if r.PerceptualHash == "" {
			continue
		}
		h, err := goimagehash.ImageHashFromString(r.PerceptualHash)
		if err != nil {
			return nil, fmt.Errorf("parsing hash of %s: %w", r.Name, err)
		}
		items = append(items, hashed{rec: r, hash: h})
	}

	var pairs []SimilarPair
	for i := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < len(items); j++ {
			d, err := items[i].hash.Distance(items[j].hash)
			if err != nil {
				return nil, fmt.Errorf("comparing %s and %s: %w", items[i].rec.Name, items[j].rec.Name, err)
			}
			if d <= maxDistance {
				pairs = append(pairs, SimilarPair{A: items[i].rec, B: items[j].rec, Distance: d})
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Distance < pairs[j].Distance })
	return pairs, nil
}
