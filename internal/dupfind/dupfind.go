// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dupfind detects files whose content was already seen during a run.
// A file is a duplicate when its digest and its size both match an indexed
// entry. The index lives in memory for one run and is never persisted.
package dupfind

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrHashRead marks a failure to read a file while hashing it.
var ErrHashRead = errors.New("reading file for hash")

// Entry is one indexed file. Path is empty once the file has been deleted;
// its size still counts for matching.
type Entry struct {
	Path string
	Size int64
}

// Finder maps content digests to the files that produced them. It is not
// safe for concurrent use; callers serialize access.
type Finder struct {
	buckets map[string][]Entry
	count   int
}

// New returns an empty Finder.
func New() *Finder {
	return &Finder{buckets: make(map[string][]Entry)}
}

// ComputeHash returns the hex SHA-1 digest of the file at path. The file is
// opened read-only and closed before returning.
func ComputeHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrHashRead, path, err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrHashRead, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Contains reports whether hash is indexed with an entry whose size equals
// the current size of path on disk. A digest match alone is not enough.
func (f *Finder) Contains(hash, path string) (bool, error) {
	bucket, ok := f.buckets[hash]
	if !ok {
		return false, nil
	}
	size, err := fileSize(path)
	if err != nil {
		return false, err
	}
	for _, e := range bucket {
		if e.Size == size {
			return true, nil
		}
	}
	return false, nil
}

// Add appends path and its current size to the bucket for hash.
func (f *Finder) Add(hash, path string) error {
	size, err := fileSize(path)
	if err != nil {
		return err
	}
	f.buckets[hash] = append(f.buckets[hash], Entry{Path: path, Size: size})
	f.count++
	return nil
}

// Rename changes the path of the entry indexed under hash at from to to.
// It reports whether such an entry existed.
func (f *Finder) Rename(hash, from, to string) bool {
	bucket := f.buckets[hash]
	for i := range bucket {
		if bucket[i].Path == from {
			bucket[i].Path = to
			return true
		}
	}
	return false
}

// Entries returns the bucket for hash in insertion order.
func (f *Finder) Entries(hash string) []Entry {
	bucket := f.buckets[hash]
	out := make([]Entry, len(bucket))
	copy(out, bucket)
	return out
}

// Len returns the number of indexed files.
func (f *Finder) Len() int { return f.count }

// Check hashes path and reports whether it duplicates an indexed file. A
// file that is not a duplicate is added to the index. The digest is
// returned either way.
func (f *Finder) Check(path string) (dup bool, hash string, err error) {
	hash, err = ComputeHash(path)
	if err != nil {
		return false, "", err
	}
	dup, err = f.Contains(hash, path)
	if err != nil || dup {
		return dup, hash, err
	}
	return false, hash, f.Add(hash, path)
}

// Groups returns every bucket that holds more than one entry of the same
// size, keyed by digest. Used to report duplicates after indexing a tree.
func (f *Finder) Groups() map[string][]Entry {
	groups := make(map[string][]Entry)
	for hash, bucket := range f.buckets {
		bySize := make(map[int64][]Entry)
		for _, e := range bucket {
			bySize[e.Size] = append(bySize[e.Size], e)
		}
		for _, same := range bySize {
			if len(same) > 1 {
				groups[hash] = append(groups[hash], same...)
			}
		}
	}
	return groups
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}
