// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-image-extractor/internal/dupfind"
)

var dupsCmd = &cobra.Command{
	Use:   "dups [dir]",
	Short: "List files with identical content",
	Long: `Dups hashes every file in a directory and lists the groups whose
content and size are identical. Nothing is moved or deleted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDups,
}

func init() {
	dupsCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")

	rootCmd.AddCommand(dupsCmd)
}

func runDups(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	recursive, _ := cmd.Flags().GetBool("recursive")

	finder, failed, err := indexDir(dir, recursive, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	printGroups(cmd.OutOrStdout(), finder.Groups())
	if failed > 0 {
		return fmt.Errorf("%d file(s) could not be hashed", failed)
	}
	return nil
}

// indexDir adds every regular file under dir to a new Finder. Hash failures
// are reported to errOut and counted.
func indexDir(dir string, recursive bool, errOut io.Writer) (*dupfind.Finder, int, error) {
	finder := dupfind.New()
	var failed int
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		hash, err := dupfind.ComputeHash(path)
		if err == nil {
			err = finder.Add(hash, path)
		}
		if err != nil {
			fmt.Fprintf(errOut, "failed: %v\n", err)
			failed++
		}
		return nil
	})
	if err != nil {
		return nil, failed, fmt.Errorf("walking %s: %w", dir, err)
	}
	return finder, failed, nil
}

func printGroups(w io.Writer, groups map[string][]dupfind.Entry) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No duplicates found.")
		return
	}
	hashes := make([]string, 0, len(groups))
	for h := range groups {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	var files int
	for _, h := range hashes {
		entries := groups[h]
		fmt.Fprintf(w, "%s  (%d bytes)\n", h, entries[0].Size)
		for _, e := range entries {
			fmt.Fprintf(w, "  %s\n", e.Path)
		}
		files += len(entries)
	}
	fmt.Fprintf(w, "\n%d groups, %d files\n", len(groups), files)
}
