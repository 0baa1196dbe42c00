// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-image-extractor/internal/params"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a Parameters.txt template",
	Long: `Init writes a parameters file with the required keys, the optional
settings commented out, and two empty directory blocks. An existing file
is left alone unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing parameters file")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	path := paramsPath()
	if len(args) > 0 {
		path = args[0]
	}

	if err := params.WriteTemplate(path, force); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Parameters file created: %s\n", path)
	return nil
}
