// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdf-image-extractor CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf-image-extractor/internal/params"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the pdf-image-extractor CLI.
var rootCmd = &cobra.Command{
	Use:   "pdf-image-extractor",
	Short: "Extract the images of PDF files and sort them by size and color",
	Long: `pdf-image-extractor runs pdfimages on every PDF of the configured source
directories and sorts the extracted images: small images go to Small/,
grayscale images to Grayscale/, and color images stay next to them.
Byte-identical duplicates can be archived into Duplicates/ or deleted.

Jobs are read from Parameters.txt, which lives next to the executable
unless --params points elsewhere. Settings in pdf-image-extractor.yaml,
PDF_IMAGE_EXTRACTOR_* environment variables, and flags override the
optional values of the parameters file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if viper.GetBool("debug") {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdf-image-extractor.yaml or ~/.config/pdf-image-extractor/config.yaml)")
	rootCmd.PersistentFlags().String("params", "", "parameters file (default: Parameters.txt next to the executable)")
	rootCmd.PersistentFlags().Bool("debug", false, "write debug diagnostics")
	rootCmd.PersistentFlags().Bool("no-color", false, "do not highlight errors on the console")

	viper.BindPFlag("params", rootCmd.PersistentFlags().Lookup("params"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdf-image-extractor")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdf-image-extractor"))
		}
	}

	viper.SetEnvPrefix("PDF_IMAGE_EXTRACTOR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// appDir is the directory of the running executable. Parameters.txt and
// Logs/ are resolved against it, falling back to the working directory.
func appDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// paramsPath returns the parameters file selected by --params, the config
// file, or the environment, defaulting to Parameters.txt in appDir.
func paramsPath() string {
	if p := viper.GetString("params"); p != "" {
		return p
	}
	return filepath.Join(appDir(), params.FileName)
}

// resolveDir makes a relative directory setting relative to appDir.
func resolveDir(dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(appDir(), dir)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
