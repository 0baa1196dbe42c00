// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package params

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf-image-extractor/pkg/types"
)

func parse(t *testing.T, lines ...string) (types.RunConfig, error) {
	t.Helper()
	return Parse(strings.NewReader(strings.Join(lines, "\n")))
}

func TestParse_Jobs(t *testing.T) {
	cfg, err := parse(t,
		"\ufeffpdfimages_exe_path: C:\\xpdf\\pdfimages.exe",
		"reextract_images: True",
		"",
		"// Directory #1",
		"  source_directory_path:  C:\\Books  ",
		"dest_directory_path: D:\\Images",
		"excluded_file_name: skip-me.pdf",
		"excluded_file_name: Other.PDF",
		"",
		"// source_directory_path: commented out",
		"source_directory_path: /srv/pdf",
		"dest_directory_path: /srv/img",
	)
	require.NoError(t, err)

	assert.Equal(t, `C:\xpdf\pdfimages.exe`, cfg.PdfImagesPath)
	assert.True(t, cfg.ReextractImages)
	assert.Equal(t, []types.DirectoryJob{
		{SourceDir: `C:\Books`, DestDir: `D:\Images`, ExcludedFileNames: []string{"skip-me.pdf", "Other.PDF"}},
		{SourceDir: "/srv/pdf", DestDir: "/srv/img"},
	}, cfg.Jobs)

	assert.Equal(t, types.DefaultSmallThreshold, cfg.SmallThreshold)
	assert.Equal(t, types.PolicyArchive, cfg.SmallImages)
	assert.Equal(t, types.PolicyKeep, cfg.Duplicates)
	assert.Equal(t, types.BackendExec, cfg.Backend)
}

func TestParse_KeysBeforeFirstSourceJoinFirstJob(t *testing.T) {
	cfg, err := parse(t,
		"pdfimages_exe_path: /usr/bin/pdfimages",
		"reextract_images: false",
		"dest_directory_path: /out",
		"excluded_file_name: a.pdf",
		"source_directory_path: /in",
	)
	require.NoError(t, err)
	require.Len(t, cfg.Jobs, 1)
	assert.Equal(t, types.DirectoryJob{SourceDir: "/in", DestDir: "/out", ExcludedFileNames: []string{"a.pdf"}}, cfg.Jobs[0])
}

func TestParse_EmptyValuesKept(t *testing.T) {
	cfg, err := parse(t,
		"pdfimages_exe_path: ",
		"reextract_images: false",
		"source_directory_path: /in",
		"dest_directory_path:",
		"excluded_file_name:",
	)
	require.NoError(t, err)
	assert.Empty(t, cfg.PdfImagesPath)
	require.Len(t, cfg.Jobs, 1)
	assert.Equal(t, []string{""}, cfg.Jobs[0].ExcludedFileNames, "validation belongs to the sorter")
}

func TestParse_OptionalSettings(t *testing.T) {
	cfg, err := parse(t,
		"small_images: keep",
		"profile: compact",
		"pdfimages_exe_path: pdfimages",
		"reextract_images: false",
		"duplicates: archive",
		"backend: container",
		"container_image: example/poppler:24",
		"extra_args: -p  -f 2",
		"catalog_path: run.db",
		"logs_directory: /var/log/pdfx",
	)
	require.NoError(t, err)

	assert.Equal(t, types.CompactSmallThreshold, cfg.SmallThreshold)
	assert.Equal(t, types.PolicyKeep, cfg.SmallImages, "explicit policy wins over the profile")
	assert.Equal(t, types.PolicyArchive, cfg.Duplicates)
	assert.Equal(t, types.BackendContainer, cfg.Backend)
	assert.Equal(t, "example/poppler:24", cfg.ContainerImage)
	assert.Equal(t, []string{"-p", "-f", "2"}, cfg.ExtraArgs)
	assert.Equal(t, "run.db", cfg.CatalogPath)
	assert.Equal(t, "/var/log/pdfx", cfg.LogsDir)
	assert.Empty(t, cfg.Jobs)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  error
	}{
		{
			name:  "missing pdfimages path",
			lines: []string{"reextract_images: false"},
			want:  ErrMissingKey,
		},
		{
			name:  "missing reextract flag",
			lines: []string{"pdfimages_exe_path: x"},
			want:  ErrMissingKey,
		},
		{
			name:  "pdfimages path twice",
			lines: []string{"pdfimages_exe_path: x", "pdfimages_exe_path: y", "reextract_images: false"},
			want:  ErrDuplicateKey,
		},
		{
			name:  "reextract not a bool",
			lines: []string{"pdfimages_exe_path: x", "reextract_images: maybe"},
			want:  ErrInvalidValue,
		},
		{
			name:  "bad threshold",
			lines: []string{"pdfimages_exe_path: x", "reextract_images: false", "small_threshold: big"},
			want:  ErrInvalidValue,
		},
		{
			name:  "zero threshold",
			lines: []string{"pdfimages_exe_path: x", "reextract_images: false", "small_threshold: 0"},
			want:  ErrInvalidValue,
		},
		{
			name:  "negative threshold",
			lines: []string{"pdfimages_exe_path: x", "reextract_images: false", "small_threshold: -5"},
			want:  ErrInvalidValue,
		},
		{
			name:  "bad policy",
			lines: []string{"pdfimages_exe_path: x", "reextract_images: false", "duplicates: shred"},
			want:  ErrInvalidValue,
		},
		{
			name:  "bad profile",
			lines: []string{"pdfimages_exe_path: x", "reextract_images: false", "profile: huge"},
			want:  ErrInvalidValue,
		},
		{
			name:  "bad backend",
			lines: []string{"pdfimages_exe_path: x", "reextract_images: false", "backend: ssh"},
			want:  ErrInvalidValue,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.lines...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParse_UnknownKeysIgnored(t *testing.T) {
	_, err := parse(t,
		"pdfimages_exe_path: x",
		"reextract_images: false",
		"colour_mode: fancy",
		"a line without a colon",
	)
	assert.NoError(t, err)
}

func TestTemplateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, WriteTemplate(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.ReextractImages)
	require.Len(t, cfg.Jobs, 2)
	assert.Equal(t, []string{""}, cfg.Jobs[0].ExcludedFileNames)
	assert.Empty(t, cfg.Jobs[1].ExcludedFileNames)

	err = WriteTemplate(path, false)
	assert.True(t, errors.Is(err, os.ErrExist), "existing file must not be replaced")
	assert.NoError(t, WriteTemplate(path, true))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLogsDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, lines ...string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))
		return path
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "set", path: write("set.txt", "reextract_images: false", "logs_directory: /var/log/pdfx"), want: "/var/log/pdfx"},
		{name: "set in otherwise invalid file", path: write("bad.txt", "small_threshold: 0", "logs_directory: RunLogs"), want: "RunLogs"},
		{name: "commented out", path: write("comment.txt", "// logs_directory: /tmp/x"), want: ""},
		{name: "missing file", path: filepath.Join(dir, "none.txt"), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogsDir(tt.path))
		})
	}
}
