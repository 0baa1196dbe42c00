// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdfimages

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf-image-extractor/internal/container"
)

type fakeRunner struct {
	known   map[string]bool
	gotName string
	gotArgs []string
	run     func(stdout, stderr io.Writer) error
}

func (f *fakeRunner) LookPath(file string) (string, error) {
	if f.known[file] {
		return file, nil
	}
	return "", errors.New("executable file not found")
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string, stdout, stderr io.Writer) error {
	f.gotName, f.gotArgs = name, args
	if f.run != nil {
		return f.run(stdout, stderr)
	}
	return nil
}

func TestArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"-j", "a.pdf", "out/temp"},
		Args(nil, "a.pdf", "out/temp"))
	assert.Equal(t,
		[]string{"-j", "-f", "3", "a.pdf", "out/temp"},
		Args([]string{"-f", "3"}, "a.pdf", "out/temp"))
}

func TestExec_Check(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		known   map[string]bool
		wantErr bool
	}{
		{name: "found", path: "/opt/xpdf/pdfimages", known: map[string]bool{"/opt/xpdf/pdfimages": true}},
		{name: "missing", path: "/opt/xpdf/pdfimages", wantErr: true},
		{name: "empty path", path: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExec(tt.path, nil)
			e.run = &fakeRunner{known: tt.known}
			err := e.Check()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNotFound))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestExec_Extract(t *testing.T) {
	fr := &fakeRunner{run: func(stdout, stderr io.Writer) error {
		io.WriteString(stdout, "page 1\r\n\n  \npage")
		io.WriteString(stdout, " 2\n")
		io.WriteString(stderr, "Syntax Error: bad xref")
		return nil
	}}
	e := NewExec("pdfimages", []string{"-p"})
	e.run = fr

	var out, errOut bytes.Buffer
	err := e.Extract(context.Background(), "/books/Atlas.pdf", "/img/Atlas/temp", &out, &errOut)
	require.NoError(t, err)

	assert.Equal(t, "pdfimages", fr.gotName)
	assert.Equal(t, []string{"-j", "-p", "/books/Atlas.pdf", "/img/Atlas/temp"}, fr.gotArgs)
	assert.Equal(t, "page 1\npage 2\n", out.String())
	assert.Equal(t, "Syntax Error: bad xref\n", errOut.String())
}

func TestExec_ExtractFailure(t *testing.T) {
	e := NewExec("pdfimages", nil)
	e.run = &fakeRunner{run: func(io.Writer, io.Writer) error { return errors.New("exit status 1") }}

	err := e.Extract(context.Background(), "/books/Broken.pdf", "/img/Broken/temp", io.Discard, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken.pdf")
}

type fakeRuntime struct {
	images  map[string]bool
	gotSpec container.RunSpec
	err     error
}

func (f *fakeRuntime) Name() string    { return "docker" }
func (f *fakeRuntime) Available() bool { return true }

func (f *fakeRuntime) ImageExists(image string) error {
	if f.images[image] {
		return nil
	}
	return errors.New("no such image")
}

func (f *fakeRuntime) Run(_ context.Context, spec container.RunSpec, stdout, _ io.Writer) error {
	f.gotSpec = spec
	io.WriteString(stdout, "done\n")
	return f.err
}

func TestContainer_Extract(t *testing.T) {
	rt := &fakeRuntime{}
	c := NewContainer(rt, "minidocks/poppler:latest", "", []string{"-p"})
	c.user = "1000:1000"

	var out bytes.Buffer
	err := c.Extract(context.Background(), "/books/Atlas.pdf", "/img/Atlas/temp", &out, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, container.RunSpec{
		Image: "minidocks/poppler:latest",
		Mounts: []container.Mount{
			{Source: "/books", Target: "/in", ReadOnly: true},
			{Source: "/img/Atlas", Target: "/out"},
		},
		User: "1000:1000",
		Args: []string{"pdfimages", "-j", "-p", "/in/Atlas.pdf", "/out/temp"},
	}, rt.gotSpec)
	assert.Equal(t, "done\n", out.String())
	assert.Equal(t, "docker:minidocks/poppler:latest", c.Name())
}

func TestContainer_Check(t *testing.T) {
	rt := &fakeRuntime{images: map[string]bool{"present:1": true}}

	assert.NoError(t, NewContainer(rt, "present:1", "pdfimages", nil).Check())

	err := NewContainer(rt, "absent:1", "pdfimages", nil).Check()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}
