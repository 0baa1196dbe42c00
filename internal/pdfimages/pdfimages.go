// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfimages runs the pdfimages tool (xpdf or poppler) to dump the
// images embedded in a PDF. The tool writes <prefix>-NNN.<ext> files; JPEG
// streams stay JPEG (-j), everything else comes out as PPM/PBM.
package pdfimages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/pdiddy/pdf-image-extractor/internal/container"
)

// ErrNotFound is returned by Check when the tool cannot be started.
var ErrNotFound = errors.New("pdfimages not found")

// jpegFlag keeps DCT-encoded images as .jpg files.
const jpegFlag = "-j"

// Extractor dumps the images of one PDF.
type Extractor interface {
	// Name identifies the backend in log lines.
	Name() string

	// Check verifies that the tool can be started.
	Check() error

	// Extract writes the images of pdfPath to files starting with
	// outPrefix. Each non-empty line the tool prints is forwarded to
	// stdout or stderr.
	Extract(ctx context.Context, pdfPath, outPrefix string, stdout, stderr io.Writer) error
}

// runner abstracts process execution for testing.
type runner interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

type osRunner struct{}

func (osRunner) LookPath(file string) (string, error) { return exec.LookPath(file) }

func (osRunner) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Exec runs a pdfimages binary on the host.
type Exec struct {
	path      string
	extraArgs []string
	run       runner
}

// NewExec returns an Exec for the binary at path (or a name on PATH).
func NewExec(path string, extraArgs []string) *Exec {
	return &Exec{path: path, extraArgs: extraArgs, run: osRunner{}}
}

func (e *Exec) Name() string { return "pdfimages" }

func (e *Exec) Check() error {
	if e.path == "" {
		return fmt.Errorf("%w: no path configured", ErrNotFound)
	}
	if _, err := e.run.LookPath(e.path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotFound, e.path, err)
	}
	return nil
}

func (e *Exec) Extract(ctx context.Context, pdfPath, outPrefix string, stdout, stderr io.Writer) error {
	args := Args(e.extraArgs, pdfPath, outPrefix)
	slog.Debug("pdfimages: exec", "bin", e.path, "args", args)

	out, errw := newLineWriter(stdout), newLineWriter(stderr)
	err := e.run.Run(ctx, e.path, args, out, errw)
	out.Flush()
	errw.Flush()
	if err != nil {
		return fmt.Errorf("running pdfimages on %s: %w", filepath.Base(pdfPath), err)
	}
	return nil
}

// Args builds the pdfimages argument list.
func Args(extraArgs []string, pdfPath, outPrefix string) []string {
	args := make([]string, 0, len(extraArgs)+3)
	args = append(args, jpegFlag)
	args = append(args, extraArgs...)
	return append(args, pdfPath, outPrefix)
}

const (
	containerIn  = "/in"
	containerOut = "/out"
)

// Container runs pdfimages inside a container image, bind-mounting the PDF
// directory read-only and the output directory read-write.
type Container struct {
	rt        container.Runtime
	image     string
	command   string
	extraArgs []string
	user      string
}

// NewContainer returns a Container backend. command is the tool name inside
// the image, usually "pdfimages".
func NewContainer(rt container.Runtime, image, command string, extraArgs []string) *Container {
	if command == "" {
		command = "pdfimages"
	}
	c := &Container{rt: rt, image: image, command: command, extraArgs: extraArgs}
	if uid, gid := os.Getuid(), os.Getgid(); uid >= 0 && gid >= 0 {
		c.user = strconv.Itoa(uid) + ":" + strconv.Itoa(gid)
	}
	return c
}

func (c *Container) Name() string { return c.rt.Name() + ":" + c.image }

func (c *Container) Check() error {
	if err := c.rt.ImageExists(c.image); err != nil {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return nil
}

func (c *Container) Extract(ctx context.Context, pdfPath, outPrefix string, stdout, stderr io.Writer) error {
	pdfDir, err := filepath.Abs(filepath.Dir(pdfPath))
	if err != nil {
		return fmt.Errorf("resolving %s: %w", pdfPath, err)
	}
	outDir, err := filepath.Abs(filepath.Dir(outPrefix))
	if err != nil {
		return fmt.Errorf("resolving %s: %w", outPrefix, err)
	}

	spec := container.RunSpec{
		Image: c.image,
		Mounts: []container.Mount{
			{Source: pdfDir, Target: containerIn, ReadOnly: true},
			{Source: outDir, Target: containerOut},
		},
		User: c.user,
		Args: append([]string{c.command}, Args(c.extraArgs,
			containerIn+"/"+filepath.Base(pdfPath),
			containerOut+"/"+filepath.Base(outPrefix))...),
	}

	out, errw := newLineWriter(stdout), newLineWriter(stderr)
	err = c.rt.Run(ctx, spec, out, errw)
	out.Flush()
	errw.Flush()
	if err != nil {
		return fmt.Errorf("running pdfimages on %s: %w", filepath.Base(pdfPath), err)
	}
	return nil
}

// lineWriter forwards complete, non-empty lines. Carriage returns are
// dropped so Windows builds of the tool log cleanly.
type lineWriter struct {
	w   io.Writer
	buf []byte
}

func newLineWriter(w io.Writer) *lineWriter { return &lineWriter{w: w} }

func (l *lineWriter) Write(p []byte) (int, error) {
	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		l.emit(l.buf[:i])
		l.buf = l.buf[i+1:]
	}
	return len(p), nil
}

// Flush emits a trailing line that had no newline.
func (l *lineWriter) Flush() {
	l.emit(l.buf)
	l.buf = nil
}

func (l *lineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	l.w.Write(append(append([]byte{}, line...), '\n'))
}
