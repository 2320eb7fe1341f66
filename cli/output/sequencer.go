// Package output maps a batch of decoded images onto a single output path
// template and writes them to disk in order.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/term"
)

// placeholderRE matches a printf-style decimal placeholder with an optional
// width, e.g. %d or %03d.
var placeholderRE = regexp.MustCompile(`%\d*d`)

// Plan computes one destination path per image from the output template.
//
// A template containing a placeholder numbers every image with it, starting
// at 0 unless overridden. Without a placeholder the first image takes the
// template verbatim and later images get a synthesized "_%d" suffix between
// the filename stem and its extension, numbered from 1 unless overridden.
// The override changes only the numeric values, never which image is exempt
// from suffixing.
//
// Paths never collide within one plan: indices are strictly increasing and
// the exempt literal path exists only in the no-placeholder branch.
func Plan(output string, n int, beginIdx *int) []string {
	dir, file := filepath.Split(output)

	var prefix, spec, suffix string
	start := 1
	loc := placeholderRE.FindStringIndex(file)
	if loc != nil {
		start = 0
		prefix, spec, suffix = file[:loc[0]], file[loc[0]:loc[1]], file[loc[1]:]
	} else {
		ext := filepath.Ext(file)
		prefix, spec, suffix = strings.TrimSuffix(file, ext), "_%d", ext
	}
	if beginIdx != nil {
		start = *beginIdx
	}

	paths := make([]string, n)
	for i := range paths {
		idx := start + i
		if loc == nil {
			if i == 0 {
				paths[i] = output
				continue
			}
			// The exempt first image does not consume an index: suffixes
			// for images 1..n-1 start at the starting index itself.
			idx = start + i - 1
		}
		paths[i] = dir + prefix + fmt.Sprintf(spec, idx) + suffix
	}
	return paths
}

// WriteOptions control how a batch of images is persisted.
type WriteOptions struct {
	// Output is the path template, or "-" to stream image bytes to stdout.
	Output string
	// BeginIdx overrides the branch-dependent default starting index.
	BeginIdx *int
	// Verbose reports each saved path on Log.
	Verbose bool

	// Log receives verbose progress lines. Defaults to os.Stderr.
	Log io.Writer
	// Stdout is the destination for the "-" output path. Defaults to
	// os.Stdout.
	Stdout io.Writer
	// IsTerminal reports whether Stdout is an interactive terminal; set in
	// tests to exercise the guard.
	IsTerminal func() bool
}

func (o *WriteOptions) log() io.Writer {
	if o.Log != nil {
		return o.Log
	}
	return os.Stderr
}

// Write persists the images according to Plan, creating the output directory
// if needed. Writes are sequential, each opening and closing its destination
// file; existing files are overwritten. The first filesystem error aborts
// the batch and files already written stay on disk.
func Write(images [][]byte, opts WriteOptions) error {
	if opts.Output == "-" {
		return writeStdout(images, opts)
	}

	dir, _ := filepath.Split(opts.Output)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	paths := Plan(opts.Output, len(images), opts.BeginIdx)
	for i, path := range paths {
		if err := os.WriteFile(path, images[i], 0o644); err != nil {
			return fmt.Errorf("failed to write image %d: %w", i, err)
		}
		if opts.Verbose {
			fmt.Fprintf(opts.log(), "Saved image to %s\n", path)
		}
	}
	return nil
}

// writeStdout streams all image bytes to stdout in order. Binary output to
// an interactive terminal is refused.
func writeStdout(images [][]byte, opts WriteOptions) error {
	isTerminal := opts.IsTerminal
	if isTerminal == nil {
		isTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
	}
	if isTerminal() {
		return errors.New("refusing to write image data to a terminal: redirect stdout or use -o")
	}

	w := opts.Stdout
	if w == nil {
		w = os.Stdout
	}
	for i, img := range images {
		if _, err := w.Write(img); err != nil {
			return fmt.Errorf("failed to write image %d to stdout: %w", i, err)
		}
	}
	return nil
}
