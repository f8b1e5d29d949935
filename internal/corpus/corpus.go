// Package corpus reads word-segmented text files into CRF training samples.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/versusvoid/rikaikun/crf"
)

// ErrMalformed is returned for a line that cannot be turned into a sample.
var ErrMalformed = errors.New("corpus: malformed line")

const maxLineSize = 1 << 20

// Corpus wraps a segmented text file: one sentence per line, words separated
// by single spaces.
type Corpus struct {
	Path string
}

// New creates a Corpus for the given file.
func New(path string) *Corpus {
	return &Corpus{Path: path}
}

// ReadOptions controls how lines become samples.
type ReadOptions struct {
	DropDuplicates bool
	ProgressEvery  int // log every N lines, 0 disables
}

// DefaultReadOptions returns the options used for training.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{ProgressEvery: 10000}
}

// NewDecoder returns a reader producing UTF-8. A UTF-16 byte order mark
// switches to UTF-16 of that endianness; a UTF-8 mark is dropped.
func NewDecoder(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

type file struct {
	io.Reader
	f *os.File
}

func (f *file) Close() error { return f.f.Close() }

// Open opens the corpus file and decodes it to UTF-8.
func (c *Corpus) Open() (io.ReadCloser, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, err
	}
	return &file{Reader: NewDecoder(f), f: f}, nil
}

// Each calls fn for every non-empty line with its 1-based line number.
func (c *Corpus) Each(opts ReadOptions, fn func(line int, s crf.Sample) error) error {
	r, err := c.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	return each(r, c.Path, opts, fn)
}

// Samples reads the whole corpus.
func (c *Corpus) Samples(opts ReadOptions) ([]crf.Sample, error) {
	r, err := c.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ReadSamples(r, c.Path, opts)
}

// ReadSamples reads samples from already decoded text. name is used in log
// lines and errors.
func ReadSamples(r io.Reader, name string, opts ReadOptions) ([]crf.Sample, error) {
	var samples []crf.Sample
	err := each(r, name, opts, func(_ int, s crf.Sample) error {
		samples = append(samples, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Read corpus", "path", name, "samples", len(samples))
	return samples, nil
}

func each(r io.Reader, name string, opts ReadOptions, fn func(int, crf.Sample) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var seen map[string]bool
	if opts.DropDuplicates {
		seen = make(map[string]bool)
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if opts.ProgressEvery > 0 && lineNo%opts.ProgressEvery == 0 {
			slog.Info("Reading corpus", "path", name, "lines", lineNo)
		}

		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if seen != nil {
			if seen[line] {
				continue
			}
			seen[line] = true
		}

		s, err := crf.ParseSample(line)
		if err != nil {
			return fmt.Errorf("%w: %s:%d: %v", ErrMalformed, name, lineNo, err)
		}
		if err := fn(lineNo, s); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}
