// Package transcript delivers finalized utterances to the extraction engine.
package transcript

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// InterimPrefix marks a partial recognition result. Interim lines are never
// delivered.
const InterimPrefix = "~"

// Source yields one finalized transcript per call. Next returns io.EOF when
// the source is exhausted.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// LineSource reads one final transcript per non-blank line.
type LineSource struct {
	scanner *bufio.Scanner
}

// NewLineSource wraps r.
func NewLineSource(r io.Reader) *LineSource {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), 64*1024)
	return &LineSource{scanner: s}
}

// Next implements Source. Blank and interim lines are skipped; surrounding
// whitespace is trimmed.
func (s *LineSource) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, InterimPrefix) {
			continue
		}
		return line, nil
	}
}

// Each calls fn for every transcript from src until the source is exhausted,
// ctx is done, or fn returns an error.
func Each(ctx context.Context, src Source, fn func(string) error) error {
	for {
		text, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(text); err != nil {
			return err
		}
	}
}

var _ Source = (*LineSource)(nil)
