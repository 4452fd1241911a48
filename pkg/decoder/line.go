package decoder

import (
	"bufio"
	"context"
	"io"
	"time"
)

// LineSource reads one code per line. Keyboard-emulation scanners type the
// code followed by Enter, so stdin works as a decoder.
type LineSource struct {
	r io.Reader
}

func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{r: r}
}

func (s *LineSource) Name() string {
	return "line"
}

func (s *LineSource) Run(ctx context.Context, emit func(ScanEvent)) error {
	lines := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				select {
				case err := <-errs:
					return err
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			code := CleanCode([]byte(line))
			if code == "" {
				continue
			}
			emit(ScanEvent{Code: code, Source: s.Name(), ScannedAt: time.Now()})
		}
	}
}
