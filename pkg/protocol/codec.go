package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Encoder writes command lines to an engine's standard input.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder creates a new line encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w: bufio.NewWriter(w),
	}
}

// Encode writes line followed by '\n' and flushes.
func (e *Encoder) Encode(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("command line must not contain line breaks: %q", line)
	}

	if _, err := e.w.WriteString(line); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}

	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	return nil
}

// EncodeAll writes each line in order, stopping at the first error.
func (e *Encoder) EncodeAll(lines []string) error {
	for _, line := range lines {
		if err := e.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

// Decoder reads lines from an engine's standard output.
type Decoder struct {
	r *bufio.Scanner
}

// NewDecoder creates a new line decoder.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	// long pv lines at high depth exceed the default 64 KiB token size
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)
	return &Decoder{
		r: scanner,
	}
}

// Decode returns the next line without its terminator. It returns io.EOF
// once the stream is closed.
func (d *Decoder) Decode() (string, error) {
	if !d.r.Scan() {
		if err := d.r.Err(); err != nil {
			return "", fmt.Errorf("scan error: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimRight(d.r.Text(), "\r"), nil
}
