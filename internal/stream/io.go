package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dtnitsch/bigram-stripes/pkg/bigram"
	"github.com/dtnitsch/bigram-stripes/pkg/stripe"
)

// ErrBadLine is returned for an intermediate line that is not key<TAB>stripe.
var ErrBadLine = errors.New("malformed intermediate record")

// ErrInvalidUTF8 is returned for text that the JSON stripe encoding could
// not carry without rewriting it.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// RecordWriter writes records as key<TAB>{"word":count,...} lines.
type RecordWriter struct {
	*bufio.Writer
}

func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{bufio.NewWriter(w)}
}

func (w *RecordWriter) Write(r bigram.Record) error {
	if !utf8.ValidString(r.Key) {
		return fmt.Errorf("%w in key %q", ErrInvalidUTF8, r.Key)
	}
	for word := range r.Stripe.All() {
		if !utf8.ValidString(word) {
			return fmt.Errorf("%w in word %q", ErrInvalidUTF8, word)
		}
	}
	val, err := r.Stripe.MarshalJSON()
	if err != nil {
		return err
	}
	if _, err := w.WriteString(r.Key); err != nil {
		return err
	}
	if err := w.WriteByte('\t'); err != nil {
		return err
	}
	if _, err := w.Writer.Write(val); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

// RecordReader reads the lines RecordWriter produces.
type RecordReader struct {
	r    *bufio.Reader
	line int
}

func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{r: bufio.NewReader(r)}
}

// Read returns the next record, or io.EOF when the input is exhausted.
// Blank lines are skipped.
func (r *RecordReader) Read() (bigram.Record, error) {
	for {
		line, err := r.r.ReadString('\n')
		if line == "" && err != nil {
			return bigram.Record{}, err
		}
		r.line++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		if !utf8.ValidString(line) {
			return bigram.Record{}, fmt.Errorf("line %d: %w: %w", r.line, ErrBadLine, ErrInvalidUTF8)
		}
		key, val, ok := strings.Cut(line, "\t")
		if !ok {
			return bigram.Record{}, fmt.Errorf("line %d: %w: no tab", r.line, ErrBadLine)
		}
		s := stripe.New()
		if err := s.UnmarshalJSON([]byte(val)); err != nil {
			return bigram.Record{}, fmt.Errorf("line %d: %w: %w", r.line, ErrBadLine, err)
		}
		return bigram.Record{Key: key, Stripe: s}, nil
	}
}
