// Package output writes reducer records as text lines of the form
// left<TAB>right<TAB>frequency.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/dtnitsch/bigram-stripes/pkg/bigram"
)

// FormatFrequency renders f as the shortest decimal that round-trips through
// float32, keeping a ".0" on integral values (2 becomes "2.0").
func FormatFrequency(f float32) string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

// FormatRecord renders o as a single output line without the newline.
func FormatRecord(o bigram.Output) string {
	return o.Key.Left + "\t" + o.Key.Right + "\t" + FormatFrequency(o.Frequency)
}

// Writer buffers records onto an io.Writer. Call Flush when done.
type Writer struct {
	w     *bufio.Writer
	count int64
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) Write(o bigram.Output) error {
	if _, err := w.w.WriteString(FormatRecord(o)); err != nil {
		return err
	}
	w.count++
	return w.w.WriteByte('\n')
}

// WriteAll writes every record of outputs in order.
func (w *Writer) WriteAll(outputs []bigram.Output) error {
	for _, o := range outputs {
		if err := w.Write(o); err != nil {
			return err
		}
	}
	return nil
}

// Count is the number of records written so far.
func (w *Writer) Count() int64 {
	return w.count
}

func (w *Writer) Flush() error {
	return w.w.Flush()
}
