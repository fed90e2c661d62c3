package output

import (
	"bytes"
	"math"
	"testing"

	"github.com/dtnitsch/bigram-stripes/pkg/bigram"
)

func TestFormatFrequency(t *testing.T) {
	tests := []struct {
		in   float32
		want string
	}{
		{in: 2, want: "2.0"},
		{in: 0.5, want: "0.5"},
		{in: 1, want: "1.0"},
		{in: 1.0 / 3, want: "0.33333334"},
		{in: 0.25, want: "0.25"},
		{in: 12345, want: "12345.0"},
		{in: float32(math.Inf(1)), want: "+Inf"},
	}

	for _, tt := range tests {
		if got := FormatFrequency(tt.in); got != tt.want {
			t.Errorf("FormatFrequency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.WriteAll([]bigram.Output{
		{Key: bigram.Key{Left: "the"}, Frequency: 2},
		{Key: bigram.Key{Left: "the", Right: "fox"}, Frequency: 0.5},
		{Key: bigram.Key{Left: "the", Right: "quick"}, Frequency: 0.5},
	})
	if err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Error("records written before Flush")
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	want := "the\t\t2.0\nthe\tfox\t0.5\nthe\tquick\t0.5\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if w.Count() != 3 {
		t.Errorf("Count() = %d, want 3", w.Count())
	}
}
