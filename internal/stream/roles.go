// Package stream runs the mapper, combiner and reducer as standalone
// filters over text streams, the way Hadoop Streaming drives external
// programs. Combine and reduce input must be sorted by key.
package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"unicode/utf8"

	"github.com/dtnitsch/bigram-stripes/pkg/bigram"
	"github.com/dtnitsch/bigram-stripes/pkg/output"
	"github.com/dtnitsch/bigram-stripes/pkg/stripe"
)

// ErrUnsorted is returned when a key reappears after a different key.
var ErrUnsorted = errors.New("input not sorted by key")

// Map reads text lines from in and writes one intermediate record per
// adjacent word pair, or one per left word and line with inMapperCombining.
// Lines that are not valid UTF-8 fail the run.
func Map(in io.Reader, out io.Writer, inMapperCombining bool) error {
	mapFn := bigram.Map
	if inMapperCombining {
		mapFn = bigram.MapCombined
	}

	w := NewRecordWriter(out)
	br := bufio.NewReader(in)
	var writeErr error
	for n := 1; ; n++ {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if !utf8.ValidString(line) {
				return fmt.Errorf("line %d: %w", n, ErrInvalidUTF8)
			}
			mapFn(line, func(r bigram.Record) {
				if writeErr == nil {
					writeErr = w.Write(r)
				}
			})
			if writeErr != nil {
				return writeErr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return w.Flush()
}

// Combine merges each run of records sharing a key into one record.
func Combine(in io.Reader, out io.Writer) error {
	w := NewRecordWriter(out)
	err := groupByKey(NewRecordReader(in), func(key string, stripes []*stripe.Stripe) error {
		return w.Write(bigram.Combine(key, slices.Values(stripes)))
	})
	if err != nil {
		return err
	}
	return w.Flush()
}

// Reduce writes the total and relative frequencies for each key as
// left<TAB>right<TAB>frequency lines.
func Reduce(in io.Reader, out io.Writer) error {
	w := output.NewWriter(out)
	var writeErr error
	err := groupByKey(NewRecordReader(in), func(key string, stripes []*stripe.Stripe) error {
		err := bigram.Reduce(key, slices.Values(stripes), func(o bigram.Output) {
			if writeErr == nil {
				writeErr = w.Write(o)
			}
		})
		if err != nil {
			return err
		}
		return writeErr
	})
	if err != nil {
		return err
	}
	return w.Flush()
}

// groupByKey calls fn once per run of contiguous equal keys.
func groupByKey(r *RecordReader, fn func(key string, stripes []*stripe.Stripe) error) error {
	var (
		curKey  string
		stripes []*stripe.Stripe
		seen    = make(map[string]bool)
	)

	flush := func() error {
		if len(stripes) == 0 {
			return nil
		}
		seen[curKey] = true
		err := fn(curKey, stripes)
		stripes = nil
		return err
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			return flush()
		}
		if err != nil {
			return err
		}

		if len(stripes) > 0 && rec.Key != curKey {
			if err := flush(); err != nil {
				return err
			}
		}
		if len(stripes) == 0 {
			if seen[rec.Key] {
				return fmt.Errorf("%w: %q seen again", ErrUnsorted, rec.Key)
			}
			curKey = rec.Key
		}
		stripes = append(stripes, rec.Stripe)
	}
}
