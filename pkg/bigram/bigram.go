// Package bigram computes relative bigram frequencies with the stripes
// approach: the mapper emits one singleton stripe per adjacent word pair, the
// optional combiner merges stripes that share a left word, and the reducer
// merges everything left for a key and normalises it by the key's total.
//
// All functions are pure. Calling them again on the same input produces the
// same output, which is what lets a task be retried from scratch.
package bigram

import (
	"errors"
	"fmt"
	"iter"

	"github.com/dtnitsch/bigram-stripes/pkg/stripe"
	"github.com/dtnitsch/bigram-stripes/pkg/tokenizer"
)

// ErrEmptyGroup means a reducer saw a key whose stripes add up to zero.
// Grouping guarantees at least one non-empty stripe per key, so this is an
// upstream invariant violation, not bad input.
var ErrEmptyGroup = errors.New("empty stripe group")

// Record is a (left word, stripe) pair exchanged between map and reduce.
type Record struct {
	Key    string
	Stripe *stripe.Stripe
}

// Key identifies one output value. An empty Right marks the record holding
// the total count for Left.
type Key struct {
	Left  string
	Right string
}

// IsTotal reports whether k is the total sentinel for its left word.
func (k Key) IsTotal() bool {
	return k.Right == ""
}

// Output is one reducer result: a relative frequency, or the total count
// when Key.IsTotal.
type Output struct {
	Key       Key
	Frequency float32
}

// Map emits (w[i], {w[i+1]: 1}) for every adjacent pair of tokens in line.
func Map(line string, emit func(Record)) {
	var prev string
	for word := range tokenizer.Tokens(line) {
		if prev != "" {
			emit(Record{Key: prev, Stripe: stripe.Singleton(word)})
		}
		prev = word
	}
}

// MapCombined is Map with in-mapper combining: pairs sharing a left word
// within the line are merged before emission, so each distinct left word is
// emitted once, in order of first appearance.
func MapCombined(line string, emit func(Record)) {
	var (
		order   []string
		stripes = make(map[string]*stripe.Stripe)
	)
	Map(line, func(r Record) {
		acc, ok := stripes[r.Key]
		if !ok {
			acc = stripe.New()
			stripes[r.Key] = acc
			order = append(order, r.Key)
		}
		acc.Merge(r.Stripe)
	})
	for _, key := range order {
		emit(Record{Key: key, Stripe: stripes[key]})
	}
}

// Combine merges stripes that share key into a single record.
// The input stripes are not modified.
func Combine(key string, stripes iter.Seq[*stripe.Stripe]) Record {
	acc := stripe.New()
	for s := range stripes {
		acc.Merge(s)
	}
	return Record{Key: key, Stripe: acc}
}

// Reduce merges every stripe for key, then emits the total followed by the
// relative frequency of each right word, in ascending right-word order.
// Nothing is emitted when an error is returned.
func Reduce(key string, stripes iter.Seq[*stripe.Stripe], emit func(Output)) error {
	aggregate := Combine(key, stripes).Stripe
	total := aggregate.Total()
	if total == 0 {
		return fmt.Errorf("reduce %q: %w", key, ErrEmptyGroup)
	}

	emit(Output{Key: Key{Left: key}, Frequency: float32(total)})
	for right, count := range aggregate.Sorted() {
		emit(Output{
			Key:       Key{Left: key, Right: right},
			Frequency: float32(count) / float32(total),
		})
	}
	return nil
}
