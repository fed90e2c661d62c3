// Package stripe implements the sparse word -> count map used by the stripes
// approach to bigram counting.
//
// A Stripe never stores a zero count. Merging stripes is a pointwise sum,
// which is commutative and associative, so stripes can be combined in any
// order and at any granularity and still produce the same aggregate.
package stripe

import (
	"fmt"
	"iter"
	"maps"
	"slices"
)

// Stripe maps words to positive counts. The zero value is an empty stripe
// ready to use. A Stripe is not safe for concurrent mutation.
type Stripe struct {
	counts map[string]int
}

// New returns an empty stripe.
func New() *Stripe {
	return &Stripe{counts: make(map[string]int)}
}

// Singleton returns the stripe {word: 1}.
func Singleton(word string) *Stripe {
	return &Stripe{counts: map[string]int{word: 1}}
}

// FromMap builds a stripe from m, skipping zero counts.
// It panics on a negative count.
func FromMap(m map[string]int) *Stripe {
	s := &Stripe{counts: make(map[string]int, len(m))}
	for word, count := range m {
		s.Put(word, count)
	}
	return s
}

func (s *Stripe) init() {
	if s.counts == nil {
		s.counts = make(map[string]int)
	}
}

// Put sets the count for word, replacing any previous value.
// A count of zero removes the word.
func (s *Stripe) Put(word string, count int) {
	if count < 0 {
		panic(fmt.Sprintf("stripe: negative count %d for %q", count, word))
	}
	if count == 0 {
		delete(s.counts, word)
		return
	}
	s.init()
	s.counts[word] = count
}

// Increment adds delta to the count for word, treating a missing word as 0.
// The word is dropped when the result is zero.
func (s *Stripe) Increment(word string, delta int) {
	s.Put(word, s.counts[word]+delta)
}

// Merge adds every entry of other into s. other is left unchanged.
func (s *Stripe) Merge(other *Stripe) {
	if other == nil || len(other.counts) == 0 {
		return
	}
	s.init()
	for word, count := range other.counts {
		s.counts[word] += count
	}
}

// Sum returns a new stripe holding the merge of all stripes.
func Sum(stripes ...*Stripe) *Stripe {
	acc := New()
	for _, s := range stripes {
		acc.Merge(s)
	}
	return acc
}

// Clear removes every entry.
func (s *Stripe) Clear() {
	clear(s.counts)
}

// Total returns the sum of all counts.
func (s *Stripe) Total() int {
	total := 0
	for _, count := range s.counts {
		total += count
	}
	return total
}

// Len returns the number of distinct words.
func (s *Stripe) Len() int {
	return len(s.counts)
}

// Get returns the count for word and whether it is present.
func (s *Stripe) Get(word string) (int, bool) {
	count, ok := s.counts[word]
	return count, ok
}

// All yields every (word, count) entry in unspecified order.
func (s *Stripe) All() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for word, count := range s.counts {
			if !yield(word, count) {
				return
			}
		}
	}
}

// Sorted yields every (word, count) entry in ascending word order.
func (s *Stripe) Sorted() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for _, word := range slices.Sorted(maps.Keys(s.counts)) {
			if !yield(word, s.counts[word]) {
				return
			}
		}
	}
}

// Clone returns an independent copy of s.
func (s *Stripe) Clone() *Stripe {
	c := New()
	maps.Copy(c.counts, s.counts)
	return c
}

// Equal reports whether s and other hold the same entries.
func (s *Stripe) Equal(other *Stripe) bool {
	return maps.Equal(s.counts, other.counts)
}

func (s *Stripe) String() string {
	return fmt.Sprint(s.counts)
}
