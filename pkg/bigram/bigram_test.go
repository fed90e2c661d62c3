package bigram

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/dtnitsch/bigram-stripes/pkg/stripe"
)

func collectMap(mapFn func(string, func(Record)), lines ...string) []Record {
	var out []Record
	for _, line := range lines {
		mapFn(line, func(r Record) { out = append(out, r) })
	}
	return out
}

// groupByKey does what the shuffle does: collect stripes per key.
func groupByKey(records []Record) map[string][]*stripe.Stripe {
	groups := make(map[string][]*stripe.Stripe)
	for _, r := range records {
		groups[r.Key] = append(groups[r.Key], r.Stripe)
	}
	return groups
}

func reduceAll(t *testing.T, groups map[string][]*stripe.Stripe) map[Key]float32 {
	t.Helper()
	out := make(map[Key]float32)
	for key, stripes := range groups {
		err := Reduce(key, slices.Values(stripes), func(o Output) {
			if _, dup := out[o.Key]; dup {
				t.Errorf("duplicate output for %v", o.Key)
			}
			out[o.Key] = o.Frequency
		})
		if err != nil {
			t.Fatalf("Reduce(%q) error = %v", key, err)
		}
	}
	return out
}

// combineRandomly runs the combiner over random sub-partitions of each key's
// records, a random number of rounds, the way a substrate is allowed to.
func combineRandomly(r *rand.Rand, records []Record) []Record {
	out := slices.Clone(records)
	rounds := r.IntN(4)
	for range rounds {
		r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		var next []Record
		for key, stripes := range groupByKey(out) {
			for len(stripes) > 0 {
				n := 1 + r.IntN(len(stripes))
				next = append(next, Combine(key, slices.Values(stripes[:n])))
				stripes = stripes[n:]
			}
		}
		out = next
	}
	return out
}

func TestMap(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{name: "example line", line: "the quick the fox", want: []string{"the->quick", "quick->the", "the->fox"}},
		{name: "single token", line: "alone", want: nil},
		{name: "empty line", line: "", want: nil},
		{name: "extra whitespace", line: "  a \t b  ", want: []string{"a->b"}},
		{name: "repeated pair", line: "a b a b", want: []string{"a->b", "b->a", "a->b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			Map(tt.line, func(r Record) {
				if r.Stripe.Len() != 1 || r.Stripe.Total() != 1 {
					t.Errorf("emitted stripe %v is not a singleton", r.Stripe)
				}
				for right := range r.Stripe.All() {
					got = append(got, r.Key+"->"+right)
				}
			})
			if !slices.Equal(got, tt.want) {
				t.Errorf("Map(%q) pairs = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestMap_FreshStripePerEmission(t *testing.T) {
	records := collectMap(Map, "a b a b")
	records[0].Stripe.Increment("zzz", 5)
	if records[2].Stripe.Len() != 1 {
		t.Error("emitted stripes must not share storage")
	}
}

func TestReduce_ExampleLine(t *testing.T) {
	out := reduceAll(t, groupByKey(collectMap(Map, "the quick the fox")))

	want := map[Key]float32{
		{Left: "the"}:                 2,
		{Left: "the", Right: "quick"}: 0.5,
		{Left: "the", Right: "fox"}:   0.5,
		{Left: "quick"}:               1,
		{Left: "quick", Right: "the"}: 1,
	}
	if len(out) != len(want) {
		t.Fatalf("got %d outputs, want %d: %v", len(out), len(want), out)
	}
	for k, v := range want {
		if out[k] != v {
			t.Errorf("output[%v] = %v, want %v", k, out[k], v)
		}
	}
}

func TestReduce_TotalFirst(t *testing.T) {
	stripes := []*stripe.Stripe{
		stripe.FromMap(map[string]int{"b": 2, "c": 1}),
		stripe.Singleton("a"),
	}

	var got []Output
	if err := Reduce("x", slices.Values(stripes), func(o Output) { got = append(got, o) }); err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}

	if len(got) != 4 {
		t.Fatalf("got %d outputs, want 4", len(got))
	}
	if !got[0].Key.IsTotal() || got[0].Frequency != 4 {
		t.Errorf("first output = %+v, want total 4", got[0])
	}
	for _, o := range got[1:] {
		if o.Key.IsTotal() {
			t.Errorf("total emitted twice: %+v", o)
		}
	}
}

func TestReduce_ZeroTotalFailsFast(t *testing.T) {
	tests := []struct {
		name    string
		stripes []*stripe.Stripe
	}{
		{name: "no stripes", stripes: nil},
		{name: "only empty stripes", stripes: []*stripe.Stripe{stripe.New(), {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emitted := 0
			err := Reduce("k", slices.Values(tt.stripes), func(Output) { emitted++ })
			if !errors.Is(err, ErrEmptyGroup) {
				t.Errorf("Reduce() error = %v, want ErrEmptyGroup", err)
			}
			if emitted != 0 {
				t.Errorf("emitted %d outputs on failure", emitted)
			}
		})
	}
}

func TestReduce_RepeatedLineWithCombiner(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 8))
	raw := collectMap(Map, "a b", "a b", "a b")

	for i := range 100 {
		out := reduceAll(t, groupByKey(combineRandomly(r, raw)))
		if out[Key{Left: "a"}] != 3 {
			t.Fatalf("case %d: total = %v, want 3", i, out[Key{Left: "a"}])
		}
		if out[Key{Left: "a", Right: "b"}] != 1 {
			t.Fatalf("case %d: a->b = %v, want 1", i, out[Key{Left: "a", Right: "b"}])
		}
		if len(out) != 2 {
			t.Fatalf("case %d: got %d outputs, want 2", i, len(out))
		}
	}
}

var corpus = []string{
	"the quick brown fox jumps over the lazy dog",
	"the dog barks and the fox runs",
	"a b a b a b c",
	"",
	"single",
	"to be or not to be that is the question",
	"the the the the",
}

func TestCombine_InvariantUnderPartitioning(t *testing.T) {
	r := rand.New(rand.NewPCG(9, 10))
	raw := collectMap(Map, corpus...)
	want := reduceAll(t, groupByKey(raw))

	for i := range 200 {
		got := reduceAll(t, groupByKey(combineRandomly(r, raw)))
		if len(got) != len(want) {
			t.Fatalf("case %d: %d outputs, want %d", i, len(got), len(want))
		}
		for k, v := range want {
			if got[k] != v {
				t.Fatalf("case %d: output[%v] = %v, want %v", i, k, got[k], v)
			}
		}
	}
}

func TestCombine_DoesNotMutateInputs(t *testing.T) {
	a := stripe.Singleton("x")
	b := stripe.FromMap(map[string]int{"x": 2, "y": 1})
	rec := Combine("k", slices.Values([]*stripe.Stripe{a, b}))

	if rec.Key != "k" || rec.Stripe.Total() != 4 {
		t.Errorf("Combine() = %v %v", rec.Key, rec.Stripe)
	}
	if a.Total() != 1 || b.Total() != 3 {
		t.Error("Combine must not mutate its inputs")
	}
}

func TestMapCombined_EquivalentToMap(t *testing.T) {
	for _, line := range corpus {
		perPair := collectMap(Map, line)
		perLine := collectMap(MapCombined, line)

		if len(perLine) > len(perPair) {
			t.Errorf("%q: in-mapper combining emitted more records (%d > %d)", line, len(perLine), len(perPair))
		}
		a, b := groupByKey(perPair), groupByKey(perLine)
		for key := range a {
			if !stripe.Sum(a[key]...).Equal(stripe.Sum(b[key]...)) {
				t.Errorf("%q: aggregate for %q differs", line, key)
			}
		}
	}
}

func TestFrequenciesSumToOne(t *testing.T) {
	r := rand.New(rand.NewPCG(11, 12))
	vocab := strings.Fields("a b c d e f g h")
	var lines []string
	for range 300 {
		words := make([]string, r.IntN(12))
		for i := range words {
			words[i] = vocab[r.IntN(len(vocab))]
		}
		lines = append(lines, strings.Join(words, " "))
	}

	sums := make(map[string]float64)
	totals := make(map[string]float32)
	for k, v := range reduceAll(t, groupByKey(collectMap(Map, lines...))) {
		if k.IsTotal() {
			totals[k.Left] = v
			continue
		}
		sums[k.Left] += float64(v)
	}

	for left, total := range totals {
		if total < 1 {
			t.Errorf("total for %q = %v", left, total)
		}
		if math.Abs(sums[left]-1) > 1e-6 {
			t.Errorf("frequencies for %q sum to %v", left, sums[left])
		}
	}
}

func TestRecordCodec(t *testing.T) {
	records := collectMap(MapCombined, "the quick the fox the quick")

	var segment []byte
	for _, r := range records {
		var err error
		segment, err = AppendRecord(segment, r)
		if err != nil {
			t.Fatalf("AppendRecord() error = %v", err)
		}
	}

	for i := 0; len(segment) > 0; i++ {
		r, n, err := ConsumeRecord(segment)
		if err != nil {
			t.Fatalf("ConsumeRecord() error = %v", err)
		}
		segment = segment[n:]
		if r.Key != records[i].Key || !r.Stripe.Equal(records[i].Stripe) {
			t.Errorf("record %d = %s %v, want %s %v", i, r.Key, r.Stripe, records[i].Key, records[i].Stripe)
		}
	}
}

func TestConsumeRecord_Truncated(t *testing.T) {
	b, _ := AppendRecord(nil, Record{Key: "a", Stripe: stripe.Singleton("b")})
	if _, _, err := ConsumeRecord(b[:len(b)-1]); !errors.Is(err, stripe.ErrMalformed) {
		t.Errorf("ConsumeRecord() error = %v, want ErrMalformed", err)
	}
}

func ExampleReduce() {
	var records []Record
	Map("the quick the fox", func(r Record) { records = append(records, r) })

	var stripes []*stripe.Stripe
	for _, r := range records {
		if r.Key == "the" {
			stripes = append(stripes, r.Stripe)
		}
	}

	_ = Reduce("the", slices.Values(stripes), func(o Output) {
		fmt.Printf("%s\t%s\t%v\n", o.Key.Left, o.Key.Right, o.Frequency)
	})
	// Output:
	// the		2
	// the	fox	0.5
	// the	quick	0.5
}
