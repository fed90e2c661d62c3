package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned when decoding a stripe that is not well formed.
var ErrMalformed = errors.New("malformed stripe")

// Wire layout, protobuf compatible:
//
//	message Stripe { repeated Entry entry = 1; }
//	message Entry  { string word = 1; uint64 count = 2; }
//
// Entries are written in ascending word order so that equal stripes encode
// to identical bytes.
const (
	fieldEntry protowire.Number = 1
	fieldWord  protowire.Number = 1
	fieldCount protowire.Number = 2
)

// AppendBinary appends the wire encoding of s to b.
func (s *Stripe) AppendBinary(b []byte) ([]byte, error) {
	var entry []byte
	for word, count := range s.Sorted() {
		entry = entry[:0]
		entry = protowire.AppendTag(entry, fieldWord, protowire.BytesType)
		entry = protowire.AppendString(entry, word)
		entry = protowire.AppendTag(entry, fieldCount, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(count))

		b = protowire.AppendTag(b, fieldEntry, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b, nil
}

// MarshalBinary returns the wire encoding of s.
func (s *Stripe) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(nil)
}

// UnmarshalBinary replaces the contents of s with the decoded stripe.
func (s *Stripe) UnmarshalBinary(data []byte) error {
	decoded := New()
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		if num != fieldEntry || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		entry, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		word, count, err := consumeEntry(entry)
		if err != nil {
			return err
		}
		if _, dup := decoded.counts[word]; dup {
			return fmt.Errorf("%w: duplicate word %q", ErrMalformed, word)
		}
		decoded.counts[word] = count
	}

	s.counts = decoded.counts
	return nil
}

func consumeEntry(b []byte) (string, int, error) {
	var (
		word     string
		count    uint64
		hasWord  bool
		hasCount bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", 0, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldWord && typ == protowire.BytesType:
			word, n = protowire.ConsumeString(b)
			hasWord = true
		case num == fieldCount && typ == protowire.VarintType:
			count, n = protowire.ConsumeVarint(b)
			hasCount = true
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return "", 0, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
	}

	if !hasWord || !hasCount {
		return "", 0, fmt.Errorf("%w: incomplete entry", ErrMalformed)
	}
	if count == 0 {
		return "", 0, fmt.Errorf("%w: zero count for %q", ErrMalformed, word)
	}
	if count > math.MaxInt {
		return "", 0, fmt.Errorf("%w: count %d for %q overflows int", ErrMalformed, count, word)
	}
	return word, int(count), nil
}

// MarshalJSON encodes s as a JSON object of word to count.
func (s *Stripe) MarshalJSON() ([]byte, error) {
	if s.counts == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.counts)
}

// UnmarshalJSON replaces the contents of s with the decoded object.
// Counts must be positive.
func (s *Stripe) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for word, count := range m {
		if count <= 0 {
			return fmt.Errorf("%w: count %d for %q", ErrMalformed, count, word)
		}
	}
	if m == nil {
		m = make(map[string]int)
	}
	s.counts = m
	return nil
}
