package bigram

import (
	"fmt"

	"github.com/dtnitsch/bigram-stripes/pkg/stripe"
	"google.golang.org/protobuf/encoding/protowire"
)

// message Record { string key = 1; Stripe stripe = 2; }
const (
	fieldKey    protowire.Number = 1
	fieldStripe protowire.Number = 2
)

// AppendRecord appends r to b as a length-delimited wire message, so records
// can be concatenated into a segment and read back with ConsumeRecord.
func AppendRecord(b []byte, r Record) ([]byte, error) {
	var msg []byte
	msg = protowire.AppendTag(msg, fieldKey, protowire.BytesType)
	msg = protowire.AppendString(msg, r.Key)

	body, err := r.Stripe.MarshalBinary()
	if err != nil {
		return b, err
	}
	msg = protowire.AppendTag(msg, fieldStripe, protowire.BytesType)
	msg = protowire.AppendBytes(msg, body)

	return protowire.AppendBytes(b, msg), nil
}

// ConsumeRecord decodes the first record of b and returns it with the number
// of bytes read.
func ConsumeRecord(b []byte) (Record, int, error) {
	msg, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return Record{}, 0, fmt.Errorf("%w: %v", stripe.ErrMalformed, protowire.ParseError(n))
	}

	r := Record{Stripe: stripe.New()}
	for len(msg) > 0 {
		num, typ, m := protowire.ConsumeTag(msg)
		if m < 0 {
			return Record{}, 0, fmt.Errorf("%w: %v", stripe.ErrMalformed, protowire.ParseError(m))
		}
		msg = msg[m:]

		switch {
		case num == fieldKey && typ == protowire.BytesType:
			r.Key, m = protowire.ConsumeString(msg)
		case num == fieldStripe && typ == protowire.BytesType:
			var body []byte
			body, m = protowire.ConsumeBytes(msg)
			if m >= 0 {
				if err := r.Stripe.UnmarshalBinary(body); err != nil {
					return Record{}, 0, err
				}
			}
		default:
			m = protowire.ConsumeFieldValue(num, typ, msg)
		}
		if m < 0 {
			return Record{}, 0, fmt.Errorf("%w: %v", stripe.ErrMalformed, protowire.ParseError(m))
		}
		msg = msg[m:]
	}
	return r, n, nil
}
