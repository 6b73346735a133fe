package payload

import (
	"bytes"

	"github.com/yyyoichi/bitstream-go"

	"github.com/tracemark/tracemark/internal/bitpack"
)

// Codec converts payloads to and from the embeddable bitstream. The zero
// option set uses the plain character encoding; WithGolay adds forward error
// correction. Encoder and decoder must be configured identically.
type Codec struct {
	f factory
}

// NewCodec returns a codec configured by opts. Without options the payload
// bits are used as-is.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{f: plain{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode serializes p, applies the configured coding, and appends the end
// marker. The result is the exact bit sequence an embedder writes.
func (c *Codec) Encode(p Payload) []bool {
	data := []byte(p.String())
	w := bitstream.NewBitWriter[uint64](0, 0)
	for _, b := range data {
		w.Write8(0, 8, b)
	}
	encoded, encodedLen := c.f.encode(w.Data(), len(data)*8)

	r := bitstream.NewBitReader(encoded, 0, 0)
	bits := make([]bool, 0, encodedLen+TerminatorBits)
	for i := 0; i < encodedLen; i++ {
		bit, _ := r.ReadBitAt(i)
		bits = append(bits, bit)
	}
	return append(bits, TerminatorSuffix()...)
}

// Decode parses a bit sequence recovered from a pixel scan. The caller must
// already have located and stripped the end marker; bits holds only the
// prefix before it. An incomplete trailing character is discarded silently.
func (c *Codec) Decode(bits []bool) (Payload, error) {
	raw := c.f.decode(bits)
	// coded forms can round the length up to a block boundary; the padding
	// decodes to NUL bytes, which never occur in a payload string
	raw = bytes.TrimRight(raw, "\x00")
	return parse(string(raw))
}

// EncodedBits reports how many bits Encode produces for p, end marker
// included. Callers use it to pre-validate frame capacity.
func (c *Codec) EncodedBits(p Payload) int {
	return c.f.encodedLen(len(p.String())*8) + TerminatorBits
}

var _ factory = (*plain)(nil)

// plain passes payload bits through without error correction.
type plain struct{}

func (plain) encode(data []uint64, size int) ([]uint64, int) {
	return data, size
}

func (plain) decode(bits []bool) []byte {
	return bitpack.ToBytes(bits)
}

func (plain) encodedLen(size int) int {
	return size
}
