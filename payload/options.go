package payload

import (
	"math/rand"

	"github.com/yyyoichi/bitstream-go"
	"github.com/yyyoichi/golay"

	"github.com/tracemark/tracemark/internal/bitpack"
)

// DefaultShuffleSeed is the shuffle seed used when callers have no reason to
// pick their own.
var DefaultShuffleSeed int64 = 1234567890

type (
	// Option selects the coding applied to payload bits before the end
	// marker is appended.
	Option func(*Codec)

	factory interface {
		encode(data []uint64, size int) ([]uint64, int)
		decode(bits []bool) []byte
		encodedLen(size int) int
	}
)

// WithoutECC encodes the payload characters as-is. This is the default and
// the canonical wire format.
func WithoutECC() Option {
	return func(c *Codec) {
		c.f = plain{}
	}
}

// WithGolay protects the payload with Golay code error correction.
// seed drives a deterministic shuffle of the coded bits so that a localized
// run of damaged pixels spreads across many codewords instead of destroying
// one of them.
func WithGolay(seed int64) Option {
	return func(c *Codec) {
		c.f = shuffledgolay(seed)
	}
}

var _ factory = (*shuffledgolay)(nil)

type shuffledgolay int64

func (sg shuffledgolay) encode(data []uint64, size int) ([]uint64, int) {
	if size == 0 {
		return nil, 0
	}
	var encoded []uint64
	enc := golay.NewEncoder(&encoded)
	_ = enc.Encode(data, size)
	encodedLen := enc.Bits()

	index := sg.generatePermutation(encodedLen)
	r := bitstream.NewBitReader(encoded, 0, 0)
	w := bitstream.NewBitWriter[uint64](0, 0)
	for i := range encodedLen {
		bit, _ := r.ReadBitAt(index[i])
		w.WriteBitAt(i, bit)
	}
	return w.Data(), encodedLen
}

func (sg shuffledgolay) decode(bits []bool) []byte {
	if len(bits) == 0 {
		return nil
	}
	// invert the shuffle, then strip the code
	index := sg.generatePermutation(len(bits))
	w := bitstream.NewBitWriter[uint64](0, 0)
	for i := range bits {
		w.WriteBitAt(index[i], bits[i])
	}

	var decoded []uint64
	dec := golay.NewDecoder(w.Data(), w.Bits())
	_ = dec.Decode(&decoded)

	// the code rounds the data length up to a codeword boundary; recover
	// the data bit count from the coded bit count
	size := dataBits(len(bits))
	r := bitstream.NewBitReader(decoded, 0, 0)
	r.SetBits(size)
	out := make([]bool, size)
	for i := range out {
		out[i], _ = r.ReadBitAt(i)
	}
	return bitpack.ToBytes(out)
}

func (sg shuffledgolay) encodedLen(size int) int {
	return golay.EncodedBits(size)
}

func (sg shuffledgolay) generatePermutation(length int) []int {
	index := make([]int, length)
	for i := range index {
		index[i] = i
	}
	rd := rand.New(rand.NewSource(int64(sg)))
	rd.Shuffle(length, func(i, j int) {
		index[i], index[j] = index[j], index[i]
	})
	return index
}

// dataBits inverts golay.EncodedBits for exact coded lengths: each 23-bit
// codeword carries 12 data bits.
func dataBits(encodedBits int) int {
	return encodedBits / 23 * 12
}
