// Package bitpack converts between byte slices and bit slices.
// Bits are ordered most-significant-bit first within each byte, matching
// the on-pixel layout of the watermark bitstream.
package bitpack

// FromBytes expands each byte into eight bits, MSB first.
func FromBytes(b []byte) []bool {
	bits := make([]bool, 0, len(b)*8)
	for _, bb := range b {
		for i := 7; i >= 0; i-- {
			bits = append(bits, ((bb>>uint(i))&1) == 1)
		}
	}
	return bits
}

// ToBytes packs bits into bytes, MSB first. A trailing group of fewer than
// eight bits is discarded; a bit sequence recovered from a pixel scan can
// end mid-byte and the incomplete tail carries no payload character.
func ToBytes(bits []bool) []byte {
	n := len(bits) / 8
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		var v byte
		for j := 0; j < 8; j++ {
			if bits[i*8+j] {
				v |= 1 << uint(7-j)
			}
		}
		out[i] = v
	}
	return out
}
