// Package lsb reads and writes bit sequences in the least-significant bits
// of one channel of a pixel grid. Pixels are visited in row-major order,
// row 0 left to right, then row 1, and so on. Writing flips at most one
// unit of the channel value per pixel, which keeps the change invisible.
package lsb

import (
	"image"
	"image/draw"
)

// Channel selects which 8-bit channel of a pixel carries the bits.
type Channel int

const (
	Red Channel = iota
	Green
	// Blue is the conventional carrier channel.
	Blue
)

// offset is the channel's byte position within an NRGBA pixel.
func (c Channel) offset() int {
	return int(c)
}

func (c Channel) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	}
	return "unknown"
}

// Capacity reports how many bits a grid of the given bounds can carry at
// one bit per pixel.
func Capacity(bounds image.Rectangle) int {
	return bounds.Dx() * bounds.Dy()
}

// plane streams the byte indices of one channel in row-major order, hiding
// the stride layout from the embed and extract loops.
type plane struct {
	pix           []uint8
	stride        int
	width, height int
	offset        int
	x, y          int
}

func newPlane(img *image.NRGBA, ch Channel) *plane {
	return &plane{
		pix:    img.Pix,
		stride: img.Stride,
		width:  img.Rect.Dx(),
		height: img.Rect.Dy(),
		offset: ch.offset(),
	}
}

// next returns the index into pix of the current pixel's channel byte and
// advances. ok is false once every pixel has been visited.
func (p *plane) next() (idx int, ok bool) {
	if p.y >= p.height {
		return 0, false
	}
	idx = p.y*p.stride + p.x*4 + p.offset
	p.x++
	if p.x >= p.width {
		p.x = 0
		p.y++
	}
	return idx, true
}

// Embed overwrites the least-significant bit of the chosen channel with the
// next bit of bits, pixel by pixel, and stops once bits is exhausted.
// Pixels beyond that point are untouched. If the grid runs out first the
// remaining bits are dropped; the written payload is then unreconstructable
// and callers that need a hard failure must check Capacity beforehand.
// Returns the number of bits actually written.
func Embed(img *image.NRGBA, ch Channel, bits []bool) int {
	p := newPlane(img, ch)
	written := 0
	for _, bit := range bits {
		idx, ok := p.next()
		if !ok {
			break
		}
		v := img.Pix[idx] & 0xfe
		if bit {
			v |= 1
		}
		img.Pix[idx] = v
		written++
	}
	return written
}

// Extract scans the channel's least-significant bits in the same order and
// watches for the 16-bit end marker. On the first match it returns the bits
// preceding the marker and true; the scan never continues past the first
// match. If the grid is exhausted without a match it returns nil and false.
func Extract(img *image.NRGBA, ch Channel, marker uint16) ([]bool, bool) {
	p := newPlane(img, ch)
	var (
		bits   []bool
		window uint16
	)
	for {
		idx, ok := p.next()
		if !ok {
			return nil, false
		}
		bit := img.Pix[idx]&1 == 1
		bits = append(bits, bit)
		window <<= 1
		if bit {
			window |= 1
		}
		if len(bits) >= 16 && window == marker {
			return bits[:len(bits)-16], true
		}
	}
}

// Normalize returns src as an NRGBA grid with identical 8-bit pixel values.
// The copy is always fresh so embedding never mutates the caller's image.
func Normalize(src image.Image) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}
