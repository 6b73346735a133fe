// Package payload serializes the per-recipient identity record carried by a
// watermarked frame into a self-delimiting bitstream and parses it back.
//
// The wire form is the ASCII string "identity:signature:frameindex" expanded
// to eight bits per character (MSB first) followed by a fixed 16-bit end
// marker. The end marker lets an extractor scanning arbitrary pixel data
// know where the payload stops without a length prefix.
package payload

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Terminator is the end marker appended after the payload bits,
	// 1111111111111110 in scan order.
	Terminator uint16 = 0xfffe
	// TerminatorBits is the bit length of the end marker.
	TerminatorBits = 16
	// SignatureLen is the expected hex length of the signature field.
	SignatureLen = 16
)

// Decode failures. All of them mean "this bit sequence is not a watermark
// payload" and must be treated as absence, never as a fault: extraction runs
// against arbitrary third-party media and malformed fragments are expected.
var (
	ErrEmptyPayload    = errors.New("payload: no complete character before end marker")
	ErrFieldCount      = errors.New("payload: field count is not 3")
	ErrSignatureLength = errors.New("payload: signature is not 16 characters")
	ErrFrameIndex      = errors.New("payload: frame index is not decimal")
)

// Payload identifies one embedding: which recipient, under which signature,
// at which frame of the sequence.
type Payload struct {
	Identity   string `json:"identity"`
	Signature  string `json:"signature"`
	FrameIndex int    `json:"frame_index"`
}

// String renders the serialized form without the end marker.
func (p Payload) String() string {
	return fmt.Sprintf("%s:%s:%d", p.Identity, p.Signature, p.FrameIndex)
}

// parse splits a recovered string into its three fields, validating shape.
func parse(s string) (Payload, error) {
	if s == "" {
		return Payload{}, ErrEmptyPayload
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Payload{}, fmt.Errorf("%w: got %d", ErrFieldCount, len(parts))
	}
	if len(parts[1]) != SignatureLen {
		return Payload{}, fmt.Errorf("%w: got %d", ErrSignatureLength, len(parts[1]))
	}
	idx, err := strconv.Atoi(parts[2])
	if err != nil || idx < 0 || hasNonDigit(parts[2]) {
		return Payload{}, fmt.Errorf("%w: %q", ErrFrameIndex, parts[2])
	}
	return Payload{
		Identity:   parts[0],
		Signature:  parts[1],
		FrameIndex: idx,
	}, nil
}

// hasNonDigit rejects strings Atoi tolerates, such as "+3".
func hasNonDigit(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}

// TerminatorSuffix returns the end marker as individual bits in scan order.
func TerminatorSuffix() []bool {
	bits := make([]bool, TerminatorBits)
	for i := 0; i < TerminatorBits; i++ {
		bits[i] = (Terminator>>(TerminatorBits-1-i))&1 == 1
	}
	return bits
}
