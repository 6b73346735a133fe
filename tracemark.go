// Package tracemark embeds a hidden per-recipient identity payload into
// image and video frames and recovers it from a candidate copy, so a leaked
// file can be traced back to the recipient it was delivered to.
//
// The recoverable method writes the payload into the least-significant bits
// of the blue channel in row-major order, terminated by a fixed end
// marker. A second, one-way method applies a signature-seeded sparse blur
// for forensic comparison; it shares the embedding entry points but cannot
// be extracted.
package tracemark

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/tracemark/tracemark/internal/blur"
	"github.com/tracemark/tracemark/internal/lsb"
	"github.com/tracemark/tracemark/payload"
)

// Method selects how the identity is written into frames.
type Method string

const (
	// MethodLSB hides the payload in least-significant bits and is the
	// only method the extractor can recover.
	MethodLSB Method = "lsb"
	// MethodPerceptual applies the one-way blur fingerprint.
	MethodPerceptual Method = "perceptual"
)

var (
	ErrUnknownMethod = errors.New("tracemark: unknown watermark method")
	ErrStrength      = errors.New("tracemark: strength must be within [0.0, 1.0]")
	// ErrNoWatermark reports absence: either no end marker was found or
	// the bits before it do not parse as a payload. Malformed fragments
	// recovered from arbitrary media are expected and never a fault.
	ErrNoWatermark = errors.New("tracemark: no watermark found")
)

// Watermarker embeds and extracts watermarks for one identity under one
// immutable configuration. The signature is derived once at construction.
// Independent Watermarkers share no state and may be used concurrently.
type Watermarker struct {
	identity   string
	method     Method
	strength   float64
	channel    lsb.Channel
	scanBudget int
	signature  string
	codec      *payload.Codec
	perceptual *blur.Embedder
	logger     *zap.Logger
}

// New builds a Watermarker for the given recipient identity. The identity
// is an opaque caller-chosen string; any value, including empty, is
// accepted. Defaults: method lsb, strength 0.1, blue channel, scan budget
// of 100 frames, no error correction.
func New(identity string, opts ...Option) (*Watermarker, error) {
	w := &Watermarker{
		identity:   identity,
		method:     MethodLSB,
		strength:   0.1,
		channel:    lsb.Blue,
		scanBudget: 100,
		logger:     zap.NewNop(),
	}
	var payloadOpts []payload.Option
	for _, opt := range opts {
		if err := opt(w, &payloadOpts); err != nil {
			return nil, err
		}
	}
	if w.strength < 0 || w.strength > 1 {
		return nil, fmt.Errorf("%w: %v", ErrStrength, w.strength)
	}
	switch w.method {
	case MethodLSB, MethodPerceptual:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, w.method)
	}

	w.signature = GenerateSignature(w.identity, w.method, w.strength)
	w.codec = payload.NewCodec(payloadOpts...)

	p, err := blur.New(w.signature, w.strength)
	if err != nil {
		return nil, err
	}
	w.perceptual = p
	return w, nil
}

// Identity returns the configured recipient identity.
func (w *Watermarker) Identity() string { return w.identity }

// Signature returns the 16-hex-character signature derived from the
// configuration.
func (w *Watermarker) Signature() string { return w.signature }

// Method returns the configured embedding method.
func (w *Watermarker) Method() Method { return w.method }

// EmbedFrame watermarks a single frame and returns the modified copy; the
// input is never mutated. frameIndex is recorded in the payload so an
// extracted mark names the exact frame it came from.
//
// A frame with fewer pixels than the payload has bits takes a truncated,
// unreconstructable payload. That boundary is logged but deliberately not
// an error; callers needing a hard failure check PayloadBits against the
// frame size first.
func (w *Watermarker) EmbedFrame(ctx context.Context, src image.Image, frameIndex int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frame := lsb.Normalize(src)
	switch w.method {
	case MethodPerceptual:
		w.perceptual.Apply(frame)
	default:
		bits := w.codec.Encode(payload.Payload{
			Identity:   w.identity,
			Signature:  w.signature,
			FrameIndex: frameIndex,
		})
		if capacity := lsb.Capacity(frame.Bounds()); capacity < len(bits) {
			w.logger.Warn("frame below payload capacity, embedding truncated",
				zap.Int("capacity_bits", capacity),
				zap.Int("payload_bits", len(bits)),
				zap.Int("frame_index", frameIndex))
		}
		lsb.Embed(frame, w.channel, bits)
	}
	return frame, nil
}

// ExtractFrame scans a single frame for an embedded payload. It stops at
// the first end-marker match; whether decoding succeeds or not, the scan
// never looks for a second embedding in the same frame. Absence and a
// malformed payload both surface as ErrNoWatermark; the underlying decode
// error stays inspectable through errors.Is.
func (w *Watermarker) ExtractFrame(ctx context.Context, src image.Image) (payload.Payload, error) {
	if err := ctx.Err(); err != nil {
		return payload.Payload{}, err
	}
	frame := lsb.Normalize(src)
	bits, ok := lsb.Extract(frame, w.channel, payload.Terminator)
	if !ok {
		return payload.Payload{}, ErrNoWatermark
	}
	p, err := w.codec.Decode(bits)
	if err != nil {
		return payload.Payload{}, fmt.Errorf("%w: %w", ErrNoWatermark, err)
	}
	return p, nil
}

// PayloadBits reports how many bits the payload for frameIndex occupies,
// end marker included. A frame must have at least this many pixels to carry
// the full payload.
func (w *Watermarker) PayloadBits(frameIndex int) int {
	return w.codec.EncodedBits(payload.Payload{
		Identity:   w.identity,
		Signature:  w.signature,
		FrameIndex: frameIndex,
	})
}
