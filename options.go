package tracemark

import (
	"go.uber.org/zap"

	"github.com/tracemark/tracemark/payload"
)

// Option configures a Watermarker at construction. The configuration is
// immutable afterwards.
type Option func(*Watermarker, *[]payload.Option) error

// WithMethod selects the embedding method. Only MethodLSB embeddings can
// be extracted later.
func WithMethod(m Method) Option {
	return func(w *Watermarker, _ *[]payload.Option) error {
		w.method = m
		return nil
	}
}

// WithStrength sets the perceptual-distortion strength in [0.0, 1.0]. It
// has no effect on the LSB method beyond changing the derived signature.
func WithStrength(s float64) Option {
	return func(w *Watermarker, _ *[]payload.Option) error {
		w.strength = s
		return nil
	}
}

// WithScanBudget bounds how many frames extraction and verification scan
// before giving up on a sequence.
func WithScanBudget(frames int) Option {
	return func(w *Watermarker, _ *[]payload.Option) error {
		if frames > 0 {
			w.scanBudget = frames
		}
		return nil
	}
}

// WithGolay protects the embedded payload with Golay error correction,
// shuffled under seed. Extraction only recovers such a payload from a
// Watermarker configured with the same seed.
func WithGolay(seed int64) Option {
	return func(_ *Watermarker, po *[]payload.Option) error {
		*po = append(*po, payload.WithGolay(seed))
		return nil
	}
}

// WithLogger routes internal diagnostics to the given logger. The default
// discards them.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watermarker, _ *[]payload.Option) error {
		if logger != nil {
			w.logger = logger
		}
		return nil
	}
}
