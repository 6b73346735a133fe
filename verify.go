package tracemark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/tracemark/tracemark/frameio"
	"github.com/tracemark/tracemark/payload"
)

// Extract scans a frame sequence for an embedded payload and returns the
// first one that decodes. The scan is bounded by the configured scan
// budget; src is closed on every exit path, including the early return on
// success. ErrNoWatermark reports that no frame within the budget carried
// a decodable payload.
func (w *Watermarker) Extract(ctx context.Context, src frameio.Source) (payload.Payload, error) {
	defer src.Close()

	for scanned := 0; scanned < w.scanBudget; scanned++ {
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return payload.Payload{}, fmt.Errorf("tracemark: extract: %w", err)
		}
		p, err := w.ExtractFrame(ctx, frame)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrNoWatermark) {
			return payload.Payload{}, err
		}
	}
	return payload.Payload{}, ErrNoWatermark
}

// ExtractFile scans the file or frame directory at path.
func (w *Watermarker) ExtractFile(ctx context.Context, path string) (payload.Payload, error) {
	src, err := frameio.OpenSource(path)
	if err != nil {
		return payload.Payload{}, err
	}
	return w.Extract(ctx, src)
}

// Verify answers whether the file at path carries this Watermarker's
// identity. A missing file yields the zero result. A decoded payload with
// a foreign identity still counts as a found watermark but scores 0.5.
func (w *Watermarker) Verify(ctx context.Context, path string) VerificationResult {
	var result VerificationResult
	if _, err := os.Stat(path); err != nil {
		return result
	}
	result.FileExists = true

	p, err := w.ExtractFile(ctx, path)
	if err != nil {
		w.logger.Debug("verification found no watermark", zap.String("path", path), zap.Error(err))
		return result
	}
	result.WatermarkFound = true
	result.ExtractedIdentity = p.Identity
	if p.Identity == w.identity {
		result.IdentityVerified = true
		result.IntegrityScore = 1.0
	} else {
		result.IntegrityScore = 0.5
	}
	return result
}
