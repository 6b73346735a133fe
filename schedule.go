package tracemark

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/tracemark/tracemark/frameio"
)

// Embed drives watermark embedding across a frame sequence. Frames are
// numbered from zero; every frame whose counter is a multiple of interval
// is watermarked, all others pass through untouched, and every frame is
// emitted to sink in original order. The whole sequence is always
// processed; a source or sink failure aborts with a failed result rather
// than partial success. Both src and sink are closed on every exit path.
func (w *Watermarker) Embed(ctx context.Context, src frameio.Source, sink frameio.Sink, interval int) EmbedResult {
	defer src.Close()
	if interval < 1 {
		interval = 1
	}

	fail := func(err error) EmbedResult {
		_ = sink.Close()
		w.logger.Error("embedding failed", zap.Error(err), zap.String("identity", w.identity))
		return EmbedResult{Identity: w.identity, Error: err.Error()}
	}

	var counter, watermarked int
	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(err)
		}

		if counter%interval == 0 {
			frame, err = w.EmbedFrame(ctx, frame, counter)
			if err != nil {
				return fail(err)
			}
			watermarked++
		}
		if err := sink.Write(frame); err != nil {
			return fail(err)
		}
		counter++
	}
	if err := sink.Close(); err != nil {
		return fail(err)
	}

	w.logger.Info("embedding completed",
		zap.String("identity", w.identity),
		zap.String("signature", w.signature),
		zap.Int("total_frames", counter),
		zap.Int("watermarked_frames", watermarked))
	return EmbedResult{
		Success:           true,
		Identity:          w.identity,
		Signature:         w.signature,
		Method:            w.method,
		TotalFrames:       counter,
		WatermarkedFrames: watermarked,
		OutputSizeBytes:   sink.Size(),
	}
}

// EmbedFile embeds into the file or frame directory at inputPath and writes
// the result to outputPath. Open and create failures come back as a failed
// result, never as partial output.
func (w *Watermarker) EmbedFile(ctx context.Context, inputPath, outputPath string, interval int) EmbedResult {
	src, err := frameio.OpenSource(inputPath)
	if err != nil {
		return EmbedResult{Identity: w.identity, Error: err.Error()}
	}
	sink, err := frameio.CreateSink(outputPath)
	if err != nil {
		src.Close()
		return EmbedResult{Identity: w.identity, Error: err.Error()}
	}
	return w.Embed(ctx, src, sink, interval)
}
