// Package frameio streams image frames between the watermark codec and the
// filesystem. A video is handled as a numbered directory of frames rather
// than a container format: the embedded payload lives in least-significant
// bits, so every supported sink must be pixel-exact. Lossless formats only;
// JPEG and palette-quantized GIF would destroy the payload and are refused.
package frameio

import (
	"errors"
	"fmt"
	"image"
	"io"
)

var (
	// ErrLossyFormat marks an output format that cannot round-trip exact
	// pixel values.
	ErrLossyFormat = errors.New("frameio: lossy format would destroy embedded data")
	// ErrUnsupportedFormat marks an extension no codec is registered for.
	ErrUnsupportedFormat = errors.New("frameio: unsupported format")
)

// Source yields frames in sequence order. Next returns io.EOF after the
// last frame. Sources hold at most one frame of state; callers own each
// returned frame.
type Source interface {
	Next() (image.Image, error)
	Close() error
}

// Sink consumes frames in sequence order. Implementations must persist
// exact pixel values for every written frame.
type Sink interface {
	Write(image.Image) error
	Close() error
	// Size reports bytes written so far; fully accurate after Close.
	Size() int64
}

// MemSource serves an in-memory frame slice.
type MemSource struct {
	frames []image.Image
	at     int
}

func NewMemSource(frames ...image.Image) *MemSource {
	return &MemSource{frames: frames}
}

func (s *MemSource) Next() (image.Image, error) {
	if s.at >= len(s.frames) {
		return nil, io.EOF
	}
	img := s.frames[s.at]
	s.at++
	return img, nil
}

func (s *MemSource) Close() error { return nil }

// MemSink collects frames in memory.
type MemSink struct {
	Frames []image.Image
}

func (s *MemSink) Write(img image.Image) error {
	s.Frames = append(s.Frames, img)
	return nil
}

func (s *MemSink) Close() error { return nil }

func (s *MemSink) Size() int64 { return 0 }

// CountFrames drains src and reports how many frames it held.
func CountFrames(src Source) (int, error) {
	defer src.Close()
	n := 0
	for {
		_, err := src.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("frameio: count frames: %w", err)
		}
		n++
	}
}
