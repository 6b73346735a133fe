// Package scanner finds suspected leaked copies of reference content by
// perceptual-hash similarity and, when a candidate matches, tries to name
// the recipient by extracting the embedded watermark.
//
// Perceptual hashing survives what the LSB payload does not: re-encoding,
// mild scaling, small color shifts. The two mechanisms are complementary —
// the hash finds the copy, the watermark names the leaker.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/corona10/goimagehash"
	"go.uber.org/zap"

	"github.com/tracemark/tracemark"
	"github.com/tracemark/tracemark/frameio"
)

var ErrNoReference = errors.New("scanner: reference content has no frames")

// Match is one candidate file whose similarity reached the threshold.
type Match struct {
	Path       string    `json:"path"`
	Similarity float64   `json:"similarity"`
	Identity   string    `json:"identity,omitempty"`
	Signature  string    `json:"signature,omitempty"`
	FrameIndex int       `json:"frame_index,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// Attributed reports whether the watermark named a recipient.
func (m *Match) Attributed() bool { return m.Identity != "" }

// Scanner compares candidate media against one piece of reference content.
type Scanner struct {
	refs         []*goimagehash.ImageHash
	threshold    float64
	sampleFrames int
	extractor    *tracemark.Watermarker
	logger       *zap.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithThreshold sets the similarity above which a candidate counts as a
// match, in [0,1]. Default 0.85.
func WithThreshold(t float64) Option {
	return func(s *Scanner) { s.threshold = t }
}

// WithSampleFrames bounds how many frames of each sequence are hashed.
// Default 20.
func WithSampleFrames(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.sampleFrames = n
		}
	}
}

// WithLogger routes scan diagnostics to the given logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a Scanner from the reference content at referencePath, hashing
// a bounded sample of its frames.
func New(referencePath string, opts ...Option) (*Scanner, error) {
	s := &Scanner{
		threshold:    0.85,
		sampleFrames: 20,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	// identity is irrelevant for extraction; a default-configured
	// watermarker reads any default-encoded payload
	extractor, err := tracemark.New("")
	if err != nil {
		return nil, err
	}
	s.extractor = extractor

	src, err := frameio.OpenSource(referencePath)
	if err != nil {
		return nil, err
	}
	s.refs, err = hashFrames(src, s.sampleFrames)
	if err != nil {
		return nil, err
	}
	if len(s.refs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoReference, referencePath)
	}
	return s, nil
}

// hashFrames drains up to limit frames from src into difference hashes.
// src is closed before returning.
func hashFrames(src frameio.Source, limit int) ([]*goimagehash.ImageHash, error) {
	defer src.Close()
	var hashes []*goimagehash.ImageHash
	for len(hashes) < limit {
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		h, err := goimagehash.DifferenceHash(frame)
		if err != nil {
			return nil, fmt.Errorf("scanner: hash frame: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// Similarity returns the best hash similarity between the reference and the
// candidate frames of img, in [0,1].
func (s *Scanner) similarity(img image.Image) (float64, error) {
	h, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return 0, fmt.Errorf("scanner: hash candidate: %w", err)
	}
	best := 0.0
	for _, ref := range s.refs {
		dist, err := ref.Distance(h)
		if err != nil {
			return 0, fmt.Errorf("scanner: hash distance: %w", err)
		}
		if sim := 1 - float64(dist)/64; sim > best {
			best = sim
		}
	}
	return best, nil
}

// ScanFile compares the candidate at path against the reference. A nil
// Match with nil error means the file is below the threshold.
func (s *Scanner) ScanFile(ctx context.Context, path string) (*Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := frameio.OpenSource(path)
	if err != nil {
		return nil, err
	}
	best, err := s.bestSimilarity(src)
	if err != nil {
		return nil, err
	}
	if best < s.threshold {
		s.logger.Debug("candidate below threshold",
			zap.String("path", path), zap.Float64("similarity", best))
		return nil, nil
	}

	match := &Match{Path: path, Similarity: best, DetectedAt: time.Now()}
	// similarity found the copy; the watermark, if intact, names the leaker
	if p, err := s.extractor.ExtractFile(ctx, path); err == nil {
		match.Identity = p.Identity
		match.Signature = p.Signature
		match.FrameIndex = p.FrameIndex
	}
	s.logger.Info("leak candidate matched",
		zap.String("path", path),
		zap.Float64("similarity", best),
		zap.String("identity", match.Identity))
	return match, nil
}

// bestSimilarity drains up to the sample budget of frames and keeps the
// best per-frame similarity. src is closed before returning.
func (s *Scanner) bestSimilarity(src frameio.Source) (float64, error) {
	defer src.Close()
	best := 0.0
	for scanned := 0; scanned < s.sampleFrames; scanned++ {
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		sim, err := s.similarity(frame)
		if err != nil {
			return 0, err
		}
		if sim > best {
			best = sim
		}
	}
	return best, nil
}

// ScanDir walks root and scans every supported media file. Unreadable
// candidates are skipped with a log entry rather than aborting the walk.
func (s *Scanner) ScanDir(ctx context.Context, root string) ([]Match, error) {
	var matches []Match
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !supportedExt(path) {
			return nil
		}
		match, err := s.ScanFile(ctx, path)
		if err != nil {
			s.logger.Warn("skipping unreadable candidate", zap.String("path", path), zap.Error(err))
			return nil
		}
		if match != nil {
			matches = append(matches, *match)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanner: walk %s: %w", root, err)
	}
	return matches, nil
}

func supportedExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".bmp", ".tiff", ".tif":
		return true
	}
	return false
}
