package scanner_test

import (
	"context"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracemark/tracemark"
	"github.com/tracemark/tracemark/frameio"
	"github.com/tracemark/tracemark/scanner"
)

func photo(seed int64, w, h int) image.Image {
	// smooth low-frequency content so the difference hash is stable
	rd := rand.New(rand.NewSource(seed))
	base := uint8(rd.Intn(100))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: base + uint8(x*100/w),
				G: uint8(y * 140 / h),
				B: base/2 + uint8((x*x/(w+1)+y)*90/(w+h)),
				A: 255,
			})
		}
	}
	return img
}

// stripes is structurally unlike the ramp photos, so its difference hash
// shares few bits with theirs.
func stripes(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(30)
			if (x/8+y/8)%2 == 0 {
				v = 220
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func write(t *testing.T, path string, img image.Image) {
	t.Helper()
	sink, err := frameio.CreateSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Write(img))
	require.NoError(t, sink.Close())
}

func TestScanFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ref := filepath.Join(dir, "reference.png")
	write(t, ref, photo(1, 320, 240))

	s, err := scanner.New(ref, scanner.WithThreshold(0.9))
	require.NoError(t, err)

	t.Run("identical copy matches", func(t *testing.T) {
		copyPath := filepath.Join(dir, "copy.png")
		write(t, copyPath, photo(1, 320, 240))
		m, err := s.ScanFile(ctx, copyPath)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.InDelta(t, 1.0, m.Similarity, 1e-9)
		assert.False(t, m.Attributed())
	})

	t.Run("unrelated content does not match", func(t *testing.T) {
		otherPath := filepath.Join(dir, "other.png")
		write(t, otherPath, stripes(320, 240))
		m, err := s.ScanFile(ctx, otherPath)
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("watermarked copy is attributed", func(t *testing.T) {
		w, err := tracemark.New("leaky-recipient")
		require.NoError(t, err)
		markedPath := filepath.Join(dir, "marked.png")
		result := w.EmbedFile(ctx, ref, markedPath, 1)
		require.True(t, result.Success, result.Error)

		m, err := s.ScanFile(ctx, markedPath)
		require.NoError(t, err)
		require.NotNil(t, m, "LSB flips must not move the perceptual hash")
		assert.True(t, m.Attributed())
		assert.Equal(t, "leaky-recipient", m.Identity)
		assert.Equal(t, w.Signature(), m.Signature)
	})
}

func TestScanDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref", "original.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(ref), 0o755))
	write(t, ref, photo(7, 200, 150))

	pool := filepath.Join(dir, "pool")
	require.NoError(t, os.MkdirAll(filepath.Join(pool, "nested"), 0o755))
	write(t, filepath.Join(pool, "leak.png"), photo(7, 200, 150))
	write(t, filepath.Join(pool, "nested", "leak2.png"), photo(7, 200, 150))
	write(t, filepath.Join(pool, "unrelated.png"), stripes(200, 150))
	require.NoError(t, os.WriteFile(filepath.Join(pool, "notes.txt"), []byte("x"), 0o644))

	s, err := scanner.New(ref, scanner.WithThreshold(0.95))
	require.NoError(t, err)

	matches, err := s.ScanDir(ctx, pool)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Similarity, 0.95)
	}
}

func TestNewMissingReference(t *testing.T) {
	_, err := scanner.New(filepath.Join(t.TempDir(), "absent.png"))
	assert.Error(t, err)
}

func TestTakedownNotice(t *testing.T) {
	m := &scanner.Match{
		Path:       "/pool/leak.png",
		Similarity: 0.97,
		Identity:   "leaky-recipient",
		Signature:  "0123456789abcdef",
	}
	notice := scanner.TakedownNotice(m, "Course 101", "Acme Studios")
	assert.Contains(t, notice, "/pool/leak.png")
	assert.Contains(t, notice, "leaky-recipient")
	assert.Contains(t, notice, "Acme Studios")
	assert.Contains(t, notice, "97.0%")

	bare := scanner.TakedownNotice(&scanner.Match{Path: "x", Similarity: 0.9}, "t", "o")
	assert.Contains(t, bare, "No intact distribution watermark")
}
