package tracemark_test

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracemark/tracemark"
	"github.com/tracemark/tracemark/frameio"
	"github.com/tracemark/tracemark/payload"
)

func gradient(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8((x + y) * 255 / (w + h)),
				A: 255,
			})
		}
	}
	return img
}

func frames(n, w, h int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		out[i] = gradient(w, h)
	}
	return out
}

func TestNew(t *testing.T) {
	test := []struct {
		name    string
		opts    []tracemark.Option
		wantErr error
	}{
		{name: "defaults"},
		{name: "perceptual", opts: []tracemark.Option{tracemark.WithMethod(tracemark.MethodPerceptual)}},
		{name: "unknown method", opts: []tracemark.Option{tracemark.WithMethod("dct")},
			wantErr: tracemark.ErrUnknownMethod},
		{name: "strength too high", opts: []tracemark.Option{tracemark.WithStrength(1.5)},
			wantErr: tracemark.ErrStrength},
		{name: "strength negative", opts: []tracemark.Option{tracemark.WithStrength(-0.1)},
			wantErr: tracemark.ErrStrength},
	}
	for _, tt := range test {
		t.Run(tt.name, func(t *testing.T) {
			w, err := tracemark.New("alice", tt.opts...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", w.Identity())
			assert.Len(t, w.Signature(), 16)
		})
	}
}

func TestFrameRoundTrip(t *testing.T) {
	ctx := context.Background()
	w, err := tracemark.New("alice")
	require.NoError(t, err)

	marked, err := w.EmbedFrame(ctx, gradient(320, 240), 4)
	require.NoError(t, err)

	p, err := w.ExtractFrame(ctx, marked)
	require.NoError(t, err)
	assert.Equal(t, payload.Payload{
		Identity:   "alice",
		Signature:  w.Signature(),
		FrameIndex: 4,
	}, p)
}

func TestFrameRoundTripGolay(t *testing.T) {
	ctx := context.Background()
	w, err := tracemark.New("alice", tracemark.WithGolay(payload.DefaultShuffleSeed))
	require.NoError(t, err)

	marked, err := w.EmbedFrame(ctx, gradient(320, 240), 0)
	require.NoError(t, err)
	p, err := w.ExtractFrame(ctx, marked)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Identity)
}

func TestExtractFromCleanFrame(t *testing.T) {
	w, err := tracemark.New("alice")
	require.NoError(t, err)
	_, err = w.ExtractFrame(context.Background(), gradient(320, 240))
	assert.ErrorIs(t, err, tracemark.ErrNoWatermark)
}

func TestCapacityBoundary(t *testing.T) {
	ctx := context.Background()
	w, err := tracemark.New("a-recipient-with-a-rather-long-identity-string")
	require.NoError(t, err)

	// 8x8 = 64 pixels cannot hold the payload; embedding truncates
	// silently and extraction must not recover the identity
	small := gradient(8, 8)
	require.Greater(t, w.PayloadBits(0), 64)

	marked, err := w.EmbedFrame(ctx, small, 0)
	require.NoError(t, err)

	p, err := w.ExtractFrame(ctx, marked)
	if err == nil {
		assert.NotEqual(t, "a-recipient-with-a-rather-long-identity-string", p.Identity)
	} else {
		assert.ErrorIs(t, err, tracemark.ErrNoWatermark)
	}
}

func TestPerceptualNotExtractable(t *testing.T) {
	ctx := context.Background()
	w, err := tracemark.New("alice",
		tracemark.WithMethod(tracemark.MethodPerceptual),
		tracemark.WithStrength(1.0))
	require.NoError(t, err)

	// high-frequency content so the sparse blur actually moves pixel values
	src := image.NewNRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			src.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 7 % 251), G: uint8(y * 13 % 239), B: uint8((x*y + 3) % 241), A: 255,
			})
		}
	}
	marked, err := w.EmbedFrame(ctx, src, 0)
	require.NoError(t, err)
	assert.NotEqual(t, src, marked)

	_, err = w.ExtractFrame(ctx, marked)
	assert.ErrorIs(t, err, tracemark.ErrNoWatermark)
}

func TestEmbedSequence(t *testing.T) {
	ctx := context.Background()
	w, err := tracemark.New("student_42")
	require.NoError(t, err)

	src := frameio.NewMemSource(frames(5, 640, 480)...)
	sink := &frameio.MemSink{}
	result := w.Embed(ctx, src, sink, 1)

	require.True(t, result.Success, "embed failed: %s", result.Error)
	assert.Equal(t, "student_42", result.Identity)
	assert.Equal(t, w.Signature(), result.Signature)
	assert.Equal(t, 5, result.TotalFrames)
	assert.Equal(t, 5, result.WatermarkedFrames)
	require.Len(t, sink.Frames, 5)

	p, err := w.Extract(ctx, frameio.NewMemSource(sink.Frames...))
	require.NoError(t, err)
	assert.Equal(t, "student_42", p.Identity)
	assert.Regexp(t, "^[0-9a-f]{16}$", p.Signature)
	assert.Equal(t, 0, p.FrameIndex, "first watermarked frame carries index 0")
}

func TestEmbedInterval(t *testing.T) {
	ctx := context.Background()
	w, err := tracemark.New("alice")
	require.NoError(t, err)

	src := frameio.NewMemSource(frames(10, 64, 64)...)
	sink := &frameio.MemSink{}
	result := w.Embed(ctx, src, sink, 4)

	require.True(t, result.Success)
	assert.Equal(t, 10, result.TotalFrames)
	// frames 0, 4, 8
	assert.Equal(t, 3, result.WatermarkedFrames)
	assert.Len(t, sink.Frames, 10, "every frame is emitted, watermarked or not")
}

func TestEmbedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w, err := tracemark.New("alice")
	require.NoError(t, err)

	result := w.Embed(ctx, frameio.NewMemSource(frames(2, 32, 32)...), &frameio.MemSink{}, 1)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Equal(t, "alice", result.Identity)
}

func TestEmbedFileMissingInput(t *testing.T) {
	w, err := tracemark.New("alice")
	require.NoError(t, err)
	result := w.EmbedFile(context.Background(), filepath.Join(t.TempDir(), "absent"), filepath.Join(t.TempDir(), "out"), 1)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Equal(t, "alice", result.Identity)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	out := filepath.Join(dir, "marked.png")

	alice, err := tracemark.New("alice")
	require.NoError(t, err)
	in := filepath.Join(dir, "in.png")
	writeImage(t, in, gradient(320, 240))
	result := alice.EmbedFile(ctx, in, out, 1)
	require.True(t, result.Success, result.Error)

	t.Run("owner verifies", func(t *testing.T) {
		v := alice.Verify(ctx, out)
		assert.True(t, v.FileExists)
		assert.True(t, v.WatermarkFound)
		assert.True(t, v.IdentityVerified)
		assert.Equal(t, 1.0, v.IntegrityScore)
	})

	t.Run("foreign watermark", func(t *testing.T) {
		bob, err := tracemark.New("bob")
		require.NoError(t, err)
		v := bob.Verify(ctx, out)
		assert.True(t, v.FileExists)
		assert.True(t, v.WatermarkFound)
		assert.False(t, v.IdentityVerified)
		assert.Equal(t, 0.5, v.IntegrityScore)
		assert.Equal(t, "alice", v.ExtractedIdentity)
	})

	t.Run("unwatermarked file", func(t *testing.T) {
		clean := filepath.Join(dir, "clean.png")
		writeImage(t, clean, gradient(320, 240))
		v := alice.Verify(ctx, clean)
		assert.True(t, v.FileExists)
		assert.False(t, v.WatermarkFound)
		assert.Zero(t, v.IntegrityScore)
	})

	t.Run("missing file", func(t *testing.T) {
		v := alice.Verify(ctx, filepath.Join(dir, "absent.png"))
		assert.False(t, v.FileExists)
		assert.False(t, v.WatermarkFound)
		assert.False(t, v.IdentityVerified)
		assert.Zero(t, v.IntegrityScore)
	})
}

func writeImage(t *testing.T, path string, img image.Image) {
	t.Helper()
	sink, err := frameio.CreateSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Write(img))
	require.NoError(t, sink.Close())
}
