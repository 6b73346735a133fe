package frameio

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// frame file name pattern used by directory sinks
const framePattern = "frame_%06d.png"

// lossless image extensions accepted on both sides
var imageExts = map[string]bool{
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
}

// lossy or quantized extensions explicitly refused as outputs
var lossyExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// OpenSource opens path as a frame source. A directory is read as a sorted
// frame sequence; a file as a single-frame source.
func OpenSource(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("frameio: open source: %w", err)
	}
	if info.IsDir() {
		return newDirSource(path)
	}
	return &fileSource{path: path}, nil
}

// CreateSink creates a frame sink at path. A path with a known image
// extension becomes a single-image sink; anything else is treated as a
// frame directory, created if missing.
func CreateSink(path string) (Sink, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if lossyExts[ext] {
		return nil, fmt.Errorf("%w: %s", ErrLossyFormat, ext)
	}
	if imageExts[ext] {
		return &fileSink{path: path}, nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("frameio: create sink: %w", err)
	}
	return &dirSink{dir: path}, nil
}

// fileSource decodes a single image file as a one-frame sequence.
type fileSource struct {
	path string
	done bool
}

func (s *fileSource) Next() (image.Image, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	img, err := decodeFile(s.path)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (s *fileSource) Close() error { return nil }

// dirSource reads the image files of a directory in name order, one frame
// per file. Only one frame is decoded at a time.
type dirSource struct {
	paths []string
	at    int
}

func newDirSource(dir string) (*dirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("frameio: read frame directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no frames in %s", ErrUnsupportedFormat, dir)
	}
	sort.Strings(paths)
	return &dirSource{paths: paths}, nil
}

func (s *dirSource) Next() (image.Image, error) {
	if s.at >= len(s.paths) {
		return nil, io.EOF
	}
	img, err := decodeFile(s.paths[s.at])
	if err != nil {
		return nil, err
	}
	s.at++
	return img, nil
}

func (s *dirSource) Close() error { return nil }

// fileSink writes exactly one frame to a single image file.
type fileSink struct {
	path    string
	written int64
	n       int
}

func (s *fileSink) Write(img image.Image) error {
	if s.n > 0 {
		return fmt.Errorf("frameio: single-image sink %s cannot take frame %d", s.path, s.n)
	}
	s.n++
	n, err := encodeFile(s.path, img)
	s.written += n
	return err
}

func (s *fileSink) Close() error { return nil }

func (s *fileSink) Size() int64 { return s.written }

// dirSink writes numbered PNG frames into a directory.
type dirSink struct {
	dir     string
	written int64
	n       int
}

func (s *dirSink) Write(img image.Image) error {
	path := filepath.Join(s.dir, fmt.Sprintf(framePattern, s.n))
	s.n++
	n, err := encodeFile(path, img)
	s.written += n
	return err
}

func (s *dirSink) Close() error { return nil }

func (s *dirSink) Size() int64 { return s.written }

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("frameio: open %s: %w", path, err)
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		img, err = png.Decode(f)
	case ".bmp":
		img, err = bmp.Decode(f)
	case ".tiff", ".tif":
		img, err = tiff.Decode(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("frameio: decode %s: %w", path, err)
	}
	return img, nil
}

func encodeFile(path string, img image.Image) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("frameio: create %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, img)
	case ".bmp":
		err = bmp.Encode(f, img)
	case ".tiff", ".tif":
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		f.Close()
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("frameio: encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("frameio: close %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
