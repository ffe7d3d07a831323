package stream

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// Source produces a lazy sequence of frames. Next returns io.EOF once
// the stream is exhausted.
type Source interface {
	Next(ctx context.Context) (models.Frame, error)
}

// SliceSource serves an in-memory list of encoded images.
type SliceSource struct {
	images [][]byte
	pos    int
}

func NewSliceSource(images [][]byte) *SliceSource {
	return &SliceSource{images: images}
}

func (s *SliceSource) Next(_ context.Context) (models.Frame, error) {
	if s.pos >= len(s.images) {
		return models.Frame{}, io.EOF
	}
	frame := models.Frame{
		Index:     int64(s.pos),
		Data:      s.images[s.pos],
		Timestamp: time.Now(),
	}
	s.pos++
	return frame, nil
}

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// DirSource reads image files from a directory in name order, loading
// each lazily.
type DirSource struct {
	paths []string
	pos   int
}

func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	names := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		if e.IsDir() {
			return "", false
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		return e.Name(), lo.Contains(imageExtensions, ext)
	})
	sort.Strings(names)

	paths := lo.Map(names, func(name string, _ int) string {
		return filepath.Join(dir, name)
	})
	return &DirSource{paths: paths}, nil
}

func (s *DirSource) Next(_ context.Context) (models.Frame, error) {
	if s.pos >= len(s.paths) {
		return models.Frame{}, io.EOF
	}
	path := s.paths[s.pos]
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Frame{}, fmt.Errorf("read frame %s: %w", path, err)
	}
	frame := models.Frame{
		Index:     int64(s.pos),
		Data:      data,
		Timestamp: time.Now(),
	}
	s.pos++
	return frame, nil
}

// Len returns the number of frames the source will serve.
func (s *DirSource) Len() int {
	return len(s.paths)
}
