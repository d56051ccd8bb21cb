// Package media owns uploaded bytes for the lifetime of one request.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/priyansh-dev/privacy-lens/server/models"
)

// ErrEmptyFilename rejects uploads without a usable name.
var ErrEmptyFilename = errors.New("media: empty filename")

// ErrDisallowedExtension rejects uploads outside the allow-list.
var ErrDisallowedExtension = errors.New("media: file type not allowed")

// Handle is an opaque reference to an ingested file. Owned exclusively by
// the request that created it; Release deletes the backing storage.
type Handle struct {
	ID       string
	Path     string
	Kind     models.MediaKind
	Filename string
	Size     int64
}

type Store struct {
	dir    string
	logger *zap.Logger
}

func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Classify validates the filename against the allow-lists and reports the
// declared media kind.
func Classify(filename string, imageExts, videoExts []string) (models.MediaKind, error) {
	name := strings.TrimSpace(filename)
	if name == "" {
		return "", ErrEmptyFilename
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return "", ErrDisallowedExtension
	}
	for _, e := range imageExts {
		if ext == strings.ToLower(e) {
			return models.MediaImage, nil
		}
	}
	for _, e := range videoExts {
		if ext == strings.ToLower(e) {
			return models.MediaVideo, nil
		}
	}
	return "", ErrDisallowedExtension
}

// Save copies the upload into the store under a fresh ID. The caller must
// Release the handle when the request completes, on success or failure.
func (s *Store) Save(r io.Reader, filename string, kind models.MediaKind) (*Handle, error) {
	id := uuid.NewString()
	base := sanitize(filename)
	path := filepath.Join(s.dir, id+"_"+base)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}

	size, err := io.Copy(f, r)
	closeErr := f.Close()
	if err != nil || closeErr != nil {
		os.Remove(path)
		if err == nil {
			err = closeErr
		}
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	return &Handle{
		ID:       id,
		Path:     path,
		Kind:     kind,
		Filename: base,
		Size:     size,
	}, nil
}

// Bytes reads the full stored content.
func (h *Handle) Bytes() ([]byte, error) {
	data, err := os.ReadFile(h.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read media %s: %w", h.ID, err)
	}
	return data, nil
}

// Release deletes the backing file. Safe to call on every exit path; a
// missing file is not an error.
func (s *Store) Release(h *Handle) {
	if h == nil {
		return
	}
	if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove media file",
			zap.String("id", h.ID),
			zap.Error(err))
	}
}

// sanitize keeps only the base name and replaces path-hostile runes.
func sanitize(filename string) string {
	base := filepath.Base(filename)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}
