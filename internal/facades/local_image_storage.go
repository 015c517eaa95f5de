package facades

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbilibin2017/culinary-connect/internal/logger"
)

// LocalImageStorage keeps recipe images on the local filesystem under a media root.
type LocalImageStorage struct {
	root    string
	baseURL string
}

// NewLocalImageStorage creates a storage rooted at root whose files are served under baseURL.
func NewLocalImageStorage(root, baseURL string) *LocalImageStorage {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalImageStorage{root: root, baseURL: baseURL}
}

// Save writes data under the media root and returns its root-relative path.
// An existing file is never overwritten.
func (s *LocalImageStorage) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		ref := ObjectName(name, contentType)
		full := filepath.Join(s.root, filepath.FromSlash(ref))

		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			logger.Log.Errorw("failed to create media directory", "path", filepath.Dir(full), "error", err)
			return "", err
		}

		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			logger.Log.Errorw("failed to create image file", "path", full, "error", err)
			return "", err
		}

		_, err = f.Write(data)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(full)
			logger.Log.Errorw("failed to write image file", "path", full, "error", err)
			return "", err
		}

		logger.Log.Infow("image stored", "ref", ref, "content_type", contentType, "size", len(data))
		return ref, nil
	}
	return "", fmt.Errorf("could not find a free name for %q", name)
}

// Delete removes a stored image. A missing file is not an error.
func (s *LocalImageStorage) Delete(ctx context.Context, ref string) error {
	full, err := s.path(ref)
	if err != nil {
		return err
	}

	err = os.Remove(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		logger.Log.Errorw("failed to delete image file", "path", full, "error", err)
		return err
	}

	logger.Log.Infow("image deleted", "ref", ref)
	return nil
}

// URL returns the public URL of a stored image.
func (s *LocalImageStorage) URL(ref string) string {
	return s.baseURL + strings.TrimPrefix(ref, "/")
}

// path resolves ref inside the media root, rejecting references that escape it.
func (s *LocalImageStorage) path(ref string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(ref, "/")))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("invalid image reference %q", ref)
	}
	return filepath.Join(s.root, rel), nil
}
