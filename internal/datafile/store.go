// Package datafile keeps the backing profile files of stored float records on disk.
package datafile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidName is returned when a file name has no usable base name.
var ErrInvalidName = errors.New("invalid file name")

// ErrTooLarge is returned when a file exceeds the store's size limit.
var ErrTooLarge = errors.New("file too large")

// Store writes files into a single directory.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates the directory if needed and returns a Store rooted there.
// maxBytes <= 0 disables the size limit.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes body under the base name of name, replacing any file with the
// same name. The write goes to a temporary file first so readers never see a
// partial file.
func (s *Store) Save(name string, body io.Reader) (string, error) {
	base, err := sanitize(name)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-"+uuid.NewString()+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	src := body
	if s.maxBytes > 0 {
		src = io.LimitReader(body, s.maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", base, err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, base, s.maxBytes)
	}

	if err := os.Rename(tmpName, s.Path(base)); err != nil {
		return "", fmt.Errorf("store %s: %w", base, err)
	}
	return base, nil
}

// Remove deletes a stored file. A missing file yields an error wrapping fs.ErrNotExist.
func (s *Store) Remove(name string) error {
	base, err := sanitize(name)
	if err != nil {
		return err
	}
	return os.Remove(s.Path(base))
}

// Path returns the on-disk location of a stored file.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func sanitize(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." || strings.HasPrefix(base, ".upload-") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return base, nil
}
