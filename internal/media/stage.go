package media

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultVideoExt is used when an upload carries no usable extension.
const DefaultVideoExt = ".mp4"

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Stager writes uploads to request-unique temporary files.
type Stager struct {
	// Dir is the staging directory. Empty means os.TempDir().
	Dir string
	// Prefix starts every staged file name.
	Prefix string
}

// StagedFile is an on-disk upload owned by a single request.
type StagedFile struct {
	Path string
	Size int64

	once sync.Once
}

// Stage copies r into a new file named <prefix>-<uuid><ext>. On any error the
// partial file is removed before returning.
func (s *Stager) Stage(r io.Reader, ext string) (*StagedFile, error) {
	dir := s.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	prefix := s.Prefix
	if prefix == "" {
		prefix = "upload"
	}

	path := filepath.Join(dir, prefix+"-"+uuid.NewString()+SanitizeExt(ext))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}
	staged := &StagedFile{Path: path}

	n, err := io.Copy(f, r)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		staged.Release()
		return nil, fmt.Errorf("failed to write staged file: %w", err)
	}
	staged.Size = n

	log.Debug().Str("path", path).Int64("bytes", n).Msg("Upload staged")
	return staged, nil
}

// Release removes the file. Only the first call touches the filesystem;
// later calls return nil.
func (f *StagedFile) Release() error {
	var err error
	f.once.Do(func() {
		if rmErr := os.Remove(f.Path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = fmt.Errorf("failed to remove staged file: %w", rmErr)
			log.Warn().Err(rmErr).Str("path", f.Path).Msg("Failed to remove staged file")
			return
		}
		log.Debug().Str("path", f.Path).Msg("Staged file removed")
	})
	return err
}

// SanitizeExt lower-cases ext and falls back to DefaultVideoExt when it is
// empty or contains anything but letters and digits.
func SanitizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !safeExt.MatchString(ext) {
		return DefaultVideoExt
	}
	return ext
}
