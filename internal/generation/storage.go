package generation

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/utils"
)

// Storage keeps generated documents and returns a link to each.
type Storage interface {
	Upload(ctx context.Context, name string, content []byte) (string, error)
}

// LocalStorage writes documents under a directory, one subdirectory per
// month, and returns file:// URLs.
type LocalStorage struct {
	dir string
	now func() time.Time
}

func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{dir: dir, now: time.Now}
}

func (s *LocalStorage) Upload(ctx context.Context, name string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir, err := filepath.Abs(filepath.Join(s.dir, s.now().Format("2006-01")))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", dir)
	}

	path := filepath.Join(dir, utils.SanitizeFilename(name))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(), nil
}
