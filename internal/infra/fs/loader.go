// Package fs loads perspective documents from a directory of JSON
// files, the engine's primary content source.
package fs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gmpapad/phronesis-engine/internal/content"
	"github.com/gmpapad/phronesis-engine/internal/domain"
)

// Loader reads *.json documents from dir. A malformed file is skipped
// with a warning; it never aborts the catalog load.
type Loader struct {
	dir string
	log *zap.SugaredLogger
}

func NewLoader(dir string, log *zap.SugaredLogger) *Loader {
	return &Loader{dir: dir, log: log}
}

func (l *Loader) LoadAll(_ context.Context) ([]domain.Perspective, error) {
	paths, err := filepath.Glob(filepath.Join(l.dir, "*.json"))
	if err != nil {
		return nil, err
	}

	perspectives := make([]domain.Perspective, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			l.log.Warnw("skipping unreadable document", "path", path, "err", err)
			continue
		}
		p, err := content.Normalize(content.Document{Name: stem(path), Raw: data})
		if err != nil {
			l.log.Warnw("skipping malformed document", "path", path, "err", err)
			continue
		}
		perspectives = append(perspectives, p)
	}
	content.Sort(perspectives)
	return perspectives, nil
}

// LoadBySlug reads the file named after the slug; when that file is
// missing it scans the whole catalog, covering authoring mismatches
// between filename and declared slug.
func (l *Loader) LoadBySlug(ctx context.Context, slug string) (domain.Perspective, error) {
	path := filepath.Join(l.dir, slug+".json")
	data, err := os.ReadFile(path)
	if err == nil {
		p, nerr := content.Normalize(content.Document{Name: slug, Raw: data})
		if nerr == nil {
			return p, nil
		}
		l.log.Warnw("malformed document, falling back to scan", "path", path, "err", nerr)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return domain.Perspective{}, err
	}

	all, err := l.LoadAll(ctx)
	if err != nil {
		return domain.Perspective{}, err
	}
	for _, p := range all {
		if p.Slug == slug {
			return p, nil
		}
	}
	return domain.Perspective{}, domain.ErrPerspectiveNotFound
}

// UpsertDocument writes a validated document into the content
// directory, creating it if needed. This is the admin ingestion target
// when no database is configured.
func (l *Loader) UpsertDocument(_ context.Context, slug string, data []byte) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(l.dir, slug+".json"), data, 0o644)
}

func stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
