package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/conneroisu/devlog/internal/config"
	siteerrors "github.com/conneroisu/devlog/internal/errors"
	"github.com/conneroisu/devlog/internal/logging"
	"gopkg.in/yaml.v3"
)

// Source produces content snapshots.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Loader reads content files from the configured content directory.
// Individual files are optional; a missing content directory or a file
// that fails to decode is an error.
type Loader struct {
	cfg    config.ContentConfig
	posts  *PostParser
	logger logging.Logger
}

// NewLoader creates a loader for the given content configuration.
func NewLoader(cfg config.ContentConfig, logger logging.Logger) *Loader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Loader{
		cfg:    cfg,
		posts:  NewPostParser(),
		logger: logger.WithComponent("content-loader"),
	}
}

// Load reads every content file and returns a fresh snapshot.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	info, err := os.Stat(l.cfg.Dir)
	if err != nil {
		return nil, siteerrors.ErrContentUnavailable(err).WithFile(l.cfg.Dir)
	}
	if !info.IsDir() {
		return nil, siteerrors.ErrContentUnavailable(fmt.Errorf("%s is not a directory", l.cfg.Dir)).WithFile(l.cfg.Dir)
	}

	snap := &Snapshot{LoadedAt: time.Now().UTC()}

	steps := []struct {
		name string
		out  interface{}
	}{
		{l.cfg.EntriesFile, &snap.Entries},
		{l.cfg.DevlogFile, &snap.Devlog},
		{l.cfg.JourneyFile, &snap.Journey},
		{l.cfg.SectionsFile, &snap.Sections},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := l.cfg.Path(step.name)
		if path == "" {
			continue
		}
		found, err := decodeFile(path, step.out)
		if err != nil {
			return nil, err
		}
		if found {
			snap.Files = append(snap.Files, path)
		} else {
			l.logger.Debug(ctx, "Content file not present, using empty list", "file", path)
		}
	}

	if l.cfg.PostsDir != "" {
		posts, files, err := l.loadPosts(ctx, l.cfg.Path(l.cfg.PostsDir))
		if err != nil {
			return nil, err
		}
		snap.Entries = append(snap.Entries, posts...)
		snap.Files = append(snap.Files, files...)
	}

	for i := range snap.Entries {
		if snap.Entries[i].Source == "" {
			snap.Entries[i].Source = "entries"
		}
	}

	l.logger.Info(ctx, "Content loaded",
		"entries", len(snap.Entries),
		"devlog", len(snap.Devlog),
		"journey", len(snap.Journey),
		"sections", len(snap.Sections),
	)

	return snap, nil
}

func (l *Loader) loadPosts(ctx context.Context, dir string) ([]Entry, []string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil, nil
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, siteerrors.NewIOError(siteerrors.ErrCodeFileNotFound, "failed to walk posts directory", err).WithFile(dir)
	}
	sort.Strings(paths)

	entries := make([]Entry, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, siteerrors.NewIOError(siteerrors.ErrCodeFileNotFound, "failed to read post", err).WithFile(path)
		}
		entry, err := l.posts.Parse(path, data)
		if err != nil {
			return nil, nil, siteerrors.ErrContentMalformed(path, err)
		}
		entries = append(entries, entry)
	}

	return entries, paths, nil
}

// decodeFile decodes a JSON or YAML list into out. It reports false when
// the file does not exist.
func decodeFile(path string, out interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, siteerrors.NewIOError(siteerrors.ErrCodeFileNotFound, "failed to read content file", err).WithFile(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
	case ".json", "":
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(out)
	default:
		return false, siteerrors.ErrContentMalformed(path, fmt.Errorf("unsupported extension %q", filepath.Ext(path)))
	}
	if err != nil {
		return false, siteerrors.ErrContentMalformed(path, err)
	}

	return true, nil
}

// IsContentFile reports whether path has an extension the loader reads.
func IsContentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml", ".md":
		return true
	}
	return false
}
