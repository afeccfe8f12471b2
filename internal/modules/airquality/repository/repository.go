package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"airquality-server/internal/modules/airquality/types"
)

type DatasetRepository interface {
	// Load returns the current dataset. The returned value is shared and must not be modified.
	Load() (*types.Dataset, error)
	Path() string
}

// FileRepository serves the dataset parsed from a single file. The parsed
// dataset is cached by content hash; while Watch is running the file is only
// re-read after a change event.
type FileRepository struct {
	path   string
	opts   Options
	logger *slog.Logger

	mu       sync.RWMutex
	cached   *types.Dataset
	stale    bool
	watching bool
}

func NewRepository(path string, opts Options, logger *slog.Logger) *FileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileRepository{
		path:   filepath.Clean(path),
		opts:   opts,
		logger: logger,
	}
}

func (r *FileRepository) Path() string { return r.path }

func (r *FileRepository) Load() (*types.Dataset, error) {
	r.mu.RLock()
	if r.fresh() {
		ds := r.cached
		r.mu.RUnlock()
		return ds, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fresh() {
		return r.cached, nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		r.cached = nil
		return nil, &DataSourceError{Path: r.path, Reason: "read file", Err: err}
	}
	if r.cached != nil && r.cached.Hash == xxhash.Sum64(data) {
		r.stale = false
		return r.cached, nil
	}

	ds, err := parseBytes(r.path, data, r.opts)
	if err != nil {
		r.cached = nil
		return nil, err
	}
	r.cached = ds
	r.stale = false
	r.logger.Info("dataset loaded",
		"path", r.path,
		"rows", ds.Len(),
		"hash", fmt.Sprintf("%016x", ds.Hash),
	)
	return ds, nil
}

// fresh reports whether the cache can be served without touching the file. Callers hold mu.
func (r *FileRepository) fresh() bool {
	return r.watching && !r.stale && r.cached != nil
}

// Invalidate forces the next Load to re-read the file.
func (r *FileRepository) Invalidate() {
	r.mu.Lock()
	r.stale = true
	r.mu.Unlock()
}

func (r *FileRepository) Watching() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.watching
}

// Watch marks the cache stale whenever the file is written, replaced or
// removed. It blocks until ctx is done. The parent directory is watched so
// that editors which replace the file atomically are still seen.
func (r *FileRepository) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			r.logger.Error("close watcher", "error", err)
		}
	}()

	dir := filepath.Dir(r.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	r.mu.Lock()
	r.watching = true
	r.stale = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.watching = false
		r.mu.Unlock()
	}()
	r.logger.Info("watching dataset", "path", r.path)

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.path || event.Op&relevant == 0 {
				continue
			}
			r.logger.Debug("dataset changed", "path", event.Name, "op", event.Op.String())
			r.Invalidate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Events may have been dropped; fall back to re-reading.
			r.logger.Warn("dataset watcher error", "error", err)
			r.Invalidate()
		}
	}
}
