package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"airquality-server/internal/modules/airquality/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileRepository_LoadCachesByContent(t *testing.T) {
	path := writeCSV(t, testHeader+"2025-01-01T00:00:00Z;;;10;;20;30\n")
	repo := NewRepository(path, DefaultOptions(), quietLogger())

	first, err := repo.Load()
	if err != nil {
		t.Fatalf("Load() err = %v; want nil", err)
	}
	second, err := repo.Load()
	if err != nil {
		t.Fatalf("Load() err = %v; want nil", err)
	}
	if first != second {
		t.Error("Load() returned a new dataset for unchanged content; want cached pointer")
	}

	if err := os.WriteFile(path, []byte(testHeader+"2025-01-01T00:00:00Z;;;11;;20;30\n2025-01-01T01:00:00Z;;;12;;21;31\n"), 0o644); err != nil {
		t.Fatalf("rewrite csv: %v", err)
	}
	third, err := repo.Load()
	if err != nil {
		t.Fatalf("Load() err = %v; want nil", err)
	}
	if third == first {
		t.Fatal("Load() returned cached dataset after content changed")
	}
	if third.Len() != 2 {
		t.Errorf("Len() = %d; want 2", third.Len())
	}
	if third.Hash == first.Hash {
		t.Error("Hash unchanged after content changed")
	}
}

func TestFileRepository_LoadMissingFile(t *testing.T) {
	path := writeCSV(t, testHeader)
	repo := NewRepository(path, DefaultOptions(), quietLogger())
	if _, err := repo.Load(); err != nil {
		t.Fatalf("Load() err = %v; want nil", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	_, err := repo.Load()
	var dsErr *DataSourceError
	if !errors.As(err, &dsErr) {
		t.Fatalf("Load() err = %v; want *DataSourceError", err)
	}
}

func TestFileRepository_Invalidate(t *testing.T) {
	path := writeCSV(t, testHeader+"2025-01-01T00:00:00Z;;;10;;20;30\n")
	repo := NewRepository(path, DefaultOptions(), quietLogger())
	first, err := repo.Load()
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	repo.Invalidate()
	second, err := repo.Load()
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	// Same bytes: the hash check still returns the cached value.
	if first != second {
		t.Error("Load() after Invalidate with unchanged content; want cached pointer")
	}
}

func TestFileRepository_WatchInvalidatesOnWrite(t *testing.T) {
	path := writeCSV(t, testHeader+"2025-01-01T00:00:00Z;;;10;;20;30\n")
	repo := NewRepository(path, DefaultOptions(), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- repo.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Watch() err = %v", err)
		}
	})

	waitFor(t, 2*time.Second, repo.Watching)

	ds, err := repo.Load()
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if v, _ := ds.Observations[0].Value(types.PM10); v != 10 {
		t.Fatalf("PM10 = %v; want 10", v)
	}

	if err := os.WriteFile(path, []byte(testHeader+"2025-01-01T00:00:00Z;;;42;;20;30\n"), 0o644); err != nil {
		t.Fatalf("rewrite csv: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		ds, err := repo.Load()
		if err != nil {
			return false
		}
		v, _ := ds.Observations[0].Value(types.PM10)
		return v == 42
	})
}

func TestFileRepository_WatchStopsOnCancel(t *testing.T) {
	path := writeCSV(t, testHeader)
	repo := NewRepository(path, DefaultOptions(), quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- repo.Watch(ctx) }()
	waitFor(t, 2*time.Second, repo.Watching)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Watch() err = %v; want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
	if repo.Watching() {
		t.Error("Watching() = true after Watch returned")
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
