package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sagaflow.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreSaveLoadDelete(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	snap := Snapshot{
		Events: map[string][]RawEvent{
			"a": {{K: []string{"a", "x"}, V: float64(1), TS: 100}},
		},
		Snapshots: map[string]RawSnapshot{
			"b": {EventIdx: 2, Value: "checkpoint"},
		},
	}
	if err := s.Save(ctx, "run-1", snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Events["a"]) != 1 || got.Events["a"][0].V != float64(1) {
		t.Fatalf("unexpected loaded events: %+v", got.Events)
	}
	if got.Snapshots["b"].EventIdx != 2 {
		t.Fatalf("unexpected loaded snapshot: %+v", got.Snapshots)
	}

	if err := s.Delete(ctx, "run-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Load(ctx, "run-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLiteStoreSaveOverwritesExistingRun(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	first := Snapshot{Snapshots: map[string]RawSnapshot{"n": {EventIdx: 1, Value: "first"}}}
	second := Snapshot{Snapshots: map[string]RawSnapshot{"n": {EventIdx: 2, Value: "second"}}}

	if err := s.Save(ctx, "run-1", first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := s.Save(ctx, "run-1", second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := s.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Snapshots["n"].Value != "second" {
		t.Fatalf("expected overwritten value %q, got %+v", "second", got.Snapshots["n"])
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sagaflow.db")

	s1, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	snap := Snapshot{Snapshots: map[string]RawSnapshot{"n": {EventIdx: 7, Value: "durable"}}}
	if err := s1.Save(ctx, "run-1", snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, err := s2.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if got.Snapshots["n"].Value != "durable" {
		t.Fatalf("expected snapshot to survive reopen, got %+v", got.Snapshots)
	}
}

func TestSQLiteStoreDeleteUnknownRunIsNoop(t *testing.T) {
	s := newTestSQLiteStore(t)
	if err := s.Delete(context.Background(), "never-existed"); err != nil {
		t.Fatalf("expected delete of unknown run to succeed, got %v", err)
	}
}
