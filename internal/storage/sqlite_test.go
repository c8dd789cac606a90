package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	db, err := NewSQLite(filepath.Join(t.TempDir(), "indexpush.db"))
	if err != nil {
		t.Fatalf("NewSQLite error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	// Migrate must be re-runnable.
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate error: %v", err)
	}
	return db
}

func TestSQLiteQueueRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	urls, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(urls) != 0 {
		t.Fatalf("expected empty queue, got %v", urls)
	}

	want := []string{"https://a.example/2", "https://a.example/1", "https://a.example/3"}
	if err := db.Replace(ctx, want); err != nil {
		t.Fatalf("Replace error: %v", err)
	}

	got, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("insertion order not preserved: got %v, want %v", got, want)
	}
}

func TestSQLiteReplaceOverwrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Replace(ctx, []string{"https://a.example/1", "https://a.example/2"}); err != nil {
		t.Fatalf("Replace error: %v", err)
	}
	if err := db.Replace(ctx, []string{"https://a.example/2"}); err != nil {
		t.Fatalf("Replace error: %v", err)
	}

	got, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"https://a.example/2"}) {
		t.Fatalf("got %v", got)
	}
}

func TestSQLiteLedgersAndStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Replace(ctx, []string{"https://a.example/pending"}); err != nil {
		t.Fatalf("Replace error: %v", err)
	}
	day := time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)
	for _, url := range []string{"https://a.example/1", "https://a.example/2", "https://a.example/3"} {
		if err := db.RecordSuccess(ctx, url, day); err != nil {
			t.Fatalf("RecordSuccess error: %v", err)
		}
	}
	if err := db.RecordRejected(ctx, "https://a.example/bad", "code=400, status=INVALID_ARGUMENT"); err != nil {
		t.Fatalf("RecordRejected error: %v", err)
	}

	stats, err := db.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Pending != 1 || stats.Succeeded != 3 || stats.Rejected != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.SuccessRate != 75 {
		t.Fatalf("expected 75%% success rate, got %v", stats.SuccessRate)
	}
}
