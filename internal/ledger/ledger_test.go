package ledger

import (
	"context"
	"testing"
	"time"
)

// openTestJournal opens an in-memory SQLiteJournal for use in tests.
func openTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func Test_Journal_RecordAndRecent(t *testing.T) {
	t.Parallel()
	j := openTestJournal(t)
	ctx := context.Background()

	if err := j.Record(ctx, Entry{Op: OpUpsert, Namespace: "docs", DocumentID: "d1", ChunkCount: 4}); err != nil {
		t.Fatalf("record upsert: %v", err)
	}
	if err := j.Record(ctx, Entry{Op: OpDelete, Namespace: "docs", Detail: "by-ids n=2"}); err != nil {
		t.Fatalf("record delete: %v", err)
	}

	entries, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Op != OpDelete || entries[0].Detail != "by-ids n=2" {
		t.Errorf("entries[0]: want delete/by-ids, got %s/%s", entries[0].Op, entries[0].Detail)
	}
	if entries[1].Op != OpUpsert || entries[1].DocumentID != "d1" || entries[1].ChunkCount != 4 {
		t.Errorf("entries[1]: want upsert d1 with 4 chunks, got %+v", entries[1])
	}
}

func Test_Journal_RecentLimitRespected(t *testing.T) {
	t.Parallel()
	j := openTestJournal(t)
	ctx := context.Background()

	for range 6 {
		if err := j.Record(ctx, Entry{Op: OpUpsert, Namespace: "bulk"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := j.Recent(ctx, 4)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("want 4 entries, got %d", len(entries))
	}
}

func Test_Journal_NewestFirstOrdering(t *testing.T) {
	t.Parallel()
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	docs := []string{"first", "second", "third"}
	for i, id := range docs {
		e := Entry{Op: OpUpsert, Namespace: "ns", DocumentID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	want := []string{"third", "second", "first"}
	for i, id := range want {
		if entries[i].DocumentID != id {
			t.Errorf("entries[%d]: want %q, got %q", i, id, entries[i].DocumentID)
		}
	}
}

func Test_Journal_EmptyReturnsNil(t *testing.T) {
	t.Parallel()
	j := openTestJournal(t)

	entries, err := j.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent empty: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("want 0 entries, got %d", len(entries))
	}
}

func Test_Journal_StampsMissingTimestamp(t *testing.T) {
	t.Parallel()
	j := openTestJournal(t)
	ctx := context.Background()

	before := time.Now().Add(-2 * time.Second)
	if err := j.Record(ctx, Entry{Op: OpDelete, Namespace: "ns", Detail: "delete-all"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := j.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	if entries[0].CreatedAt.Before(before) {
		t.Errorf("timestamp not stamped: %v", entries[0].CreatedAt)
	}
}
