package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"sanad-exam-service/internal/domain"
)

func newTestStore(t *testing.T) (*DocStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDocStore(client), mr
}

func TestDocStoreSetGet(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	path := "student_test_attempts/g1/student_test_attempts/a1"
	if err := store.Set(ctx, path, map[string]any{"studentName": "أحمد"}, false); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if !mr.Exists("doc:" + path) {
		t.Fatalf("expected redis key doc:%s", path)
	}

	raw, err := store.Get(ctx, path)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	var doc map[string]string
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc["studentName"] != "أحمد" {
		t.Fatalf("doc = %v", doc)
	}

	if _, err := store.Get(ctx, "missing/path"); !errors.Is(err, domain.ErrDocNotFound) {
		t.Fatalf("expected ErrDocNotFound, got %v", err)
	}
}

func TestDocStoreSetMerge(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.Set(ctx, "p/doc", map[string]any{"a": 1, "b": 2}, false); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := store.Set(ctx, "p/doc", map[string]any{"b": 9}, true); err != nil {
		t.Fatalf("merge set failed: %v", err)
	}

	raw, _ := store.Get(ctx, "p/doc")
	var got map[string]int
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["a"] != 1 || got["b"] != 9 {
		t.Fatalf("merged doc = %v", got)
	}

	// merge against a missing document behaves like a plain set
	if err := store.Set(ctx, "p/new", map[string]any{"x": 1}, true); err != nil {
		t.Fatalf("merge set on missing doc failed: %v", err)
	}
}

func TestDocStoreUpdateRequiresExisting(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	err := store.Update(ctx, "p/missing", map[string]any{"x": 1})
	if !errors.Is(err, domain.ErrDocNotFound) {
		t.Fatalf("expected ErrDocNotFound, got %v", err)
	}
}

func TestDocStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.Set(ctx, "p/doc", map[string]any{"x": 1}, false); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := store.Delete(ctx, "p/doc"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "p/doc"); !errors.Is(err, domain.ErrDocNotFound) {
		t.Fatalf("expected ErrDocNotFound after delete, got %v", err)
	}
}

func TestDocStoreList(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	paths := []string{
		"student_test_attempts/g1/student_test_attempts/a2",
		"student_test_attempts/g1/student_test_attempts/a1",
		"student_test_attempts/g2/student_test_attempts/b1",
		"student_test_attempts/g1/student_test_attempts/a1/sub/deep",
	}
	for _, p := range paths {
		if err := store.Set(ctx, p, map[string]any{"path": p}, false); err != nil {
			t.Fatalf("set %s: %v", p, err)
		}
	}

	docs, err := store.List(ctx, "student_test_attempts/g1/student_test_attempts")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 direct children, got %d", len(docs))
	}
	if docs[0].Path != "student_test_attempts/g1/student_test_attempts/a1" ||
		docs[1].Path != "student_test_attempts/g1/student_test_attempts/a2" {
		t.Fatalf("paths = %s, %s", docs[0].Path, docs[1].Path)
	}
}

func TestDocStoreTransactAppend(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	for i := 0; i < 3; i++ {
		err := store.Transact(ctx, "p/doc", func(current json.RawMessage) (any, error) {
			var items []int
			if current != nil {
				if err := json.Unmarshal(current, &items); err != nil {
					return nil, err
				}
			}
			return append(items, len(items)+1), nil
		})
		if err != nil {
			t.Fatalf("transact %d failed: %v", i, err)
		}
	}

	raw, _ := store.Get(ctx, "p/doc")
	var items []int
	if err := json.Unmarshal(raw, &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 3 || items[2] != 3 {
		t.Fatalf("items = %v", items)
	}
}

func TestDocStoreTransactRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	if err := store.Set(ctx, "p/doc", []int{1}, false); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	calls := 0
	err := store.Transact(ctx, "p/doc", func(current json.RawMessage) (any, error) {
		calls++
		var items []int
		if err := json.Unmarshal(current, &items); err != nil {
			return nil, err
		}
		if calls == 1 {
			// a concurrent writer touches the watched key before EXEC
			if err := mr.Set("doc:p/doc", `[1,99]`); err != nil {
				t.Fatalf("concurrent write: %v", err)
			}
		}
		return append(items, 2), nil
	})
	if err != nil {
		t.Fatalf("transact failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("callback ran %d times, want 2", calls)
	}

	raw, _ := store.Get(ctx, "p/doc")
	var items []int
	if err := json.Unmarshal(raw, &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// the re-run saw the concurrent write, so neither update is lost
	if len(items) != 3 || items[0] != 1 || items[1] != 99 || items[2] != 2 {
		t.Fatalf("items = %v, want [1 99 2]", items)
	}
}

func TestDocStoreTransactGivesUpAfterBoundedRetries(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	calls := 0
	err := store.Transact(ctx, "p/doc", func(json.RawMessage) (any, error) {
		calls++
		// every attempt loses the race
		if err := mr.Set("doc:p/doc", `[0]`); err != nil {
			t.Fatalf("concurrent write: %v", err)
		}
		return []int{1}, nil
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if calls != maxTxnRetries {
		t.Fatalf("callback ran %d times, want %d", calls, maxTxnRetries)
	}
}

func TestDocStoreTransactAbortsOnError(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	sentinel := errors.New("abort")
	err := store.Transact(ctx, "p/doc", func(json.RawMessage) (any, error) {
		return nil, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if mr.Exists("doc:p/doc") {
		t.Fatalf("aborted transaction must not write")
	}
}
