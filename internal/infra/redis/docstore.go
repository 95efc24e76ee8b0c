package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"sanad-exam-service/internal/app"
	"sanad-exam-service/internal/domain"
)

const docKeyPrefix = "doc:"

// maxTxnRetries bounds how often a losing Transact re-runs before giving up
// with domain.ErrConflict.
const maxTxnRetries = 5

// DocStore is a Redis-backed implementation of app.DocumentStore. Each
// document is one JSON value keyed by its path; Transact uses
// WATCH/MULTI/EXEC for compare-and-swap updates of a single document.
type DocStore struct {
	client *redis.Client
}

func NewDocStore(client *redis.Client) *DocStore {
	return &DocStore{client: client}
}

func (s *DocStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	raw, err := s.client.Get(ctx, docKey(path)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrDocNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return raw, nil
}

func (s *DocStore) Set(ctx context.Context, path string, doc any, merge bool) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if !merge {
		if err := s.client.Set(ctx, docKey(path), data, 0).Err(); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
		return nil
	}
	return s.Transact(ctx, path, func(current json.RawMessage) (any, error) {
		if current == nil {
			return json.RawMessage(data), nil
		}
		merged, err := mergeShallow(current, data)
		if err != nil {
			return nil, err
		}
		return merged, nil
	})
}

func (s *DocStore) Update(ctx context.Context, path string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	return s.Transact(ctx, path, func(current json.RawMessage) (any, error) {
		if current == nil {
			return nil, domain.ErrDocNotFound
		}
		merged, err := mergeShallow(current, data)
		if err != nil {
			return nil, err
		}
		return merged, nil
	})
}

func (s *DocStore) Delete(ctx context.Context, path string) error {
	if err := s.client.Del(ctx, docKey(path)).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *DocStore) List(ctx context.Context, collectionPath string) ([]app.Document, error) {
	prefix := docKeyPrefix + collectionPath + "/"
	var paths []string

	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		// Direct children only, not nested subcollections.
		if strings.ContainsRune(key[len(prefix):], '/') {
			continue
		}
		paths = append(paths, key)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", collectionPath, err)
	}
	sort.Strings(paths)

	out := make([]app.Document, 0, len(paths))
	for _, key := range paths {
		raw, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue // expired between scan and read
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		out = append(out, app.Document{Path: strings.TrimPrefix(key, docKeyPrefix), Data: raw})
	}
	return out, nil
}

func (s *DocStore) Transact(ctx context.Context, path string, fn func(current json.RawMessage) (any, error)) error {
	key := docKey(path)

	txn := func(tx *redis.Tx) error {
		var current json.RawMessage
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
			current = nil
		case err != nil:
			return fmt.Errorf("get %s: %w", path, err)
		default:
			current = raw
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxnRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // lost the race, re-run on fresh state
		}
		return err
	}
	return domain.ErrConflict
}

func docKey(path string) string {
	return docKeyPrefix + path
}

// mergeShallow overlays the top-level fields of patch onto base.
func mergeShallow(base, patch json.RawMessage) (json.RawMessage, error) {
	var baseMap, patchMap map[string]json.RawMessage
	if err := json.Unmarshal(base, &baseMap); err != nil {
		return nil, fmt.Errorf("merge base: %w", err)
	}
	if err := json.Unmarshal(patch, &patchMap); err != nil {
		return nil, fmt.Errorf("merge patch: %w", err)
	}
	for k, v := range patchMap {
		baseMap[k] = v
	}
	merged, err := json.Marshal(baseMap)
	if err != nil {
		return nil, fmt.Errorf("merge encode: %w", err)
	}
	return merged, nil
}
