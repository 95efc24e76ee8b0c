package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"sanad-exam-service/internal/app"
	"sanad-exam-service/internal/domain"
)

// DocStore is an in-memory implementation of app.DocumentStore, used in
// tests and the no-Redis dev path. One mutex guards the whole store, so a
// Transact callback runs atomically against it.
type DocStore struct {
	mu   sync.RWMutex
	docs map[string]json.RawMessage
}

func NewDocStore() *DocStore {
	return &DocStore{docs: make(map[string]json.RawMessage)}
}

func (s *DocStore) Get(_ context.Context, path string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[path]
	if !ok {
		return nil, domain.ErrDocNotFound
	}
	return cloneRaw(doc), nil
}

func (s *DocStore) Set(_ context.Context, path string, doc any, merge bool) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if merge {
		if existing, ok := s.docs[path]; ok {
			merged, err := mergeShallow(existing, data)
			if err != nil {
				return err
			}
			s.docs[path] = merged
			return nil
		}
	}
	s.docs[path] = data
	return nil
}

func (s *DocStore) Update(_ context.Context, path string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.docs[path]
	if !ok {
		return domain.ErrDocNotFound
	}
	merged, err := mergeShallow(existing, data)
	if err != nil {
		return err
	}
	s.docs[path] = merged
	return nil
}

func (s *DocStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}

func (s *DocStore) List(_ context.Context, collectionPath string) ([]app.Document, error) {
	prefix := collectionPath + "/"

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []app.Document
	for path, doc := range s.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		// Direct children only, not nested subcollections.
		if strings.ContainsRune(path[len(prefix):], '/') {
			continue
		}
		out = append(out, app.Document{Path: path, Data: cloneRaw(doc)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *DocStore) Transact(_ context.Context, path string, fn func(current json.RawMessage) (any, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current json.RawMessage
	if doc, ok := s.docs[path]; ok {
		current = cloneRaw(doc)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	s.docs[path] = data
	return nil
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

func cloneRaw(in json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(in))
	copy(out, in)
	return out
}
