package refdata

import (
	"context"
	"encoding/json"
	"fmt"

	"sanad-exam-service/internal/app"
	"sanad-exam-service/internal/domain"
)

// DocLoader reads reference lists from the document store, one document per
// key under reference_data/{key} with a "values" array.
type DocLoader struct {
	store app.DocumentStore
}

func NewDocLoader(store app.DocumentStore) *DocLoader {
	return &DocLoader{store: store}
}

func (l *DocLoader) LoadReference(ctx context.Context, key string) ([]string, error) {
	raw, err := l.store.Get(ctx, "reference_data/"+key)
	if err == domain.ErrDocNotFound {
		return nil, domain.ErrReferenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load reference %s: %w", key, err)
	}
	var doc struct {
		Values []string `json:"values"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode reference %s: %w", key, err)
	}
	return doc.Values, nil
}
