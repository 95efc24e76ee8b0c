package domain

import (
	"encoding/json"
	"sort"
	"strconv"
)

// QuestionSet is an ordered map of questions keyed by question ID. Persisted
// attempt snapshots arrive either array-shaped or map-shaped; both normalize
// into this one form before any grading happens. Arrays keep their order,
// maps are ordered by key (numeric keys first, numerically).
type QuestionSet struct {
	order []string
	items map[string]Question
}

// NewQuestionSet builds a set from a slice, assigning index-based IDs to
// questions that carry none.
func NewQuestionSet(questions []Question) QuestionSet {
	qs := QuestionSet{items: make(map[string]Question, len(questions))}
	for i, q := range questions {
		id := q.ID
		if id == "" {
			id = strconv.Itoa(i)
			q.ID = id
		}
		if _, exists := qs.items[id]; exists {
			continue
		}
		qs.order = append(qs.order, id)
		qs.items[id] = q
	}
	return qs
}

// Len returns the number of questions.
func (qs QuestionSet) Len() int { return len(qs.order) }

// IDs returns the question IDs in grading order.
func (qs QuestionSet) IDs() []string {
	out := make([]string, len(qs.order))
	copy(out, qs.order)
	return out
}

// Get looks up a question by ID.
func (qs QuestionSet) Get(id string) (Question, bool) {
	q, ok := qs.items[id]
	return q, ok
}

// Ordered returns the questions in grading order.
func (qs QuestionSet) Ordered() []Question {
	out := make([]Question, 0, len(qs.order))
	for _, id := range qs.order {
		out = append(out, qs.items[id])
	}
	return out
}

// MarshalJSON writes the set array-shaped with IDs embedded, so a frozen
// snapshot round-trips with its order intact.
func (qs QuestionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(qs.Ordered())
}

func (qs *QuestionSet) UnmarshalJSON(data []byte) error {
	var asArray []Question
	if err := json.Unmarshal(data, &asArray); err == nil {
		*qs = NewQuestionSet(asArray)
		return nil
	}

	var asMap map[string]Question
	if err := json.Unmarshal(data, &asMap); err != nil {
		return err
	}

	keys := make([]string, 0, len(asMap))
	for k := range asMap {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, iErr := strconv.Atoi(keys[i])
		nj, jErr := strconv.Atoi(keys[j])
		switch {
		case iErr == nil && jErr == nil:
			return ni < nj
		case iErr == nil:
			return true
		case jErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	set := QuestionSet{items: make(map[string]Question, len(asMap))}
	for _, k := range keys {
		q := asMap[k]
		if q.ID == "" {
			q.ID = k
		}
		set.order = append(set.order, q.ID)
		set.items[q.ID] = q
	}
	*qs = set
	return nil
}
