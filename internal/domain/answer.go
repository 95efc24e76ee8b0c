package domain

import "encoding/json"

// AnswerValue is one submitted answer. On the wire it is a JSON string, an
// ordered array of strings (fill_blank parts aligned to blank positions), or
// null/absent. Malformed shapes decode to a present-but-empty value so the
// evaluator can treat them as incorrect instead of failing the whole attempt.
type AnswerValue struct {
	Text    string
	Parts   []string
	IsList  bool
	Present bool
}

// AnswerText builds a single-string answer.
func AnswerText(s string) AnswerValue {
	return AnswerValue{Text: s, Present: true}
}

// AnswerParts builds an ordered multi-part answer.
func AnswerParts(parts ...string) AnswerValue {
	return AnswerValue{Parts: parts, IsList: true, Present: true}
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if !v.Present {
		return []byte("null"), nil
	}
	if v.IsList {
		if v.Parts == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.Parts)
	}
	return json.Marshal(v.Text)
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	*v = AnswerValue{}
	if string(data) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = AnswerText(s)
		return nil
	}

	var parts []string
	if err := json.Unmarshal(data, &parts); err == nil {
		*v = AnswerParts(parts...)
		return nil
	}

	// Mixed-type arrays: keep the string elements in place, blank the rest.
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		parts := make([]string, len(raw))
		for i, item := range raw {
			var elem string
			if err := json.Unmarshal(item, &elem); err == nil {
				parts[i] = elem
			}
		}
		*v = AnswerParts(parts...)
		return nil
	}

	// Any other shape (number, object, bool) is a malformed submission.
	*v = AnswerValue{Present: true}
	return nil
}

// Equal reports whether two answers carry the same value.
func (v AnswerValue) Equal(other AnswerValue) bool {
	if v.Present != other.Present || v.IsList != other.IsList {
		return false
	}
	if !v.Present {
		return true
	}
	if !v.IsList {
		return v.Text == other.Text
	}
	if len(v.Parts) != len(other.Parts) {
		return false
	}
	for i := range v.Parts {
		if v.Parts[i] != other.Parts[i] {
			return false
		}
	}
	return true
}
