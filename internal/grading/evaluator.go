package grading

import (
	"strings"

	"golang.org/x/text/cases"

	"sanad-exam-service/internal/domain"
)

// Normalize trims surrounding whitespace and applies Unicode case folding
// for comparison. Arabic text is unaffected by the fold; Latin answers
// compare case-insensitively, including the non-ASCII foldings ToLower
// misses (K, ſ, ß).
func Normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// IsCorrect decides whether a submitted answer matches the question's
// canonical answer. It is pure and total: malformed shapes and missing,
// empty or whitespace-only submissions are incorrect, never an error.
func IsCorrect(answer domain.AnswerValue, q domain.Question) bool {
	if isBlankAnswer(answer) {
		return false
	}

	switch q.Type {
	case domain.MultipleChoice:
		if answer.IsList {
			return false
		}
		for _, opt := range q.Options {
			if opt.IsCorrect {
				return answer.Text == opt.Text
			}
		}
		return false

	case domain.FillBlank:
		if !answer.IsList {
			return false
		}
		blanks := sortedBlanks(q)
		if len(blanks) == 0 || len(answer.Parts) != len(blanks) {
			return false
		}
		for _, b := range blanks {
			if b.Position < 0 || b.Position >= len(answer.Parts) {
				return false
			}
			if Normalize(answer.Parts[b.Position]) != Normalize(b.CorrectAnswer) {
				return false
			}
		}
		return true

	case domain.SpecificAnswer:
		return matchesExact(answer, q.CorrectAnswer, q)

	case domain.NarratorReference:
		return matchesExact(answer, q.CorrectNarrator, q)

	case domain.BookReference:
		return matchesExact(answer, q.CorrectBook, q)

	case domain.HadithAttribution:
		return matchesExact(answer, q.CorrectAttribution, q)

	case domain.ProofText:
		// Deliberately looser than the exact-match types: students quote the
		// proof inside a longer passage, so containment is enough.
		if answer.IsList {
			return false
		}
		proof := Normalize(q.ProofText)
		if proof == "" {
			return false
		}
		return strings.Contains(Normalize(answer.Text), proof)

	default:
		return false
	}
}

// matchesExact compares a single-string answer against the canonical value
// or any acceptable alternate, after normalization.
func matchesExact(answer domain.AnswerValue, canonical string, q domain.Question) bool {
	if answer.IsList {
		return false
	}
	submitted := Normalize(answer.Text)
	want := Normalize(canonical)
	if want != "" && submitted == want {
		return true
	}
	_, ok := AcceptableAlternates(q)[submitted]
	return ok
}

// isBlankAnswer reports whether a submission counts as unanswered.
func isBlankAnswer(answer domain.AnswerValue) bool {
	if !answer.Present {
		return true
	}
	if !answer.IsList {
		return strings.TrimSpace(answer.Text) == ""
	}
	if len(answer.Parts) == 0 {
		return true
	}
	for _, part := range answer.Parts {
		if strings.TrimSpace(part) != "" {
			return false
		}
	}
	return true
}
