// Package grading holds the pure decision logic of the platform: the
// question-type registry, the correctness evaluator and the score
// aggregator. Nothing in here touches storage or suspends.
package grading

import (
	"sort"

	"sanad-exam-service/internal/domain"
)

// CanonicalAnswer returns the author-declared correct value for a question:
// a single string for the text variants, an ordered list for fill_blank,
// absent for unknown types. The evaluator dispatches on the same switch so
// the "grade" and "show correct answer" paths cannot diverge.
func CanonicalAnswer(q domain.Question) domain.AnswerValue {
	switch q.Type {
	case domain.MultipleChoice:
		for _, opt := range q.Options {
			if opt.IsCorrect {
				return domain.AnswerText(opt.Text)
			}
		}
		return domain.AnswerValue{}
	case domain.FillBlank:
		blanks := sortedBlanks(q)
		parts := make([]string, 0, len(blanks))
		for _, b := range blanks {
			parts = append(parts, b.CorrectAnswer)
		}
		return domain.AnswerParts(parts...)
	case domain.SpecificAnswer:
		return domain.AnswerText(q.CorrectAnswer)
	case domain.NarratorReference:
		return domain.AnswerText(q.CorrectNarrator)
	case domain.BookReference:
		return domain.AnswerText(q.CorrectBook)
	case domain.HadithAttribution:
		return domain.AnswerText(q.CorrectAttribution)
	case domain.ProofText:
		return domain.AnswerText(q.ProofText)
	default:
		return domain.AnswerValue{}
	}
}

// AcceptableAlternates returns the normalized set of values treated as
// equivalent to the canonical answer. Empty for types without alternates.
func AcceptableAlternates(q domain.Question) map[string]struct{} {
	var raw []string
	switch q.Type {
	case domain.SpecificAnswer:
		raw = q.AcceptableAnswers
	case domain.NarratorReference, domain.BookReference, domain.HadithAttribution:
		raw = q.AcceptableAlternates
		if len(raw) == 0 {
			raw = q.AcceptableAnswers
		}
	default:
		return map[string]struct{}{}
	}

	set := make(map[string]struct{}, len(raw))
	for _, alt := range raw {
		n := Normalize(alt)
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}

// sortedBlanks returns the question's blanks ordered by position. Both the
// registry and the evaluator align submitted parts through this helper.
func sortedBlanks(q domain.Question) []domain.Blank {
	blanks := make([]domain.Blank, len(q.Blanks))
	copy(blanks, q.Blanks)
	sort.SliceStable(blanks, func(i, j int) bool {
		return blanks[i].Position < blanks[j].Position
	})
	return blanks
}
