package grading

import (
	"math"

	"sanad-exam-service/internal/domain"
)

// PassThreshold is the single global pass mark, in percent.
const PassThreshold = 60.0

// QuestionScore is the graded outcome for one question.
type QuestionScore struct {
	QuestionID string
	Type       domain.QuestionType
	Answer     domain.AnswerValue
	Correct    bool // strict evaluator verdict, independent of overrides
	Earned     float64
	Possible   float64
	Overridden bool
	Note       string
}

// Summary is the aggregate of an attempt's per-question scores.
type Summary struct {
	PerQuestion         []QuestionScore
	TotalEarnedPoints   float64
	TotalPossiblePoints float64
	FinalScore          float64
	Percentage          float64
	IsPassed            bool
	CorrectCount        int
}

// Aggregate folds per-question evaluations and optional reviewer overrides
// into attempt totals. Overrides always take precedence over the automatic
// verdict and are clamped to [0, points] here, not in the caller.
//
// CorrectCount uses a coarser more-than-half-credit threshold than the
// strict boolean verdict; the two notions coexist in the stored record.
func Aggregate(questions domain.QuestionSet, answers map[string]domain.AnswerValue, overrides map[string]float64, notes map[string]string) Summary {
	summary := Summary{PerQuestion: make([]QuestionScore, 0, questions.Len())}

	for _, q := range questions.Ordered() {
		possible := q.Points
		if possible < 0 {
			possible = 0
		}

		answer := answers[q.ID]
		correct := IsCorrect(answer, q)

		earned := 0.0
		if correct {
			earned = possible
		}
		overridden := false
		if override, ok := overrides[q.ID]; ok {
			earned = clamp(override, 0, possible)
			overridden = true
		}

		score := QuestionScore{
			QuestionID: q.ID,
			Type:       q.Type,
			Answer:     answer,
			Correct:    correct,
			Earned:     earned,
			Possible:   possible,
			Overridden: overridden,
			Note:       notes[q.ID],
		}
		summary.PerQuestion = append(summary.PerQuestion, score)

		summary.TotalEarnedPoints += earned
		summary.TotalPossiblePoints += possible
		if earned > possible/2 {
			summary.CorrectCount++
		}
	}

	summary.FinalScore = summary.TotalEarnedPoints
	summary.Percentage = percentage(summary.TotalEarnedPoints, summary.TotalPossiblePoints)
	summary.IsPassed = summary.Percentage >= PassThreshold
	return summary
}

// EarnedPoints returns the per-question awards keyed by question ID.
func (s Summary) EarnedPoints() map[string]float64 {
	out := make(map[string]float64, len(s.PerQuestion))
	for _, q := range s.PerQuestion {
		out[q.QuestionID] = q.Earned
	}
	return out
}

// percentage is 0 when nothing is possible, never NaN, rounded to one
// decimal as stored.
func percentage(earned, possible float64) float64 {
	if possible <= 0 {
		return 0
	}
	return math.Round(earned/possible*1000) / 10
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
