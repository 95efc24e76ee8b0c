package grading

import (
	"testing"

	"sanad-exam-service/internal/domain"
)

func questionSet(t *testing.T, questions ...domain.Question) domain.QuestionSet {
	t.Helper()
	return domain.NewQuestionSet(questions)
}

func TestAggregateAutomaticGrading(t *testing.T) {
	qs := questionSet(t,
		domain.Question{
			ID:     "q1",
			Type:   domain.MultipleChoice,
			Points: 4,
			Options: []domain.Option{
				{Text: "A"},
				{Text: "B", IsCorrect: true},
			},
		},
		domain.Question{
			ID:            "q2",
			Type:          domain.SpecificAnswer,
			Points:        6,
			CorrectAnswer: "مكة",
		},
	)
	answers := map[string]domain.AnswerValue{
		"q1": domain.AnswerText("B"),
		"q2": domain.AnswerText("المدينة"),
	}

	s := Aggregate(qs, answers, nil, nil)

	if s.TotalEarnedPoints != 4 {
		t.Fatalf("earned = %v, want 4", s.TotalEarnedPoints)
	}
	if s.TotalPossiblePoints != 10 {
		t.Fatalf("possible = %v, want 10", s.TotalPossiblePoints)
	}
	if s.FinalScore != s.TotalEarnedPoints {
		t.Fatalf("finalScore = %v, want %v", s.FinalScore, s.TotalEarnedPoints)
	}
	if s.Percentage != 40 {
		t.Fatalf("percentage = %v, want 40", s.Percentage)
	}
	if s.IsPassed {
		t.Fatalf("expected fail below threshold")
	}
	if s.CorrectCount != 1 {
		t.Fatalf("correctCount = %d, want 1", s.CorrectCount)
	}
	if len(s.PerQuestion) != 2 || s.PerQuestion[0].QuestionID != "q1" {
		t.Fatalf("per-question order broken: %+v", s.PerQuestion)
	}
}

func TestAggregatePassBoundary(t *testing.T) {
	qs := questionSet(t,
		domain.Question{ID: "q1", Type: domain.SpecificAnswer, Points: 3, CorrectAnswer: "a"},
		domain.Question{ID: "q2", Type: domain.SpecificAnswer, Points: 2, CorrectAnswer: "b"},
	)
	answers := map[string]domain.AnswerValue{
		"q1": domain.AnswerText("a"),
		"q2": domain.AnswerText("nope"),
	}

	s := Aggregate(qs, answers, nil, nil)
	if s.Percentage != 60 {
		t.Fatalf("percentage = %v, want 60", s.Percentage)
	}
	if !s.IsPassed {
		t.Fatalf("expected exactly 60%% to pass")
	}
}

func TestAggregateOverrides(t *testing.T) {
	qs := questionSet(t,
		domain.Question{ID: "q1", Type: domain.SpecificAnswer, Points: 5, CorrectAnswer: "x"},
	)
	answers := map[string]domain.AnswerValue{"q1": domain.AnswerText("almost")}
	overrides := map[string]float64{"q1": 5}
	notes := map[string]string{"q1": "accepted on review"}

	s := Aggregate(qs, answers, overrides, notes)
	if s.TotalEarnedPoints != 5 {
		t.Fatalf("earned = %v, want 5", s.TotalEarnedPoints)
	}
	if !s.IsPassed {
		t.Fatalf("expected full-credit override to pass")
	}
	if !s.PerQuestion[0].Overridden {
		t.Fatalf("expected override flag set")
	}
	if s.PerQuestion[0].Correct {
		t.Fatalf("override must not change the strict verdict")
	}
	if s.PerQuestion[0].Note != "accepted on review" {
		t.Fatalf("note = %q", s.PerQuestion[0].Note)
	}
}

func TestAggregateClampsOverrides(t *testing.T) {
	qs := questionSet(t,
		domain.Question{ID: "q1", Type: domain.SpecificAnswer, Points: 4, CorrectAnswer: "x"},
		domain.Question{ID: "q2", Type: domain.SpecificAnswer, Points: 4, CorrectAnswer: "y"},
	)
	overrides := map[string]float64{"q1": 99, "q2": -3}

	s := Aggregate(qs, nil, overrides, nil)
	if got := s.PerQuestion[0].Earned; got != 4 {
		t.Fatalf("over-award clamped to %v, want 4", got)
	}
	if got := s.PerQuestion[1].Earned; got != 0 {
		t.Fatalf("negative award clamped to %v, want 0", got)
	}
}

func TestAggregateOverrideSupersedesCorrect(t *testing.T) {
	qs := questionSet(t,
		domain.Question{ID: "q1", Type: domain.SpecificAnswer, Points: 4, CorrectAnswer: "x"},
	)
	answers := map[string]domain.AnswerValue{"q1": domain.AnswerText("x")}
	overrides := map[string]float64{"q1": 1}

	s := Aggregate(qs, answers, overrides, nil)
	if s.TotalEarnedPoints != 1 {
		t.Fatalf("earned = %v, want override value 1", s.TotalEarnedPoints)
	}
}

func TestAggregateZeroPossible(t *testing.T) {
	s := Aggregate(questionSet(t), nil, nil, nil)
	if s.Percentage != 0 {
		t.Fatalf("percentage = %v, want 0 for empty test", s.Percentage)
	}
	if s.IsPassed {
		t.Fatalf("empty test must not pass")
	}

	// All-zero point values behave the same as no questions.
	qs := questionSet(t,
		domain.Question{ID: "q1", Type: domain.SpecificAnswer, Points: 0, CorrectAnswer: "x"},
	)
	s = Aggregate(qs, map[string]domain.AnswerValue{"q1": domain.AnswerText("x")}, nil, nil)
	if s.Percentage != 0 || s.IsPassed {
		t.Fatalf("zero-possible attempt: percentage = %v, passed = %v", s.Percentage, s.IsPassed)
	}
}

func TestAggregateNegativePointsTreatedAsZero(t *testing.T) {
	qs := questionSet(t,
		domain.Question{ID: "q1", Type: domain.SpecificAnswer, Points: -5, CorrectAnswer: "x"},
	)
	s := Aggregate(qs, map[string]domain.AnswerValue{"q1": domain.AnswerText("x")}, nil, nil)
	if s.TotalPossiblePoints != 0 || s.TotalEarnedPoints != 0 {
		t.Fatalf("negative points not neutralized: %+v", s)
	}
}

func TestAggregateCorrectCountThreshold(t *testing.T) {
	qs := questionSet(t,
		domain.Question{ID: "q1", Type: domain.SpecificAnswer, Points: 4, CorrectAnswer: "x"},
		domain.Question{ID: "q2", Type: domain.SpecificAnswer, Points: 4, CorrectAnswer: "y"},
		domain.Question{ID: "q3", Type: domain.SpecificAnswer, Points: 4, CorrectAnswer: "z"},
	)
	// exactly half credit does not count, anything above does
	overrides := map[string]float64{"q1": 2, "q2": 2.5, "q3": 0}

	s := Aggregate(qs, nil, overrides, nil)
	if s.CorrectCount != 1 {
		t.Fatalf("correctCount = %d, want 1", s.CorrectCount)
	}
}

func TestAggregatePercentageRounding(t *testing.T) {
	qs := questionSet(t,
		domain.Question{ID: "q1", Type: domain.SpecificAnswer, Points: 3, CorrectAnswer: "a"},
		domain.Question{ID: "q2", Type: domain.SpecificAnswer, Points: 3, CorrectAnswer: "b"},
		domain.Question{ID: "q3", Type: domain.SpecificAnswer, Points: 3, CorrectAnswer: "c"},
	)
	answers := map[string]domain.AnswerValue{"q1": domain.AnswerText("a")}

	s := Aggregate(qs, answers, nil, nil)
	if s.Percentage != 33.3 {
		t.Fatalf("percentage = %v, want 33.3", s.Percentage)
	}
}

func TestEarnedPoints(t *testing.T) {
	qs := questionSet(t,
		domain.Question{ID: "q1", Type: domain.SpecificAnswer, Points: 2, CorrectAnswer: "a"},
		domain.Question{ID: "q2", Type: domain.SpecificAnswer, Points: 2, CorrectAnswer: "b"},
	)
	s := Aggregate(qs, map[string]domain.AnswerValue{"q1": domain.AnswerText("a")}, nil, nil)

	earned := s.EarnedPoints()
	if earned["q1"] != 2 || earned["q2"] != 0 {
		t.Fatalf("earnedPoints = %v", earned)
	}
}
