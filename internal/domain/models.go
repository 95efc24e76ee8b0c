package domain

// QuestionType enumerates the closed set of question variants.
type QuestionType string

const (
	MultipleChoice    QuestionType = "multiple_choice"
	FillBlank         QuestionType = "fill_blank"
	SpecificAnswer    QuestionType = "specific_answer"
	NarratorReference QuestionType = "narrator_reference"
	BookReference     QuestionType = "book_reference"
	HadithAttribution QuestionType = "hadith_attribution"
	ProofText         QuestionType = "proof_text"
)

// QuestionTypes lists every variant; extending it requires extending the
// grading registry and evaluator together.
var QuestionTypes = []QuestionType{
	MultipleChoice,
	FillBlank,
	SpecificAnswer,
	NarratorReference,
	BookReference,
	HadithAttribution,
	ProofText,
}

// Option is one multiple-choice answer option.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Blank is a single gap in a fill_blank question, aligned by position.
type Blank struct {
	Position      int    `json:"position"`
	CorrectAnswer string `json:"correctAnswer"`
}

// Question is an authored question with its canonical answer fields.
// It is immutable during grading: grading reads only frozen snapshots.
type Question struct {
	ID                 string       `json:"id,omitempty"`
	Type               QuestionType `json:"type"`
	Text               string       `json:"text,omitempty"`
	Points             float64      `json:"points"`
	Options            []Option     `json:"options,omitempty"`
	Blanks             []Blank      `json:"blanks,omitempty"`
	CorrectAnswer      string       `json:"correctAnswer,omitempty"`
	CorrectNarrator    string       `json:"correctNarrator,omitempty"`
	CorrectBook        string       `json:"correctBook,omitempty"`
	CorrectAttribution string       `json:"correctAttribution,omitempty"`
	ProofText          string       `json:"proofText,omitempty"`
	// AcceptableAnswers holds alternates for specific_answer questions,
	// AcceptableAlternates for the reference variants.
	AcceptableAnswers    []string `json:"acceptableAnswers,omitempty"`
	AcceptableAlternates []string `json:"acceptableAlternates,omitempty"`
}

// Test is the authored test definition as loaded from the content store.
type Test struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Questions QuestionSet `json:"questions"`
	PassMark  float64     `json:"passMark,omitempty"` // informational; grading uses the fixed threshold
}

// TestData is the snapshot of test content frozen into an attempt at
// submission time.
type TestData struct {
	Title     string      `json:"title,omitempty"`
	Questions QuestionSet `json:"questions"`
}

// Attempt is one student's submission of answers for one test instance.
// Top-level score fields always mirror the latest modification, or the
// original submission when no modification exists.
type Attempt struct {
	ID                  string                 `json:"id,omitempty"`
	StudentName         string                 `json:"studentName"`
	TestID              string                 `json:"testId"`
	TestTitle           string                 `json:"testTitle,omitempty"`
	Answers             map[string]AnswerValue `json:"answers"`
	TestData            TestData               `json:"testData"`
	FinalScore          float64                `json:"finalScore"`
	Percentage          float64                `json:"percentage"`
	IsPassed            bool                   `json:"isPassed"`
	TotalEarnedPoints   float64                `json:"totalEarnedPoints"`
	TotalPossiblePoints float64                `json:"totalPossiblePoints"`
	SubmittedAt         string                 `json:"submittedAt,omitempty"`
	Modifications       []ModificationRecord   `json:"modifications,omitempty"`
}

// AttemptState is derived from the audit trail, never stored.
type AttemptState string

const (
	AttemptSubmitted AttemptState = "submitted"
	AttemptAmended   AttemptState = "amended"
)

// State reports the derived lifecycle state of the attempt.
func (a Attempt) State() AttemptState {
	if len(a.Modifications) > 0 {
		return AttemptAmended
	}
	return AttemptSubmitted
}

// LatestModification returns the most recent audit record, or nil.
func (a Attempt) LatestModification() *ModificationRecord {
	if len(a.Modifications) == 0 {
		return nil
	}
	return &a.Modifications[len(a.Modifications)-1]
}

// ModificationRecord is an immutable, reviewer-authored retroactive change
// to an attempt's answers and points. Timestamps are RFC 3339 strings.
type ModificationRecord struct {
	ModifiedBy string             `json:"modifiedBy"`
	ModifiedAt string             `json:"modifiedAt"`
	Before     BeforeModification `json:"beforeModification"`
	After      AfterModification  `json:"afterModification"`
}

// BeforeModification snapshots the attempt's score fields and answers as
// they were persisted before the edit was applied.
type BeforeModification struct {
	FinalScore          float64                `json:"finalScore"`
	Percentage          float64                `json:"percentage"`
	IsPassed            bool                   `json:"isPassed"`
	TotalEarnedPoints   float64                `json:"totalEarnedPoints"`
	TotalPossiblePoints float64                `json:"totalPossiblePoints"`
	OriginalAnswers     map[string]AnswerValue `json:"originalAnswers"`
}

// AfterModification captures the edited answers and the reviewer's
// per-question point awards and notes.
type AfterModification struct {
	ModifiedAnswers map[string]AnswerValue `json:"modifiedAnswers"`
	EarnedPoints    map[string]float64     `json:"earnedPoints"`
	EarnedNotes     map[string]string      `json:"earnedNotes,omitempty"`
	IsPassed        bool                   `json:"isPassed"`
}

// AnswerReport is the denormalized per-question grading record fanned out
// for reporting after a review. Best effort, not transactional with the
// attempt write.
type AnswerReport struct {
	AttemptID     string       `json:"attemptId"`
	QuestionID    string       `json:"questionId"`
	QuestionType  QuestionType `json:"questionType"`
	StudentAnswer AnswerValue  `json:"studentAnswer"`
	IsCorrect     bool         `json:"isCorrect"`
	PointsAwarded float64      `json:"pointsAwarded"`
	TotalPoints   float64      `json:"totalPoints"`
	ReviewedAt    string       `json:"reviewedAt"`
	ReviewedBy    string       `json:"reviewedBy"`
}
