package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"

	"sanad-exam-service/internal/domain"
)

// AnswerReportRow is the relational shape of one denormalized grading record.
type AnswerReportRow struct {
	bun.BaseModel `bun:"table:student_answer_reports"`

	ID            int64   `bun:"id,pk,autoincrement"`
	GroupID       string  `bun:"group_id,notnull"`
	AttemptID     string  `bun:"attempt_id,notnull"`
	QuestionID    string  `bun:"question_id,notnull"`
	QuestionType  string  `bun:"question_type,notnull"`
	StudentAnswer string  `bun:"student_answer"`
	IsCorrect     bool    `bun:"is_correct,notnull"`
	PointsAwarded float64 `bun:"points_awarded,notnull"`
	TotalPoints   float64 `bun:"total_points,notnull"`
	ReviewedAt    string  `bun:"reviewed_at,notnull"`
	ReviewedBy    string  `bun:"reviewed_by,notnull"`
}

// AnswerSink persists fan-out rows for reporting. Rows are upserted so a
// re-reviewed question keeps a single latest row per attempt/question.
type AnswerSink struct {
	db *bun.DB
}

func NewAnswerSink(db *bun.DB) *AnswerSink {
	return &AnswerSink{db: db}
}

func (s *AnswerSink) SaveReports(ctx context.Context, groupID string, reports []domain.AnswerReport) error {
	if len(reports) == 0 {
		return nil
	}
	rows := make([]AnswerReportRow, 0, len(reports))
	for _, r := range reports {
		answer, err := json.Marshal(r.StudentAnswer)
		if err != nil {
			return fmt.Errorf("encode answer: %w", err)
		}
		rows = append(rows, AnswerReportRow{
			GroupID:       groupID,
			AttemptID:     r.AttemptID,
			QuestionID:    r.QuestionID,
			QuestionType:  string(r.QuestionType),
			StudentAnswer: string(answer),
			IsCorrect:     r.IsCorrect,
			PointsAwarded: r.PointsAwarded,
			TotalPoints:   r.TotalPoints,
			ReviewedAt:    r.ReviewedAt,
			ReviewedBy:    r.ReviewedBy,
		})
	}

	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (group_id, attempt_id, question_id) DO UPDATE").
		Set("student_answer = EXCLUDED.student_answer").
		Set("is_correct = EXCLUDED.is_correct").
		Set("points_awarded = EXCLUDED.points_awarded").
		Set("total_points = EXCLUDED.total_points").
		Set("reviewed_at = EXCLUDED.reviewed_at").
		Set("reviewed_by = EXCLUDED.reviewed_by").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save answer reports: %w", err)
	}
	return nil
}
