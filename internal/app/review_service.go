package app

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"sanad-exam-service/internal/domain"
	"sanad-exam-service/internal/grading"
)

// ReviewService contains the attempt grading and modification-audit use
// cases: submitting an attempt (snapshot + automatic grade) and applying
// reviewer modifications under an append-only audit trail.
type ReviewService struct {
	store DocumentStore
	tests TestRepository
	sink  ReportSink
	feed  *ReviewFeed
	pin   string
	log   *zap.Logger
	now   func() time.Time
}

// Option configures a ReviewService.
type Option func(*ReviewService)

// WithReviewerPIN sets the shared reviewer PIN. An empty PIN refuses every
// modification.
func WithReviewerPIN(pin string) Option { return func(s *ReviewService) { s.pin = pin } }

// WithReportSink attaches an optional reporting sink for fan-out rows.
func WithReportSink(sink ReportSink) Option { return func(s *ReviewService) { s.sink = sink } }

// WithLogger attaches a logger; defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option { return func(s *ReviewService) { s.log = log } }

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option { return func(s *ReviewService) { s.now = now } }

func NewReviewService(store DocumentStore, tests TestRepository, opts ...Option) *ReviewService {
	s := &ReviewService{
		store: store,
		tests: tests,
		feed:  NewReviewFeed(),
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitRequest carries a student's answers for one test instance.
type SubmitRequest struct {
	GroupID     string                        `json:"groupId"`
	AttemptID   string                        `json:"attemptId"`
	StudentName string                        `json:"studentName"`
	TestID      string                        `json:"testId"`
	Answers     map[string]domain.AnswerValue `json:"answers"`
}

// SubmitAttempt grades the submission against the live test definition,
// freezes the question snapshot into the attempt document and persists it.
// Grading after this point only ever reads the frozen snapshot.
func (s *ReviewService) SubmitAttempt(ctx context.Context, req SubmitRequest) (domain.Attempt, error) {
	test, err := s.tests.GetTest(ctx, req.TestID)
	if err != nil {
		return domain.Attempt{}, err
	}

	summary := grading.Aggregate(test.Questions, req.Answers, nil, nil)

	attempt := domain.Attempt{
		ID:          req.AttemptID,
		StudentName: req.StudentName,
		TestID:      test.ID,
		TestTitle:   test.Title,
		Answers:     req.Answers,
		TestData: domain.TestData{
			Title:     test.Title,
			Questions: test.Questions,
		},
		FinalScore:          summary.FinalScore,
		Percentage:          summary.Percentage,
		IsPassed:            summary.IsPassed,
		TotalEarnedPoints:   summary.TotalEarnedPoints,
		TotalPossiblePoints: summary.TotalPossiblePoints,
		SubmittedAt:         s.timestamp(),
	}

	path := AttemptPath(req.GroupID, req.AttemptID)
	if err := s.store.Set(ctx, path, attempt, false); err != nil {
		return domain.Attempt{}, fmt.Errorf("persist attempt: %w", err)
	}

	s.log.Info("attempt submitted",
		zap.String("group", req.GroupID),
		zap.String("attempt", req.AttemptID),
		zap.Float64("percentage", summary.Percentage),
		zap.Bool("passed", summary.IsPassed))
	return attempt, nil
}

// GetAttempt loads one attempt.
func (s *ReviewService) GetAttempt(ctx context.Context, groupID, attemptID string) (domain.Attempt, error) {
	raw, err := s.store.Get(ctx, AttemptPath(groupID, attemptID))
	if err != nil {
		if err == domain.ErrDocNotFound {
			return domain.Attempt{}, domain.ErrAttemptNotFound
		}
		return domain.Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	var attempt domain.Attempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return domain.Attempt{}, fmt.Errorf("decode attempt: %w", err)
	}
	if attempt.ID == "" {
		attempt.ID = attemptID
	}
	return attempt, nil
}

// ListAttempts returns every attempt in a group.
func (s *ReviewService) ListAttempts(ctx context.Context, groupID string) ([]domain.Attempt, error) {
	docs, err := s.store.List(ctx, AttemptCollection(groupID))
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	attempts := make([]domain.Attempt, 0, len(docs))
	for _, doc := range docs {
		var attempt domain.Attempt
		if err := json.Unmarshal(doc.Data, &attempt); err != nil {
			s.log.Warn("skipping undecodable attempt", zap.String("path", doc.Path), zap.Error(err))
			continue
		}
		if attempt.ID == "" {
			if i := strings.LastIndexByte(doc.Path, '/'); i >= 0 {
				attempt.ID = doc.Path[i+1:]
			}
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

// ModifyRequest is a reviewer's retroactive edit of an attempt. Answers are
// merged over the persisted ones; EarnedPoints and EarnedNotes are not: each
// modification's override set is complete and authoritative, and a question
// without an entry regrades automatically against the frozen snapshot.
type ModifyRequest struct {
	GroupID      string                        `json:"groupId"`
	AttemptID    string                        `json:"attemptId"`
	PIN          string                        `json:"pin"`
	ModifiedBy   string                        `json:"modifiedBy"`
	Answers      map[string]domain.AnswerValue `json:"answers,omitempty"`
	EarnedPoints map[string]float64            `json:"earnedPoints,omitempty"`
	EarnedNotes  map[string]string             `json:"earnedNotes,omitempty"`
}

// ApplyModification runs the read→recompute→append→write protocol inside
// one document transaction, so two reviewers editing the same attempt can
// never silently lose an update: the losing writer re-runs on fresh state.
// The PIN is checked before any read or write.
func (s *ReviewService) ApplyModification(ctx context.Context, req ModifyRequest) (domain.Attempt, error) {
	if !s.authorize(req.PIN) {
		return domain.Attempt{}, domain.ErrInvalidPIN
	}

	var (
		updated domain.Attempt
		reports []domain.AnswerReport
	)
	path := AttemptPath(req.GroupID, req.AttemptID)

	err := s.store.Transact(ctx, path, func(current json.RawMessage) (any, error) {
		if current == nil {
			return nil, domain.ErrAttemptNotFound
		}
		var attempt domain.Attempt
		if err := json.Unmarshal(current, &attempt); err != nil {
			return nil, fmt.Errorf("decode attempt: %w", err)
		}
		if attempt.ID == "" {
			attempt.ID = req.AttemptID
		}

		// The true "before" state, including any prior modification's
		// after-state, comes from the persisted document read in this
		// transaction.
		before := domain.BeforeModification{
			FinalScore:          attempt.FinalScore,
			Percentage:          attempt.Percentage,
			IsPassed:            attempt.IsPassed,
			TotalEarnedPoints:   attempt.TotalEarnedPoints,
			TotalPossiblePoints: attempt.TotalPossiblePoints,
			OriginalAnswers:     attempt.Answers,
		}

		edited := mergeAnswers(attempt.Answers, req.Answers)
		summary := grading.Aggregate(attempt.TestData.Questions, edited, req.EarnedPoints, req.EarnedNotes)

		record := domain.ModificationRecord{
			ModifiedBy: req.ModifiedBy,
			ModifiedAt: s.timestamp(),
			Before:     before,
			After: domain.AfterModification{
				ModifiedAnswers: edited,
				EarnedPoints:    summary.EarnedPoints(),
				EarnedNotes:     req.EarnedNotes,
				IsPassed:        summary.IsPassed,
			},
		}

		n := len(attempt.Modifications)
		attempt.Modifications = append(attempt.Modifications[:n:n], record)
		attempt.Answers = edited
		attempt.FinalScore = summary.FinalScore
		attempt.Percentage = summary.Percentage
		attempt.IsPassed = summary.IsPassed
		attempt.TotalEarnedPoints = summary.TotalEarnedPoints
		attempt.TotalPossiblePoints = summary.TotalPossiblePoints

		updated = attempt
		reports = buildReports(attempt, summary, record)
		return attempt, nil
	})
	if err != nil {
		return domain.Attempt{}, err
	}

	s.fanOut(ctx, req.GroupID, reports)

	s.feed.Publish(ReviewEvent{
		GroupID:    req.GroupID,
		AttemptID:  req.AttemptID,
		ModifiedBy: req.ModifiedBy,
		ModifiedAt: updated.LatestModification().ModifiedAt,
		Sequence:   len(updated.Modifications),
		Percentage: updated.Percentage,
		IsPassed:   updated.IsPassed,
		State:      updated.State(),
	})

	s.log.Info("attempt modified",
		zap.String("group", req.GroupID),
		zap.String("attempt", req.AttemptID),
		zap.String("by", req.ModifiedBy),
		zap.Int("modifications", len(updated.Modifications)))
	return updated, nil
}

// Subscribe returns a channel of modification events. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *ReviewService) Subscribe() (<-chan ReviewEvent, func()) {
	return s.feed.Subscribe()
}

func (s *ReviewService) authorize(pin string) bool {
	if s.pin == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.pin), []byte(pin)) == 1
}

func (s *ReviewService) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// fanOut writes the denormalized per-question records. Failures are logged
// and swallowed: reporting rows are not transactional with the attempt.
func (s *ReviewService) fanOut(ctx context.Context, groupID string, reports []domain.AnswerReport) {
	for _, report := range reports {
		path := AnswerReportPath(groupID, report.AttemptID, report.QuestionID)
		if err := s.store.Set(ctx, path, report, false); err != nil {
			s.log.Warn("answer report fan-out failed", zap.String("path", path), zap.Error(err))
		}
	}
	if s.sink != nil {
		if err := s.sink.SaveReports(ctx, groupID, reports); err != nil {
			s.log.Warn("report sink write failed", zap.String("group", groupID), zap.Error(err))
		}
	}
}

func buildReports(attempt domain.Attempt, summary grading.Summary, record domain.ModificationRecord) []domain.AnswerReport {
	reports := make([]domain.AnswerReport, 0, len(summary.PerQuestion))
	for _, q := range summary.PerQuestion {
		reports = append(reports, domain.AnswerReport{
			AttemptID:     attempt.ID,
			QuestionID:    q.QuestionID,
			QuestionType:  q.Type,
			StudentAnswer: q.Answer,
			IsCorrect:     q.Correct,
			PointsAwarded: q.Earned,
			TotalPoints:   q.Possible,
			ReviewedAt:    record.ModifiedAt,
			ReviewedBy:    record.ModifiedBy,
		})
	}
	return reports
}

// mergeAnswers overlays the reviewer's edits on the persisted answers.
func mergeAnswers(current, edits map[string]domain.AnswerValue) map[string]domain.AnswerValue {
	merged := make(map[string]domain.AnswerValue, len(current)+len(edits))
	for id, v := range current {
		merged[id] = v
	}
	for id, v := range edits {
		merged[id] = v
	}
	return merged
}
