package app

import (
	"context"
	"encoding/json"

	"sanad-exam-service/internal/domain"
)

// Document is one stored document with its full path.
type Document struct {
	Path string
	Data json.RawMessage
}

// DocumentStore is the opaque path-keyed store the grading core runs on
// (in-memory, Redis, etc). Paths follow collection/doc pairs, e.g.
// student_test_attempts/{groupId}/student_test_attempts/{attemptId}.
type DocumentStore interface {
	// Get returns the document at path, or domain.ErrDocNotFound.
	Get(ctx context.Context, path string) (json.RawMessage, error)
	// Set writes doc at path. With merge, top-level fields are shallow-merged
	// over the existing document instead of replacing it.
	Set(ctx context.Context, path string, doc any, merge bool) error
	// Update shallow-merges the given fields into an existing document.
	Update(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	// List returns every document directly under collectionPath.
	List(ctx context.Context, collectionPath string) ([]Document, error)
	// Transact applies fn to the current document under compare-and-swap
	// semantics: if the document changes concurrently the whole function is
	// re-run on fresh state, a bounded number of times, then
	// domain.ErrConflict. fn sees nil when the document does not exist;
	// an error from fn aborts without writing.
	Transact(ctx context.Context, path string, fn func(current json.RawMessage) (any, error)) error
}

// TestRepository loads test definitions (from cache/backing store).
type TestRepository interface {
	GetTest(ctx context.Context, testID string) (domain.Test, error)
}

// ReportSink receives denormalized per-question grading rows for reporting.
// Delivery is best effort and never blocks a review from committing.
type ReportSink interface {
	SaveReports(ctx context.Context, groupID string, reports []domain.AnswerReport) error
}

// AttemptPath is the document path of one attempt.
func AttemptPath(groupID, attemptID string) string {
	return "student_test_attempts/" + groupID + "/student_test_attempts/" + attemptID
}

// AttemptCollection is the collection path of a group's attempts.
func AttemptCollection(groupID string) string {
	return "student_test_attempts/" + groupID + "/student_test_attempts"
}

// AnswerReportPath is the document path of one denormalized grading record.
func AnswerReportPath(groupID, attemptID, questionID string) string {
	return "student_answers/" + groupID + "/student_answers/" + attemptID + "_" + questionID
}
