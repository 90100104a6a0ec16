package service

import "errors"

var (
	// ErrDuplicateSubmission indicates a record already exists for the submission id.
	ErrDuplicateSubmission = errors.New("a record for this submission id already exists")
	// ErrEvaluationFailed wraps any failure of the AI evaluator.
	ErrEvaluationFailed = errors.New("evaluation failed")
	// ErrEvaluationInFlight indicates another evaluation is still pending for the workspace.
	ErrEvaluationInFlight = errors.New("an evaluation is already in progress")
	// ErrSaveInFlight indicates the pending draft is already being confirmed.
	ErrSaveInFlight = errors.New("the draft is already being saved")
	// ErrEvaluatorUnavailable indicates the AI evaluator is not configured.
	ErrEvaluatorUnavailable = errors.New("evaluator unavailable")
	// ErrRemoteWriteFailed indicates the report sink rejected the write; the local save is kept.
	ErrRemoteWriteFailed = errors.New("report saved locally but the remote report write failed")
	// ErrRecordNotFound indicates no saved record exists for the submission id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrNoDraft indicates there is no pending draft to confirm.
	ErrNoDraft = errors.New("no pending draft")
	// ErrInvalidRecord indicates an edited record violates the marks invariants.
	ErrInvalidRecord = errors.New("invalid record")
)
