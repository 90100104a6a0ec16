package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/observability"
	"github.com/noah-isme/gema-eval-api/internal/repository"
	"github.com/noah-isme/gema-eval-api/pkg/ai"
)

// SubmissionFields is what a teacher enters to start an evaluation.
type SubmissionFields struct {
	SubmissionID  string
	StudentName   string
	RollNo        string
	Subject       string
	QuestionPaper string
	AnswerSheet   string
	CustomRules   string
}

// Workspace is the record state owned by one session. Reconciler operations take a workspace and
// return the updated snapshot; the input is never mutated.
type Workspace struct {
	Records models.RecordSet
	Draft   *models.EvaluationResult
}

// HasDraft reports whether an unsaved evaluation is pending.
func (w Workspace) HasDraft() bool {
	return w.Draft != nil
}

// ResultInvalidator drops cached copies of a record after it changes.
type ResultInvalidator interface {
	Invalidate(ctx context.Context, submissionID string) error
}

// RecordReconciler keeps the session record set, the local record store and the remote report
// sink consistent across the draft and saved lifecycle.
type RecordReconciler struct {
	store       repository.RecordStore
	sink        ReportSink
	evaluator   ai.Evaluator
	invalidator ResultInvalidator
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
	inFlight    atomic.Bool
}

// NewRecordReconciler constructs a reconciler. invalidator may be nil.
func NewRecordReconciler(store repository.RecordStore, sink ReportSink, evaluator ai.Evaluator, invalidator ResultInvalidator, logger zerolog.Logger) *RecordReconciler {
	return &RecordReconciler{
		store:       store,
		sink:        sink,
		evaluator:   evaluator,
		invalidator: invalidator,
		logger:      logger.With().Str("component", "record_reconciler").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-eval-api/internal/service/reconciler"),
		now:         time.Now,
	}
}

// Load builds a workspace from the full contents of the record store.
func (r *RecordReconciler) Load(ctx context.Context) (Workspace, error) {
	records, err := r.store.GetAll(ctx)
	if err != nil {
		return Workspace{}, fmt.Errorf("load records: %w", err)
	}
	return Workspace{Records: records}, nil
}

// Busy reports whether an evaluation is pending.
func (r *RecordReconciler) Busy() bool {
	return r.inFlight.Load()
}

// SubmitEvaluation grades a new submission and holds the result as a draft. Duplicate ids are
// rejected before the evaluator is called.
func (r *RecordReconciler) SubmitEvaluation(ctx context.Context, ws Workspace, fields SubmissionFields) (Workspace, error) {
	id, err := models.NormalizeSubmissionID(fields.SubmissionID)
	if err != nil {
		return ws, err
	}

	if ws.Records.Has(id) {
		observability.Evaluations().WithLabelValues("duplicate").Inc()
		return ws, ErrDuplicateSubmission
	}

	if r.evaluator == nil {
		return ws, ErrEvaluatorUnavailable
	}

	if !r.inFlight.CompareAndSwap(false, true) {
		return ws, ErrEvaluationInFlight
	}
	defer r.inFlight.Store(false)

	assessment, err := r.evaluator.Evaluate(ctx, ai.EvaluationInput{
		SubmissionID:  id,
		StudentName:   fields.StudentName,
		RollNo:        fields.RollNo,
		Subject:       fields.Subject,
		QuestionPaper: fields.QuestionPaper,
		AnswerSheet:   fields.AnswerSheet,
		CustomRules:   fields.CustomRules,
	})
	if err != nil {
		observability.Evaluations().WithLabelValues("failed").Inc()
		r.logger.Error().Err(err).Str("submission_id", id).Msg("evaluation failed")
		return ws, fmt.Errorf("%w: %w", ErrEvaluationFailed, err)
	}

	draft := newDraft(id, fields, assessment, r.now())
	observability.Evaluations().WithLabelValues("drafted").Inc()
	r.logger.Info().Str("submission_id", id).Float64("score", draft.Summary.TotalMarksAwarded).Msg("evaluation drafted")

	return Workspace{Records: ws.Records, Draft: &draft}, nil
}

// ConfirmSave commits a draft: local store first, then the session record set, then the remote
// report sink. A sink failure returns ErrRemoteWriteFailed together with the workspace that
// already contains the record; the draft stays pending so the save can be confirmed again.
func (r *RecordReconciler) ConfirmSave(ctx context.Context, ws Workspace, draft models.EvaluationResult) (Workspace, error) {
	next, record, err := r.CommitDraft(ctx, ws, draft)
	if err != nil {
		return ws, err
	}
	if err := r.PublishReport(ctx, record); err != nil {
		return next, err
	}
	next.Draft = nil
	return next, nil
}

// CommitDraft saves draft to the local store and inserts it into the record set. The pending
// draft is left in place until the report has been published.
func (r *RecordReconciler) CommitDraft(ctx context.Context, ws Workspace, draft models.EvaluationResult) (Workspace, models.EvaluationResult, error) {
	ctx, span := r.tracer.Start(ctx, "reconciler.commit_draft", trace.WithAttributes(
		attribute.String("submission_id", draft.SubmissionID),
	))
	defer span.End()

	if err := draft.Validate(); err != nil {
		return ws, models.EvaluationResult{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	id := draft.SubmissionID
	record := draft.Clone()
	if err := r.store.Save(ctx, id, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ws, models.EvaluationResult{}, fmt.Errorf("save record: %w", err)
	}
	observability.RecordsSaved().WithLabelValues("confirm").Inc()

	records := ws.Records.Clone()
	records[id] = record
	r.invalidate(ctx, id)

	return Workspace{Records: records, Draft: ws.Draft}, record.Clone(), nil
}

// PublishReport writes the flattened report of a committed record to the remote sink.
func (r *RecordReconciler) PublishReport(ctx context.Context, record models.EvaluationResult) error {
	ctx, span := r.tracer.Start(ctx, "reconciler.publish_report", trace.WithAttributes(
		attribute.String("submission_id", record.SubmissionID),
	))
	defer span.End()

	if err := r.sink.Write(ctx, models.NewEvaluationReport(record)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error().Err(err).Str("submission_id", record.SubmissionID).Msg("remote report write failed")
		return fmt.Errorf("%w: %w", ErrRemoteWriteFailed, err)
	}

	r.logger.Info().Str("submission_id", record.SubmissionID).Str("student_name", record.StudentName).Msg("evaluation saved")
	return nil
}

// DiscardDraft drops the pending draft without any persistence side effect.
func (r *RecordReconciler) DiscardDraft(ws Workspace) Workspace {
	if ws.Draft == nil {
		return ws
	}
	r.logger.Debug().Str("submission_id", ws.Draft.SubmissionID).Msg("draft discarded")
	return Workspace{Records: ws.Records}
}

// ViewRecord looks up a saved record.
func (r *RecordReconciler) ViewRecord(ws Workspace, id string) (models.EvaluationResult, error) {
	record, ok := ws.Records[id]
	if !ok {
		return models.EvaluationResult{}, ErrRecordNotFound
	}
	return record.Clone(), nil
}

// UpdateRecord writes an edited saved record through to the store and reloads the record set from
// it. The submission date of the saved record is kept. The report sink is not written.
func (r *RecordReconciler) UpdateRecord(ctx context.Context, ws Workspace, updated models.EvaluationResult) (Workspace, error) {
	existing, ok := ws.Records[updated.SubmissionID]
	if !ok {
		return ws, ErrRecordNotFound
	}
	if err := updated.Validate(); err != nil {
		return ws, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	record := updated.Clone()
	record.SubmissionDate = existing.SubmissionDate

	if err := r.store.Save(ctx, record.SubmissionID, record); err != nil {
		return ws, fmt.Errorf("save record: %w", err)
	}
	observability.RecordsSaved().WithLabelValues("update").Inc()

	records, err := r.store.GetAll(ctx)
	if err != nil {
		return ws, fmt.Errorf("reload records: %w", err)
	}
	r.invalidate(ctx, record.SubmissionID)

	r.logger.Info().Str("submission_id", record.SubmissionID).Msg("evaluation updated")
	return Workspace{Records: records, Draft: ws.Draft}, nil
}

func (r *RecordReconciler) invalidate(ctx context.Context, id string) {
	if r.invalidator == nil {
		return
	}
	if err := r.invalidator.Invalidate(ctx, id); err != nil {
		r.logger.Warn().Err(err).Str("submission_id", id).Msg("failed to invalidate cached result")
	}
}

func newDraft(id string, fields SubmissionFields, assessment ai.Assessment, now time.Time) models.EvaluationResult {
	items := make([]models.EvaluationItem, 0, len(assessment.Items))
	for _, item := range assessment.Items {
		items = append(items, models.EvaluationItem{
			Question:      item.Question,
			StudentAnswer: item.StudentAnswer,
			MarksAwarded:  item.MarksAwarded,
			MaxMarks:      item.MaxMarks,
			Feedback:      item.Feedback,
		})
	}

	matches := make([]models.PlagiarismMatch, 0, len(assessment.Plagiarism.Matches))
	for _, match := range assessment.Plagiarism.Matches {
		matches = append(matches, models.PlagiarismMatch{StudentText: match.StudentText, Source: match.Source})
	}

	grade := assessment.FinalGrade
	if grade == "" {
		grade = models.DeriveGrade(assessment.TotalMarksAwarded, assessment.TotalMaxMarks)
	}

	extracted := assessment.ExtractedText
	if extracted == "" {
		extracted = fields.AnswerSheet
	}

	return models.EvaluationResult{
		SubmissionID:   id,
		StudentName:    fields.StudentName,
		RollNo:         fields.RollNo,
		Subject:        fields.Subject,
		SubmissionDate: now.UTC(),
		ExtractedText:  extracted,
		PlagiarismReport: models.PlagiarismReport{
			Status:               assessment.Plagiarism.Status,
			Summary:              assessment.Plagiarism.Summary,
			Matches:              matches,
			PlagiarismPercentage: assessment.Plagiarism.Percentage,
		},
		Evaluation: items,
		Summary: models.EvaluationSummary{
			TotalMarksAwarded: assessment.TotalMarksAwarded,
			TotalMaxMarks:     assessment.TotalMaxMarks,
			FinalGrade:        grade,
			OverallFeedback:   assessment.OverallFeedback,
		},
	}
}
