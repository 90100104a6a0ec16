package dto

import (
	"time"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// EvaluationSubmitRequest is the form (or JSON) payload of a new submission. The question paper
// and answer sheet may instead arrive as uploaded text files.
type EvaluationSubmitRequest struct {
	SubmissionID  string `json:"collegeId" form:"collegeId" validate:"required,max=64"`
	StudentName   string `json:"studentName" form:"studentName" validate:"required,max=255"`
	RollNo        string `json:"rollNo" form:"rollNo" validate:"required,max=64"`
	Subject       string `json:"subject" form:"subject" validate:"required,max=255"`
	QuestionPaper string `json:"questionPaper" form:"questionPaper" validate:"required"`
	AnswerSheet   string `json:"answerSheet" form:"answerSheet" validate:"required"`
	CustomRules   string `json:"customRules" form:"customRules" validate:"omitempty,max=4000"`
}

// ConfirmSaveRequest optionally carries teacher edits applied to the draft before it is saved.
type ConfirmSaveRequest struct {
	Record *models.EvaluationResult `json:"record"`
}

// RecordSummary is one row of the saved records list.
type RecordSummary struct {
	SubmissionID   string    `json:"collegeId"`
	StudentName    string    `json:"studentName"`
	RollNo         string    `json:"rollNo"`
	Subject        string    `json:"subject"`
	SubmissionDate time.Time `json:"submissionDate"`
	Score          float64   `json:"score"`
	MaxScore       float64   `json:"maxScore"`
	Grade          string    `json:"grade"`
}

// RecordListMeta describes a records listing.
type RecordListMeta struct {
	Total int    `json:"total"`
	Query string `json:"query"`
}

// NewRecordSummaries converts records into list rows, keeping their order.
func NewRecordSummaries(records []models.EvaluationResult) []RecordSummary {
	rows := make([]RecordSummary, 0, len(records))
	for _, record := range records {
		rows = append(rows, RecordSummary{
			SubmissionID:   record.SubmissionID,
			StudentName:    record.StudentName,
			RollNo:         record.RollNo,
			Subject:        record.Subject,
			SubmissionDate: record.SubmissionDate,
			Score:          record.Summary.TotalMarksAwarded,
			MaxScore:       record.Summary.TotalMaxMarks,
			Grade:          record.Summary.FinalGrade,
		})
	}
	return rows
}
