package models

import (
	"time"

	"gorm.io/datatypes"
)

// EvaluationReport is the flattened projection of a result written to the reporting store.
type EvaluationReport struct {
	ID                uint                                `gorm:"primaryKey" json:"-"`
	StudentID         string                              `gorm:"size:64;index" json:"studentId"`
	StudentName       string                              `gorm:"size:255" json:"studentName"`
	ExamID            string                              `gorm:"size:255" json:"examId"`
	Score             float64                             `json:"score"`
	MaxScore          float64                             `json:"maxScore"`
	AnswersSummary    string                              `gorm:"type:text" json:"answersSummary"`
	PlagiarismPercent float64                             `json:"plagiarismPercent"`
	Grade             string                              `gorm:"size:16" json:"grade"`
	Breakdown         datatypes.JSONSlice[EvaluationItem] `json:"breakdown"`
	ExtractedText     string                              `gorm:"type:text" json:"extractedText"`
	CreatedAt         time.Time                           `json:"createdAt"`
}

// NewEvaluationReport flattens a result into its reporting form.
func NewEvaluationReport(result EvaluationResult) EvaluationReport {
	breakdown := make([]EvaluationItem, len(result.Evaluation))
	copy(breakdown, result.Evaluation)

	return EvaluationReport{
		StudentID:         result.RollNo,
		StudentName:       result.StudentName,
		ExamID:            result.Subject,
		Score:             result.Summary.TotalMarksAwarded,
		MaxScore:          result.Summary.TotalMaxMarks,
		AnswersSummary:    result.Summary.OverallFeedback,
		PlagiarismPercent: result.PlagiarismReport.PlagiarismPercentage,
		Grade:             result.Summary.FinalGrade,
		Breakdown:         datatypes.JSONSlice[EvaluationItem](breakdown),
		ExtractedText:     result.ExtractedText,
	}
}
