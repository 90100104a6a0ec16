package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gorm.io/datatypes"
)

// MaxSubmissionIDLength bounds the teacher supplied submission identifier.
const MaxSubmissionIDLength = 64

// ErrInvalidSubmissionID indicates the submission identifier is empty or malformed.
var ErrInvalidSubmissionID = errors.New("invalid submission id")

// PlagiarismMatch is a flagged excerpt of the student's answer.
type PlagiarismMatch struct {
	StudentText string `json:"studentText"`
	Source      string `json:"source"`
}

// PlagiarismReport summarises the originality check of an answer sheet.
type PlagiarismReport struct {
	Status               string            `json:"status"`
	Summary              string            `json:"summary"`
	Matches              []PlagiarismMatch `json:"matches"`
	PlagiarismPercentage float64           `json:"plagiarismPercentage"`
}

// EvaluationItem is one graded question.
type EvaluationItem struct {
	Question      string  `json:"question"`
	StudentAnswer string  `json:"studentAnswer"`
	MarksAwarded  float64 `json:"marksAwarded"`
	MaxMarks      float64 `json:"maxMarks"`
	Feedback      string  `json:"feedback"`
}

// EvaluationSummary aggregates the marks of every evaluated question.
type EvaluationSummary struct {
	TotalMarksAwarded float64 `json:"totalMarksAwarded"`
	TotalMaxMarks     float64 `json:"totalMaxMarks"`
	FinalGrade        string  `json:"finalGrade"`
	OverallFeedback   string  `json:"overallFeedback"`
}

// EvaluationResult is the graded answer sheet of one submission.
type EvaluationResult struct {
	SubmissionID     string            `json:"collegeId"`
	StudentName      string            `json:"studentName"`
	RollNo           string            `json:"rollNo"`
	Subject          string            `json:"subject"`
	SubmissionDate   time.Time         `json:"submissionDate"`
	ExtractedText    string            `json:"extractedText"`
	PlagiarismReport PlagiarismReport  `json:"plagiarismReport"`
	Evaluation       []EvaluationItem  `json:"evaluation"`
	Summary          EvaluationSummary `json:"summary"`
}

// Validate checks the numeric invariants of the result.
func (r EvaluationResult) Validate() error {
	if _, err := NormalizeSubmissionID(r.SubmissionID); err != nil {
		return err
	}
	for i, item := range r.Evaluation {
		if item.MarksAwarded < 0 {
			return fmt.Errorf("evaluation item %d: marks awarded must not be negative", i)
		}
		if item.MarksAwarded > item.MaxMarks {
			return fmt.Errorf("evaluation item %d: marks awarded %.2f exceed max marks %.2f", i, item.MarksAwarded, item.MaxMarks)
		}
	}
	if r.Summary.TotalMarksAwarded < 0 {
		return errors.New("total marks awarded must not be negative")
	}
	if r.Summary.TotalMarksAwarded > r.Summary.TotalMaxMarks {
		return fmt.Errorf("total marks awarded %.2f exceed total max marks %.2f", r.Summary.TotalMarksAwarded, r.Summary.TotalMaxMarks)
	}
	pct := r.PlagiarismReport.PlagiarismPercentage
	if pct < 0 || pct > 100 {
		return fmt.Errorf("plagiarism percentage %.2f outside [0,100]", pct)
	}
	return nil
}

// Clone returns a deep copy so callers never share slices with stored records.
func (r EvaluationResult) Clone() EvaluationResult {
	clone := r
	if r.Evaluation != nil {
		clone.Evaluation = append([]EvaluationItem(nil), r.Evaluation...)
	}
	if r.PlagiarismReport.Matches != nil {
		clone.PlagiarismReport.Matches = append([]PlagiarismMatch(nil), r.PlagiarismReport.Matches...)
	}
	return clone
}

// RecordSet maps submission identifiers to their saved evaluation result.
type RecordSet map[string]EvaluationResult

// Clone copies the set so a snapshot can be modified without touching the original.
func (s RecordSet) Clone() RecordSet {
	clone := make(RecordSet, len(s))
	for id, record := range s {
		clone[id] = record.Clone()
	}
	return clone
}

// Has reports whether a record exists for the identifier.
func (s RecordSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// NormalizeSubmissionID trims the identifier and rejects values that are empty, oversized or not
// safe to use as a URL path segment. IDs start with an ASCII letter or digit and may further
// contain '-', '_' and '.'.
func NormalizeSubmissionID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("%w: must not be empty", ErrInvalidSubmissionID)
	}
	if len(trimmed) > MaxSubmissionIDLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidSubmissionID, MaxSubmissionIDLength)
	}
	if strings.IndexFunc(trimmed, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("%w: must not contain whitespace", ErrInvalidSubmissionID)
	}
	for i, r := range trimmed {
		if isASCIIAlnum(r) || (i > 0 && strings.ContainsRune("-_.", r)) {
			continue
		}
		return "", fmt.Errorf("%w: may only contain letters, digits, '-', '_' and '.'", ErrInvalidSubmissionID)
	}
	return trimmed, nil
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// DeriveGrade maps a score onto a letter grade.
func DeriveGrade(awarded, maxMarks float64) string {
	if maxMarks <= 0 {
		return "N/A"
	}
	pct := awarded / maxMarks * 100
	switch {
	case pct >= 90:
		return "A+"
	case pct >= 80:
		return "A"
	case pct >= 70:
		return "B"
	case pct >= 60:
		return "C"
	case pct >= 50:
		return "D"
	default:
		return "F"
	}
}

// EvaluationRecord is the persisted row of the local record store.
type EvaluationRecord struct {
	SubmissionID string                               `gorm:"primaryKey;size:64" json:"submission_id"`
	StudentName  string                               `gorm:"size:255;index" json:"student_name"`
	RollNo       string                               `gorm:"size:64;index" json:"roll_no"`
	Payload      datatypes.JSONType[EvaluationResult] `json:"payload"`
	CreatedAt    time.Time                            `json:"created_at"`
	UpdatedAt    time.Time                            `json:"updated_at"`
}

// NewEvaluationRecord wraps a result into its storage row.
func NewEvaluationRecord(id string, result EvaluationResult) EvaluationRecord {
	return EvaluationRecord{
		SubmissionID: id,
		StudentName:  result.StudentName,
		RollNo:       result.RollNo,
		Payload:      datatypes.NewJSONType(result),
	}
}

// Result unwraps the stored evaluation result.
func (r EvaluationRecord) Result() EvaluationResult {
	return r.Payload.Data()
}
