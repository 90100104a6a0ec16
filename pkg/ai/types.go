package ai

import "context"

// EvaluationInput carries the question paper and answer sheet of one submission.
type EvaluationInput struct {
	SubmissionID  string
	StudentName   string
	RollNo        string
	Subject       string
	QuestionPaper string
	AnswerSheet   string
	CustomRules   string
}

// Match is a passage of the answer sheet suspected to be copied.
type Match struct {
	StudentText string `json:"studentText"`
	Source      string `json:"source"`
}

// Plagiarism is the originality verdict for the answer sheet.
type Plagiarism struct {
	Status     string  `json:"status"`
	Summary    string  `json:"summary"`
	Matches    []Match `json:"matches"`
	Percentage float64 `json:"plagiarismPercentage"`
}

// Item is the grading of one question.
type Item struct {
	Question      string  `json:"question"`
	StudentAnswer string  `json:"studentAnswer"`
	MarksAwarded  float64 `json:"marksAwarded"`
	MaxMarks      float64 `json:"maxMarks"`
	Feedback      string  `json:"feedback"`
}

// Assessment is the structured grading returned by the AI evaluator.
type Assessment struct {
	ExtractedText     string                 `json:"extractedText"`
	Plagiarism        Plagiarism             `json:"plagiarismReport"`
	Items             []Item                 `json:"evaluation"`
	TotalMarksAwarded float64                `json:"totalMarksAwarded"`
	TotalMaxMarks     float64                `json:"totalMaxMarks"`
	FinalGrade        string                 `json:"finalGrade"`
	OverallFeedback   string                 `json:"overallFeedback"`
	Raw               map[string]interface{} `json:"raw,omitempty"`
}

// Evaluator describes an AI model capable of grading answer sheets.
type Evaluator interface {
	Evaluate(ctx context.Context, input EvaluationInput) (Assessment, error)
}
