package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleResult() EvaluationResult {
	return EvaluationResult{
		SubmissionID: "SUB100",
		StudentName:  "Asha Rao",
		RollNo:       "R-17",
		Subject:      "Physics",
		PlagiarismReport: PlagiarismReport{
			Status:               "Low",
			PlagiarismPercentage: 12,
			Matches:              []PlagiarismMatch{{StudentText: "F = ma", Source: "textbook"}},
		},
		Evaluation: []EvaluationItem{
			{Question: "Q1", MarksAwarded: 40, MaxMarks: 50},
			{Question: "Q2", MarksAwarded: 32, MaxMarks: 50},
		},
		Summary: EvaluationSummary{TotalMarksAwarded: 72, TotalMaxMarks: 100, FinalGrade: "B", OverallFeedback: "Solid"},
	}
}

func TestEvaluationResultValidate(t *testing.T) {
	require.NoError(t, sampleResult().Validate())

	overItem := sampleResult()
	overItem.Evaluation[0].MarksAwarded = 60
	require.Error(t, overItem.Validate())

	overTotal := sampleResult()
	overTotal.Summary.TotalMarksAwarded = 101
	require.Error(t, overTotal.Validate())

	badPct := sampleResult()
	badPct.PlagiarismReport.PlagiarismPercentage = 120
	require.Error(t, badPct.Validate())

	badID := sampleResult()
	badID.SubmissionID = "  "
	err := badID.Validate()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidSubmissionID))
}

func TestNormalizeSubmissionID(t *testing.T) {
	id, err := NormalizeSubmissionID("  SUB-1 ")
	require.NoError(t, err)
	require.Equal(t, "SUB-1", id)

	id, err = NormalizeSubmissionID("2024-CS_01.b")
	require.NoError(t, err)
	require.Equal(t, "2024-CS_01.b", id)

	for _, bad := range []string{"SUB 1", "SUB#1", "cs/12", "50%", "..", "-SUB1", "SÜB1", "a?b"} {
		_, err = NormalizeSubmissionID(bad)
		require.ErrorIs(t, err, ErrInvalidSubmissionID, bad)
	}

	long := make([]byte, MaxSubmissionIDLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = NormalizeSubmissionID(string(long))
	require.ErrorIs(t, err, ErrInvalidSubmissionID)
}

func TestDeriveGrade(t *testing.T) {
	require.Equal(t, "A+", DeriveGrade(95, 100))
	require.Equal(t, "B", DeriveGrade(72, 100))
	require.Equal(t, "F", DeriveGrade(10, 100))
	require.Equal(t, "N/A", DeriveGrade(0, 0))
}

func TestCloneDoesNotShareSlices(t *testing.T) {
	original := sampleResult()
	clone := original.Clone()
	clone.Evaluation[0].Feedback = "changed"
	clone.PlagiarismReport.Matches[0].Source = "web"

	require.Empty(t, original.Evaluation[0].Feedback)
	require.Equal(t, "textbook", original.PlagiarismReport.Matches[0].Source)

	set := RecordSet{"SUB100": original}
	copied := set.Clone()
	delete(copied, "SUB100")
	require.True(t, set.Has("SUB100"))
}

func TestNewEvaluationReportFlattensResult(t *testing.T) {
	result := sampleResult()
	result.ExtractedText = "answers"

	report := NewEvaluationReport(result)
	require.Equal(t, "R-17", report.StudentID)
	require.Equal(t, "Asha Rao", report.StudentName)
	require.Equal(t, "Physics", report.ExamID)
	require.Equal(t, 72.0, report.Score)
	require.Equal(t, 100.0, report.MaxScore)
	require.Equal(t, "Solid", report.AnswersSummary)
	require.Equal(t, 12.0, report.PlagiarismPercent)
	require.Equal(t, "B", report.Grade)
	require.Len(t, report.Breakdown, 2)
	require.Equal(t, "answers", report.ExtractedText)
}
