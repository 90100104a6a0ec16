package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

func sampleResult(id, name string) models.EvaluationResult {
	return models.EvaluationResult{
		SubmissionID:   id,
		StudentName:    name,
		RollNo:         "R-17",
		Subject:        "Physics",
		SubmissionDate: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		PlagiarismReport: models.PlagiarismReport{
			Status:               "Low",
			Summary:              "Mostly original work.",
			PlagiarismPercentage: 12,
			Matches:              []models.PlagiarismMatch{{StudentText: "F = ma", Source: "Textbook"}},
		},
		Evaluation: []models.EvaluationItem{
			{Question: "State Newton's second law of motion and explain each of its terms in detail", MarksAwarded: 8, MaxMarks: 10, Feedback: "Clear"},
		},
		Summary: models.EvaluationSummary{TotalMarksAwarded: 8, TotalMaxMarks: 10, FinalGrade: "A", OverallFeedback: "Très bien"},
	}
}

func TestRecordsWorkbook(t *testing.T) {
	data, err := RecordsWorkbook([]models.EvaluationResult{sampleResult("SUB1", "Asha"), sampleResult("SUB2", "Ben")})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{RecordsSheet}, f.GetSheetList())
	rows, err := f.GetRows(RecordsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Submission ID", rows[0][0])
	require.Equal(t, "SUB1", rows[1][0])
	require.Equal(t, "Ben", rows[2][1])
	require.Equal(t, "2024-05-01 09:30", rows[1][4])
	require.Equal(t, "8", rows[1][5])
}

func TestRecordsWorkbookEmpty(t *testing.T) {
	data, err := RecordsWorkbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(RecordsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestResultPDF(t *testing.T) {
	data, err := ResultPDF(sampleResult("SUB1", "Asha Rao"))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	require.Greater(t, len(data), 500)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
