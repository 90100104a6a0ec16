package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// ResultPDF renders the printable report of one evaluation.
func ResultPDF(result models.EvaluationResult) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle("Evaluation "+result.SubmissionID, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "EVALUATION REPORT", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 10)
	details := [][2]string{
		{"Submission ID", result.SubmissionID},
		{"Student", result.StudentName},
		{"Roll No", result.RollNo},
		{"Subject", result.Subject},
		{"Submitted", result.SubmissionDate.UTC().Format("02 Jan 2006 15:04 MST")},
	}
	for _, d := range details {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(35, 6, d[0], "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(d[1]), "", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Score: %.1f / %.1f   Grade: %s",
		result.Summary.TotalMarksAwarded, result.Summary.TotalMaxMarks, result.Summary.FinalGrade), "", 1, "", false, 0, "")
	if result.Summary.OverallFeedback != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(result.Summary.OverallFeedback), "", "", false)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(100, 7, "Question", "1", 0, "", false, 0, "")
	pdf.CellFormat(25, 7, "Awarded", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 7, "Max", "1", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, item := range result.Evaluation {
		pdf.CellFormat(100, 7, truncate(tr(item.Question), 60), "1", 0, "", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%.1f", item.MarksAwarded), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%.1f", item.MaxMarks), "1", 1, "C", false, 0, "")
		if item.Feedback != "" {
			pdf.SetFont("Arial", "I", 8)
			pdf.MultiCell(150, 4, tr(item.Feedback), "", "", false)
			pdf.SetFont("Arial", "", 9)
		}
	}
	pdf.Ln(4)

	report := result.PlagiarismReport
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Plagiarism: %s (%.0f%%)", report.Status, report.PlagiarismPercentage), "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	if report.Summary != "" {
		pdf.MultiCell(0, 5, tr(report.Summary), "", "", false)
	}
	for _, match := range report.Matches {
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("\"%s\" - %s", match.StudentText, match.Source)), "", "", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
