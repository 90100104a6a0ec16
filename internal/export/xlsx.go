package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// RecordsSheet is the sheet name of the records workbook.
const RecordsSheet = "Evaluations"

var recordHeaders = []string{
	"Submission ID", "Student Name", "Roll No", "Subject", "Submitted At",
	"Marks Awarded", "Max Marks", "Grade", "Plagiarism %", "Plagiarism Status", "Overall Feedback",
}

// RecordsWorkbook renders records, in the given order, into an XLSX workbook.
func RecordsWorkbook(records []models.EvaluationResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(RecordsSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("remove default sheet: %w", err)
	}

	if err := f.SetSheetRow(RecordsSheet, "A1", &recordHeaders); err != nil {
		return nil, fmt.Errorf("write headers: %w", err)
	}

	for i, record := range records {
		row := []interface{}{
			record.SubmissionID,
			record.StudentName,
			record.RollNo,
			record.Subject,
			record.SubmissionDate.UTC().Format("2006-01-02 15:04"),
			record.Summary.TotalMarksAwarded,
			record.Summary.TotalMaxMarks,
			record.Summary.FinalGrade,
			record.PlagiarismReport.PlagiarismPercentage,
			record.PlagiarismReport.Status,
			record.Summary.OverallFeedback,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(RecordsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
