package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/repository"
)

func setupReportDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.EvaluationReport{}))
	return db
}

func reportFixture() models.EvaluationResult {
	return models.EvaluationResult{
		SubmissionID: "SUB100",
		StudentName:  "Asha Rao",
		RollNo:       "R-17",
		Subject:      "Physics",
		Evaluation:   []models.EvaluationItem{{Question: "Q1", MarksAwarded: 7, MaxMarks: 10}},
		Summary:      models.EvaluationSummary{TotalMarksAwarded: 7, TotalMaxMarks: 10, FinalGrade: "B", OverallFeedback: "Good"},
		PlagiarismReport: models.PlagiarismReport{
			Status:               "Low",
			PlagiarismPercentage: 4,
		},
	}
}

func TestDatabaseReportSinkAppends(t *testing.T) {
	db := setupReportDB(t)
	sink := NewDatabaseReportSink(repository.NewReportRepository(db), zerolog.Nop())

	report := models.NewEvaluationReport(reportFixture())
	require.NoError(t, sink.Write(context.Background(), report))
	require.NoError(t, sink.Write(context.Background(), report))

	var rows []models.EvaluationReport
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	require.Equal(t, "R-17", rows[0].StudentID)
	require.Equal(t, "Physics", rows[0].ExamID)
	require.Equal(t, 7.0, rows[0].Score)
	require.Equal(t, 4.0, rows[0].PlagiarismPercent)
}

func TestDatabaseReportSinkSurfacesErrors(t *testing.T) {
	db := setupReportDB(t)
	require.NoError(t, db.Migrator().DropTable(&models.EvaluationReport{}))
	sink := NewDatabaseReportSink(repository.NewReportRepository(db), zerolog.Nop())

	err := sink.Write(context.Background(), models.NewEvaluationReport(reportFixture()))
	require.Error(t, err)
}

func TestEncodeReportEvent(t *testing.T) {
	sentAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("IST", 19800))
	payload, err := encodeReportEvent(models.NewEvaluationReport(reportFixture()), sentAt)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, "2024-05-01T06:30:00Z", decoded["sentAt"])

	report, ok := decoded["report"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "Asha Rao", report["studentName"])
}
