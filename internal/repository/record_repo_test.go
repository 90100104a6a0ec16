package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

func setupTestDB(t *testing.T, tables ...interface{}) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(tables...))
	return db
}

func testResult(id, name, roll string, awarded float64) models.EvaluationResult {
	return models.EvaluationResult{
		SubmissionID:   id,
		StudentName:    name,
		RollNo:         roll,
		Subject:        "Chemistry",
		SubmissionDate: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Evaluation:     []models.EvaluationItem{{Question: "Q1", MarksAwarded: awarded, MaxMarks: 100}},
		Summary:        models.EvaluationSummary{TotalMarksAwarded: awarded, TotalMaxMarks: 100, FinalGrade: "B"},
	}
}

func TestRecordStoreSaveAndGetAll(t *testing.T) {
	db := setupTestDB(t, &models.EvaluationRecord{})
	store := NewRecordStore(db)
	ctx := context.Background()

	empty, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Empty(t, empty)

	require.NoError(t, store.Save(ctx, "SUB1", testResult("SUB1", "Asha", "R1", 70)))
	require.NoError(t, store.Save(ctx, "SUB2", testResult("SUB2", "Ben", "R2", 55)))

	set, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, set, 2)
	require.Equal(t, "Asha", set["SUB1"].StudentName)
	require.Equal(t, 55.0, set["SUB2"].Summary.TotalMarksAwarded)
	require.True(t, set["SUB1"].SubmissionDate.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestRecordStoreSaveOverwritesExistingEntry(t *testing.T) {
	db := setupTestDB(t, &models.EvaluationRecord{})
	store := NewRecordStore(db)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "SUB1", testResult("SUB1", "Asha", "R1", 70)))
	require.NoError(t, store.Save(ctx, "SUB1", testResult("SUB1", "Asha K", "R1", 88)))

	set, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, set, 1)
	require.Equal(t, "Asha K", set["SUB1"].StudentName)
	require.Equal(t, 88.0, set["SUB1"].Summary.TotalMarksAwarded)

	var count int64
	require.NoError(t, db.Model(&models.EvaluationRecord{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestRecordStoreFindByID(t *testing.T) {
	db := setupTestDB(t, &models.EvaluationRecord{})
	store := NewRecordStore(db)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "SUB9", testResult("SUB9", "Cara", "R9", 40)))

	found, err := store.FindByID(ctx, "SUB9")
	require.NoError(t, err)
	require.Equal(t, "R9", found.RollNo)

	_, err = store.FindByID(ctx, "missing")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestReportRepositoryAppendsRows(t *testing.T) {
	db := setupTestDB(t, &models.EvaluationReport{})
	repo := NewReportRepository(db)
	ctx := context.Background()

	first := models.NewEvaluationReport(testResult("SUB1", "Asha", "R1", 70))
	second := models.NewEvaluationReport(testResult("SUB1", "Asha", "R1", 70))
	require.NoError(t, repo.Create(ctx, &first))
	require.NoError(t, repo.Create(ctx, &second))

	var stored []models.EvaluationReport
	require.NoError(t, db.Find(&stored).Error)
	require.Len(t, stored, 2)
	require.Equal(t, "R1", stored[0].StudentID)
	require.Len(t, stored[0].Breakdown, 1)
}

func TestTeacherRepositoryFindByEmailIsCaseInsensitive(t *testing.T) {
	db := setupTestDB(t, &models.TeacherAccount{})
	repo := NewTeacherRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.TeacherAccount{Email: "Teacher@School.Test", PasswordHash: "hash"}))

	account, err := repo.FindByEmail(ctx, " teacher@school.test ")
	require.NoError(t, err)
	require.Equal(t, "teacher@school.test", account.Email)

	_, err = repo.FindByEmail(ctx, "nobody@school.test")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
