package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// RecordStore persists saved evaluation results keyed by submission id.
type RecordStore interface {
	GetAll(ctx context.Context) (models.RecordSet, error)
	Save(ctx context.Context, id string, record models.EvaluationResult) error
	FindByID(ctx context.Context, id string) (models.EvaluationResult, error)
}

// NewRecordStore constructs a gorm backed record store.
func NewRecordStore(db *gorm.DB) RecordStore {
	return &recordStore{db: db}
}

type recordStore struct {
	db *gorm.DB
}

func (r *recordStore) GetAll(ctx context.Context) (models.RecordSet, error) {
	var rows []models.EvaluationRecord
	if err := r.db.WithContext(ctx).Order("submission_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	set := make(models.RecordSet, len(rows))
	for _, row := range rows {
		set[row.SubmissionID] = row.Result()
	}
	return set, nil
}

// Save overwrites any existing row for id.
func (r *recordStore) Save(ctx context.Context, id string, record models.EvaluationResult) error {
	row := models.NewEvaluationRecord(id, record)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"student_name", "roll_no", "payload", "updated_at"}),
	}).Create(&row).Error
}

func (r *recordStore) FindByID(ctx context.Context, id string) (models.EvaluationResult, error) {
	var row models.EvaluationRecord
	if err := r.db.WithContext(ctx).First(&row, "submission_id = ?", id).Error; err != nil {
		return models.EvaluationResult{}, err
	}
	return row.Result(), nil
}
