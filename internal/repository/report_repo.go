package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// ReportRepository appends flattened evaluation reports to the reporting database.
type ReportRepository interface {
	Create(ctx context.Context, report *models.EvaluationReport) error
}

// NewReportRepository constructs a report repository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

type reportRepository struct {
	db *gorm.DB
}

func (r *reportRepository) Create(ctx context.Context, report *models.EvaluationReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}
