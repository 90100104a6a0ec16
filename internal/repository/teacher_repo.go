package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// TeacherRepository looks up teacher accounts for sign-in.
type TeacherRepository interface {
	FindByEmail(ctx context.Context, email string) (models.TeacherAccount, error)
	Create(ctx context.Context, account *models.TeacherAccount) error
}

// NewTeacherRepository constructs a teacher account repository.
func NewTeacherRepository(db *gorm.DB) TeacherRepository {
	return &teacherRepository{db: db}
}

type teacherRepository struct {
	db *gorm.DB
}

func (r *teacherRepository) FindByEmail(ctx context.Context, email string) (models.TeacherAccount, error) {
	var account models.TeacherAccount
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&account).Error
	if err != nil {
		return models.TeacherAccount{}, err
	}
	return account, nil
}

func (r *teacherRepository) Create(ctx context.Context, account *models.TeacherAccount) error {
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	return r.db.WithContext(ctx).Create(account).Error
}
