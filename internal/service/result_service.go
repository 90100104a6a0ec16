package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/observability"
	"github.com/noah-isme/gema-eval-api/internal/repository"
)

// StudentResultService serves graded results to students.
type StudentResultService interface {
	Lookup(ctx context.Context, submissionID, rollNo string) (models.EvaluationResult, error)
	Invalidate(ctx context.Context, submissionID string) error
}

type studentResultService struct {
	store    repository.RecordStore
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewStudentResultService builds the student lookup. cache may be nil.
func NewStudentResultService(store repository.RecordStore, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentResultService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &studentResultService{
		store:    store,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "student_result_service").Logger(),
	}
}

func resultCacheKey(submissionID string) string {
	return fmt.Sprintf("results:submission:%s", submissionID)
}

// Lookup returns the saved result when rollNo matches the record. A mismatch is reported as not
// found so the lookup does not reveal which submission ids exist.
func (s *studentResultService) Lookup(ctx context.Context, submissionID, rollNo string) (models.EvaluationResult, error) {
	id, err := models.NormalizeSubmissionID(submissionID)
	if err != nil {
		return models.EvaluationResult{}, ErrRecordNotFound
	}

	result, err := s.load(ctx, id)
	if err != nil {
		return models.EvaluationResult{}, err
	}

	if !strings.EqualFold(strings.TrimSpace(result.RollNo), strings.TrimSpace(rollNo)) {
		return models.EvaluationResult{}, ErrRecordNotFound
	}
	return result, nil
}

func (s *studentResultService) load(ctx context.Context, id string) (models.EvaluationResult, error) {
	key := resultCacheKey(id)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			var result models.EvaluationResult
			if unmarshalErr := json.Unmarshal([]byte(cached), &result); unmarshalErr == nil {
				observability.ResultCacheLookups().WithLabelValues("hit").Inc()
				return result, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read result cache")
		}
		observability.ResultCacheLookups().WithLabelValues("miss").Inc()
	}

	result, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.EvaluationResult{}, ErrRecordNotFound
		}
		return models.EvaluationResult{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store result cache")
			}
		}
	}

	return result, nil
}

func (s *studentResultService) Invalidate(ctx context.Context, submissionID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, resultCacheKey(submissionID)).Err()
}
