package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	RecordViolation(ctx context.Context, id string, at time.Time) error
}

type studentCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}

// StudentService loads residents for the decision pipeline, serving repeat
// lookups from the snapshot cache.
type StudentService struct {
	repo   studentRepository
	cache  studentCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewStudentService constructs the student service. cache may be nil.
func NewStudentService(repo studentRepository, cache studentCache, ttl time.Duration, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

func studentCacheKey(id string) string {
	return fmt.Sprintf("student:%s", id)
}

// Get returns a student by identifier.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	key := studentCacheKey(id)
	if s.cache != nil {
		var cached models.Student
		if s.cache.Get(ctx, key, &cached) {
			return &cached, nil
		}
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, student, s.ttl)
	}
	return student, nil
}

// RecordViolation marks a policy violation against the student and drops the
// cached snapshot so the next decision sees it.
func (s *StudentService) RecordViolation(ctx context.Context, id string, at time.Time) error {
	if err := s.repo.RecordViolation(ctx, id, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record violation")
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, studentCacheKey(id))
	}
	s.logger.Info("student violation recorded", zap.String("student_id", id), zap.Time("at", at))
	return nil
}
