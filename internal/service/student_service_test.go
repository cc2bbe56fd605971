package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
)

type mockStudentRepo struct {
	students   map[string]models.Student
	lookups    int
	violations []string
	err        error
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	m.lookups++
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) RecordViolation(ctx context.Context, id string, at time.Time) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	m.violations = append(m.violations, id)
	return nil
}

type memoryCacheRepo struct {
	items   map[string]interface{}
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string]interface{}{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	value, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if target, ok := dest.(*models.Student); ok {
		*target = *(value.(*models.Student))
	}
	return nil
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.items[key] = value
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.items, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

func TestStudentServiceGetUsesCache(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"stu-1": *cleanStudent()}}
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewStudentService(repo, cache, time.Minute, nil)

	first, err := svc.Get(context.Background(), "stu-1")
	require.NoError(t, err)
	second, err := svc.Get(context.Background(), "stu-1")
	require.NoError(t, err)

	assert.Equal(t, "S1001", first.StudentNumber)
	assert.Equal(t, first.RoomNumber, second.RoomNumber)
	assert.Equal(t, 1, repo.lookups)
	assert.Contains(t, cacheRepo.items, "student:stu-1")
}

func TestStudentServiceGetErrors(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, nil, 0, nil)

	_, err := svc.Get(context.Background(), "")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	failing := NewStudentService(&mockStudentRepo{err: errors.New("db down")}, nil, 0, nil)
	_, err = failing.Get(context.Background(), "stu-1")
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceRecordViolationInvalidatesCache(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"stu-1": *cleanStudent()}}
	cacheRepo := newMemoryCacheRepo()
	svc := NewStudentService(repo, NewCacheService(cacheRepo, nil, time.Minute, nil, true), time.Minute, nil)

	_, err := svc.Get(context.Background(), "stu-1")
	require.NoError(t, err)
	require.NoError(t, svc.RecordViolation(context.Background(), "stu-1", ruleNow))

	assert.Equal(t, []string{"stu-1"}, repo.violations)
	assert.Equal(t, []string{"student:stu-1"}, cacheRepo.deleted)
	assert.NotContains(t, cacheRepo.items, "student:stu-1")

	err = svc.RecordViolation(context.Background(), "ghost", ruleNow)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
