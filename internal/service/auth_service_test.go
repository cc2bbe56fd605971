package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail      *models.User
	findByEmailErr   error
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func newAuthService(repo *mockAuthRepo, audit auditLogger) *AuthService {
	svc := NewAuthService(repo, audit, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "hostel-ops-api",
	})
	svc.now = func() time.Time { return ruleNow }
	return svc
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLoginStudent(t *testing.T) {
	studentID := "stu-1"
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "u-1", Email: "amir@hostel.test", PasswordHash: hashed(t, "password"), Active: true, Role: models.RoleStudent, StudentID: &studentID}}
	audit := &auditStub{}
	svc := newAuthService(repo, audit)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: " Amir@Hostel.test ", Password: "password", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "stu-1", res.User.StudentID)
	assert.True(t, repo.lastLoginUpdated)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionLogin, audit.logs[0].ActionType)
	assert.Equal(t, models.AuditUserStudent, audit.logs[0].UserType)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "stu-1", claims.StudentID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	hash := hashed(t, "password")
	cases := map[string]struct {
		repo *mockAuthRepo
		req  models.LoginRequest
		code string
	}{
		"invalid payload": {repo: &mockAuthRepo{}, req: models.LoginRequest{Email: "nope"}, code: appErrors.ErrValidation.Code},
		"unknown email":   {repo: &mockAuthRepo{findByEmailErr: sql.ErrNoRows}, req: models.LoginRequest{Email: "a@b.test", Password: "x"}, code: appErrors.ErrInvalidCredentials.Code},
		"inactive": {
			repo: &mockAuthRepo{userByEmail: &models.User{ID: "u", PasswordHash: hash, Active: false}},
			req:  models.LoginRequest{Email: "a@b.test", Password: "password"},
			code: appErrors.ErrInactiveAccount.Code,
		},
		"wrong password": {
			repo: &mockAuthRepo{userByEmail: &models.User{ID: "u", PasswordHash: hash, Active: true, Role: models.RoleWarden}},
			req:  models.LoginRequest{Email: "a@b.test", Password: "guess"},
			code: appErrors.ErrInvalidCredentials.Code,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newAuthService(tc.repo, nil).Login(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
}

func TestValidateTokenRejectsExpiredAndForeign(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{}, nil)
	token, err := svc.generateAccessToken(&models.User{ID: "u-1", Role: models.RoleWarden}, ruleNow.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	other := NewAuthService(&mockAuthRepo{}, nil, nil, nil, AuthConfig{AccessTokenSecret: "other"})
	other.now = svc.now
	foreign, err := other.generateAccessToken(&models.User{ID: "u-1", Role: models.RoleWarden}, ruleNow)
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.Error(t, err)

	student, err := svc.generateAccessToken(&models.User{ID: "u-2", Role: models.RoleStudent}, ruleNow)
	require.NoError(t, err)
	_, err = svc.ValidateToken(student)
	assert.Error(t, err)
}
