package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edusphere/course-api/internal/models"
	"github.com/edusphere/course-api/pkg/config"
	appErrors "github.com/edusphere/course-api/pkg/errors"
)

type stubUserStore struct {
	users      map[string]*models.User
	lastLogins map[string]time.Time
}

func newStubUserStore(users ...*models.User) *stubUserStore {
	s := &stubUserStore{users: make(map[string]*models.User), lastLogins: make(map[string]time.Time)}
	for _, u := range users {
		s.users[u.Email] = u
	}
	return s
}

func (s *stubUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := s.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (s *stubUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserStore) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	s.lastLogins[id] = ts
	return nil
}

func testUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u-1",
		Email:        "teacher@example.com",
		PasswordHash: string(hash),
		FullName:     "Ada Teacher",
		Role:         models.RoleTeacher,
		Approved:     true,
	}
}

func newAuthFixture(t *testing.T, users ...*models.User) (*AuthService, *stubUserStore) {
	store := newStubUserStore(users...)
	svc := NewAuthService(store, config.JWTConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "course-api",
	}, zap.NewNop())
	return svc, store
}

func TestLoginSuccess(t *testing.T) {
	user := testUser(t)
	svc, store := newAuthFixture(t, user)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "teacher@example.com", Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "u-1", resp.User.ID)
	assert.Equal(t, models.RoleTeacher, resp.User.Role)
	assert.Contains(t, store.lastLogins, "u-1")

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "course-api", claims.Issuer)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t, testUser(t))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "teacher@example.com", Password: "wrong",
	})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "nobody@example.com", Password: "whatever",
	})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginUnapprovedAccount(t *testing.T) {
	user := testUser(t)
	user.Approved = false
	svc, _ := newAuthFixture(t, user)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "teacher@example.com", Password: "correct-horse",
	})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	user := testUser(t)
	svc, _ := newAuthFixture(t, user)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "teacher@example.com", Password: "correct-horse",
	})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
