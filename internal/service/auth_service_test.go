package service

import (
	"context"
	"sync"
	"testing"

	"carelink/health-portal/internal/domain"
	"carelink/health-portal/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.RepositoryError("duplicate email")
		}
	}
	user.ID = primitive.NewObjectID()
	cp := *user
	f.users[user.ID] = &cp
	return user.ID, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

const testJWTSecret = "test-secret-for-auth-service"

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, testJWTSecret, 0)

	user, err := svc.Register(context.Background(), "Amina Yusuf", "amina@example.com", "str0ngpass", domain.RoleWorker)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleWorker, user.Role)
	assert.Empty(t, user.PasswordHash, "hash must never leave the service")

	// Duplicate registration is rejected.
	_, err = svc.Register(context.Background(), "Amina Again", "amina@example.com", "otherpass", domain.RoleWorker)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	tokenString, loggedIn, err := svc.Login(context.Background(), "amina@example.com", "str0ngpass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Empty(t, loggedIn.PasswordHash)

	// The token parses with the shared secret and carries the identity claims.
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, user.ID.Hex(), claims["uid"])
	assert.Equal(t, "amina@example.com", claims["email"])
	assert.Equal(t, string(domain.RoleWorker), claims["role"])
}

func TestLogin_BadCredentials(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, testJWTSecret, 0)

	_, err := svc.Register(context.Background(), "Amina Yusuf", "amina@example.com", "str0ngpass", domain.RoleWorker)
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "amina@example.com", "wrongpass")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, _, err = svc.Login(context.Background(), "nobody@example.com", "str0ngpass")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestGetUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, testJWTSecret, 0)

	user, err := svc.Register(context.Background(), "Clinic Admin", "admin@example.com", "str0ngpass", domain.RoleHealthCenter)
	require.NoError(t, err)

	got, err := svc.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", got.Email)
	assert.Empty(t, got.PasswordHash)
	assert.True(t, got.CanReview())

	_, err = svc.GetUser(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
