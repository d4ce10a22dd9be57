package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boleto/internal/auth"
	"boleto/internal/shared/config"
	"boleto/internal/users"
)

type fakeUserRepo struct {
	byEmail map[string]*users.User
	byID    map[string]*users.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: make(map[string]*users.User),
		byID:    make(map[string]*users.User),
	}
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *users.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.byEmail[user.Email] = user
	f.byID[user.ID.String()] = user
	return nil
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*users.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*users.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

func newAuthService() (auth.Service, *fakeUserRepo) {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:           "test-secret",
			JWTExpiresIn:     15 * time.Minute,
			RefreshExpiresIn: 24 * time.Hour,
		},
	}
	repo := newFakeUserRepo()
	return auth.NewService(repo, cfg), repo
}

func registerRequest() *auth.RegisterRequest {
	return &auth.RegisterRequest{
		FirstName: "Maria",
		LastName:  "Gomez",
		Email:     "maria@example.com",
		Password:  "secret123",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	service, _ := newAuthService()
	ctx := context.Background()

	registered, err := service.Register(ctx, registerRequest())
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", registered.User.Email)
	assert.Equal(t, "USER", registered.User.Role)
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)

	logged, err := service.Login(ctx, &auth.LoginRequest{
		Email:    "maria@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, logged.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service, _ := newAuthService()
	ctx := context.Background()

	_, err := service.Register(ctx, registerRequest())
	require.NoError(t, err)

	_, err = service.Register(ctx, registerRequest())
	assert.ErrorIs(t, err, auth.ErrUserAlreadyExists)
}

func TestRegisterUnknownRoleFallsBackToUser(t *testing.T) {
	service, _ := newAuthService()

	req := registerRequest()
	req.Role = "superuser"

	resp, err := service.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "USER", resp.User.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	service, _ := newAuthService()
	ctx := context.Background()

	_, err := service.Register(ctx, registerRequest())
	require.NoError(t, err)

	_, err = service.Login(ctx, &auth.LoginRequest{
		Email:    "maria@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	service, _ := newAuthService()

	_, err := service.Login(context.Background(), &auth.LoginRequest{
		Email:    "nobody@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	service, _ := newAuthService()

	resp, err := service.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	claims, err := service.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "maria@example.com", claims.Email)
	assert.Equal(t, "access", claims.Type)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	service, _ := newAuthService()

	resp, err := service.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	_, err = service.ValidateToken(resp.AccessToken + "x")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRefreshToken(t *testing.T) {
	service, _ := newAuthService()
	ctx := context.Background()

	resp, err := service.Register(ctx, registerRequest())
	require.NoError(t, err)

	t.Run("refresh token mints a new pair", func(t *testing.T) {
		pair, err := service.RefreshToken(ctx, resp.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)

		claims, err := service.ValidateToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "access", claims.Type)
	})

	t.Run("access token is not accepted as refresh", func(t *testing.T) {
		_, err := service.RefreshToken(ctx, resp.AccessToken)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
