package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/culinary-connect/internal/models"
	"github.com/sbilibin2017/culinary-connect/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type authMocks struct {
	reader *services.MockUserReader
	writer *services.MockUserWriter
	tokens *services.MockTokenStore
	keys   *services.MockTokenGenerator
	cache  *services.MockTokenCache
}

func newAuthService(t *testing.T, withCache bool) (*services.AuthService, authMocks) {
	ctrl := gomock.NewController(t)
	m := authMocks{
		reader: services.NewMockUserReader(ctrl),
		writer: services.NewMockUserWriter(ctrl),
		tokens: services.NewMockTokenStore(ctrl),
		keys:   services.NewMockTokenGenerator(ctrl),
		cache:  services.NewMockTokenCache(ctrl),
	}
	var cache services.TokenCache
	if withCache {
		cache = m.cache
	}
	return services.NewAuthService(m.reader, m.writer, m.tokens, m.keys, cache), m
}

func hash(t *testing.T, password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func strp(s string) *string { return &s }

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates new user and token", func(t *testing.T) {
		svc, m := newAuthService(t, false)

		m.reader.EXPECT().GetByUsername(ctx, "chef1").Return(nil, nil)
		m.writer.EXPECT().
			Create(ctx, "chef1", gomock.Any(), models.Profile{Email: "chef1@example.com"}).
			DoAndReturn(func(_ context.Context, username, passwordHash string, p models.Profile) (*models.User, error) {
				assert.NotEqual(t, "secret", passwordHash)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte("secret")))
				return &models.User{ID: 1, Username: username, Email: p.Email, IsActive: true}, nil
			})
		m.keys.EXPECT().Generate(ctx).Return("key1", nil)
		m.tokens.EXPECT().GetOrCreate(ctx, int64(1), "key1").Return(&models.AuthToken{Key: "key1", UserID: 1}, nil)

		res, err := svc.Register(ctx, models.RegisterParams{
			Username: "chef1",
			Password: "secret",
			Profile:  models.ProfileUpdate{Email: strp("chef1@example.com")},
		})
		require.NoError(t, err)
		assert.Equal(t, "key1", res.Token)
		assert.Equal(t, int64(1), res.User.ID)
		assert.False(t, res.Reactivated)
	})

	t.Run("active user conflicts", func(t *testing.T) {
		svc, m := newAuthService(t, false)
		m.reader.EXPECT().GetByUsername(ctx, "chef1").Return(&models.User{ID: 1, IsActive: true}, nil)

		res, err := svc.Register(ctx, models.RegisterParams{Username: "chef1", Password: "secret"})
		assert.ErrorIs(t, err, services.ErrConflict)
		assert.Nil(t, res)
	})

	t.Run("inactive user is reactivated keeping unsupplied fields", func(t *testing.T) {
		svc, m := newAuthService(t, false)
		existing := &models.User{ID: 7, Username: "chef1", Email: "old@example.com", Bio: "old bio", IsActive: false}

		m.reader.EXPECT().GetByUsername(ctx, "chef1").Return(existing, nil)
		m.writer.EXPECT().
			Reactivate(ctx, int64(7), gomock.Any(), models.Profile{Email: "old@example.com", Bio: "new bio"}).
			Return(&models.User{ID: 7, Username: "chef1", Bio: "new bio", IsActive: true}, nil)
		m.keys.EXPECT().Generate(ctx).Return("fresh", nil)
		m.tokens.EXPECT().GetOrCreate(ctx, int64(7), "fresh").Return(&models.AuthToken{Key: "fresh", UserID: 7}, nil)

		res, err := svc.Register(ctx, models.RegisterParams{
			Username: "chef1",
			Password: "newpass",
			Profile:  models.ProfileUpdate{Bio: strp("new bio")},
		})
		require.NoError(t, err)
		assert.True(t, res.Reactivated)
		assert.Equal(t, "fresh", res.Token)
	})

	t.Run("validation", func(t *testing.T) {
		svc, _ := newAuthService(t, false)

		_, err := svc.Register(ctx, models.RegisterParams{
			Username: "bad name!",
			Password: "",
			Profile: models.ProfileUpdate{
				Email:       strp("not-an-email"),
				DateOfBirth: strp("17/05/1990"),
			},
		})
		var verr *services.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ErrorIs(t, err, services.ErrValidation)
		assert.Contains(t, verr.Fields, "username")
		assert.Contains(t, verr.Fields, "password")
		assert.Contains(t, verr.Fields, "email")
		assert.Contains(t, verr.Fields, "date_of_birth")
	})

	t.Run("reader error", func(t *testing.T) {
		svc, m := newAuthService(t, false)
		m.reader.EXPECT().GetByUsername(ctx, "chef1").Return(nil, errors.New("db error"))

		_, err := svc.Register(ctx, models.RegisterParams{Username: "chef1", Password: "secret"})
		assert.EqualError(t, err, "db error")
	})

	t.Run("writer error", func(t *testing.T) {
		svc, m := newAuthService(t, false)
		m.reader.EXPECT().GetByUsername(ctx, "chef1").Return(nil, nil)
		m.writer.EXPECT().Create(ctx, "chef1", gomock.Any(), gomock.Any()).Return(nil, errors.New("save error"))

		_, err := svc.Register(ctx, models.RegisterParams{Username: "chef1", Password: "secret"})
		assert.EqualError(t, err, "save error")
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	active := &models.User{ID: 1, Username: "chef1", Password: hash(t, "secret"), IsActive: true}
	inactive := &models.User{ID: 2, Username: "gone", Password: hash(t, "secret"), IsActive: false}

	t.Run("success reuses token", func(t *testing.T) {
		svc, m := newAuthService(t, false)
		m.reader.EXPECT().GetByUsername(ctx, "chef1").Return(active, nil)
		m.keys.EXPECT().Generate(ctx).Return("candidate", nil)
		m.tokens.EXPECT().GetOrCreate(ctx, int64(1), "candidate").Return(&models.AuthToken{Key: "existing", UserID: 1}, nil)

		res, err := svc.Login(ctx, "chef1", "secret")
		require.NoError(t, err)
		assert.Equal(t, "existing", res.Token)
		assert.Equal(t, active, res.User)
	})

	tests := []struct {
		name     string
		username string
		password string
		user     *models.User
	}{
		{"unknown user", "nobody", "secret", nil},
		{"wrong password", "chef1", "wrong", active},
		{"inactive user", "gone", "secret", inactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newAuthService(t, false)
			m.reader.EXPECT().GetByUsername(ctx, tt.username).Return(tt.user, nil)

			res, err := svc.Login(ctx, tt.username, tt.password)
			assert.Equal(t, services.ErrAuthentication, err)
			assert.Nil(t, res)
		})
	}

	t.Run("token generator error", func(t *testing.T) {
		svc, m := newAuthService(t, false)
		m.reader.EXPECT().GetByUsername(ctx, "chef1").Return(active, nil)
		m.keys.EXPECT().Generate(ctx).Return("", errors.New("no entropy"))

		_, err := svc.Login(ctx, "chef1", "secret")
		assert.EqualError(t, err, "no entropy")
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes token and cache entry", func(t *testing.T) {
		svc, m := newAuthService(t, true)
		m.tokens.EXPECT().DeleteByKey(ctx, "key1").Return(int64(1), nil)
		m.cache.EXPECT().Delete(ctx, "key1").Return(nil)

		assert.NoError(t, svc.Logout(ctx, "key1"))
	})

	t.Run("already deleted", func(t *testing.T) {
		svc, m := newAuthService(t, false)
		m.tokens.EXPECT().DeleteByKey(ctx, "key1").Return(int64(0), nil)

		assert.ErrorIs(t, svc.Logout(ctx, "key1"), services.ErrAuthentication)
	})

	t.Run("store error", func(t *testing.T) {
		svc, m := newAuthService(t, false)
		m.tokens.EXPECT().DeleteByKey(ctx, "key1").Return(int64(0), errors.New("db error"))

		assert.EqualError(t, svc.Logout(ctx, "key1"), "db error")
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: 1, Username: "chef1", IsActive: true}

	t.Run("empty key", func(t *testing.T) {
		svc, _ := newAuthService(t, false)
		_, err := svc.Authenticate(ctx, "")
		assert.ErrorIs(t, err, services.ErrAuthentication)
	})

	t.Run("store lookup without cache", func(t *testing.T) {
		svc, m := newAuthService(t, false)
		m.tokens.EXPECT().GetByKey(ctx, "key1").Return(&models.AuthToken{Key: "key1", UserID: 1}, nil)
		m.reader.EXPECT().GetByID(ctx, int64(1)).Return(user, nil)

		got, err := svc.Authenticate(ctx, "key1")
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("unknown token", func(t *testing.T) {
		svc, m := newAuthService(t, false)
		m.tokens.EXPECT().GetByKey(ctx, "nope").Return(nil, nil)

		_, err := svc.Authenticate(ctx, "nope")
		assert.ErrorIs(t, err, services.ErrAuthentication)
	})

	t.Run("inactive owner", func(t *testing.T) {
		svc, m := newAuthService(t, false)
		m.tokens.EXPECT().GetByKey(ctx, "key1").Return(&models.AuthToken{Key: "key1", UserID: 2}, nil)
		m.reader.EXPECT().GetByID(ctx, int64(2)).Return(&models.User{ID: 2}, nil)

		_, err := svc.Authenticate(ctx, "key1")
		assert.ErrorIs(t, err, services.ErrAuthentication)
	})

	t.Run("cache hit", func(t *testing.T) {
		svc, m := newAuthService(t, true)
		m.cache.EXPECT().Get(ctx, "key1").Return(int64(1), true, nil)
		m.reader.EXPECT().GetByID(ctx, int64(1)).Return(user, nil)

		got, err := svc.Authenticate(ctx, "key1")
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("cache miss populates cache", func(t *testing.T) {
		svc, m := newAuthService(t, true)
		m.cache.EXPECT().Get(ctx, "key1").Return(int64(0), false, nil)
		m.tokens.EXPECT().GetByKey(ctx, "key1").Return(&models.AuthToken{Key: "key1", UserID: 1}, nil)
		m.reader.EXPECT().GetByID(ctx, int64(1)).Return(user, nil)
		m.cache.EXPECT().Set(ctx, "key1", int64(1)).Return(nil)

		_, err := svc.Authenticate(ctx, "key1")
		assert.NoError(t, err)
	})

	t.Run("cache error falls back to store", func(t *testing.T) {
		svc, m := newAuthService(t, true)
		m.cache.EXPECT().Get(ctx, "key1").Return(int64(0), false, errors.New("redis down"))
		m.tokens.EXPECT().GetByKey(ctx, "key1").Return(&models.AuthToken{Key: "key1", UserID: 1}, nil)
		m.reader.EXPECT().GetByID(ctx, int64(1)).Return(user, nil)
		m.cache.EXPECT().Set(ctx, "key1", int64(1)).Return(errors.New("redis down"))

		got, err := svc.Authenticate(ctx, "key1")
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("cached owner deactivated", func(t *testing.T) {
		svc, m := newAuthService(t, true)
		m.cache.EXPECT().Get(ctx, "key1").Return(int64(2), true, nil)
		m.reader.EXPECT().GetByID(ctx, int64(2)).Return(&models.User{ID: 2}, nil)
		m.cache.EXPECT().Delete(ctx, "key1").Return(nil)
		m.tokens.EXPECT().GetByKey(ctx, "key1").Return(nil, nil)

		_, err := svc.Authenticate(ctx, "key1")
		assert.ErrorIs(t, err, services.ErrAuthentication)
	})
}
