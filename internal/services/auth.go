package services

//go:generate mockgen -source=auth.go -destination=mock_auth.go -package=services

import (
	"context"

	"github.com/sbilibin2017/culinary-connect/internal/logger"
	"github.com/sbilibin2017/culinary-connect/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserReader defines read-only operations for users.
type UserReader interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// UserWriter defines write operations for users.
type UserWriter interface {
	Create(ctx context.Context, username, passwordHash string, p models.Profile) (*models.User, error)
	Reactivate(ctx context.Context, id int64, passwordHash string, p models.Profile) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, p models.Profile) (*models.User, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// TokenStore persists API tokens.
type TokenStore interface {
	GetOrCreate(ctx context.Context, userID int64, candidateKey string) (*models.AuthToken, error)
	GetByKey(ctx context.Context, key string) (*models.AuthToken, error)
	DeleteByKey(ctx context.Context, key string) (int64, error)
	DeleteByUserID(ctx context.Context, userID int64) ([]string, error)
}

// TokenCache caches token key -> user id lookups.
type TokenCache interface {
	Get(ctx context.Context, key string) (int64, bool, error)
	Set(ctx context.Context, key string, userID int64) error
	Delete(ctx context.Context, keys ...string) error // Delete also keeps later Set calls for keys from caching them
}

// TokenGenerator generates new token keys.
type TokenGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// AuthService handles registration, login, logout and token authentication.
type AuthService struct {
	reader UserReader
	writer UserWriter
	tokens TokenStore
	keys   TokenGenerator
	cache  TokenCache // optional
}

// NewAuthService creates a new AuthService instance. cache may be nil.
func NewAuthService(reader UserReader, writer UserWriter, tokens TokenStore, keys TokenGenerator, cache TokenCache) *AuthService {
	return &AuthService{
		reader: reader,
		writer: writer,
		tokens: tokens,
		keys:   keys,
		cache:  cache,
	}
}

// Register creates a user, or reactivates an inactive one with the same username,
// and returns its token.
func (svc *AuthService) Register(ctx context.Context, params models.RegisterParams) (*models.AuthResult, error) {
	verr := &ValidationError{}
	validateUsername(params.Username, verr)
	if params.Password == "" {
		verr.Add("password", "this field may not be blank")
	}
	profile := applyProfile(models.Profile{}, params.Profile, verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	existing, err := svc.reader.GetByUsername(ctx, params.Username)
	if err != nil {
		logger.Log.Errorw("failed to check user exists", "username", params.Username, "error", err)
		return nil, err
	}
	if existing != nil && existing.IsActive {
		logger.Log.Infow("user already exists", "username", params.Username)
		return nil, ErrConflict
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Errorw("failed to hash password", "error", err)
		return nil, err
	}

	var (
		user        *models.User
		reactivated bool
	)
	if existing != nil {
		logger.Log.Infow("reactivating user", "username", params.Username)
		// fields not supplied keep their previous values
		profile = applyProfile(models.ProfileOf(existing), params.Profile, verr)
		user, err = svc.writer.Reactivate(ctx, existing.ID, string(hashedPassword), profile)
		reactivated = true
	} else {
		user, err = svc.writer.Create(ctx, params.Username, string(hashedPassword), profile)
	}
	if err != nil {
		logger.Log.Errorw("failed to save user", "username", params.Username, "error", err)
		return nil, err
	}

	token, err := svc.issueToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &models.AuthResult{User: user, Token: token.Key, Reactivated: reactivated}, nil
}

// Login checks credentials and returns the user's token, creating one if needed.
// Unknown users, inactive users and wrong passwords all yield ErrAuthentication.
func (svc *AuthService) Login(ctx context.Context, username, password string) (*models.AuthResult, error) {
	user, err := svc.reader.GetByUsername(ctx, username)
	if err != nil {
		logger.Log.Errorw("failed to get user", "username", username, "error", err)
		return nil, err
	}
	if user == nil {
		logger.Log.Infow("login attempt failed", "username", username, "reason", "user not found")
		return nil, ErrAuthentication
	}
	if !user.IsActive {
		logger.Log.Infow("login attempt failed", "username", username, "reason", "inactive")
		return nil, ErrAuthentication
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		logger.Log.Infow("login attempt failed", "username", username, "reason", "wrong password")
		return nil, ErrAuthentication
	}

	token, err := svc.issueToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	logger.Log.Infow("user authenticated", "username", username, "user_id", user.ID)

	return &models.AuthResult{User: user, Token: token.Key}, nil
}

// Logout deletes exactly the presented token.
func (svc *AuthService) Logout(ctx context.Context, key string) error {
	deleted, err := svc.tokens.DeleteByKey(ctx, key)
	if err != nil {
		logger.Log.Errorw("failed to delete token", "error", err)
		return err
	}
	svc.evict(ctx, key)

	if deleted == 0 {
		return ErrAuthentication
	}
	return nil
}

// Authenticate resolves a token key to its active owner.
func (svc *AuthService) Authenticate(ctx context.Context, key string) (*models.User, error) {
	if key == "" {
		return nil, ErrAuthentication
	}

	if svc.cache != nil {
		userID, ok, err := svc.cache.Get(ctx, key)
		if err != nil {
			logger.Log.Warnw("token cache unavailable", "error", err)
		}
		if ok {
			user, err := svc.reader.GetByID(ctx, userID)
			if err != nil {
				return nil, err
			}
			if user != nil && user.IsActive {
				return user, nil
			}
			svc.evict(ctx, key)
		}
	}

	token, err := svc.tokens.GetByKey(ctx, key)
	if err != nil {
		logger.Log.Errorw("failed to get token", "error", err)
		return nil, err
	}
	if token == nil {
		return nil, ErrAuthentication
	}

	user, err := svc.reader.GetByID(ctx, token.UserID)
	if err != nil {
		logger.Log.Errorw("failed to get token owner", "user_id", token.UserID, "error", err)
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrAuthentication
	}

	if svc.cache != nil {
		if err := svc.cache.Set(ctx, key, user.ID); err != nil {
			logger.Log.Warnw("failed to cache token", "error", err)
		}
	}

	return user, nil
}

func (svc *AuthService) issueToken(ctx context.Context, userID int64) (*models.AuthToken, error) {
	key, err := svc.keys.Generate(ctx)
	if err != nil {
		logger.Log.Errorw("failed to generate token", "error", err)
		return nil, err
	}

	token, err := svc.tokens.GetOrCreate(ctx, userID, key)
	if err != nil {
		logger.Log.Errorw("failed to save token", "user_id", userID, "error", err)
		return nil, err
	}
	return token, nil
}

func (svc *AuthService) evict(ctx context.Context, keys ...string) {
	evictTokens(ctx, svc.cache, keys...)
}

func evictTokens(ctx context.Context, cache TokenCache, keys ...string) {
	if cache == nil || len(keys) == 0 {
		return
	}
	if err := cache.Delete(ctx, keys...); err != nil {
		logger.Log.Warnw("failed to evict cached tokens", "count", len(keys), "error", err)
	}
}
