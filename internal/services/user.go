package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sbilibin2017/culinary-connect/internal/logger"
	"github.com/sbilibin2017/culinary-connect/internal/models"
)

// ProfileFields are the writable profile fields, all required on a full update.
var ProfileFields = []string{"first_name", "last_name", "email", "bio", "date_of_birth"}

// UserService handles profile changes and account deactivation.
type UserService struct {
	writer UserWriter
	tokens TokenStore
	cache  TokenCache // optional
}

// NewUserService creates a new UserService instance. cache may be nil.
func NewUserService(writer UserWriter, tokens TokenStore, cache TokenCache) *UserService {
	return &UserService{
		writer: writer,
		tokens: tokens,
		cache:  cache,
	}
}

// UpdateProfile applies update to the user's profile. A full update (partial=false)
// requires every profile field.
func (svc *UserService) UpdateProfile(ctx context.Context, user *models.User, update models.ProfileUpdate, partial bool) (*models.User, error) {
	verr := &ValidationError{}
	if !partial {
		supplied := map[string]bool{
			"first_name":    update.FirstName != nil,
			"last_name":     update.LastName != nil,
			"email":         update.Email != nil,
			"bio":           update.Bio != nil,
			"date_of_birth": update.DateOfBirth != nil,
		}
		for _, f := range ProfileFields {
			if !supplied[f] {
				verr.Require(f)
			}
		}
	}
	profile := applyProfile(models.ProfileOf(user), update, verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	updated, err := svc.writer.UpdateProfile(ctx, user.ID, profile)
	if err != nil {
		logger.Log.Errorw("failed to update profile", "user_id", user.ID, "error", err)
		return nil, err
	}

	return updated, nil
}

// Deactivate soft-deletes the user and revokes all of its tokens.
func (svc *UserService) Deactivate(ctx context.Context, userID int64) error {
	logger.Log.Infow("deactivating user", "user_id", userID)

	if err := svc.writer.SetActive(ctx, userID, false); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		logger.Log.Errorw("failed to deactivate user", "user_id", userID, "error", err)
		return err
	}

	keys, err := svc.tokens.DeleteByUserID(ctx, userID)
	if err != nil {
		logger.Log.Errorw("failed to delete user tokens", "user_id", userID, "error", err)
		return err
	}
	evictTokens(ctx, svc.cache, keys...)

	return nil
}
