package handlers

//go:generate mockgen -source=profile.go -destination=mock_profile.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/culinary-connect/internal/middlewares"
	"github.com/sbilibin2017/culinary-connect/internal/models"
)

// ProfileUpdater changes the writable profile fields of a user.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, user *models.User, update models.ProfileUpdate, partial bool) (*models.User, error)
}

// Deactivator soft-deletes a user account.
type Deactivator interface {
	Deactivate(ctx context.Context, userID int64) error
}

// NewGetProfileHandler returns an HTTP handler rendering the caller's profile.
// @Summary Get profile
// @Tags users
// @Produce json
// @Success 200 {object} handlers.Response{data=handlers.UserResponse} "PROFILE_RETRIEVED"
// @Failure 401 {object} handlers.Response "Missing or invalid token"
// @Router /users/profile [get]
// @Security TokenAuth
func NewGetProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middlewares.UserFromContext(r.Context())

		writeSuccess(w, http.StatusOK, "PROFILE_RETRIEVED", "User profile retrieved successfully", newUserResponse(user))
	}
}

// NewUpdateProfileHandler returns an HTTP handler updating the caller's profile.
// partial selects PATCH semantics; otherwise every profile field is required.
// @Summary Update profile
// @Description PUT replaces first_name, last_name, email, bio and date_of_birth; PATCH changes any subset. Username and password are read-only.
// @Tags users
// @Accept json
// @Produce json
// @Param profileRequest body handlers.ProfileRequest true "Profile fields"
// @Success 200 {object} handlers.Response{data=handlers.UserResponse} "PROFILE_UPDATED"
// @Failure 400 {object} handlers.Response{data=handlers.ValidationErrorData} "Invalid input"
// @Failure 401 {object} handlers.Response "Missing or invalid token"
// @Failure 500 {object} handlers.Response "Internal server error"
// @Router /users/profile [put]
// @Router /users/profile [patch]
// @Security TokenAuth
func NewUpdateProfileHandler(svc ProfileUpdater, partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProfileRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, err)
			return
		}

		update, err := req.toUpdate()
		if err != nil {
			writeError(w, err)
			return
		}

		user, err := svc.UpdateProfile(r.Context(), middlewares.UserFromContext(r.Context()), update, partial)
		if err != nil {
			writeError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, "PROFILE_UPDATED", "User profile updated successfully", newUserResponse(user))
	}
}

// NewDeactivateHandler returns an HTTP handler that deactivates the caller's account.
// @Summary Deactivate account
// @Description Marks the account inactive and revokes its tokens. Registering the same username later reactivates it.
// @Tags users
// @Produce json
// @Success 200 {object} handlers.Response "ACCOUNT_DEACTIVATED"
// @Failure 401 {object} handlers.Response "Missing or invalid token"
// @Failure 500 {object} handlers.Response "Internal server error"
// @Router /users/delete [delete]
// @Security TokenAuth
func NewDeactivateHandler(svc Deactivator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middlewares.UserFromContext(r.Context())

		if err := svc.Deactivate(r.Context(), user.ID); err != nil {
			writeError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, "ACCOUNT_DEACTIVATED", "User account deactivated successfully.", nil)
	}
}
