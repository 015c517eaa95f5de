package handlers

//go:generate mockgen -source=register.go -destination=mock_register.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/culinary-connect/internal/models"
)

// Registerer defines the interface that the service must implement.
type Registerer interface {
	Register(ctx context.Context, params models.RegisterParams) (*models.AuthResult, error)
}

// RegisterRequest represents the JSON body for user registration
// swagger:model RegisterRequest
type RegisterRequest struct {
	ProfileRequest
	// Username, letters, digits and @/./+/-/_ only
	Username string `json:"username" example:"chef1"`
	// Password
	Password string `json:"password" example:"secret123"`
}

// RegisterData is the payload of a successful registration
// swagger:model RegisterData
type RegisterData struct {
	UserResponse
	Token string `json:"token" example:"9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b"`
}

// NewRegisterHandler returns an HTTP handler for user registration.
// @Summary Register a new user
// @Description Creates a user account and its token. Registering the username of a deactivated account reactivates it with the new password and profile.
// @Tags auth
// @Accept json
// @Produce json
// @Param registerRequest body handlers.RegisterRequest true "User registration request"
// @Success 201 {object} handlers.Response{data=handlers.RegisterData} "ACCOUNT_CREATED or ACCOUNT_REACTIVATED"
// @Failure 400 {object} handlers.Response{data=handlers.ValidationErrorData} "Invalid input or username taken by an active account"
// @Failure 429 {object} handlers.Response "Too many attempts"
// @Failure 500 {object} handlers.Response "Internal server error"
// @Router /users/register [post]
func NewRegisterHandler(svc Registerer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, err)
			return
		}

		profile, err := req.toUpdate()
		if err != nil {
			writeError(w, err)
			return
		}

		result, err := svc.Register(r.Context(), models.RegisterParams{
			Username: req.Username,
			Password: req.Password,
			Profile:  profile,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		code := "ACCOUNT_CREATED"
		if result.Reactivated {
			code = "ACCOUNT_REACTIVATED"
		}

		writeSuccess(w, http.StatusCreated, code, "User account operation successful", RegisterData{
			UserResponse: newUserResponse(result.User),
			Token:        result.Token,
		})
	}
}
