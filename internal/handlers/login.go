package handlers

//go:generate mockgen -source=login.go -destination=mock_login.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/culinary-connect/internal/middlewares"
	"github.com/sbilibin2017/culinary-connect/internal/models"
	"github.com/sbilibin2017/culinary-connect/internal/services"
)

// Loginer defines the interface that the service must implement.
type Loginer interface {
	Login(ctx context.Context, username, password string) (*models.AuthResult, error)
}

// Logouter revokes a token.
type Logouter interface {
	Logout(ctx context.Context, key string) error
}

// LoginRequest represents the JSON body for login
// swagger:model LoginRequest
type LoginRequest struct {
	Username string `json:"username" example:"chef1"`
	Password string `json:"password" example:"secret123"`
}

// LoginData is the payload of a successful login
// swagger:model LoginData
type LoginData struct {
	Token  string `json:"token" example:"9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b"`
	UserID int64  `json:"user_id" example:"1"`
	Email  string `json:"email" example:"chef1@example.com"`
}

// NewLoginHandler returns an HTTP handler for user login.
// @Summary Log in
// @Description Exchanges credentials for the user's token. The token is created on first login and reused afterwards.
// @Tags auth
// @Accept json
// @Produce json
// @Param loginRequest body handlers.LoginRequest true "Credentials"
// @Success 200 {object} handlers.Response{data=handlers.LoginData} "LOGIN_SUCCESSFUL"
// @Failure 400 {object} handlers.Response "INVALID_CREDENTIALS"
// @Failure 429 {object} handlers.Response "Too many attempts"
// @Failure 500 {object} handlers.Response "Internal server error"
// @Router /login [post]
func NewLoginHandler(svc Loginer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, err)
			return
		}

		if req.Username == "" || req.Password == "" {
			verr := &services.ValidationError{}
			if req.Username == "" {
				verr.Require("username")
			}
			if req.Password == "" {
				verr.Require("password")
			}
			writeError(w, verr)
			return
		}

		result, err := svc.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, "LOGIN_SUCCESSFUL", "User authenticated successfully", LoginData{
			Token:  result.Token,
			UserID: result.User.ID,
			Email:  result.User.Email,
		})
	}
}

// NewLogoutHandler returns an HTTP handler that revokes the caller's token.
// @Summary Log out
// @Description Deletes the token the request was authenticated with.
// @Tags auth
// @Produce json
// @Success 200 {object} handlers.Response "LOGOUT_SUCCESSFUL"
// @Failure 401 {object} handlers.Response "Missing or invalid token"
// @Router /users/logout [post]
// @Security TokenAuth
func NewLogoutHandler(svc Logouter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context(), middlewares.TokenFromContext(r.Context())); err != nil {
			writeError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, "LOGOUT_SUCCESSFUL", "User logged out successfully.", nil)
	}
}
