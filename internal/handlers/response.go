package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sbilibin2017/culinary-connect/internal/logger"
	"github.com/sbilibin2017/culinary-connect/internal/services"
)

// Envelope statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the envelope of every JSON response
// swagger:model Response
type Response struct {
	// success or error
	Status string `json:"status" example:"success"`
	// Machine readable outcome
	Code string `json:"code,omitempty" example:"RECIPE_CREATED"`
	// Human readable outcome
	Message string `json:"message" example:"Recipe created successfully"`
	// Payload, absent when there is nothing to return
	Data interface{} `json:"data,omitempty"`
}

// ValidationErrorData describes rejected input
// swagger:model ValidationErrorData
type ValidationErrorData struct {
	Errors        map[string]string `json:"errors,omitempty"`
	MissingFields []string          `json:"missing_fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Log.Errorw("failed to encode response", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, status int, code, message string, data interface{}) {
	writeJSON(w, status, Response{Status: StatusSuccess, Code: code, Message: message, Data: data})
}

// writeError renders err with the status code it maps to.
func writeError(w http.ResponseWriter, err error) {
	status, resp := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Log.Errorw("internal server error", "err", err)
	}
	writeJSON(w, status, resp)
}

// writeBadRequest reports an undecodable request body.
func writeBadRequest(w http.ResponseWriter, err error) {
	logger.Log.Infow("invalid request body", "err", err)
	writeJSON(w, http.StatusBadRequest, Response{
		Status:  StatusError,
		Code:    "VALIDATION_ERROR",
		Message: "Invalid data provided",
		Data:    ValidationErrorData{Errors: map[string]string{"non_field_errors": err.Error()}},
	})
}

// errorResponse maps a service error to its HTTP status and envelope.
func errorResponse(err error) (int, Response) {
	resp := Response{Status: StatusError}

	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Code = "VALIDATION_ERROR"
		resp.Message = "Invalid data provided"
		if len(verr.Missing) > 0 {
			resp.Code = "MISSING_FIELDS"
			resp.Message = "Missing required fields"
		}
		resp.Data = ValidationErrorData{Errors: verr.Fields, MissingFields: verr.Missing}
		return http.StatusBadRequest, resp
	case errors.Is(err, services.ErrAuthentication):
		resp.Code = "INVALID_CREDENTIALS"
		resp.Message = "Unable to log in with provided credentials"
		return http.StatusBadRequest, resp
	case errors.Is(err, services.ErrConflict), isUniqueViolation(err):
		resp.Code = "ACCOUNT_ALREADY_EXISTS"
		resp.Message = "A user with that username already exists and is active."
		return http.StatusBadRequest, resp
	case errors.Is(err, services.ErrForbidden):
		resp.Code = "FORBIDDEN"
		resp.Message = "You do not have permission to perform this action."
		return http.StatusForbidden, resp
	case errors.Is(err, services.ErrNotFound):
		resp.Code = "NOT_FOUND"
		resp.Message = "Not found."
		return http.StatusNotFound, resp
	case errors.Is(err, services.ErrStorage):
		resp.Code = "STORAGE_ERROR"
		resp.Message = "Error handling image file"
		return http.StatusInternalServerError, resp
	default:
		resp.Code = "INTERNAL_ERROR"
		resp.Message = "Internal server error"
		return http.StatusInternalServerError, resp
	}
}

// isUniqueViolation detects a lost registration race on the unique username.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
