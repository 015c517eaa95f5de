package middlewares

import (
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/culinary-connect/internal/logger"
)

// errorBody mirrors the API error envelope.
type errorBody struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorBody{Status: "error", Code: code, Message: message}); err != nil {
		logger.Log.Errorw("failed to write error response", "error", err)
	}
}
