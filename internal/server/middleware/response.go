package middleware

import (
	"encoding/json"
	"net/http"
)

// errorResponse mirrors the handlers package error shape. Middleware keeps
// its own copy to avoid importing handlers.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusUnauthorized, "unauthorized", message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusInternalServerError, "internal_error", message)
}
