package handlers

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Message string `json:"error"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	respondWithJSON(w, statusCode, ErrorResponse{Message: message})
}
