// Package response writes JSON responses. Error bodies carry a single
// human-readable string; internal details never leave the server log.
package response

import (
	"encoding/json"
	"net/http"
)

// Error is the body of every non-2xx JSON response.
type Error struct {
	Error string `json:"error"`
}

// JSON writes v as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(bytes)
}

// OK writes v with status 200.
func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

// Err writes an error body with the given status.
func Err(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Error{Error: message})
}

// BadRequest writes an error body with status 400.
func BadRequest(w http.ResponseWriter, message string) {
	Err(w, http.StatusBadRequest, message)
}

// InternalServerError writes an error body with status 500.
func InternalServerError(w http.ResponseWriter, message string) {
	Err(w, http.StatusInternalServerError, message)
}
