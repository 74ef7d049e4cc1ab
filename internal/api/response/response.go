// Package response writes JSON and problem+json bodies for the handlers.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/smartroute/smartroute/internal/api/middleware"
	"github.com/smartroute/smartroute/internal/api/models"
)

// JSON writes v with status. A nil v writes headers only.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	h := w.Header()
	if id := middleware.GetRequestID(r.Context()); id != "" {
		h.Set("X-Request-Id", id)
	}
	h.Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Problem writes an RFC 7807 body of type t for the current request.
func Problem(w http.ResponseWriter, r *http.Request, t models.ProblemType, detail string, errs ...models.FieldError) {
	models.NewProblem(t, middleware.GetRequestID(r.Context()), detail).
		WithErrors(errs...).
		WithInstance(r.URL.Path).
		Write(w)
}

// MeaninglessPrompt writes the 422 for a prompt the parser rejected.
func MeaninglessPrompt(w http.ResponseWriter, r *http.Request, detail, reason string) {
	models.NewMeaninglessPrompt(middleware.GetRequestID(r.Context()), detail, reason).
		WithInstance(r.URL.Path).
		Write(w)
}
