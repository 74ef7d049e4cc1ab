package models

import (
	"encoding/json"
	"net/http"
)

// ProblemType identifies an error class in application/problem+json bodies.
type ProblemType string

const (
	ProblemTypeValidation       ProblemType = "https://smartroute.dev/problems/validation-error"
	ProblemTypeNotFound         ProblemType = "https://smartroute.dev/problems/not-found"
	ProblemTypeMeaningless      ProblemType = "https://smartroute.dev/problems/meaningless-prompt"
	ProblemTypeUnsupportedMedia ProblemType = "https://smartroute.dev/problems/unsupported-media-type"
	ProblemTypeTooManyRequests  ProblemType = "https://smartroute.dev/problems/too-many-requests"
	ProblemTypeInternal         ProblemType = "https://smartroute.dev/problems/internal-error"
	ProblemTypeBadGateway       ProblemType = "https://smartroute.dev/problems/directions-failure"
	ProblemTypeUnavailable      ProblemType = "https://smartroute.dev/problems/service-unavailable"
	ProblemTypeTLSRequired      ProblemType = "https://smartroute.dev/problems/tls-required"
)

var problemCatalog = map[ProblemType]struct {
	title  string
	status int
}{
	ProblemTypeValidation:       {"Validation error", http.StatusBadRequest},
	ProblemTypeNotFound:         {"Not found", http.StatusNotFound},
	ProblemTypeMeaningless:      {"Meaningless prompt", http.StatusUnprocessableEntity},
	ProblemTypeUnsupportedMedia: {"Unsupported media type", http.StatusUnsupportedMediaType},
	ProblemTypeTooManyRequests:  {"Too many requests", http.StatusTooManyRequests},
	ProblemTypeInternal:         {"Internal server error", http.StatusInternalServerError},
	ProblemTypeBadGateway:       {"Directions unavailable", http.StatusBadGateway},
	ProblemTypeUnavailable:      {"Service unavailable", http.StatusServiceUnavailable},
	ProblemTypeTLSRequired:      {"TLS required", http.StatusForbidden},
}

// Status returns the HTTP status a problem of type t is sent with. Unknown
// types are server errors.
func (t ProblemType) Status() int {
	if c, ok := problemCatalog[t]; ok {
		return c.status
	}
	return http.StatusInternalServerError
}

// Title returns the fixed summary of t.
func (t ProblemType) Title() string {
	if c, ok := problemCatalog[t]; ok {
		return c.title
	}
	return http.StatusText(t.Status())
}

// Problem is an RFC 7807 error body.
type Problem struct {
	Type     ProblemType  `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at the request field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// NewProblem builds a problem of type t, taking title and status from the
// catalog.
func NewProblem(t ProblemType, traceID, detail string) *Problem {
	return &Problem{
		Type:    t,
		Title:   t.Title(),
		Status:  t.Status(),
		Detail:  detail,
		TraceID: traceID,
	}
}

// NewMeaninglessPrompt reports a rejected prompt. The rejection reason is
// attached as the code of a field error on text.
func NewMeaninglessPrompt(traceID, detail, reason string) *Problem {
	return NewProblem(ProblemTypeMeaningless, traceID, detail).
		WithErrors(FieldError{Field: "text", Message: detail, Code: reason})
}

// WithErrors appends field errors.
func (p *Problem) WithErrors(errs ...FieldError) *Problem {
	p.Errors = append(p.Errors, errs...)
	return p
}

// WithInstance sets the request path the problem occurred on.
func (p *Problem) WithInstance(path string) *Problem {
	p.Instance = path
	return p
}

// Write sends p with the problem+json media type. The trace ID doubles as
// the X-Request-Id header.
func (p *Problem) Write(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		h.Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
