// Package handler provides HTTP handlers for the SmartRoute API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/smartroute/smartroute/internal/api/models"
	"github.com/smartroute/smartroute/internal/planner"
	"github.com/smartroute/smartroute/internal/prompt"
)

// maxBodyBytes caps request bodies. Prompts are short free text.
const maxBodyBytes = 64 << 10

// Planner is the pipeline the route and prompt handlers call into.
type Planner interface {
	AnalyzePrompt(ctx context.Context, text string) (*prompt.TravelIntent, error)
	PlanRoute(ctx context.Context, text string) (*planner.Plan, error)
	Estimate(ctx context.Context, req planner.EstimateRequest) (*planner.Estimate, error)
	Holiday(date string) *planner.HolidayInfo
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a size-capped JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) ([]models.FieldError, error) {
	if err := decodeJSON(w, r, dst); err != nil {
		return nil, err
	}
	if err := validate.Struct(dst); err != nil {
		return fieldErrors(err), err
	}
	return nil, nil
}

// fieldErrors converts validator errors to problem field errors.
func fieldErrors(err error) []models.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
			Code:    fe.Tag(),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "latitude":
		return "must be a latitude between -90 and 90"
	case "longitude":
		return "must be a longitude between -180 and 180"
	case "datetime":
		return "must match layout " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func constraints(intent *prompt.TravelIntent) []string {
	out := []string{}
	for _, d := range intent.Directives() {
		out = append(out, d.Constraint())
	}
	return out
}
