package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/api/models"
	"github.com/smartroute/smartroute/internal/api/response"
	"github.com/smartroute/smartroute/internal/planner"
)

// RouteHandler handles routing endpoints.
type RouteHandler struct {
	planner Planner
	logger  zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(p Planner, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{planner: p, logger: logger}
}

// PlanRoute handles POST /v1/routes:plan - parse a prompt and rank route alternatives.
func (h *RouteHandler) PlanRoute(w http.ResponseWriter, r *http.Request) {
	var input models.PromptRequest
	if fields, err := decode(w, r, &input); err != nil {
		response.Problem(w, r, models.ProblemTypeValidation, "invalid request body", fields...)
		return
	}

	plan, err := h.planner.PlanRoute(r.Context(), input.Text)
	if errors.Is(err, planner.ErrDirectionsFailure) {
		h.logger.Warn().Err(err).Msg("directions failed for plan")
		response.Problem(w, r, models.ProblemTypeBadGateway, "directions provider could not return routes")
		return
	}
	if err != nil {
		writePromptError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewPlanResponse(plan, models.Now()))
}

// Estimate handles POST /v1/routes:estimate - routes between two coordinates.
func (h *RouteHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var input planner.EstimateRequest
	if err := decodeJSON(w, r, &input); err != nil {
		response.Problem(w, r, models.ProblemTypeValidation, "invalid JSON body")
		return
	}

	est, err := h.planner.Estimate(r.Context(), input)
	switch {
	case err == nil:
	case errors.Is(err, planner.ErrInvalidEstimate):
		response.Problem(w, r, models.ProblemTypeValidation, "invalid estimate request", fieldErrors(err)...)
		return
	case errors.Is(err, planner.ErrDirectionsFailure):
		h.logger.Warn().Err(err).Msg("directions failed for estimate")
		response.Problem(w, r, models.ProblemTypeBadGateway, "directions provider could not return routes")
		return
	default:
		h.logger.Error().Err(err).Msg("estimate failed")
		response.Problem(w, r, models.ProblemTypeInternal, "failed to estimate routes")
		return
	}

	response.JSON(w, r, http.StatusOK, models.EstimateResponse{
		GeneratedAt: models.Now(),
		Estimate:    est,
	})
}
