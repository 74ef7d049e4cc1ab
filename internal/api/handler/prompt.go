package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/api/models"
	"github.com/smartroute/smartroute/internal/api/response"
	"github.com/smartroute/smartroute/internal/prompt"
)

// PromptHandler handles prompt analysis.
type PromptHandler struct {
	planner Planner
	logger  zerolog.Logger
}

// NewPromptHandler creates a new PromptHandler.
func NewPromptHandler(p Planner, logger zerolog.Logger) *PromptHandler {
	return &PromptHandler{planner: p, logger: logger}
}

// Analyze handles POST /v1/prompts:analyze - extract a travel intent without routing.
func (h *PromptHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var input models.PromptRequest
	if fields, err := decode(w, r, &input); err != nil {
		response.Problem(w, r, models.ProblemTypeValidation, "invalid request body", fields...)
		return
	}

	intent, err := h.planner.AnalyzePrompt(r.Context(), input.Text)
	if err != nil {
		writePromptError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.AnalyzeResponse{
		GeneratedAt: models.Now(),
		Intent:      intent,
		Stops:       intent.Stops(),
		Constraints: constraints(intent),
	})
}

// writePromptError maps a prompt rejection to 422 and anything else to 500.
func writePromptError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var rejection *prompt.RejectionError
	if errors.As(err, &rejection) {
		response.MeaninglessPrompt(w, r, "prompt does not describe a route", string(rejection.Reason))
		return
	}
	logger.Error().Err(err).Str("path", r.URL.Path).Msg("prompt processing failed")
	response.Problem(w, r, models.ProblemTypeInternal, "failed to process prompt")
}
