package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartroute/smartroute/internal/api/models"
	"github.com/smartroute/smartroute/internal/api/response"
	"github.com/smartroute/smartroute/internal/planner"
)

// HolidayHandler exposes the traffic calendar.
type HolidayHandler struct {
	planner Planner
}

// NewHolidayHandler creates a new HolidayHandler.
func NewHolidayHandler(p Planner) *HolidayHandler {
	return &HolidayHandler{planner: p}
}

// GetHoliday handles GET /v1/holidays/{date} - resolve a yyyy-MM-dd date.
func (h *HolidayHandler) GetHoliday(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	info := h.planner.Holiday(date)
	if info == nil {
		response.Problem(w, r, models.ProblemTypeValidation, "date must be formatted as yyyy-MM-dd",
			models.FieldError{Field: "date", Message: "must match layout 2006-01-02", Code: "datetime"})
		return
	}

	response.JSON(w, r, http.StatusOK, models.HolidayResponse{
		HolidayInfo:  info,
		TrafficLevel: planner.TrafficLevel(info.TrafficMultiplier),
	})
}
