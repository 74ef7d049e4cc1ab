package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/api/models"
	"github.com/smartroute/smartroute/internal/api/response"
	"github.com/smartroute/smartroute/internal/prediction"
	"github.com/smartroute/smartroute/internal/provider/resilience"
)

// checkTimeout bounds each dependency probe in readiness and status checks.
const checkTimeout = 2 * time.Second

// PredictionReporter reports the traffic prediction service state.
type PredictionReporter interface {
	Health(ctx context.Context) (*prediction.HealthStatus, error)
	ModelInfo(ctx context.Context) (*prediction.ModelInfo, error)
}

// Pinger is a dependency that can be probed for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsConfig holds the dependencies reported by the ops endpoints.
// All fields except the build info are optional.
type OpsConfig struct {
	Version    string
	BuildTime  string
	Registry   *resilience.Registry
	Prediction PredictionReporter
	Database   Pinger
	Logger     zerolog.Logger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Now(),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// Only the database gates readiness; external providers degrade gracefully.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Now(),
	}

	if db := h.database(r.Context()); db != nil && db.Status == models.HealthStatusFail {
		health.Status = models.HealthStatusFail
		health.Details = map[string]any{"database": *db.Detail}
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Now(),
		Subsystems: []models.SubsystemStatus{},
		Providers:  h.providers(),
	}

	if db := h.database(r.Context()); db != nil {
		status.Subsystems = append(status.Subsystems, *db)
	}
	status.Prediction = h.prediction(r.Context())

	for _, s := range status.Subsystems {
		status.Status = worst(status.Status, s.Status)
	}
	for _, p := range status.Providers {
		status.Status = worst(status.Status, degradeOnly(p.Status))
	}
	if status.Prediction != nil {
		status.Status = worst(status.Status, degradeOnly(status.Prediction.Status))
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) providers() []models.ProviderStatus {
	out := []models.ProviderStatus{}
	if h.cfg.Registry == nil {
		return out
	}
	for _, ph := range h.cfg.Registry.All() {
		ps := models.ProviderStatus{
			Provider:            ph.Name,
			Status:              models.HealthStatusOK,
			CircuitState:        ph.CircuitState.String(),
			Requests:            ph.Counts.Requests,
			ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
			LastSuccessAt:       timestampPtr(ph.LastSuccessAt),
			LastFailureAt:       timestampPtr(ph.LastFailureAt),
		}
		switch ph.Status() {
		case resilience.StatusUnhealthy:
			ps.Status = models.HealthStatusFail
		case resilience.StatusDegraded:
			ps.Status = models.HealthStatusDegraded
		}
		if ph.LastError != "" {
			msg := ph.LastError
			ps.Message = &msg
		}
		out = append(out, ps)
	}
	return out
}

func (h *OpsHandler) database(ctx context.Context) *models.SubsystemStatus {
	if h.cfg.Database == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	s := &models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
	if err := h.cfg.Database.Ping(ctx); err != nil {
		h.cfg.Logger.Warn().Err(err).Msg("database ping failed")
		detail := err.Error()
		s.Status = models.HealthStatusFail
		s.Detail = &detail
	}
	return s
}

func (h *OpsHandler) prediction(ctx context.Context) *models.PredictionStatus {
	if h.cfg.Prediction == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	ps := &models.PredictionStatus{Status: models.HealthStatusOK}
	health, err := h.cfg.Prediction.Health(ctx)
	if err != nil {
		msg := err.Error()
		ps.Status = models.HealthStatusFail
		ps.Message = &msg
		return ps
	}
	ps.ModelsLoaded = health.ModelsLoaded
	if !health.ModelsLoaded {
		ps.Status = models.HealthStatusDegraded
	}

	info, err := h.cfg.Prediction.ModelInfo(ctx)
	if err != nil {
		h.cfg.Logger.Debug().Err(err).Msg("model info unavailable")
		return ps
	}
	ps.TrafficModel = info.TrafficModel.Type
	ps.RouteModel = info.RouteModel.Type
	return ps
}

// degradeOnly caps an optional dependency's failure at DEGRADED: the
// pipeline still answers without it.
func degradeOnly(s models.HealthStatus) models.HealthStatus {
	if s == models.HealthStatusFail {
		return models.HealthStatusDegraded
	}
	return s
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	rank := map[models.HealthStatus]int{
		models.HealthStatusOK:       0,
		models.HealthStatusDegraded: 1,
		models.HealthStatusFail:     2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func timestampPtr(t *time.Time) *models.Timestamp {
	if t == nil {
		return nil
	}
	ts := models.Timestamp(*t)
	return &ts
}
