package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// SystemHandler handles health and build information endpoints
type SystemHandler struct {
	BaseHandler
	version   string
	startTime time.Time
	checks    map[string]HealthCheck
	timeout   time.Duration
}

// NewSystemHandler creates a new SystemHandler. checks are probed by Health.
func NewSystemHandler(version string, checks map[string]HealthCheck, log *zap.Logger) *SystemHandler {
	return &SystemHandler{
		BaseHandler: newBase(log),
		version:     version,
		startTime:   time.Now(),
		checks:      checks,
		timeout:     2 * time.Second,
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string            `json:"status" example:"ok"`
	Version   string            `json:"version" example:"1.0.0"`
	GoVersion string            `json:"go_version" example:"go1.25.5"`
	Uptime    string            `json:"uptime" example:"1h30m45s"`
	Checks    map[string]string `json:"checks"`
}

// Health godoc
//
//	@ID				health
//	@Summary		Health check
//	@Description	Probes the database and cache. Answers 503 when any probe fails.
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	dto.Response{data=HealthResponse}
//	@Failure		503	{object}	dto.Response{data=HealthResponse}
//	@Router			/health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status:    "ok",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    make(map[string]string, len(names)),
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "up"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.NewSuccessResponse(resp))
}
