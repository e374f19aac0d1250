package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	service "github.com/okian/drillsheet/internal/app"
	"github.com/okian/drillsheet/internal/domain/plan"
	"github.com/okian/drillsheet/pkg/logger"
)

// generateRequest mirrors the OpenAPI schema for POST /api/generate.
type generateRequest struct {
	Challenge string `json:"challenge"`
}

// GenerateHandler handles challenge-to-workbook requests.
type GenerateHandler struct {
	gen     Generator
	timeout time.Duration
	logger  logger.Logger
}

// HandleGenerate handles POST /api/generate requests.
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid request body: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.gen.Do(ctx, func(ctx context.Context) (*service.Result, error) {
		return h.gen.Generate(ctx, req.Challenge)
	})
	if err != nil {
		h.logger.Warn(ctx, "generate failed", logger.Error(err))
		writeFailure(w, err)
		return
	}
	writeWorkbook(w, res)
}

// RenderHandler handles plan-to-workbook requests.
type RenderHandler struct {
	gen     Generator
	timeout time.Duration
	logger  logger.Logger
}

// HandleRender handles POST /api/render requests.
func (h *RenderHandler) HandleRender(w http.ResponseWriter, r *http.Request) {
	p, err := plan.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeFailure(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.gen.Do(ctx, func(ctx context.Context) (*service.Result, error) {
		return h.gen.GenerateFromPlan(ctx, p)
	})
	if err != nil {
		h.logger.Warn(ctx, "render failed", logger.Error(err))
		writeFailure(w, err)
		return
	}
	writeWorkbook(w, res)
}
