package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/drillsheet/internal/domain/plan"
	"github.com/okian/drillsheet/pkg/logger"
)

// PreviewHandler renders one step of a plan as PNG.
type PreviewHandler struct {
	gen     Generator
	timeout time.Duration
	logger  logger.Logger
}

// HandlePreview handles POST /api/preview?step=N requests. N defaults to 1.
func (h *PreviewHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	step := 1
	if raw := r.URL.Query().Get("step"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeFailure(w, fmt.Errorf("%w: %q", ErrInvalidStep, raw))
			return
		}
		step = n
	}
	p, err := plan.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeFailure(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	img, err := h.gen.Preview(ctx, p, step)
	if err != nil {
		h.logger.Warn(ctx, "preview failed", logger.Int("step", step), logger.Error(err))
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}
