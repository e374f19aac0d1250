package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/drillsheet/internal/adapters/llm"
	service "github.com/okian/drillsheet/internal/app"
	"github.com/okian/drillsheet/internal/domain/diagram"
	"github.com/okian/drillsheet/internal/domain/plan"
)

// Sentinel kinds for API errors.
var (
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrInvalidStep      = errors.New("step must be a positive integer")
)

// emptyChallengeMessage is shown when the challenge field is blank.
const emptyChallengeMessage = "練習課題を入力してください"

// failure maps a pipeline error onto a status, code and message.
func failure(err error) (int, string, string) {
	switch {
	case errors.Is(err, service.ErrEmptyChallenge):
		return http.StatusBadRequest, "bad_request", emptyChallengeMessage
	case errors.Is(err, service.ErrBadRequest),
		errors.Is(err, plan.ErrDecode),
		errors.Is(err, plan.ErrEmptyPlan),
		errors.Is(err, diagram.ErrUnknownPlayer),
		errors.Is(err, ErrInvalidStep):
		return http.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure", err.Error()
	case errors.Is(err, llm.ErrNotConfigured):
		return http.StatusServiceUnavailable, "not_configured", err.Error()
	default:
		return http.StatusInternalServerError, "generation_failed", fmt.Sprintf("生成エラー: %v", err)
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	status, code, msg := failure(err)
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
