package service

import (
	"errors"
	"fmt"

	"github.com/okian/drillsheet/internal/domain/plan"
)

// Sentinel errors. Everything wrapping ErrBadRequest is the caller's fault.
var (
	ErrBadRequest     = errors.New("bad request")
	ErrEmptyChallenge = fmt.Errorf("%w: challenge is empty", ErrBadRequest)
	ErrInvalidPlan    = fmt.Errorf("%w: %v", ErrBadRequest, plan.ErrEmptyPlan)
	ErrStepOutOfRange = fmt.Errorf("%w: step out of range", ErrBadRequest)
	ErrBackpressure   = errors.New("too many generation requests in flight")
	ErrNotStarted     = errors.New("service not started")
)
