package plan

import "errors"

var (
	ErrEmptyPlan = errors.New("plan has no steps")
	ErrDecode    = errors.New("decode plan")
)
