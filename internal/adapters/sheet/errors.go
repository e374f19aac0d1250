package sheet

import "errors"

var (
	ErrNilPlan = errors.New("sheet: nil plan")
	ErrScratch = errors.New("sheet: scratch directory")
)
