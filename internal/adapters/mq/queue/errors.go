package queue

import "errors"

var (
	ErrFull   = errors.New("queue full")
	ErrClosed = errors.New("queue closed")
)
