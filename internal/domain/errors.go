package domain

import "errors"

var (
	ErrRunNotFound    = errors.New("run not found")
	ErrWorkerNotFound = errors.New("worker not found")
)
