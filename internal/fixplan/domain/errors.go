package domain

import "errors"

var (
	ErrPlanNotFound   = errors.New("fix plan not found")
	ErrInvalidPlanKey = errors.New("invalid plan key")
)
