package domain

import "errors"

var ErrInvalidRepo = errors.New("invalid repository identifier")
