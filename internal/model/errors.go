package model

import (
	"errors"
)

var (
	ErrISOFormat          = errors.New("invalid ISO8601 duration")
	ErrUnsupportedVersion = errors.New("unsupported config version")
	ErrInvalidTick        = errors.New("simulation tick must be positive")
)
