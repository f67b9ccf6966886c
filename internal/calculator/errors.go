package calculator

import "errors"

var (
	// ErrInvalidPeriod is returned when a window length is not positive.
	ErrInvalidPeriod = errors.New("period must be positive")
	// ErrInsufficientData is returned when a series is shorter than the window.
	ErrInsufficientData = errors.New("not enough data")
)

var errInvalidMACD = errors.New("macd fast period must be shorter than slow period")
