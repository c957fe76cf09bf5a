// Package history keeps a log of answered questions.
package history

import (
	"errors"
	"time"
)

// Limits for Recent.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidLimit is returned when a negative limit is requested.
var ErrInvalidLimit = errors.New("invalid history limit")

// Entry is one answered question.
type Entry struct {
	ID       int64     `json:"id"`
	Question string    `json:"question"`
	Response string    `json:"response"`
	Intent   string    `json:"intent"`
	AskedAt  time.Time `json:"askedAt"`
}

// ClampLimit applies the default and maximum to a requested limit.
// Zero selects DefaultLimit.
func ClampLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, ErrInvalidLimit
	case limit == 0:
		return DefaultLimit, nil
	case limit > MaxLimit:
		return MaxLimit, nil
	}
	return limit, nil
}
