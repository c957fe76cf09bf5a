package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/api/response"
	"github.com/argodesk/argodesk/internal/argofile"
	"github.com/argodesk/argodesk/internal/argofloat"
	"github.com/argodesk/argodesk/internal/datafile"
	"github.com/argodesk/argodesk/internal/history"
)

// writeError maps a service error to a problem response.
// Unrecognised errors are logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var parseErr *argofile.ParseError
	switch {
	case errors.Is(err, argofloat.ErrFloatNotFound):
		response.NotFound(w, r, "float not found")
	case errors.Is(err, argofloat.ErrNoProfileData):
		response.NotFound(w, r, "no profile data available")
	case errors.As(err, &parseErr):
		response.UnprocessableEntity(w, r, parseErr.Error())
	case errors.Is(err, argofloat.ErrInvalidInput),
		errors.Is(err, datafile.ErrInvalidName),
		errors.Is(err, datafile.ErrTooLarge),
		errors.Is(err, history.ErrInvalidLimit):
		response.BadRequest(w, r, err.Error(), nil)
	default:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		response.InternalError(w, r, "internal server error")
	}
}
