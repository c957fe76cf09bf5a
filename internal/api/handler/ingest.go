package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/api/models"
	"github.com/argodesk/argodesk/internal/api/response"
	"github.com/argodesk/argodesk/internal/argofloat"
	"github.com/argodesk/argodesk/internal/fetch"
	"github.com/argodesk/argodesk/internal/resilience"
)

// IngestHandler ingests files from remote archives.
type IngestHandler struct {
	fetcher *fetch.Fetcher
	floats  *argofloat.Service
	logger  zerolog.Logger
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(fetcher *fetch.Fetcher, floats *argofloat.Service, logger zerolog.Logger) *IngestHandler {
	return &IngestHandler{fetcher: fetcher, floats: floats, logger: logger}
}

// CreateIngestJob handles POST /v1/ingest-jobs - download one file and ingest it.
// The download runs synchronously within the request.
func (h *IngestHandler) CreateIngestJob(w http.ResponseWriter, r *http.Request) {
	var input models.IngestJobRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if strings.TrimSpace(input.URL) == "" {
		response.BadRequest(w, r, "url is required", []models.FieldError{
			{Field: "url", Message: "required", Code: "REQUIRED"},
		})
		return
	}

	dl, err := h.fetcher.Open(r.Context(), input.URL)
	if err != nil {
		switch {
		case errors.Is(err, argofloat.ErrInvalidInput):
			response.BadRequest(w, r, err.Error(), []models.FieldError{
				{Field: "url", Message: "must be an http, https or ftp file URL", Code: "INVALID"},
			})
		case errors.Is(err, resilience.ErrCircuitOpen):
			response.ServiceUnavailable(w, r, "remote source temporarily unavailable")
		default:
			response.BadGateway(w, r, err.Error())
		}
		return
	}
	defer dl.Body.Close()

	res, err := h.floats.Upload(r.Context(), dl.Name, dl.Body)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeIngestResult(w, r, res)
}
