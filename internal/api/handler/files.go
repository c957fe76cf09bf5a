package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/api/models"
	"github.com/argodesk/argodesk/internal/api/response"
	"github.com/argodesk/argodesk/internal/argofloat"
)

// uploadField is the multipart field that carries the profile file.
const uploadField = "file"

// FileHandler handles profile file uploads.
type FileHandler struct {
	floats *argofloat.Service
	logger zerolog.Logger
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(floats *argofloat.Service, logger zerolog.Logger) *FileHandler {
	return &FileHandler{floats: floats, logger: logger}
}

// Upload handles POST /v1/files - store and ingest one NetCDF profile file.
// The file is streamed to the data directory; size limits are enforced there.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		response.BadRequest(w, r, "expected a multipart/form-data body", nil)
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			response.BadRequest(w, r, "malformed multipart body", nil)
			return
		}
		if part.FormName() != uploadField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		res, err := h.floats.Upload(r.Context(), part.FileName(), part)
		_ = part.Close()
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeIngestResult(w, r, res)
		return
	}

	response.BadRequest(w, r, "file is required", []models.FieldError{
		{Field: uploadField, Message: "required", Code: "REQUIRED"},
	})
}

// writeIngestResult answers 201 for a new record and 200 for an overwrite.
func writeIngestResult(w http.ResponseWriter, r *http.Request, res *argofloat.IngestResult) {
	body := models.IngestResponse{
		Message:        res.Message(),
		ID:             res.Record.ID,
		PlatformNumber: res.Record.PlatformNumber,
		CycleNumber:    res.Record.CycleNumber,
		Created:        res.Inserted,
	}
	if res.Inserted {
		response.Created(w, r, fmt.Sprintf("/v1/floats/%d", res.Record.ID), body)
		return
	}
	response.JSON(w, r, http.StatusOK, body)
}
