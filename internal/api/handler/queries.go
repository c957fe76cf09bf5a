package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/api/models"
	"github.com/argodesk/argodesk/internal/api/response"
	"github.com/argodesk/argodesk/internal/history"
	"github.com/argodesk/argodesk/internal/query"
)

// maxQuestionBytes bounds the JSON body of a question.
const maxQuestionBytes = 16 << 10

// QueryHandler answers free-text questions about stored floats.
type QueryHandler struct {
	processor *query.Processor
	history   *history.Service
	logger    zerolog.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(processor *query.Processor, hist *history.Service, logger zerolog.Logger) *QueryHandler {
	return &QueryHandler{processor: processor, history: hist, logger: logger}
}

// Ask handles POST /v1/queries - answer one question.
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var input models.QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBytes)).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	question := strings.TrimSpace(input.Question)
	if question == "" {
		response.BadRequest(w, r, "question is required", []models.FieldError{
			{Field: "question", Message: "required", Code: "REQUIRED"},
		})
		return
	}

	resp, err := h.processor.Process(r.Context(), question)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	intent := resp.Intent.String()
	h.history.Record(r.Context(), question, resp.Text, intent)

	response.JSON(w, r, http.StatusOK, models.QueryResponse{
		Response:       resp.Text,
		MapData:        resp.MapData,
		Visualizations: resp.Visualizations,
		Intent:         intent,
	})
}

// History handles GET /v1/queries/history - most recent questions first.
func (h *QueryHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, r, "limit must be an integer", []models.FieldError{
				{Field: "limit", Message: "must be an integer", Code: "INVALID"},
			})
			return
		}
		limit = v
	}

	entries, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	applied, _ := history.ClampLimit(limit)

	out := models.QueryHistory{Items: make([]models.QueryHistoryEntry, 0, len(entries)), Limit: applied}
	for _, e := range entries {
		out.Items = append(out.Items, models.QueryHistoryEntry{
			ID:       e.ID,
			Question: e.Question,
			Response: e.Response,
			Intent:   e.Intent,
			AskedAt:  models.Timestamp(e.AskedAt),
		})
	}
	response.JSON(w, r, http.StatusOK, out)
}
