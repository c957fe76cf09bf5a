package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/api/models"
	"github.com/argodesk/argodesk/internal/api/response"
	"github.com/argodesk/argodesk/internal/argofloat"
)

// FloatHandler handles stored float endpoints.
type FloatHandler struct {
	floats *argofloat.Service
	logger zerolog.Logger
}

// NewFloatHandler creates a new FloatHandler.
func NewFloatHandler(floats *argofloat.Service, logger zerolog.Logger) *FloatHandler {
	return &FloatHandler{floats: floats, logger: logger}
}

// ListFloats handles GET /v1/floats - list floats, optionally by year and month.
func (h *FloatHandler) ListFloats(w http.ResponseWriter, r *http.Request) {
	var filter argofloat.ListFilter
	var fieldErrors []models.FieldError
	for _, p := range []struct {
		name string
		dst  *int
	}{{"year", &filter.Year}, {"month", &filter.Month}} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{Field: p.name, Message: "must be an integer", Code: "INVALID"})
			continue
		}
		*p.dst = v
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}

	recs, err := h.floats.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	list := models.FloatList{Items: make([]models.Float, 0, len(recs)), Count: len(recs)}
	for _, rec := range recs {
		list.Items = append(list.Items, toFloat(rec))
	}
	response.JSON(w, r, http.StatusOK, list)
}

// GetFloat handles GET /v1/floats/{floatId}.
func (h *FloatHandler) GetFloat(w http.ResponseWriter, r *http.Request) {
	id, ok := floatID(w, r)
	if !ok {
		return
	}
	rec, err := h.floats.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toFloat(rec))
}

// DeleteFloat handles DELETE /v1/floats/{floatId} - delete the record and its file.
func (h *FloatHandler) DeleteFloat(w http.ResponseWriter, r *http.Request) {
	id, ok := floatID(w, r)
	if !ok {
		return
	}
	rec, err := h.floats.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.MessageResponse{
		Message: fmt.Sprintf("Float %s deleted successfully", rec.PlatformNumber),
	})
}

// GetProfile handles GET /v1/floats/{floatId}/profile - all profile series.
func (h *FloatHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := floatID(w, r)
	if !ok {
		return
	}
	rec, err := h.floats.Profile(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.FloatProfile{
		PlatformNumber: rec.PlatformNumber,
		ProfileData:    toProfileData(rec.Profile),
	})
}

// GetParameterProfile handles GET /v1/floats/{floatId}/profile/{parameter}.
func (h *FloatHandler) GetParameterProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := floatID(w, r)
	if !ok {
		return
	}
	rec, code, series, err := h.floats.ProfileParameter(r.Context(), id, chi.URLParam(r, "parameter"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.ParameterProfile{
		PlatformNumber: rec.PlatformNumber,
		Parameter:      code,
		Data:           toSeries(series),
	})
}

// CompareFloats handles GET /v1/comparisons/{floatIds} - e.g. /v1/comparisons/1,2,3.
// The response is keyed by platform number.
func (h *FloatHandler) CompareFloats(w http.ResponseWriter, r *http.Request) {
	recs, err := h.floats.Compare(r.Context(), chi.URLParam(r, "floatIds"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out := make(map[string]models.ComparisonEntry, len(recs))
	for _, rec := range recs {
		out[rec.PlatformNumber] = models.ComparisonEntry{
			ProfileData: toProfileData(rec.Profile),
			Position:    toPosition(rec.Position),
			Date:        models.TimestampPtr(rec.ObservationTime),
			CycleNumber: rec.CycleNumber,
		}
	}
	response.JSON(w, r, http.StatusOK, out)
}

// GetTrajectory handles GET /v1/trajectories/{date} - positions on one UTC day.
func (h *FloatHandler) GetTrajectory(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "date")
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		response.BadRequest(w, r, "date must be formatted as YYYY-MM-DD", []models.FieldError{
			{Field: "date", Message: "must be YYYY-MM-DD", Code: "INVALID"},
		})
		return
	}

	traj, err := h.floats.Trajectory(r.Context(), day)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out := models.Trajectory{
		Date:   traj.Date.Format(time.DateOnly),
		Points: make([]models.TrajectoryPoint, 0, len(traj.Points)),
	}
	for _, p := range traj.Points {
		out.Points = append(out.Points, models.TrajectoryPoint{
			FloatID:        p.FloatID,
			PlatformNumber: p.PlatformNumber,
			CycleNumber:    p.CycleNumber,
			Position:       [2]float64{p.Position.Lat, p.Position.Lon},
			Time:           models.Timestamp(p.Time),
		})
	}
	if traj.Center != nil {
		out.Center = &[2]float64{traj.Center.Lat, traj.Center.Lon}
	} else {
		out.Message = "No trajectory data for this date."
	}
	response.JSON(w, r, http.StatusOK, out)
}

// floatID parses the {floatId} path parameter, writing a 400 when it is not a positive integer.
func floatID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "floatId"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, r, "floatId must be a positive integer", []models.FieldError{
			{Field: "floatId", Message: "must be a positive integer", Code: "INVALID"},
		})
		return 0, false
	}
	return id, true
}
