package httpapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"maternal-care-agent/internal/domain"
)

const directLookupRadius = 10000

type symptomRequest struct {
	PatientID   string `json:"patient_id"`
	SymptomText string `json:"symptom_text"`
}

// AnalyzeSymptoms runs a one-shot triage. audio_alert is base64 encoded by
// encoding/json.
func (h *Handler) AnalyzeSymptoms(c echo.Context) error {
	var req symptomRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	out, err := h.triage.Triage(c.Request().Context(), req.PatientID, req.SymptomText)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type clinicRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Radius    int      `json:"radius"`
}

func (h *Handler) NearbyClinics(c echo.Context) error {
	var req clinicRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Latitude == nil || req.Longitude == nil {
		return h.fail(c, domain.NewValidationError("latitude", "latitude and longitude are required"))
	}
	if req.Radius <= 0 {
		req.Radius = directLookupRadius
	}

	clinics, err := h.finder.FindNearby(c.Request().Context(), *req.Latitude, *req.Longitude, req.Radius)
	if err != nil {
		return h.fail(c, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err))
	}
	if clinics == nil {
		clinics = []domain.Facility{}
	}
	return c.JSON(http.StatusOK, map[string]any{"clinics": clinics})
}

func (h *Handler) GetPatient(c echo.Context) error {
	rec, err := h.patients.Get(c.Request().Context(), c.Param("patient_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Geocode(c echo.Context) error {
	if h.geocoder == nil {
		return h.fail(c, fmt.Errorf("%w: geocoding is not configured", domain.ErrUpstreamUnavailable))
	}
	res, err := h.geocoder.Geocode(c.Request().Context(), c.Param("address"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
