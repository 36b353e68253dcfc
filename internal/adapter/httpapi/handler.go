// Package httpapi exposes the conversation and triage operations over HTTP
// and WebSocket.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"maternal-care-agent/internal/adapter/places"
	"maternal-care-agent/internal/domain"
	"maternal-care-agent/internal/usecase/chat"
	"maternal-care-agent/internal/usecase/escalation"
	"maternal-care-agent/internal/usecase/triage"
)

// Geocoder resolves a free-form address.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (places.GeocodeResult, error)
}

type Handler struct {
	chat     *chat.Service
	triage   *triage.Service
	finder   escalation.FacilityFinder
	geocoder Geocoder
	patients domain.PatientDirectory
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

// NewHandler wires the handlers. geocoder may be nil. WebSocket connections
// from browsers are accepted only from allowedOrigins.
func NewHandler(chatSvc *chat.Service, triageSvc *triage.Service, finder escalation.FacilityFinder, geocoder Geocoder, patients domain.PatientDirectory, allowedOrigins []string, log logrus.FieldLogger) *Handler {
	return &Handler{
		chat:     chatSvc,
		triage:   triageSvc,
		finder:   finder,
		geocoder: geocoder,
		patients: patients,
		log:      log,
		upgrader: newUpgrader(allowedOrigins),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.POST("/chat/initialize", h.InitializeChat)
	api.POST("/chat/message", h.SendMessage)
	api.GET("/chat/sessions/:session_id", h.GetSession)
	api.PATCH("/chat/sessions/:session_id/context", h.UpdateContext)

	api.POST("/analyze-symptoms", h.AnalyzeSymptoms)
	api.POST("/nearby-clinics", h.NearbyClinics)
	api.GET("/patient/:patient_id", h.GetPatient)
	api.GET("/geocode/:address", h.Geocode)

	e.GET("/ws/chat", h.ChatSocket)
}

func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Sauti Ya Mama API is running!"})
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrPatientNotFound),
		errors.Is(err, places.ErrAddressNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c echo.Context, err error) error {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.Path()).Error("request failed")
		resp.Error = "internal error"
	}
	return c.JSON(status, resp)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}
