package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"maternal-care-agent/internal/domain"
	"maternal-care-agent/internal/usecase/chat"
)

const demoPatient = "demo_user"

type initializeRequest struct {
	PatientID string `json:"patient_id"`
}

type initializeResponse struct {
	SessionID string `json:"session_id"`
	PatientID string `json:"patient_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

func (h *Handler) InitializeChat(c echo.Context) error {
	var req initializeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.PatientID) == "" {
		req.PatientID = demoPatient
	}

	id, err := h.chat.StartSession(c.Request().Context(), req.PatientID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, initializeResponse{
		SessionID: id,
		PatientID: req.PatientID,
		Status:    "initialized",
		Message:   "Chat session created successfully",
	})
}

type messageRequest struct {
	SessionID string   `json:"session_id"`
	PatientID string   `json:"patient_id"`
	Message   string   `json:"message"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r messageRequest) toChat() chat.Request {
	req := chat.Request{SessionID: r.SessionID, PatientID: r.PatientID, Text: r.Message}
	if r.Latitude != nil && r.Longitude != nil {
		req.Location = &domain.Coordinate{Lat: *r.Latitude, Lng: *r.Longitude}
	}
	return req
}

type messageResponse struct {
	Reply       string            `json:"reply"`
	SessionID   string            `json:"session_id"`
	Source      string            `json:"source"`
	Risk        domain.RiskTier   `json:"risk"`
	Condition   string            `json:"condition"`
	Hospitals   []domain.Facility `json:"hospitals"`
	AudioAlert  []byte            `json:"audio_alert,omitempty"`
	Unavailable []string          `json:"unavailable,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func newMessageResponse(res chat.Result) messageResponse {
	out := messageResponse{
		Reply:     res.Reply,
		SessionID: res.SessionID,
		Source:    res.Source,
		Risk:      res.Triage.Risk,
		Condition: res.Triage.Condition,
		Timestamp: res.Timestamp,
	}
	if res.Escalation != nil {
		out.Hospitals = res.Escalation.Facilities
		out.AudioAlert = res.Escalation.AudioAlert
		out.Unavailable = res.Escalation.Unavailable
	}
	return out
}

func (h *Handler) SendMessage(c echo.Context) error {
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.chat.HandleMessage(c.Request().Context(), req.toChat())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, newMessageResponse(res))
}

func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.chat.History(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) UpdateContext(c echo.Context) error {
	// body only: Bind would also copy the session_id path param into the map
	var partial map[string]any
	if err := (&echo.DefaultBinder{}).BindBody(c, &partial); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(partial) == 0 {
		return h.fail(c, domain.NewValidationError("context", "must not be empty"))
	}

	if err := h.chat.UpdateContext(c.Request().Context(), c.Param("session_id"), domain.Context(partial)); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}
