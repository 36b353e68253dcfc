package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"maternal-care-agent/internal/domain"
)

const (
	wsReadLimit    = 64 * 1024
	wsWriteTimeout = 10 * time.Second
)

// newUpgrader accepts connections without an Origin header (non-browser
// clients) and browser connections from the allowed origins.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// socketFrame is both the inbound message and the outbound reply or error.
type socketFrame struct {
	Type    string           `json:"type"`
	Message *messageResponse `json:"message,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// ChatSocket accepts messageRequest frames and answers each with a reply
// frame. The session opened by the first frame is reused for the rest of the
// connection.
func (h *Handler) ChatSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		h.log.WithError(err).Warn("websocket upgrade failed")
		return nil
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	ctx := c.Request().Context()
	var sessionID string
	for {
		var req messageRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).Warn("websocket read failed")
			}
			return nil
		}
		if req.SessionID == "" {
			req.SessionID = sessionID
		}
		if req.PatientID == "" {
			req.PatientID = demoPatient
		}

		frame := socketFrame{Type: "reply"}
		res, err := h.chat.HandleMessage(ctx, req.toChat())
		if err != nil {
			frame = socketFrame{Type: "error", Error: socketError(err)}
		} else {
			sessionID = res.SessionID
			out := newMessageResponse(res)
			frame.Message = &out
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			h.log.WithFields(logrus.Fields{"session_id": sessionID}).WithError(err).Warn("websocket write failed")
			return nil
		}
	}
}

func socketError(err error) string {
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrSessionNotFound) {
		return err.Error()
	}
	return "internal error"
}
