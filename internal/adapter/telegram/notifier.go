package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"maternal-care-agent/internal/usecase/escalation"
)

// Notifier posts high-risk alerts to a health worker chat.
type Notifier struct {
	api    Sender
	chatID int64
}

var _ escalation.Notifier = (*Notifier)(nil)

func NewNotifier(api Sender, chatID int64) *Notifier {
	return &Notifier{api: api, chatID: chatID}
}

func (n *Notifier) Notify(ctx context.Context, alert escalation.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.api.Send(tgbotapi.NewMessage(n.chatID, formatAlert(alert))); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}

func formatAlert(a escalation.Alert) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s risk: %s\n", a.Risk, a.Condition)
	fmt.Fprintf(&sb, "Patient: %s\n", a.PatientID)
	if a.SessionID != "" {
		fmt.Fprintf(&sb, "Session: %s\n", a.SessionID)
	}
	if a.Location != nil {
		fmt.Fprintf(&sb, "Location: https://maps.google.com/?q=%.5f,%.5f\n", a.Location.Lat, a.Location.Lng)
	}
	sb.WriteString(a.Recommendation)
	return sb.String()
}
