package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"maternal-care-agent/internal/config"
	"maternal-care-agent/internal/domain"
	"maternal-care-agent/internal/usecase/chat"
	"maternal-care-agent/internal/usecase/triage"
)

const chunkSize = 2048

// Sender is the subset of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot is the patient-facing Telegram front end. Each chat maps to one
// conversation session.
type Bot struct {
	api    Sender
	cfg    config.Config
	chat   *chat.Service
	triage *triage.Service
	log    logrus.FieldLogger

	mu       sync.Mutex
	sessions map[int64]string
}

func NewBot(api Sender, cfg config.Config, chatSvc *chat.Service, triageSvc *triage.Service, log logrus.FieldLogger) *Bot {
	return &Bot{
		api:      api,
		cfg:      cfg,
		chat:     chatSvc,
		triage:   triageSvc,
		log:      log,
		sessions: make(map[int64]string),
	}
}

// Run polls updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context, api *tgbotapi.BotAPI) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil || update.Message.Chat == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !isAllowedChat(chatID, b.cfg) {
		b.sendText(chatID, msg.MessageID, "access denied")
		return
	}

	switch {
	case msg.Location != nil:
		b.handleLocation(ctx, msg)
	case msg.IsCommand() && msg.Command() == "start":
		b.resetSession(chatID)
		b.sendText(chatID, msg.MessageID, "Habari! I am Sauti ya Mama. Tell me how you are feeling, or share your location to find a clinic.")
	case msg.IsCommand() && msg.Command() == "triage":
		b.handleTriage(ctx, msg)
	default:
		b.handleChat(ctx, msg)
	}
}

func (b *Bot) handleChat(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	b.sendChatAction(chatID)

	res, err := b.chat.HandleMessage(ctx, chat.Request{
		SessionID: b.session(chatID),
		PatientID: patientID(chatID),
		Text:      msg.Text,
	})
	if errors.Is(err, domain.ErrSessionNotFound) {
		b.resetSession(chatID)
		res, err = b.chat.HandleMessage(ctx, chat.Request{PatientID: patientID(chatID), Text: msg.Text})
	}
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			b.sendText(chatID, msg.MessageID, "Please send me a text message describing how you feel.")
			return
		}
		b.log.WithError(err).WithField("chat_id", chatID).Error("chat failed")
		b.sendText(chatID, msg.MessageID, "Sorry, something went wrong. If this is an emergency, go to the nearest hospital.")
		return
	}
	b.remember(chatID, res.SessionID)

	b.sendText(chatID, msg.MessageID, res.Reply)
	if res.Escalation != nil {
		if len(res.Escalation.Facilities) > 0 {
			b.sendText(chatID, 0, formatFacilities(res.Escalation.Facilities))
		}
		b.sendAudio(chatID, res.Escalation.AudioAlert)
	}
}

func (b *Bot) handleTriage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.sendText(chatID, msg.MessageID, "Usage: /triage <describe your symptoms>")
		return
	}

	out, err := b.triage.Triage(ctx, patientID(chatID), text)
	if err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Error("triage failed")
		b.sendText(chatID, msg.MessageID, "Sorry, I could not assess that right now.")
		return
	}

	b.sendText(chatID, msg.MessageID, fmt.Sprintf("Risk: %s\n%s", out.Diagnosis.Risk, out.Diagnosis.Recommendation))
	b.sendAudio(chatID, out.AudioAlert)
}

func (b *Bot) handleLocation(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	id := b.session(chatID)
	if id == "" {
		var err error
		id, err = b.chat.StartSession(ctx, patientID(chatID))
		if err != nil {
			b.log.WithError(err).Error("failed to start session")
			return
		}
		b.remember(chatID, id)
	}

	loc := domain.Coordinate{Lat: msg.Location.Latitude, Lng: msg.Location.Longitude}
	if err := b.chat.UpdateContext(ctx, id, domain.Context{domain.ContextLocation: loc}); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("failed to store location")
	}
	b.sendText(chatID, msg.MessageID, "Thank you, I saved your location. Ask me to find a clinic near you at any time.")
}

func (b *Bot) session(chatID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[chatID]
}

func (b *Bot) remember(chatID int64, sessionID string) {
	b.mu.Lock()
	b.sessions[chatID] = sessionID
	b.mu.Unlock()
}

func (b *Bot) resetSession(chatID int64) {
	b.mu.Lock()
	delete(b.sessions, chatID)
	b.mu.Unlock()
}

func (b *Bot) sendText(chatID int64, replyTo int, text string) {
	for idx, chunk := range splitText(text, chunkSize) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if idx == 0 && replyTo != 0 {
			msg.ReplyToMessageID = replyTo
		}
		if _, err := b.api.Send(msg); err != nil {
			b.log.WithError(err).Warn("failed to send reply")
		}
	}
}

func (b *Bot) sendAudio(chatID int64, audio []byte) {
	if len(audio) == 0 {
		return
	}
	format := b.cfg.TTSFormat
	if format == "" {
		format = "mp3"
	}
	voice := tgbotapi.NewAudio(chatID, tgbotapi.FileBytes{Name: "alert." + format, Bytes: audio})
	if _, err := b.api.Send(voice); err != nil {
		b.log.WithError(err).Warn("failed to send audio alert")
	}
}

func (b *Bot) sendChatAction(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.log.WithError(err).Debug("failed to send chat action")
	}
}

func patientID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func isAllowedChat(chatID int64, cfg config.Config) bool {
	if len(cfg.AllowedChatIDs) == 0 {
		return true
	}
	for _, id := range cfg.AllowedChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

func formatFacilities(facilities []domain.Facility) string {
	var sb strings.Builder
	sb.WriteString("Nearby health facilities:\n")
	for i, f := range facilities {
		if i == 5 {
			break
		}
		fmt.Fprintf(&sb, "%d. %s (%.2f km)", i+1, f.Name, f.DistanceKm)
		if f.Address != "" {
			sb.WriteString(" - " + f.Address)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func splitText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	chunks := make([]string, 0, len(runes)/chunkSize+1)
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
