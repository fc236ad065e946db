package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/etraincon/learning-service/internal/mail"
)

// MailWorker sends the password reset mail off the request path.
type MailWorker struct {
	mailer  mail.Mailer
	siteURL string
	logger  *slog.Logger
}

func NewMailWorker(mailer mail.Mailer, siteURL string, logger *slog.Logger) *MailWorker {
	return &MailWorker{mailer: mailer, siteURL: siteURL, logger: logger}
}

func (w *MailWorker) Handlers() []Handler {
	return []Handler{{
		Name:  "mail.password_reset",
		Topic: TopicPasswordResetRequested,
		Func:  w.HandlePasswordReset,
	}}
}

func (w *MailWorker) HandlePasswordReset(msg *message.Message) error {
	event, err := decodeEvent(msg)
	if err != nil {
		// Undecodable payloads never succeed on retry.
		w.logger.Error("Discarding malformed event", "error", err)
		return nil
	}
	var data PasswordResetRequested
	if err := event.DecodeData(&data); err != nil {
		w.logger.Error("Discarding malformed event", "error", err)
		return nil
	}

	expiresIn := time.Until(data.ExpiresAt).Round(time.Minute)
	if expiresIn <= 0 {
		w.logger.Info("Skipping expired password reset", "user_id", data.UserID)
		return nil
	}

	body, err := mail.PasswordResetBody(data.Username, mail.PasswordResetLink(w.siteURL, data.Token), formatDuration(expiresIn))
	if err != nil {
		return err
	}
	if err := w.mailer.SendTo(msg.Context(), mail.PasswordResetSubject, body, data.Email); err != nil {
		return fmt.Errorf("password reset mail for user %d: %w", data.UserID, err)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}

// AuditHandler writes one log line for every event on every topic.
type AuditHandler struct {
	logger *slog.Logger
}

func NewAuditHandler(logger *slog.Logger) *AuditHandler {
	return &AuditHandler{logger: logger}
}

func (a *AuditHandler) Handlers() []Handler {
	handlers := make([]Handler, 0, len(AllTopics))
	for _, topic := range AllTopics {
		handlers = append(handlers, Handler{
			Name:  "audit." + topic,
			Topic: topic,
			Func:  a.Handle,
		})
	}
	return handlers
}

func (a *AuditHandler) Handle(msg *message.Message) error {
	event, err := decodeEvent(msg)
	if err != nil {
		a.logger.Warn("Audit: malformed event", "message_id", msg.UUID, "error", err)
		return nil
	}
	a.logger.Info("Audit event",
		"event_id", event.ID,
		"type", event.Type,
		"source", event.Source,
		"timestamp", event.Timestamp,
		"data", redactData(event.Data))
	return nil
}

// redactedFields never reach the audit log.
var redactedFields = map[string]bool{
	"token":    true,
	"password": true,
}

func redactData(raw json.RawMessage) string {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "[unreadable]"
	}
	for k := range fields {
		if redactedFields[k] {
			fields[k] = "[REDACTED]"
		}
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return "[unreadable]"
	}
	return string(out)
}
