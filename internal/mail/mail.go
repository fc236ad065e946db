package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"net/url"

	"github.com/dajohi/goemail"

	"github.com/etraincon/learning-service/internal/config"
)

// Mailer sends plain-text mail.
type Mailer interface {
	SendTo(ctx context.Context, subject, body string, recipients ...string) error
	IsEnabled() bool
}

var ErrNoRecipients = errors.New("no recipients")

// Client is an SMTP mailer. With no SMTP credentials configured it only logs the
// messages it would have sent.
type Client struct {
	smtp        *goemail.SMTP
	mailName    string
	mailAddress string
	disabled    bool
	logger      *slog.Logger
}

// NewClient builds a mailer from the mail settings.
func NewClient(cfg config.MailConfig, logger *slog.Logger) (*Client, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Password == "" {
		logger.Warn("SMTP not configured, mail will be logged instead of sent")
		return &Client{disabled: true, logger: logger}, nil
	}

	u := url.URL{
		Scheme: "smtps",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host,
	}

	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	a, err := netmail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid MAIL_FROM: %w", err)
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.SkipVerify}
	client, err := goemail.NewSMTP(u.String(), tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return &Client{
		smtp:        client,
		mailName:    a.Name,
		mailAddress: a.Address,
		logger:      logger,
	}, nil
}

func (c *Client) IsEnabled() bool {
	return !c.disabled
}

func (c *Client) SendTo(ctx context.Context, subject, body string, recipients ...string) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	if c.disabled {
		c.logger.InfoContext(ctx, "Mail not sent (SMTP disabled)",
			"subject", subject,
			"recipients", recipients,
			"body", body)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := goemail.NewMessage(c.mailAddress, subject, body)
	for _, r := range recipients {
		msg.AddTo(r)
	}
	msg.SetName(c.mailName)

	if err := c.smtp.Send(msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	c.logger.InfoContext(ctx, "Mail sent", "subject", subject, "recipients", len(recipients))
	return nil
}
