package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"

	"example.com/merchkit/services/quotes/config"

	"github.com/domodwyer/mailyak/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Template identifiers for the transactional emails the engine sends.
// The template content itself lives with the mail provider; this is only
// the send contract.
const (
	TemplateQuoteSent     = "quote_sent"
	TemplateExpiryWarning = "quote_expiry_warning"
	TemplateQuoteExpired  = "quote_expired"
)

// Mailer sends a templated email to a single recipient. A returned error
// means the message was not delivered and the caller may retry later.
type Mailer interface {
	Send(ctx context.Context, recipient, templateID string, data map[string]string) error
}

// SMTPMailer implements Mailer over SMTP
type SMTPMailer struct {
	cfg     config.SMTPConfig
	enabled bool
}

// NewMailer creates a mailer from config. When SMTP is disabled every
// send fails, leaving notifications unsent for retry once mail is
// configured.
func NewMailer(cfg config.SMTPConfig) *SMTPMailer {
	if !cfg.Enabled {
		log.Warn().Msg("SMTP is disabled, outgoing mail will not be delivered")
	}
	return &SMTPMailer{cfg: cfg, enabled: cfg.Enabled}
}

// Send delivers one email built from the template data.
func (m *SMTPMailer) Send(ctx context.Context, recipient, templateID string, data map[string]string) error {
	if !m.enabled {
		return errors.New("mailer is disabled")
	}
	if recipient == "" {
		return errors.New("recipient email is empty")
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	mail := mailyak.New(fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port), auth)
	mail.From(m.cfg.From)
	mail.To(recipient)
	mail.Subject(subjectFor(templateID, data))
	mail.Plain().Set(renderBody(templateID, data))

	if err := mail.Send(); err != nil {
		return errors.Wrapf(err, "failed to send %s email to %s", templateID, recipient)
	}

	log.Info().
		Str("template", templateID).
		Str("recipient", recipient).
		Msg("Email sent")
	return nil
}

func subjectFor(templateID string, data map[string]string) string {
	number := data["quote_number"]
	switch templateID {
	case TemplateQuoteSent:
		return fmt.Sprintf("Quote %s", number)
	case TemplateExpiryWarning:
		return fmt.Sprintf("Quote %s is about to expire", number)
	case TemplateQuoteExpired:
		return fmt.Sprintf("Quote %s has expired", number)
	}
	return fmt.Sprintf("Update on quote %s", number)
}

// renderBody emits the template data as stable key/value lines. Real
// template rendering happens at the mail provider; this body is the
// fallback plain-text representation.
func renderBody(templateID string, data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	body := "Template: " + templateID + "\n"
	for _, k := range keys {
		body += fmt.Sprintf("%s: %s\n", k, data[k])
	}
	return body
}
