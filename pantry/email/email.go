// pantry/email/email.go
// Package email sends mail over SMTP after grading every address with an
// isemail.Validator. It wraps github.com/wneessen/go-mail.
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/mailcheck/isemail"
	"github.com/dalemusser/mailcheck/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// ErrNoRecipients is returned when a message has no To address.
var ErrNoRecipients = errors.New("email: no recipients specified")

// RecipientError reports an address the validator rejected.
type RecipientError struct {
	Field   string // "from", "to" or "reply-to"
	Address string
	Result  isemail.Result
}

func (e *RecipientError) Error() string {
	return fmt.Sprintf("email: %s address %q rejected: %s", e.Field, e.Address, e.Result.Status)
}

// Config holds SMTP server configuration.
type Config struct {
	// Host is the SMTP server hostname.
	Host string

	// Port is the SMTP server port (typically 587 for STARTTLS, 465 for SSL)
	Port int

	Username string
	Password string

	// FromAddress is the default sender address; it is validated like any
	// recipient.
	FromAddress string
	FromName    string

	// UseTLS enables STARTTLS (default: true unless UseSSL or port 465)
	UseTLS bool

	// UseSSL enables implicit TLS.
	UseSSL bool

	// Timeout for SMTP operations (default: 30 seconds)
	Timeout time.Duration

	// Options grade the addresses; nil means the validator's defaults.
	Options *isemail.Options

	// MaskAddresses hides local parts in logs.
	MaskAddresses bool
}

// Sender sends validated messages using the configured SMTP server.
type Sender struct {
	cfg       Config
	validator *isemail.Validator
	logger    *zap.Logger
}

// NewSender creates a sender. A nil validator uses isemail defaults.
func NewSender(cfg Config, v *isemail.Validator, logger *zap.Logger) *Sender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if !cfg.UseSSL && cfg.Port != 465 {
		cfg.UseTLS = true
	}
	if v == nil {
		v = isemail.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{cfg: cfg, validator: v, logger: logger}
}

// Message represents an email message to be sent.
type Message struct {
	To          []string // Recipient email addresses
	Subject     string
	TextBody    string // Plain text body (optional if HTMLBody is set)
	HTMLBody    string // HTML body (optional if TextBody is set)
	ReplyTo     string // optional
	Attachments []Attachment
}

// Attachment represents a file attachment.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Check grades the sender, every recipient and the Reply-To address. The
// first rejected address is returned as a *RecipientError.
func (s *Sender) Check(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	opts := s.validator.Defaults()
	if s.cfg.Options != nil {
		opts = *s.cfg.Options
	}

	check := func(field, addr string) error {
		res := s.validator.Validate(ctx, addr, opts)
		if res.Valid {
			return nil
		}
		s.logger.Warn("recipient rejected",
			zap.String("field", field),
			logging.Address("address", addr, s.cfg.MaskAddresses),
			zap.Stringer("status", res.Status))
		return &RecipientError{Field: field, Address: addr, Result: res}
	}

	if err := check("from", s.cfg.FromAddress); err != nil {
		return err
	}
	for _, to := range msg.To {
		if err := check("to", to); err != nil {
			return err
		}
	}
	if msg.ReplyTo != "" {
		return check("reply-to", msg.ReplyTo)
	}
	return nil
}

// Send validates and sends an email message.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if err := s.Check(ctx, msg); err != nil {
		return err
	}
	m, err := s.build(msg)
	if err != nil {
		return err
	}

	c, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("email: failed to create client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("email: failed to send: %w", err)
	}
	return nil
}

// SendSimple sends a plain text email.
func (s *Sender) SendSimple(ctx context.Context, to, subject, body string) error {
	return s.Send(ctx, Message{
		To:       []string{to},
		Subject:  subject,
		TextBody: body,
	})
}

func (s *Sender) build(msg Message) (*mail.Msg, error) {
	if msg.TextBody == "" && msg.HTMLBody == "" {
		return nil, fmt.Errorf("email: message body is empty")
	}

	m := mail.NewMsg()
	if s.cfg.FromName != "" {
		if err := m.FromFormat(s.cfg.FromName, s.cfg.FromAddress); err != nil {
			return nil, fmt.Errorf("email: invalid from address: %w", err)
		}
	} else if err := m.From(s.cfg.FromAddress); err != nil {
		return nil, fmt.Errorf("email: invalid from address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("email: invalid to address: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("email: invalid reply-to address: %w", err)
		}
	}
	m.Subject(msg.Subject)

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	}

	for _, att := range msg.Attachments {
		var opts []mail.FileOption
		if att.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(att.ContentType)))
		}
		if err := m.AttachReader(att.Filename, bytes.NewReader(att.Data), opts...); err != nil {
			return nil, fmt.Errorf("email: attach %s: %w", att.Filename, err)
		}
	}
	return m, nil
}

func (s *Sender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password))
	}
	if s.cfg.UseSSL {
		opts = append(opts, mail.WithSSL())
	} else if s.cfg.UseTLS {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}
	return opts
}
