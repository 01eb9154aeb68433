package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"payminder/internal/core"
	"payminder/internal/log"
)

const smtpTimeout = 30 * time.Second

// SMTPConfig holds the submission server settings. Delivery always uses
// STARTTLS with PLAIN auth as the sender account.
type SMTPConfig struct {
	Server      string
	Port        int
	SenderEmail string
	Password    string
	CompanyName string
}

// Configured reports whether a sender account and password are set.
func (c SMTPConfig) Configured() bool {
	return c.SenderEmail != "" && c.Password != ""
}

type SMTPSender struct {
	cfg    SMTPConfig
	logger *log.Logger
}

var _ Sender = (*SMTPSender)(nil)

func NewSMTPSender(cfg SMTPConfig, logger *log.Logger) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentNotify),
	}
}

func (s *SMTPSender) Configured() bool {
	return s.cfg.Configured()
}

// Send delivers m. It fails with core.ErrNotConfigured before touching the
// network when credentials are missing.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if !s.cfg.Configured() {
		return core.ErrNotConfigured
	}
	if err := ValidateRecipient(m.Recipient); err != nil {
		return err
	}

	msg, err := s.buildMsg(m)
	if err != nil {
		return err
	}
	client, err := s.client()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send email",
			log.FieldRecipient, m.Recipient,
			log.FieldSubject, m.Subject,
			log.FieldError, err)
		return fmt.Errorf("%w: %v", core.ErrNotificationFailed, err)
	}

	s.logger.InfoContext(ctx, "Email sent",
		log.FieldRecipient, m.Recipient,
		log.FieldSubject, m.Subject)
	return nil
}

// TestConnection dials the server, upgrades to TLS and authenticates
// without sending anything.
func (s *SMTPSender) TestConnection(ctx context.Context) error {
	if !s.cfg.Configured() {
		return core.ErrNotConfigured
	}
	client, err := s.client()
	if err != nil {
		return err
	}
	if err := client.DialWithContext(ctx); err != nil {
		s.logger.WarnContext(ctx, "SMTP connection test failed", "server", s.cfg.Server, log.FieldError, err)
		return fmt.Errorf("%w: %v", core.ErrNotificationFailed, err)
	}
	s.logger.InfoContext(ctx, "SMTP connection test succeeded", "server", s.cfg.Server)
	return client.Close()
}

func (s *SMTPSender) buildMsg(m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.CompanyName, s.cfg.SenderEmail); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(strings.TrimSpace(m.Recipient)); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidRecipient, err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	}
	return msg, nil
}

func (s *SMTPSender) client() (*mail.Client, error) {
	client, err := mail.NewClient(s.cfg.Server,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.SenderEmail),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(smtpTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}
