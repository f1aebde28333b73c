package mailer

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/unclebandit/marketing-genius/internal/config"
	"github.com/unclebandit/marketing-genius/internal/model"
)

// Sender delivers a rendered email.
type Sender interface {
	Send(job model.EmailJob) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends HTML mail through an SMTP relay using STARTTLS.
type SMTPSender struct {
	dialer dialer
	from   string
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Server, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.DefaultSender,
	}
}

func (s *SMTPSender) Send(job model.EmailJob) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", job.To)
	m.SetHeader("Subject", job.Subject)
	m.SetBody("text/html", job.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", job.To, err)
	}
	return nil
}

// LogSender only logs; used when no mail server is configured.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(job model.EmailJob) error {
	s.Logger.Info("mail disabled, dropping email",
		zap.String("job_id", job.ID),
		zap.String("to", job.To),
		zap.String("subject", job.Subject))
	return nil
}

// New picks the SMTP sender when mail is configured.
func New(cfg config.MailConfig, logger *zap.Logger) Sender {
	if !cfg.Enabled() {
		return LogSender{Logger: logger}
	}
	return NewSMTPSender(cfg)
}
