package mailer

import (
	"context"
	"errors"
	"strings"

	"github.com/accountd/authserver/config"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// SMTPMailer delivers messages through an SMTP relay.
type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
	logger zerolog.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, logger zerolog.Logger) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port == 0 {
		return nil, errors.New("smtp port is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("smtp from address is required")
	}

	return &SMTPMailer{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}, nil
}

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("no recipients specified")
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To...)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return err
	}
	m.logger.Debug().Strs("to", msg.To).Str("subject", msg.Subject).Msg("email delivered")
	return nil
}
