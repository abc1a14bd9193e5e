// Package notify delivers scheduled reports by e-mail.
package notify

import (
	"fmt"
	"net/smtp"
	"path/filepath"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/transaction-manager/internal/config"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendReport mails the report file at path for the given local day.
func (s *Sender) SendReport(to []string, day time.Time, path string, rows int) error {
	e, err := s.reportEmail(to, day, path, rows)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send report to %v: %v", to, err)
		return fmt.Errorf("failed to send report: %w", err)
	}

	s.logger.Infof("Email sent to %v: %s", to, e.Subject)
	return nil
}

func (s *Sender) reportEmail(to []string, day time.Time, path string, rows int) (*email.Email, error) {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = to
	e.Subject = fmt.Sprintf("Transactions report for %s", day.Format("2006-01-02"))

	body := fmt.Sprintf(
		"Hello,\n\nAttached is the transactions report for %s (%s).\n"+
			"Transactions in the report: %d\n",
		day.Format("2006-01-02"), day.Location(), rows,
	)
	body += "\nBest regards,\nTransaction Manager"
	e.Text = []byte(body)

	if _, err := e.AttachFile(path); err != nil {
		return nil, fmt.Errorf("failed to attach %s: %w", filepath.Base(path), err)
	}
	return e, nil
}
