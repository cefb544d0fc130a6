package email

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/allowance-service/internal/config"
	"github.com/Dan9191/allowance-service/internal/models"
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

// SendRunAlert mails the operators about children skipped by a weekly run
func (s *Sender) SendRunAlert(report *models.RunReport) error {
	e := email.NewEmail()
	e.From = s.cfg.SMTP.SenderEmail
	e.To = []string{s.cfg.SMTP.AlertEmail}
	e.Subject = alertSubject(report)
	e.Text = []byte(alertBody(report))

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTP.Host, s.cfg.SMTP.Port)
	auth := smtp.PlainAuth("", s.cfg.SMTP.Username, s.cfg.SMTP.Password, s.cfg.SMTP.Host)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send run alert to %s: %v", s.cfg.SMTP.AlertEmail, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.SMTP.AlertEmail, e.Subject)
	return nil
}

func alertSubject(report *models.RunReport) string {
	return fmt.Sprintf("Weekly summary run for %s skipped %d children",
		report.WeekStart.Format("2006-01-02"), len(report.Failures))
}

func alertBody(report *models.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weekly summary run as of %s\n\n", report.AsOf.Format(time.RFC3339))
	fmt.Fprintf(&b, "Window start: %s\n", report.WeekStart.Format(time.RFC3339))
	fmt.Fprintf(&b, "Summaries written: %d\n", len(report.Summaries))
	fmt.Fprintf(&b, "Local fallback scores: %d\n", report.Fallbacks)
	fmt.Fprintf(&b, "Children skipped: %d\n\n", len(report.Failures))
	for _, f := range report.Failures {
		fmt.Fprintf(&b, "- %s: %s\n", f.ChildID, f.Error)
	}
	b.WriteString("\nRe-running the aggregation for the same time replaces existing summaries.\n")
	b.WriteString("\nBest regards,\nAllowance Service")
	return b.String()
}
