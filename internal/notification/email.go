package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/smehta/migraine-server/internal/logger"
	"github.com/smehta/migraine-server/internal/protocol"
	"github.com/smehta/migraine-server/pkg/config"
)

// EmailNotifier sends alert emails over SMTP
type EmailNotifier struct {
	config *config.SMTPConfig
	log    *logger.Logger
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig, log *logger.Logger) *EmailNotifier {
	return &EmailNotifier{config: cfg, log: log}
}

// alertEmailView is the template payload with pre-formatted numbers
type alertEmailView struct {
	Score       string
	BreachScore string
	Consecutive int
	TriggeredAt string
}

// SendAlertNotification sends an email for an alert event. Events
// without a notification address are skipped.
func (e *EmailNotifier) SendAlertNotification(event *protocol.AlertEvent) error {
	if event.NotifyEmail == "" {
		e.log.Debug("alert event has no notification address, skipping", "user_id", event.UserID)
		return nil
	}

	view := alertEmailView{
		Score:       fmt.Sprintf("%.3f", event.Score),
		BreachScore: fmt.Sprintf("%.3f", event.Threshold),
		Consecutive: event.Consecutive,
		TriggeredAt: event.TriggeredAt.Format(time.RFC1123),
	}

	var subject string
	var body string
	var err error

	switch event.Type {
	case protocol.AlertTypeTriggered:
		subject = "Migraine vulnerability alert"
		body, err = e.renderTriggeredTemplate(view)
	case protocol.AlertTypeCleared:
		subject = "Migraine vulnerability alert cleared"
		body, err = e.renderClearedTemplate(view)
	default:
		return fmt.Errorf("unknown alert event type: %s", event.Type)
	}

	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return e.sendEmail(event.NotifyEmail, subject, body)
}

func (e *EmailNotifier) renderTriggeredTemplate(view alertEmailView) (string, error) {
	tmpl := `
Migraine Vulnerability Alert
============================

Current vulnerability score: {{.Score}}
Alert level: {{.BreachScore}}
Consecutive elevated days: {{.Consecutive}}
Triggered at: {{.TriggeredAt}}

Description:
Your estimated migraine vulnerability has stayed above your alert
level for {{.Consecutive}} consecutive daily logs. The next day or two
carry elevated risk; this may be a good time to protect sleep and
reduce known triggers. Your ranked interventions show which change
is predicted to help the most.

This is an estimate from your logged data, not a medical diagnosis.

---
Migraine Server Notification System
`

	t, err := template.New("triggered").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, view); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (e *EmailNotifier) renderClearedTemplate(view alertEmailView) (string, error) {
	tmpl := `
Migraine Vulnerability Alert Cleared
====================================

Current vulnerability score: {{.Score}}
Alert level: {{.BreachScore}}

Description:
Your estimated migraine vulnerability has dropped back below your
alert level.

---
Migraine Server Notification System
`

	t, err := template.New("cleared").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, view); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (e *EmailNotifier) sendEmail(to, subject, body string) error {
	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		e.log.Info("smtp not configured, skipping email", "to", to, "subject", subject)
		return nil
	}

	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	if err := smtp.SendMail(addr, auth, e.config.From, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	e.log.Info("alert email sent", "to", to, "subject", subject)
	return nil
}

// TestConnection tests the SMTP connection
func (e *EmailNotifier) TestConnection() error {
	if e.config.Username == "" {
		return fmt.Errorf("SMTP not configured")
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	return nil
}
