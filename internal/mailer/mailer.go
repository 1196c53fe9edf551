// Package mailer delivers the verification and invitation emails the
// service sends. Delivery is fire-and-forget: callers log failures and
// never roll back the state change that triggered the send.
package mailer

import (
	"fmt"
	"net/smtp"

	"workspace-service/pkg/config"

	"go.uber.org/zap"
)

// Mailer sends the outbound notification emails.
type Mailer interface {
	SendVerificationEmail(to, name, token string) error
	SendInvitationEmail(to, workspaceName, token string) error
}

// New returns an SMTP-backed mailer when SMTP is configured, otherwise a
// mailer that only logs.
func New(cfg *config.SMTPConfig, log *zap.Logger) Mailer {
	if cfg.Host == "" {
		return &LogMailer{Log: log}
	}
	return &SMTPMailer{cfg: cfg}
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	cfg *config.SMTPConfig
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.cfg.From, to, subject, body)

	addr := m.cfg.Host + ":" + m.cfg.Port
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg))
}

// SendVerificationEmail sends the email verification token to a user.
func (m *SMTPMailer) SendVerificationEmail(to, name, token string) error {
	body := fmt.Sprintf("Hello %s,\n\nPlease verify your email address using this token: %s\n", name, token)
	return m.send(to, "Verify your email address", body)
}

// SendInvitationEmail sends a workspace invitation token to an email address.
func (m *SMTPMailer) SendInvitationEmail(to, workspaceName, token string) error {
	body := fmt.Sprintf("You have been invited to join the workspace %q.\n\nUse this token to accept the invitation: %s\n", workspaceName, token)
	return m.send(to, fmt.Sprintf("Invitation to join %s", workspaceName), body)
}

// LogMailer logs emails instead of sending them. Used in development when
// no SMTP relay is configured.
type LogMailer struct {
	Log *zap.Logger
}

func (m *LogMailer) SendVerificationEmail(to, name, token string) error {
	m.Log.Info("verification email (not sent, SMTP unconfigured)",
		zap.String("to", to),
		zap.String("name", name),
		zap.String("token", token))
	return nil
}

func (m *LogMailer) SendInvitationEmail(to, workspaceName, token string) error {
	m.Log.Info("invitation email (not sent, SMTP unconfigured)",
		zap.String("to", to),
		zap.String("workspace", workspaceName),
		zap.String("token", token))
	return nil
}
