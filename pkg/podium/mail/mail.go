// Package mail sends Podium's transactional email.
package mail

import (
	"bytes"
	"html/template"
	"log"

	"gopkg.in/gomail.v2"
)

// Mailer sends account emails
type Mailer interface {
	SendPasswordReset(to, displayName, resetLink string) error
}

// SMTPConfig holds the SMTP connection settings
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPMailer delivers mail through an SMTP relay
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer creates a mailer for cfg. From defaults to the SMTP user.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   from,
	}
}

var resetTemplate = template.Must(template.New("reset").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px;">
	<h2 style="text-align: center;">Reset your Podium password</h2>
	<p>Hi {{.Name}},</p>
	<p>Someone asked to reset the password for your account. The link below is valid for one hour:</p>
	<p style="text-align: center;"><a href="{{.Link}}" style="display: inline-block; padding: 10px 20px; background-color: #6c47ff; color: #fff; text-decoration: none; border-radius: 5px;">Choose a new password</a></p>
	<p>If this wasn't you, you can ignore this email.</p>
</div>
`))

// PasswordResetMessage builds the reset email without sending it
func PasswordResetMessage(from, to, displayName, resetLink string) (*gomail.Message, error) {
	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, struct{ Name, Link string }{displayName, resetLink}); err != nil {
		return nil, err
	}

	message := gomail.NewMessage(gomail.SetEncoding(gomail.Unencoded))
	message.SetHeader("From", from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", "Reset your Podium password")
	message.SetBody("text/html", body.String())
	return message, nil
}

// SendPasswordReset mails a password reset link
func (m *SMTPMailer) SendPasswordReset(to, displayName, resetLink string) error {
	message, err := PasswordResetMessage(m.from, to, displayName, resetLink)
	if err != nil {
		return err
	}
	return m.dialer.DialAndSend(message)
}

// LogMailer is used when no SMTP relay is configured. It only logs.
type LogMailer struct{}

// SendPasswordReset logs the reset link instead of sending it
func (LogMailer) SendPasswordReset(to, displayName, resetLink string) error {
	log.Printf("SMTP not configured - password reset for %s: %s", to, resetLink)
	return nil
}
