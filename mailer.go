package accounts

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// VerificationMail carries everything needed to render and deliver an
// account verification message.
type VerificationMail struct {
	To    string
	Name  string
	Token string
	Link  string
}

type Mailer interface {
	SendAccountVerification(ctx context.Context, mail VerificationMail) error
}

type MailerFunc func(ctx context.Context, mail VerificationMail) error

func (f MailerFunc) SendAccountVerification(ctx context.Context, mail VerificationMail) error {
	return f(ctx, mail)
}

// PrintMailer writes the notification to stdout, used in development and
// as the fallback when no SMTP server is configured.
type PrintMailer struct{}

func (PrintMailer) SendAccountVerification(_ context.Context, mail VerificationMail) error {
	fmt.Println("====== SENDING EMAIL NOTIFICATION =======")
	fmt.Printf("to: %s\n", mail.To)
	fmt.Printf("link: %s\n", mail.Link)
	return nil
}

type SMTPConfig interface {
	GetSMTPAddr() string
	GetSMTPFrom() string
	GetSMTPUsername() string
	GetSMTPPassword() string
}

type SMTPMailer struct {
	addr     string
	from     string
	auth     smtp.Auth
	Logger   Logger
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	var auth smtp.Auth
	if config.GetSMTPUsername() != "" {
		host := config.GetSMTPAddr()
		if i := strings.LastIndex(host, ":"); i != -1 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", config.GetSMTPUsername(), config.GetSMTPPassword(), host)
	}

	return &SMTPMailer{
		addr:     config.GetSMTPAddr(),
		from:     config.GetSMTPFrom(),
		auth:     auth,
		Logger:   defLogger{},
		sendMail: smtp.SendMail,
	}
}

func (m *SMTPMailer) SendAccountVerification(ctx context.Context, mail VerificationMail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := composeVerificationMessage(m.from, mail)

	if err := m.sendMail(m.addr, m.auth, m.from, []string{mail.To}, msg); err != nil {
		m.Logger.Error("failed to deliver verification email: %v", err)
		return err
	}

	return nil
}

func composeVerificationMessage(from string, mail VerificationMail) []byte {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", mail.To))
	b.WriteString("Subject: Verify your account\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")

	name := mail.Name
	if name == "" {
		name = mail.To
	}

	b.WriteString(fmt.Sprintf("Hi %s,\r\n\r\n", name))
	b.WriteString("Thanks for signing up. Confirm your email address by visiting the link below:\r\n\r\n")
	b.WriteString(mail.Link + "\r\n\r\n")
	b.WriteString("If you did not create this account you can ignore this message.\r\n")

	return []byte(b.String())
}
