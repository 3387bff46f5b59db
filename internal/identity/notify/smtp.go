package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
)

// SMTPConfig carries the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier sends mail through a relay using PLAIN auth.
type SMTPNotifier struct {
	cfg  SMTPConfig
	tmpl *template.Template
}

var codeMailTmpl = template.Must(template.New("code").Parse(`<html>
<body>
<p>Your {{.Subject}} code is:</p>
<p style="font-size: 24px; font-weight: bold; letter-spacing: 4px;">{{.Code}}</p>
<p>The code is valid for 15 minutes. If you did not request it, ignore this message.</p>
</body>
</html>`))

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, tmpl: codeMailTmpl}
}

var purposeSubjects = map[domain.Purpose]string{
	domain.PurposeRegistration:      "registration",
	domain.PurposePasswordReset:     "password reset",
	domain.PurposeEmailVerification: "email verification",
	domain.PurposeLogin:             "sign-in",
}

func (n *SMTPNotifier) SendCode(ctx context.Context, email string, purpose domain.Purpose, code string) error {
	subject, ok := purposeSubjects[purpose]
	if !ok {
		subject = string(purpose)
	}

	var body bytes.Buffer
	err := n.tmpl.Execute(&body, struct {
		Subject string
		Code    string
	}{Subject: subject, Code: code})
	if err != nil {
		return fmt.Errorf("render code mail: %w", err)
	}

	return n.send(ctx, email, "Your "+subject+" code", body.String(), "text/html")
}

func (n *SMTPNotifier) SendNotice(ctx context.Context, email, subject, body string) error {
	return n.send(ctx, email, subject, body, "text/plain")
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, body, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\nMIME-Version: 1.0\r\nContent-Type: %s; charset=utf-8\r\n\r\n%s",
		n.cfg.From, to, subject, time.Now().Format(time.RFC1123Z), contentType, body)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
