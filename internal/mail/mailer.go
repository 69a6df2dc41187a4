// Package mail sends transactional email over SMTP.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"

	"agora/internal/config"
	"agora/internal/middleware"
)

// Mailer delivers user-facing mail. Implementations never report delivery
// failures to the caller.
type Mailer interface {
	SendWelcome(ctx context.Context, to, username string)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends mail in the background and logs failures.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	enabled  bool

	send     sendFunc
	inflight sync.WaitGroup
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(
	`<p>Hi {{.Username}},</p>
<p>Welcome to Agora. Your account is ready; posts and comments you write will appear once a moderator approves them.</p>`,
))

// NewSMTPMailer builds a mailer from config. Without SMTP_HOST and SMTP_FROM
// it is disabled and every send is a no-op.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	enabled := cfg.SMTPHost != "" && cfg.SMTPFrom != ""
	if !enabled {
		middleware.Logger.Warn("Mailer disabled: SMTP_HOST or SMTP_FROM not set")
	}
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		enabled:  enabled,
		send:     smtp.SendMail,
	}
}

// SendWelcome renders the welcome mail and sends it without blocking.
func (m *SMTPMailer) SendWelcome(ctx context.Context, to, username string) {
	var body bytes.Buffer
	if err := welcomeTemplate.Execute(&body, map[string]string{"Username": username}); err != nil {
		middleware.Logger.ErrorContext(ctx, "Failed to render welcome mail", slog.String("error", err.Error()))
		return
	}
	m.sendAsync(ctx, []string{to}, "Welcome to Agora", body.String())
}

func (m *SMTPMailer) sendAsync(ctx context.Context, to []string, subject, body string) {
	if !m.enabled {
		return
	}

	// The request context is about to end; keep its values for logging only.
	logCtx := context.WithoutCancel(ctx)
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()

		var auth smtp.Auth
		if m.username != "" {
			auth = smtp.PlainAuth("", m.username, m.password, m.host)
		}
		addr := fmt.Sprintf("%s:%s", m.host, m.port)
		msg := []byte("To: " + strings.Join(to, ",") + "\r\n" +
			"From: Agora <" + m.from + ">\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n" +
			body)

		if err := m.send(addr, auth, m.from, to, msg); err != nil {
			middleware.Logger.ErrorContext(logCtx, "Failed to send mail",
				slog.String("subject", subject),
				slog.String("error", err.Error()),
			)
			return
		}
		middleware.Logger.InfoContext(logCtx, "Mail sent", slog.String("subject", subject))
	}()
}

// Wait blocks until every queued send has finished. Used on shutdown.
func (m *SMTPMailer) Wait() {
	m.inflight.Wait()
}
