package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/cloudylake/tenantapi/internal/observability/metrics"
	"github.com/cloudylake/tenantapi/internal/reliability/circuitbreaker"
	"github.com/cloudylake/tenantapi/internal/reliability/retry"
	"github.com/cloudylake/tenantapi/pkg/config"
)

// Mailer is the outbound mail collaborator
type Mailer interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendPasswordReset(ctx context.Context, to, name, url string) error
	SendTenantInvite(ctx context.Context, to, url string) error
	SendUserInvite(ctx context.Context, to, url string) error
}

// SMTPMailer delivers templated mail over SMTP. Dispatch is retried
// with backoff and guarded by a circuit breaker so a dead relay fails
// fast instead of holding requests.
type SMTPMailer struct {
	client  *gomail.Client
	from    string
	retry   *retry.Config
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewSMTPMailer creates a mailer from explicit configuration
func NewSMTPMailer(cfg config.MailConfig, logger *slog.Logger) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SMTPMailer{
		client:  client,
		from:    cfg.From,
		retry:   retry.DefaultConfig(),
		breaker: circuitbreaker.New(5, 2, 30*time.Second),
		logger:  logger,
	}, nil
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, to, name string) error {
	body := fmt.Sprintf("Hi %s,\n\nWelcome to the CloudyLake family! We're glad to have you.\n", firstName(name))
	return m.send(ctx, "welcome", to, "Welcome to the CloudyLake Family!", body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, name, url string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nForgot your password? Submit a new one here: %s\n\nThe link is valid for 10 minutes. If you didn't request a reset, ignore this email.\n",
		firstName(name), url,
	)
	return m.send(ctx, "password_reset", to, "Your password reset token (valid for 10 minutes)", body)
}

func (m *SMTPMailer) SendTenantInvite(ctx context.Context, to, url string) error {
	body := fmt.Sprintf("Hello,\n\nYour organization has been created on CloudyLake. Complete your signup here: %s\n", url)
	return m.send(ctx, "tenant_invite", to, "You have been invited to CloudyLake", body)
}

func (m *SMTPMailer) SendUserInvite(ctx context.Context, to, url string) error {
	body := fmt.Sprintf("Hello,\n\nYou have been invited to join an organization on CloudyLake. Complete your signup here: %s\n", url)
	return m.send(ctx, "user_invite", to, "You have been invited to CloudyLake", body)
}

func (m *SMTPMailer) send(ctx context.Context, kind, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	err := retry.Do(ctx, m.retry, m.logger, "mail_send", func(ctx context.Context) error {
		return m.breaker.Execute(func() error {
			return m.client.DialAndSendWithContext(ctx, msg)
		})
	})
	if err != nil {
		metrics.ObserveMailDispatch(kind, "error")
		m.logger.Error("mail dispatch failed",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.String("error", err.Error()),
		)
		return err
	}
	metrics.ObserveMailDispatch(kind, "ok")
	return nil
}

func firstName(name string) string {
	if name == "" {
		return "there"
	}
	return strings.SplitN(name, " ", 2)[0]
}
