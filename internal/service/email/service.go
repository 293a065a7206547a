package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v3"

	"edushare/internal/config"
	"edushare/internal/domain"
	"edushare/internal/pkg/i18n"
)

//go:embed templates/*.html
var templates embed.FS

// Sender is the part of the Resend client this package uses.
type Sender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type Service interface {
	SendNotificationEmail(ctx context.Context, recipient *domain.User, notif *domain.Notification, title string) error
}

type service struct {
	sender Sender
	config *config.Config
	tmpl   *template.Template
}

func NewService(cfg *config.Config) Service {
	client := resend.NewClient(cfg.ResendAPIKey)
	return NewServiceWithSender(client.Emails, cfg)
}

func NewServiceWithSender(sender Sender, cfg *config.Config) Service {
	return &service{
		sender: sender,
		config: cfg,
		tmpl:   template.Must(template.ParseFS(templates, "templates/notification.html")),
	}
}

func (s *service) SendNotificationEmail(ctx context.Context, recipient *domain.User, notif *domain.Notification, title string) error {
	if recipient == nil || recipient.Email == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := struct {
		Subject string
		Name    string
		Message string
		Link    string
	}{
		Subject: i18n.Format(s.config.DefaultLocale, "EMAIL_SUBJECT", map[string]string{"title": title}),
		Name:    recipient.Username,
		Message: notif.Message,
		Link:    fmt.Sprintf("http://%s/notifications", s.config.Domain),
	}

	var body bytes.Buffer
	if err := s.tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to execute email template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("EduShare <%s>", s.config.FromEmail),
		To:      []string{recipient.Email},
		Html:    body.String(),
		Subject: data.Subject,
	}

	if _, err := s.sender.Send(params); err != nil {
		return fmt.Errorf("send email to %s: %w", recipient.Email, err)
	}
	return nil
}
