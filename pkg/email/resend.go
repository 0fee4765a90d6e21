package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/resendlabs/resend-go"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Notice carries the submission facts every notification renders.
type Notice struct {
	SubmissionID string
	Name         string
	Email        string
	TankName     string
	TotalPrice   int
	Credits      int
}

// PublishedNotice adds the live URL and what is left of the credit balance.
type PublishedNotice struct {
	Notice
	PublishedURL     string
	RemainingCredits int
}

// Notifier sends the submitter-facing lifecycle emails.
type Notifier interface {
	SubmissionReceived(ctx context.Context, n Notice) error
	PaymentConfirmed(ctx context.Context, n Notice) error
	Published(ctx context.Context, n PublishedNotice) error
}

// sendFunc delivers one rendered message and returns the provider's message ID.
type sendFunc func(req *resend.SendEmailRequest) (string, error)

type EmailService struct {
	send      sendFunc
	from      string
	fromName  string
	templates *template.Template
	logger    *zap.Logger
}

type Config struct {
	APIKey      string
	FromAddress string
	FromName    string
}

func NewEmailService(cfg Config, log *zap.Logger) (*EmailService, error) {
	client := resend.NewClient(cfg.APIKey)
	return newEmailService(cfg, func(req *resend.SendEmailRequest) (string, error) {
		resp, err := client.Emails.Send(req)
		if err != nil {
			return "", err
		}
		return resp.Id, nil
	}, log)
}

func newEmailService(cfg Config, send sendFunc, log *zap.Logger) (*EmailService, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	fromName := cfg.FromName
	if fromName == "" {
		fromName = "The Tank Guide"
	}
	return &EmailService{
		send:      send,
		from:      cfg.FromAddress,
		fromName:  fromName,
		templates: tmpl,
		logger:    log.Named("email"),
	}, nil
}

func (s *EmailService) SubmissionReceived(ctx context.Context, n Notice) error {
	return s.deliver(ctx, n.Email, "We received your tank: "+n.TankName, "received.html", templateData(n, nil))
}

func (s *EmailService) PaymentConfirmed(ctx context.Context, n Notice) error {
	return s.deliver(ctx, n.Email, "Payment confirmed for "+n.SubmissionID, "payment-confirmed.html", templateData(n, nil))
}

func (s *EmailService) Published(ctx context.Context, n PublishedNotice) error {
	extra := map[string]interface{}{
		"PublishedURL":     n.PublishedURL,
		"RemainingCredits": n.RemainingCredits,
	}
	return s.deliver(ctx, n.Email, "Your tank is live: "+n.TankName, "published.html", templateData(n.Notice, extra))
}

func (s *EmailService) deliver(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := s.logger.With(zap.String("template", templateName), zap.Any("submission_id", data["SubmissionID"]))

	html, err := s.parseTemplate(templateName, data)
	if err != nil {
		log.Error("render email", zap.Error(err))
		return err
	}

	id, err := s.send(&resend.SendEmailRequest{
		From:    s.fromName + " <" + s.from + ">",
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		log.Warn("send email", zap.Error(err))
		return err
	}

	log.Info("email sent", zap.String("message_id", id))
	return nil
}

func (s *EmailService) parseTemplate(templateName string, data interface{}) (string, error) {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

func templateData(n Notice, extra map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"SubmissionID": n.SubmissionID,
		"Name":         n.Name,
		"Email":        n.Email,
		"TankName":     n.TankName,
		"TotalPrice":   n.TotalPrice,
		"Credits":      n.Credits,
		"Year":         time.Now().Year(),
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}
