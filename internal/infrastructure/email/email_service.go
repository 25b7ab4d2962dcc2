package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/land-registry-gateway/internal/core/domain/bulkjob"
	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
)

//go:embed templates/*.html
var templateFS embed.FS

// EmailConfig holds email service configuration
type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	// BaseURL is the gateway's public address, used for download links
	BaseURL string
}

type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailService sends bulk job notifications through SendGrid.
type EmailService struct {
	config    *EmailConfig
	logger    *logrus.Logger
	client    sender
	templates map[string]*template.Template
}

// NewEmailService creates a new email service instance
func NewEmailService(config *EmailConfig, logger *logrus.Logger) (*EmailService, error) {
	return newEmailService(config, sendgrid.NewSendClient(config.SendGridAPIKey), logger)
}

func newEmailService(config *EmailConfig, client sender, logger *logrus.Logger) (*EmailService, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &EmailService{
		config:    config,
		logger:    logger,
		client:    client,
		templates: templates,
	}, nil
}

// loadTemplates loads all email templates from the embedded filesystem
func loadTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)
	for _, name := range []string{"bulk_job_finished"} {
		tmpl, err := template.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return templates, nil
}

func (e *EmailService) sendEmail(ctx context.Context, to, subject, htmlContent string) error {
	from := mail.NewEmail(e.config.FromName, e.config.FromEmail)
	recipient := mail.NewEmail("", to)

	message := mail.NewSingleEmail(from, subject, recipient, "", htmlContent)

	response, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
			"error":   err,
		}).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 300 {
		e.logger.WithFields(logrus.Fields{
			"to":          to,
			"subject":     subject,
			"status_code": response.StatusCode,
		}).Error("SendGrid rejected email")
		return fmt.Errorf("failed to send email: sendgrid status %d", response.StatusCode)
	}

	e.logger.WithFields(logrus.Fields{
		"to":          to,
		"subject":     subject,
		"status_code": response.StatusCode,
	}).Info("Email sent successfully")

	return nil
}

func (e *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := e.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.String(), nil
}

// JobFinishedData holds data for the bulk job notification template
type JobFinishedData struct {
	FromName       string
	JobID          string
	Status         string
	SubmittedAt    string
	Completed      bool
	TotalProcessed int
	TotalMatched   int
	DownloadURL    string
	Errors         []string
}

// NotifyJobFinished tells recipient that a bulk job completed or failed.
func (e *EmailService) NotifyJobFinished(ctx context.Context, recipient string, job bulkjob.Job) error {
	data := JobFinishedData{
		FromName:    e.config.FromName,
		JobID:       job.ID,
		Status:      string(job.Status()),
		SubmittedAt: job.SubmittedAt.UTC().Format(time.RFC1123),
		Errors:      job.Errors(),
	}
	if results, ok := job.Results(); ok {
		data.Completed = true
		data.TotalProcessed = results.TotalProcessed
		data.TotalMatched = results.TotalMatched
		data.DownloadURL = fmt.Sprintf("%s/api/v1/bulk-searches/%s/download", e.config.BaseURL, url.PathEscape(job.ID))
	}

	htmlContent, err := e.renderTemplate("bulk_job_finished", data)
	if err != nil {
		return fmt.Errorf("failed to render bulk job template: %w", err)
	}

	subject := fmt.Sprintf("Bulk search %s %s - %s", job.ID, job.Status(), e.config.FromName)

	return e.sendEmail(ctx, recipient, subject, htmlContent)
}

var _ ports.JobNotifier = (*EmailService)(nil)
