package mail

import (
	"bytes"
	"fmt"
	htmlTemplate "html/template"
	"path/filepath"
	"strings"
	textTemplate "text/template"

	"github.com/sme-finance/identity/config"
	"github.com/sme-finance/identity/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Service is the notification sender. Delivery failures are returned to
// the caller; nothing is queued or retried here.
type Service struct {
	config        *config.MailConfig
	client        *mail.Client
	htmlTemplates *htmlTemplate.Template
	textTemplates *textTemplate.Template
	logger        *logging.Service
}

type Sender interface {
	SendTemplate(templateName string, to []string, subject string, data map[string]any) error
}

func NewService(cfg *config.MailConfig, logger *logging.Service) (*Service, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}

	clientOpts := []mail.Option{
		mail.WithPort(cfg.Port),
	}

	switch cfg.Encryption {
	case "tls", "starttls":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if cfg.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username))
	}
	if cfg.Password != "" {
		clientOpts = append(clientOpts, mail.WithPassword(cfg.Password))
	}

	client, err := mail.NewClient(cfg.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	service := &Service{
		config: cfg,
		client: client,
		logger: logger,
	}

	if err := service.loadTemplates(); err != nil {
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}

	logger.Info("mail service initialized",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("from_address", cfg.FromAddress))

	return service, nil
}

func (s *Service) loadTemplates() error {
	if s.config.TemplatesDir == "" {
		return nil
	}

	htmlPattern := filepath.Join(s.config.TemplatesDir, "*.html")
	textPattern := filepath.Join(s.config.TemplatesDir, "*.txt")

	var err error
	s.htmlTemplates, err = htmlTemplate.ParseGlob(htmlPattern)
	if err != nil && !strings.Contains(err.Error(), "pattern matches no files") {
		return fmt.Errorf("failed to parse HTML templates: %w", err)
	}

	s.textTemplates, err = textTemplate.ParseGlob(textPattern)
	if err != nil && !strings.Contains(err.Error(), "pattern matches no files") {
		return fmt.Errorf("failed to parse text templates: %w", err)
	}

	return nil
}

func (s *Service) newMessage() (*mail.Msg, error) {
	message := mail.NewMsg()

	fromAddr := s.config.FromAddress
	if s.config.FromName != "" {
		fromAddr = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress)
	}

	if err := message.From(fromAddr); err != nil {
		return nil, fmt.Errorf("failed to set FROM address: %w", err)
	}

	return message, nil
}

func (s *Service) SendTemplate(templateName string, to []string, subject string, data map[string]any) error {
	s.logger.Info("sending template email",
		zap.String("template", templateName),
		zap.String("subject", subject))

	message, err := s.newMessage()
	if err != nil {
		return err
	}

	if err := message.To(to...); err != nil {
		return fmt.Errorf("failed to set TO addresses: %w", err)
	}

	message.Subject(subject)

	if err := s.renderTemplate(templateName, data, message); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	if err := s.client.DialAndSend(message); err != nil {
		s.logger.Error("failed to send email",
			zap.Error(err),
			zap.String("template", templateName))
		return err
	}

	return nil
}

func (s *Service) renderTemplate(templateName string, data map[string]any, message *mail.Msg) error {
	var hasTemplate bool

	if s.htmlTemplates != nil {
		if tmpl := s.htmlTemplates.Lookup(templateName + ".html"); tmpl != nil {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return fmt.Errorf("failed to execute HTML template: %w", err)
			}
			message.SetBodyString(mail.TypeTextHTML, buf.String())
			hasTemplate = true
		}
	}

	if s.textTemplates != nil {
		if tmpl := s.textTemplates.Lookup(templateName + ".txt"); tmpl != nil {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return fmt.Errorf("failed to execute text template: %w", err)
			}
			if hasTemplate {
				message.AddAlternativeString(mail.TypeTextPlain, buf.String())
			} else {
				message.SetBodyString(mail.TypeTextPlain, buf.String())
			}
			hasTemplate = true
		}
	}

	if !hasTemplate {
		return fmt.Errorf("template '%s' not found", templateName)
	}

	return nil
}
