package emailService

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const (
	subjectInvitation  = "You have been invited to a HisaabKitaab account"
	templateInvitation = "invitation.html"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

type EmailData interface {
	TemplateFileName() string
	Subject() string
}

type EmailSender interface {
	QueueEmail(to string, data EmailData)
}

type InvitationData struct {
	InviterName string
	AccountName string
	Role        string
	AcceptURL   string
	Token       string
}

func (d InvitationData) TemplateFileName() string {
	return templateInvitation
}

func (d InvitationData) Subject() string {
	return subjectInvitation
}

type Config struct {
	From         string
	Password     string
	SMTPHost     string
	SMTPPort     string
	TemplatesDir string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailService struct {
	cfg       Config
	log       zerolog.Logger
	send      sendFunc
	taskQueue chan EmailTask
	done      chan struct{}
}

type EmailTask struct {
	to           string
	templateFile string
	data         EmailData
	subject      string
}

// NewEmailService starts the delivery worker. Templates are read from
// cfg.TemplatesDir when set, otherwise from the embedded defaults.
func NewEmailService(cfg Config, log zerolog.Logger) *EmailService {
	s := newEmailService(cfg, log, smtp.SendMail)
	go s.worker()
	return s
}

func newEmailService(cfg Config, log zerolog.Logger, send sendFunc) *EmailService {
	return &EmailService{
		cfg:       cfg,
		log:       log.With().Str("component", "email").Logger(),
		send:      send,
		taskQueue: make(chan EmailTask, 100),
		done:      make(chan struct{}),
	}
}

func (s *EmailService) worker() {
	defer close(s.done)
	for task := range s.taskQueue {
		err := s.sendTemplatedEmail(task.to, task.templateFile, task.data, task.subject)
		if err != nil {
			s.log.Error().Err(err).Str("to", task.to).Msg("Error sending email")
		}
	}
}

func (s *EmailService) QueueEmail(to string, data EmailData) {
	select {
	case s.taskQueue <- EmailTask{to, data.TemplateFileName(), data, data.Subject()}:
	default:
		s.log.Warn().Str("to", to).Msg("Email queue full, dropping message")
	}
}

// Close stops accepting messages and blocks until the worker has sent the
// ones already queued.
func (s *EmailService) Close() {
	close(s.taskQueue)
	<-s.done
}

func (s *EmailService) parseTemplate(name string) (*template.Template, error) {
	if s.cfg.TemplatesDir != "" {
		templatePath := filepath.Join(s.cfg.TemplatesDir, name)
		if _, err := os.Stat(templatePath); err == nil {
			return template.ParseFiles(templatePath)
		}
	}
	return template.ParseFS(embeddedTemplates, "templates/"+name)
}

func (s *EmailService) render(to, templateFileName string, data EmailData, subject string) ([]byte, error) {
	tmpl, err := s.parseTemplate(templateFileName)
	if err != nil {
		return nil, fmt.Errorf("error parsing template: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("error executing template: %w", err)
	}

	return []byte("From: " + s.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\";\r\n\r\n" +
		body.String()), nil
}

func (s *EmailService) sendTemplatedEmail(to, templateFileName string, data EmailData, subject string) error {
	message, err := s.render(to, templateFileName, data, subject)
	if err != nil {
		return err
	}

	auth := smtp.PlainAuth("", s.cfg.From, s.cfg.Password, s.cfg.SMTPHost)
	if err := s.send(s.cfg.SMTPHost+":"+s.cfg.SMTPPort, auth, s.cfg.From, []string{to}, message); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// LogSender stands in for SMTP when no mailbox is configured.
type LogSender struct {
	Log zerolog.Logger
}

func (l LogSender) QueueEmail(to string, data EmailData) {
	l.Log.Info().Str("to", to).Str("subject", data.Subject()).Msg("Email delivery disabled, skipping")
}
