package email

import (
	"bytes"
	"html/template"
	"log"
	"time"
)

const htmlHeaders = "MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\""

type Emailer interface {
	Send(to, subject, additionalHeaders, body string) error
}

// Service renders and sends the four alert emails. With enabled=false every
// send is logged and reported as success, which keeps dev runs from mailing
// real subscribers.
type Service struct {
	emailer      Emailer
	templatesDir string
	enabled      bool
	logger       *log.Logger
}

func NewService(emailer Emailer, templatesDir string, enabled bool, logger *log.Logger) *Service {
	return &Service{
		emailer:      emailer,
		templatesDir: templatesDir,
		enabled:      enabled,
		logger:       logger,
	}
}

func (e *Service) SendWelcome(toEmail, postalCode string) error {
	return e.send(toEmail,
		"Welcome to Quebec City Alerts",
		"welcome_email.html",
		map[string]any{"PostalCode": postalCode})
}

func (e *Service) SendSnowAlert(toEmail, postalCode string, streets []string) error {
	return e.send(toEmail,
		"Snow Removal Alert - Move Your Car",
		"snow_alert.html",
		map[string]any{"PostalCode": postalCode, "Streets": streets})
}

func (e *Service) SendGarbageReminder(toEmail, postalCode string, collectionDate time.Time) error {
	return e.send(toEmail,
		"Garbage pickup tomorrow - "+collectionDate.Format("January 2"),
		"garbage_reminder.html",
		map[string]any{"PostalCode": postalCode, "Date": collectionDate.Format("Monday, January 2")})
}

func (e *Service) SendRecyclingReminder(toEmail, postalCode string, collectionDate time.Time) error {
	return e.send(toEmail,
		"Recycling pickup tomorrow - "+collectionDate.Format("January 2"),
		"recycling_reminder.html",
		map[string]any{"PostalCode": postalCode, "Date": collectionDate.Format("Monday, January 2")})
}

func (e *Service) send(toEmail, subject, templateName string, data map[string]any) error {
	if !e.enabled {
		e.logger.Printf("[EMAIL DISABLED] Would send %q to %s", subject, toEmail)
		return nil
	}

	tmpl, err := template.ParseFiles(e.templatesDir + "/" + templateName)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return err
	}

	return e.emailer.Send(toEmail, subject, htmlHeaders, body.String())
}
