package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"reporter/src/config"
)

const sessionTimeout = 60 * time.Second

type ServiceI interface {
	Send(ctx context.Context, subject, body string, recipients []string) bool
}

// ServiceClient delivers plain-text report mails over SMTP with STARTTLS.
// One connection per Send call, never pooled.
type ServiceClient struct {
	Host        string
	Port        int
	Sender      string
	AppPassword string
	Logger      *logrus.Logger
}

func NewClient(cfg *config.SMTPConfig, logger *logrus.Logger) *ServiceClient {
	return &ServiceClient{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Sender:      cfg.Sender,
		AppPassword: cfg.AppPassword,
		Logger:      logger,
	}
}

// Send submits one composed message to the recipients. It returns true on
// success and false on any failure, which is logged but never propagated.
func (s *ServiceClient) Send(ctx context.Context, subject, body string, recipients []string) bool {
	if err := s.send(ctx, subject, body, recipients); err != nil {
		s.Logger.Errorf("could not send mail to %s: %v", strings.Join(recipients, ", "), err)
		return false
	}
	s.Logger.Infof("mail sent to %s", strings.Join(recipients, ", "))
	return true
}

func (s *ServiceClient) send(ctx context.Context, subject, body string, recipients []string) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	dialer := &net.Dialer{Timeout: sessionTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{
		ServerName: s.Host,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	auth := smtp.PlainAuth("", s.Sender, s.AppPassword, s.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := client.Mail(s.Sender); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, recipient := range recipients {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", recipient, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := writer.Write([]byte(s.BuildMessage(subject, body, recipients))); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}

	// QUIT failures after DATA are ignored, the message is already accepted.
	_ = client.Quit()
	return nil
}

// BuildMessage composes a MIME multipart envelope with a single plain-text
// part.
func (s *ServiceClient) BuildMessage(subject, body string, recipients []string) string {
	boundary := fmt.Sprintf("boundary_%d", time.Now().UnixNano())

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", s.Sender))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q\r\n", boundary))
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")
	msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return msg.String()
}
