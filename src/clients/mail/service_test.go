package mail_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"reporter/src/clients/mail"
	"reporter/src/config"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient() *mail.ServiceClient {
	return mail.NewClient(&config.SMTPConfig{
		Host:        "127.0.0.1",
		Port:        1, // nothing listens here
		Sender:      "reports@example.com",
		AppPassword: "app-password",
	}, testLogger())
}

func TestBuildMessage(t *testing.T) {
	client := newTestClient()
	msg := client.BuildMessage("Scheduled Report Daily Loans run on 01-01-2026", "Dear Alice,\nyour report.", []string{"alice@example.com", "bob@example.com"})

	assert.Contains(t, msg, "From: reports@example.com\r\n")
	assert.Contains(t, msg, "To: alice@example.com, bob@example.com\r\n")
	assert.Contains(t, msg, "Subject: Scheduled Report Daily Loans run on 01-01-2026\r\n")
	assert.Contains(t, msg, "MIME-Version: 1.0\r\n")
	assert.Contains(t, msg, "Content-Type: multipart/mixed; boundary=")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.Contains(t, msg, "Dear Alice,\nyour report.")

	// Boundary opens and closes.
	start := strings.Index(msg, "boundary=\"")
	assert.NotEqual(t, -1, start)
	boundary := msg[start+len("boundary=\""):]
	boundary = boundary[:strings.Index(boundary, "\"")]
	assert.Contains(t, msg, "--"+boundary+"\r\n")
	assert.True(t, strings.HasSuffix(msg, "--"+boundary+"--\r\n"))
}

func TestSendReturnsFalseOnConnectionFailure(t *testing.T) {
	client := newTestClient()
	ok := client.Send(context.Background(), "subject", "body", []string{"alice@example.com"})
	assert.False(t, ok)
}
