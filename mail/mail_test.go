package mail

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type settings struct{ account, password string }

func (settings) GetSmtpHost() string       { return "smtp.example.com" }
func (settings) GetSmtpPort() string       { return "587" }
func (s settings) GetSmtpAccount() string  { return s.account }
func (s settings) GetSmtpPassword() string { return s.password }
func (settings) GetSmtpFrom() string       { return "noreply@example.com" }

func TestNewFallsBackToLogMailer(t *testing.T) {
	require.IsType(t, LogMailer{}, New(settings{}))
	require.IsType(t, &SMTPMailer{}, New(settings{account: "a", password: "b"}))
}

func TestSMTPMailerSend(t *testing.T) {
	m := New(settings{account: "a", password: "b"}).(*SMTPMailer)

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	err := m.Send(context.Background(), Message{To: "jane@example.com", Subject: "Hi\r\nBcc: evil@example.com", Body: "hello"})
	require.NoError(t, err)
	require.Equal(t, "smtp.example.com:587", gotAddr)
	require.Equal(t, []string{"jane@example.com"}, gotTo)
	require.Contains(t, string(gotMsg), "Subject: Hi  Bcc: evil@example.com\r\n")
	require.True(t, strings.HasSuffix(string(gotMsg), "\r\n\r\nhello"))
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	msg := VerificationMessage("Property Market", "jane@example.com", "123456", 10*time.Minute)
	require.NoError(t, r.Send(context.Background(), msg))

	last, ok := r.Last("jane@example.com")
	require.True(t, ok)
	require.Contains(t, last.Body, "123456")
	require.Contains(t, last.Body, "10m0s")

	_, ok = r.Last("other@example.com")
	require.False(t, ok)
}
