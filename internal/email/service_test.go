package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

type captureDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *captureDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSendVerification(t *testing.T) {
	d := &captureDialer{}
	svc := NewSMTPService(config.EmailConfig{From: "no-reply@clinic.test"}, d)

	require.NoError(t, svc.SendVerification(context.Background(), "ana@example.com", "http://x/verify?token=abc"))
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"no-reply@clinic.test"}, m.GetHeader("From"))
	assert.Equal(t, []string{"ana@example.com"}, m.GetHeader("To"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "http://x/verify?token")
}

func TestSendWrapsDialerError(t *testing.T) {
	d := &captureDialer{err: errors.New("connection refused")}
	svc := NewSMTPService(config.EmailConfig{From: "a@b.c"}, d)

	err := svc.SendPasswordReset(context.Background(), "ana@example.com", "link")
	assert.ErrorContains(t, err, "connection refused")
}

func TestDisabledServiceOnlyLogs(t *testing.T) {
	svc := New(config.EmailConfig{Enabled: false}, logger.Nop())
	assert.NoError(t, svc.SendVerification(context.Background(), "ana@example.com", "link"))
	assert.NoError(t, svc.SendWelcome(context.Background(), "ana@example.com", "Ana"))
}
