package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"payminder/internal/core"
	"payminder/internal/log"
)

func testSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Server:      "smtp.invalid",
		Port:        587,
		SenderEmail: "billing@example.com",
		Password:    "app-password",
		CompanyName: "Acme Ltd",
	}
}

func TestSMTPSender_NotConfigured(t *testing.T) {
	cfg := testSMTPConfig()
	cfg.Password = ""
	s := NewSMTPSender(cfg, log.Discard())

	assert.False(t, s.Configured())
	assert.ErrorIs(t, s.Send(context.Background(), Message{Recipient: "a@example.com"}), core.ErrNotConfigured)
	assert.ErrorIs(t, s.TestConnection(context.Background()), core.ErrNotConfigured)
}

func TestSMTPSender_RejectsRecipientBeforeDialing(t *testing.T) {
	s := NewSMTPSender(testSMTPConfig(), log.Discard())

	err := s.Send(context.Background(), Message{Recipient: "nobody", Subject: "x"})
	assert.ErrorIs(t, err, core.ErrInvalidRecipient)
}

func TestSMTPSender_BuildMsg(t *testing.T) {
	s := NewSMTPSender(testSMTPConfig(), log.Discard())

	msg, err := s.buildMsg(Message{
		Recipient: " alice@example.com ",
		Subject:   "Payment Reminder - $1.00 due on 2024-01-01",
		Text:      "plain",
		HTML:      "<p>html</p>",
	})
	require.NoError(t, err)

	from := msg.GetFromString()
	require.Len(t, from, 1)
	assert.True(t, strings.Contains(from[0], "Acme Ltd"), from[0])
	assert.True(t, strings.Contains(from[0], "billing@example.com"), from[0])

	to := msg.GetToString()
	require.Len(t, to, 1)
	assert.Contains(t, to[0], "alice@example.com")

	assert.Equal(t, []string{"Payment Reminder - $1.00 due on 2024-01-01"}, msg.GetGenHeader(mail.HeaderSubject))
}
