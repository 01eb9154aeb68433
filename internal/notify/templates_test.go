package notify

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payminder/internal/core"
)

func alice() core.PaymentRecord {
	return core.PaymentRecord{
		Name:            "Alice <Admin>",
		Email:           " alice@example.com ",
		AmountRemaining: decimal.NewFromInt(100),
		DueDate:         core.NewDate(2024, 2, 10),
	}
}

func TestRender_Reminder(t *testing.T) {
	m, err := Render(core.NotifyReminder, alice(), decimal.NewFromInt(100), core.Date{}, "", "Acme")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", m.Recipient)
	assert.Equal(t, "Payment Reminder - $100.00 due on 2024-02-10", m.Subject)
	assert.Contains(t, m.Text, "Dear Alice <Admin>,")
	assert.Contains(t, m.Text, "a payment of $100.00 is due on 2024-02-10")
	assert.Contains(t, m.Text, "Acme")
	assert.Contains(t, m.HTML, "Alice &lt;Admin&gt;")
	assert.Contains(t, m.HTML, "<strong>$100.00</strong>")
}

func TestRender_Confirmation(t *testing.T) {
	m, err := Render(core.NotifyConfirmation, alice(), decimal.RequireFromString("40.5"), core.NewDate(2024, 3, 15), "", "Acme")
	require.NoError(t, err)

	assert.Equal(t, "Payment Confirmation - $40.50 received", m.Subject)
	assert.Contains(t, m.Text, "We have received your payment of $40.50 on 2024-03-15.")
}

func TestRender_Reschedule(t *testing.T) {
	p := alice()
	p.DueDate = core.NewDate(2024, 4, 1)

	withRemark, err := Render(core.NotifyReschedule, p, p.AmountRemaining, core.Date{}, "client travelling", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Payment Rescheduled - $100.00 now due on 2024-04-01", withRemark.Subject)
	assert.Contains(t, withRemark.Text, "Note: client travelling")

	without, err := Render(core.NotifyReschedule, p, p.AmountRemaining, core.Date{}, "", "Acme")
	require.NoError(t, err)
	assert.NotContains(t, without.Text, "Note:")
}

func TestRender_UnknownKind(t *testing.T) {
	_, err := Render(core.NotificationKind("fax"), alice(), decimal.Zero, core.Date{}, "", "Acme")
	assert.Error(t, err)
}

func TestValidateRecipient(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"a@example.com", false},
		{"  b@example.com ", false},
		{"", true},
		{"   ", true},
		{"no-at-sign", true},
	}
	for _, tt := range tests {
		err := ValidateRecipient(tt.addr)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateRecipient(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
		}
		if err != nil {
			assert.ErrorIs(t, err, core.ErrInvalidRecipient)
		}
	}
}
