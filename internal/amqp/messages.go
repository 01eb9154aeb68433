package amqp

import (
	"encoding/json"
	"time"

	"payminder/internal/core"
)

// NotificationMessage carries a fully rendered email to the notifier. LogID
// points at the queued row in the notification log so the consumer can
// record the final outcome.
type NotificationMessage struct {
	LogID     int64                 `json:"log_id"`
	Kind      core.NotificationKind `json:"kind"`
	Ledger    string                `json:"ledger"`
	RowKey    core.RowKey           `json:"row_key"`
	Recipient string                `json:"recipient"`
	Subject   string                `json:"subject"`
	Text      string                `json:"text"`
	HTML      string                `json:"html,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

func NewNotificationMessage(logID int64, n core.Notification, text, html string) *NotificationMessage {
	return &NotificationMessage{
		LogID:     logID,
		Kind:      n.Kind,
		Ledger:    n.Source.Ledger,
		RowKey:    n.Source.Key,
		Recipient: n.Recipient,
		Subject:   n.Subject,
		Text:      text,
		HTML:      html,
		Timestamp: time.Now(),
	}
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
