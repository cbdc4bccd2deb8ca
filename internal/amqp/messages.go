package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"spending/internal/core"
)

// ActivityChangedMessage announces that an account's activities changed.
// The worker recomputes the account's snapshot from storage; the activity
// fields are informational.
type ActivityChangedMessage struct {
	AccountID  int64     `json:"account_id"`
	ActivityID int64     `json:"activity_id"`
	Category   string    `json:"category"`
	StartDate  string    `json:"start_date"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewActivityChangedMessage builds the message for a stored activity.
func NewActivityChangedMessage(a core.Activity) *ActivityChangedMessage {
	return &ActivityChangedMessage{
		AccountID:  a.AccountID,
		ActivityID: a.ID,
		Category:   string(a.Category),
		StartDate:  a.StartDate.String(),
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ActivityChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityChangedMessageFromJSON decodes and checks a message body.
func ActivityChangedMessageFromJSON(data []byte) (*ActivityChangedMessage, error) {
	var msg ActivityChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.AccountID <= 0 {
		return nil, errors.New("message has no account_id")
	}
	return &msg, nil
}
