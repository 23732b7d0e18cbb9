package amqp

import (
	"time"

	"github.com/bytedance/sonic"
)

// UploadEvent announces a finished import. It carries only summary figures;
// the table itself never leaves the session.
type UploadEvent struct {
	SessionID   string    `json:"session_id"`
	Source      string    `json:"source"`
	Rows        int       `json:"rows"`
	UndatedRows int       `json:"undated_rows"`
	MinDate     string    `json:"min_date,omitempty"`
	MaxDate     string    `json:"max_date,omitempty"`
	Earnings    float64   `json:"earnings"`
	Hours       float64   `json:"hours"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewUploadEvent creates an event stamped with the current time.
func NewUploadEvent(sessionID, source string, rows, undated int) *UploadEvent {
	return &UploadEvent{
		SessionID:   sessionID,
		Source:      source,
		Rows:        rows,
		UndatedRows: undated,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *UploadEvent) ToJSON() ([]byte, error) {
	return sonic.Marshal(m)
}

// UploadEventFromJSON decodes an event.
func UploadEventFromJSON(data []byte) (*UploadEvent, error) {
	var msg UploadEvent
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
