package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"renovo/internal/core"
)

// ExpenseChangedMessage names the budget month touched by an expense change.
// The worker reloads what it needs from the database.
type ExpenseChangedMessage struct {
	ProjectID int64     `json:"project_id"`
	ExpenseID int64     `json:"expense_id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseChangedMessage(ev core.ExpenseEvent) *ExpenseChangedMessage {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &ExpenseChangedMessage{
		ProjectID: ev.ProjectID,
		ExpenseID: ev.ExpenseID,
		Year:      ev.Year,
		Month:     ev.Month,
		Action:    string(ev.Action),
		Timestamp: ts,
	}
}

// Event converts the message back into the domain event.
func (m *ExpenseChangedMessage) Event() core.ExpenseEvent {
	return core.ExpenseEvent{
		ProjectID: m.ProjectID,
		ExpenseID: m.ExpenseID,
		Year:      m.Year,
		Month:     m.Month,
		Action:    core.ExpenseAction(m.Action),
		Timestamp: m.Timestamp,
	}
}

func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseChangedMessageFromJSON decodes and sanity-checks a message body.
func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ProjectID <= 0 {
		return nil, fmt.Errorf("message has no project id")
	}
	if msg.Month < 1 || msg.Month > 12 || msg.Year < core.MinBudgetYear {
		return nil, fmt.Errorf("message has invalid period %d-%d", msg.Year, msg.Month)
	}
	return &msg, nil
}
