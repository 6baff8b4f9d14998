package core

import "time"

type ExpenseAction string

const (
	ExpenseCreated  ExpenseAction = "created"
	ExpenseUpdated  ExpenseAction = "updated"
	ExpenseDeleted  ExpenseAction = "deleted"
	ExpenseImported ExpenseAction = "imported"
)

// ExpenseEvent announces a persisted expense change and the budget month it touches.
type ExpenseEvent struct {
	ProjectID int64         `json:"project_id"`
	ExpenseID int64         `json:"expense_id"`
	Year      int           `json:"year"`
	Month     int           `json:"month"`
	Action    ExpenseAction `json:"action"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewExpenseEvent keys the event on the expense's own month.
func NewExpenseEvent(e Expense, action ExpenseAction, at time.Time) ExpenseEvent {
	return ExpenseEvent{
		ProjectID: e.ProjectID,
		ExpenseID: e.ID,
		Year:      e.ExpenseDate.Year(),
		Month:     e.ExpenseDate.Month(),
		Action:    action,
		Timestamp: at.UTC(),
	}
}
