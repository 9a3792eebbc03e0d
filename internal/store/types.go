package store

import "time"

// Task is a work item assigned to a farm worker.
type Task struct {
	ID             int64      `json:"id"`
	FarmID         int64      `json:"farmId"`
	AssigneeID     int64      `json:"assigneeId"`
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Activity is a logged farm activity pending or past review.
type Activity struct {
	ID        int64     `json:"id"`
	FarmID    int64     `json:"farmId"`
	UserID    int64     `json:"userId"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Expense is a farm expense record.
type Expense struct {
	ID        int64     `json:"id"`
	FarmID    int64     `json:"farmId"`
	Amount    float64   `json:"amount"`
	Category  string    `json:"category"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Revenue is a farm revenue record.
type Revenue struct {
	ID        int64     `json:"id"`
	FarmID    int64     `json:"farmId"`
	Amount    float64   `json:"amount"`
	Source    string    `json:"source"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
