package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "Todo"
	StatusInProgress TaskStatus = "In Progress"
	StatusDone       TaskStatus = "Done"
)

// Valid reports whether the status is one of the board columns.
func (s TaskStatus) Valid() bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

func (p TaskPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Task struct {
	ID           primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Title        string              `json:"title" bson:"title"`
	Description  string              `json:"description" bson:"description"`
	AssignedUser *primitive.ObjectID `json:"assignedUser,omitempty" bson:"assignedUser,omitempty"`
	Status       TaskStatus          `json:"status" bson:"status"`
	Priority     TaskPriority        `json:"priority" bson:"priority"`
	CreatedBy    primitive.ObjectID  `json:"createdBy" bson:"createdBy"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt" bson:"updatedAt"`
	Version      int64               `json:"version" bson:"version"`
}

// ForbiddenTitle reports whether a title collides with a column label.
// Tasks named after a column would be ambiguous on the board.
func ForbiddenTitle(title string) bool {
	return title == string(StatusTodo) || title == string(StatusInProgress) || title == string(StatusDone)
}
