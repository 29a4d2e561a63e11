package models

import "time"

type ActionType string

const (
	ActionCreated    ActionType = "created"
	ActionUpdated    ActionType = "updated"
	ActionDeleted    ActionType = "deleted"
	ActionMoved      ActionType = "moved"
	ActionAssigned   ActionType = "assigned"
	ActionReassigned ActionType = "reassigned"
)

// DefaultBoardID partitions the log; there is a single shared board.
const DefaultBoardID = "main"

// ActionDetails snapshots the task state relevant to an action.
type ActionDetails struct {
	Before *Task `json:"before,omitempty"`
	After  *Task `json:"after,omitempty"`
}

// ActionLog is one immutable fact derived from a task mutation.
// Entries are appended once and never updated or deleted.
type ActionLog struct {
	ID        string        `cassandra:"id" json:"id"`
	BoardID   string        `cassandra:"board_id" json:"boardId"`
	Action    ActionType    `cassandra:"action" json:"action"`
	TaskID    string        `cassandra:"task_id" json:"taskId"`
	UserID    string        `cassandra:"user_id" json:"userId"`
	Details   ActionDetails `cassandra:"details" json:"details"`
	Message   string        `cassandra:"message" json:"message,omitempty"`
	Timestamp time.Time     `cassandra:"created_at" json:"timestamp"`
}
