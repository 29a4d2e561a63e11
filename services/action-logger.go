package services

import (
	"fmt"
	"time"

	"github.com/vee2004/collaborative-todo-board/models"
)

// DeriveEntries turns one committed mutation into its audit entries by
// diffing the prior and new state. A single user action can yield several
// entries (updated + reassigned + moved): the log records facts, and a
// consumer rebuilds the narrative by reading a task's entries in timestamp
// order. Callers append the result only after the mutation committed.
func DeriveEntries(action models.ActionType, before, after *models.Task, actorID string, now time.Time) []models.ActionLog {
	switch action {
	case models.ActionCreated:
		return []models.ActionLog{newEntry(models.ActionCreated, after, actorID, now, models.ActionDetails{After: after}, "")}
	case models.ActionDeleted:
		return []models.ActionLog{newEntry(models.ActionDeleted, before, actorID, now, models.ActionDetails{Before: before}, "")}
	case models.ActionUpdated:
		details := models.ActionDetails{Before: before, After: after}
		entries := []models.ActionLog{newEntry(models.ActionUpdated, after, actorID, now, details, "")}
		if reassigned(before, after) {
			entries = append(entries, newEntry(models.ActionReassigned, after, actorID, now, details, ""))
		}
		if before.Status != after.Status && (after.Status == models.StatusInProgress || after.Status == models.StatusDone) {
			entries = append(entries, newEntry(models.ActionMoved, after, actorID, now, details, movedMessage(after)))
		}
		return entries
	case models.ActionAssigned:
		details := models.ActionDetails{Before: before, After: after}
		entries := []models.ActionLog{newEntry(models.ActionAssigned, after, actorID, now, details, "")}
		if reassigned(before, after) {
			entries = append(entries, newEntry(models.ActionReassigned, after, actorID, now, details, ""))
		}
		return entries
	}
	return nil
}

// reassigned means a non-null assignee was replaced by a different non-null
// one. First-time assignments and unassignments are not reassignments.
func reassigned(before, after *models.Task) bool {
	if before == nil || after == nil {
		return false
	}
	if before.AssignedUser == nil || after.AssignedUser == nil {
		return false
	}
	return *before.AssignedUser != *after.AssignedUser
}

func movedMessage(task *models.Task) string {
	if task.Status == models.StatusDone {
		return fmt.Sprintf("Project %q is done.", task.Title)
	}
	return fmt.Sprintf("Project %q is in progress.", task.Title)
}

func newEntry(action models.ActionType, task *models.Task, actorID string, now time.Time, details models.ActionDetails, message string) models.ActionLog {
	return models.ActionLog{
		BoardID:   models.DefaultBoardID,
		Action:    action,
		TaskID:    task.ID.Hex(),
		UserID:    actorID,
		Details:   details,
		Message:   message,
		Timestamp: now,
	}
}
