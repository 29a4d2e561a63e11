package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vee2004/collaborative-todo-board/logging"
	"github.com/vee2004/collaborative-todo-board/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SmartAssign hands the task to the least-loaded user: the one with the
// strictly smallest number of live assignments, ties broken by directory
// order. The count is a single snapshot, so two simultaneous smart-assigns
// can pick the same user; that approximation is accepted. Done tasks are
// immutable to assignment.
func (s *TaskService) SmartAssign(ctx context.Context, actorID string, taskID string) (*models.Task, *models.User, error) {
	id, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, nil, models.ValidationError("invalid task ID format")
	}

	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if task.Status == models.StatusDone {
		return nil, nil, models.ErrTaskDone
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list users for assignment: %w", err)
	}
	if len(users) == 0 {
		return nil, nil, models.ErrNoEligibleUser
	}

	counts, err := s.tasks.CountAssignedPerUser(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count assignments: %w", err)
	}

	selected := users[0]
	minCount := counts[selected.ID]
	for _, user := range users[1:] {
		if counts[user.ID] < minCount {
			minCount = counts[user.ID]
			selected = user
		}
	}

	selectedID, err := primitive.ObjectIDFromHex(selected.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("users service returned a malformed user ID %q: %w", selected.ID, err)
	}

	before := *task
	updated := before
	updated.AssignedUser = &selectedID
	now := time.Now().UTC()
	updated.Version = before.Version + 1
	updated.UpdatedAt = now

	// Committed through the same compare-and-swap path as every other
	// mutation; a lost race surfaces as a conflict, no automatic retry.
	if err := s.commit(ctx, actorID, before.Version, &updated); err != nil {
		return nil, nil, err
	}

	if err := s.appendEntries(ctx, DeriveEntries(models.ActionAssigned, &before, &updated, actorID, now)); err != nil {
		return nil, nil, err
	}

	s.publisher.Publish(EventTaskUpdated, &updated)
	logging.Logger.Infof("Event ID: TASK_SMART_ASSIGNED, Description: Task '%s' assigned to %s (%d open tasks).", updated.Title, selected.Username, minCount)
	return &updated, &selected, nil
}
