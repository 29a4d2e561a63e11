package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vee2004/collaborative-todo-board/logging"
	"github.com/vee2004/collaborative-todo-board/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskRepository is the durable task store. Replace is the single
// serialization point: it must write atomically, keyed on the version the
// caller read, so that exactly one of two racing writers commits.
type TaskRepository interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	List(ctx context.Context) ([]models.Task, error)
	Insert(ctx context.Context, task *models.Task) error
	Replace(ctx context.Context, expectedVersion int64, task *models.Task) error
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	FindByTitle(ctx context.Context, title string, exclude primitive.ObjectID) (*models.Task, error)
	CountAssignedPerUser(ctx context.Context) (map[string]int, error)
}

// ActionLogRepository appends derived audit entries.
type ActionLogRepository interface {
	Append(ctx context.Context, entry *models.ActionLog) error
	Recent(ctx context.Context, limit int) ([]models.ActionLog, error)
	ForTask(ctx context.Context, taskID string) ([]models.ActionLog, error)
}

// UserDirectory lists accounts from the external users service. The
// enumeration order is the tie-break for smart assignment.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]models.User, error)
}

// EventPublisher fans a board event out to connected clients. Publishing is
// fire-and-forget; failures never reach the mutating caller.
type EventPublisher interface {
	Publish(event string, payload interface{})
}

// Board event names, matched by the frontend.
const (
	EventTaskCreated      = "task-created"
	EventTaskUpdated      = "task-updated"
	EventTaskDeleted      = "task-deleted"
	EventConflictDetected = "conflict-detected"
)

// ConflictNotice is the conflict-detected payload: who collided and the
// authoritative state everyone should be looking at.
type ConflictNotice struct {
	TaskID  string       `json:"taskId"`
	UserID  string       `json:"userId"`
	Current *models.Task `json:"current"`
}

type TaskService struct {
	tasks     TaskRepository
	logs      ActionLogRepository
	users     UserDirectory
	publisher EventPublisher
}

func NewTaskService(tasks TaskRepository, logs ActionLogRepository, users UserDirectory, publisher EventPublisher) *TaskService {
	return &TaskService{
		tasks:     tasks,
		logs:      logs,
		users:     users,
		publisher: publisher,
	}
}

type CreateTaskRequest struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	AssignedUser *string             `json:"assignedUser,omitempty"`
	Status       models.TaskStatus   `json:"status,omitempty"`
	Priority     models.TaskPriority `json:"priority,omitempty"`
}

// UpdateTaskRequest carries a partial update. Nil pointers leave the field
// untouched; an empty AssignedUser clears the assignment. Version is the
// version the client last observed; when set, a mismatch is a conflict.
type UpdateTaskRequest struct {
	Title        *string              `json:"title,omitempty"`
	Description  *string              `json:"description,omitempty"`
	AssignedUser *string              `json:"assignedUser,omitempty"`
	Status       *models.TaskStatus   `json:"status,omitempty"`
	Priority     *models.TaskPriority `json:"priority,omitempty"`
	Version      *int64               `json:"version,omitempty"`
}

func (s *TaskService) GetAllTasks(ctx context.Context) ([]models.Task, error) {
	return s.tasks.List(ctx)
}

func (s *TaskService) GetUsers(ctx context.Context) ([]models.User, error) {
	return s.users.ListUsers(ctx)
}

// CreateTask validates and persists a new task at version 1, then records
// the created entry and broadcasts the new state.
func (s *TaskService) CreateTask(ctx context.Context, actorID string, req CreateTaskRequest) (*models.Task, error) {
	actor, err := primitive.ObjectIDFromHex(actorID)
	if err != nil {
		return nil, models.ValidationError("invalid acting user ID format")
	}

	if req.Title == "" {
		return nil, models.ValidationError("title is required")
	}
	if models.ForbiddenTitle(req.Title) {
		return nil, models.ValidationError("invalid task title")
	}

	status := req.Status
	if status == "" {
		status = models.StatusTodo
	}
	if !status.Valid() {
		return nil, models.ValidationError(fmt.Sprintf("invalid task status: %s", status))
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, models.ValidationError(fmt.Sprintf("invalid task priority: %s", priority))
	}

	assigned, err := parseAssignee(req.AssignedUser)
	if err != nil {
		return nil, err
	}

	if existing, err := s.tasks.FindByTitle(ctx, req.Title, primitive.NilObjectID); err != nil {
		return nil, fmt.Errorf("failed to check title uniqueness: %w", err)
	} else if existing != nil {
		return nil, models.ErrDuplicateTitle
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:           primitive.NewObjectID(),
		Title:        req.Title,
		Description:  req.Description,
		AssignedUser: assigned,
		Status:       status,
		Priority:     priority,
		CreatedBy:    actor,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}

	// The unique title index closes the race between two concurrent
	// creates; the loser gets a uniqueness error, never a conflict.
	if err := s.tasks.Insert(ctx, task); err != nil {
		return nil, err
	}

	if err := s.appendEntries(ctx, DeriveEntries(models.ActionCreated, nil, task, actorID, now)); err != nil {
		return nil, err
	}

	s.publisher.Publish(EventTaskCreated, task)
	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task '%s' created by user %s.", task.Title, actorID)
	return task, nil
}

// UpdateTask applies a partial update guarded by optimistic concurrency.
// On a version conflict no state changes, nothing is logged, and the
// authoritative current state is returned inside a ConflictError.
func (s *TaskService) UpdateTask(ctx context.Context, actorID string, taskID string, req UpdateTaskRequest) (*models.Task, error) {
	id, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, models.ValidationError("invalid task ID format")
	}

	current, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Version != nil && *req.Version != current.Version {
		logging.Logger.Infof("Event ID: VERSION_CONFLICT, Description: Task %s expected version %d but is at %d.", taskID, *req.Version, current.Version)
		s.notifyConflict(actorID, current)
		return nil, &models.ConflictError{Current: current}
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, models.ValidationError("title is required")
		}
		if models.ForbiddenTitle(*req.Title) {
			return nil, models.ValidationError("invalid task title")
		}
		if existing, err := s.tasks.FindByTitle(ctx, *req.Title, id); err != nil {
			return nil, fmt.Errorf("failed to check title uniqueness: %w", err)
		} else if existing != nil {
			return nil, models.ErrDuplicateTitle
		}
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, models.ValidationError(fmt.Sprintf("invalid task status: %s", *req.Status))
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return nil, models.ValidationError(fmt.Sprintf("invalid task priority: %s", *req.Priority))
	}

	before := *current
	updated := before
	if req.Title != nil {
		updated.Title = *req.Title
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.AssignedUser != nil {
		assigned, err := parseAssignee(req.AssignedUser)
		if err != nil {
			return nil, err
		}
		updated.AssignedUser = assigned
	}
	if req.Status != nil {
		updated.Status = *req.Status
	}
	if req.Priority != nil {
		updated.Priority = *req.Priority
	}

	now := time.Now().UTC()
	updated.Version = before.Version + 1
	updated.UpdatedAt = now

	if err := s.commit(ctx, actorID, before.Version, &updated); err != nil {
		return nil, err
	}

	if err := s.appendEntries(ctx, DeriveEntries(models.ActionUpdated, &before, &updated, actorID, now)); err != nil {
		return nil, err
	}

	s.publisher.Publish(EventTaskUpdated, &updated)
	return &updated, nil
}

// DeleteTask removes the task and records its prior state.
func (s *TaskService) DeleteTask(ctx context.Context, actorID string, taskID string) error {
	id, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return models.ValidationError("invalid task ID format")
	}

	prior, err := s.tasks.Delete(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.appendEntries(ctx, DeriveEntries(models.ActionDeleted, prior, nil, actorID, now)); err != nil {
		return err
	}

	s.publisher.Publish(EventTaskDeleted, prior.ID.Hex())
	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task '%s' deleted by user %s.", prior.Title, actorID)
	return nil
}

func (s *TaskService) RecentLogs(ctx context.Context, limit int) ([]models.ActionLog, error) {
	return s.logs.Recent(ctx, limit)
}

func (s *TaskService) TaskLogs(ctx context.Context, taskID string) ([]models.ActionLog, error) {
	if _, err := primitive.ObjectIDFromHex(taskID); err != nil {
		return nil, models.ValidationError("invalid task ID format")
	}
	return s.logs.ForTask(ctx, taskID)
}

// commit performs the compare-and-swap write. On a mismatch it re-reads the
// authoritative state so the caller can hand it to the client.
func (s *TaskService) commit(ctx context.Context, actorID string, expectedVersion int64, task *models.Task) error {
	err := s.tasks.Replace(ctx, expectedVersion, task)
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrVersionMismatch) {
		current, getErr := s.tasks.Get(ctx, task.ID)
		if getErr != nil {
			return getErr
		}
		logging.Logger.Infof("Event ID: VERSION_CONFLICT, Description: Lost compare-and-swap race on task %s at version %d.", task.ID.Hex(), expectedVersion)
		s.notifyConflict(actorID, current)
		return &models.ConflictError{Current: current}
	}
	return err
}

func (s *TaskService) appendEntries(ctx context.Context, entries []models.ActionLog) error {
	for i := range entries {
		if err := s.logs.Append(ctx, &entries[i]); err != nil {
			return fmt.Errorf("failed to append action log: %w", err)
		}
	}
	return nil
}

func (s *TaskService) notifyConflict(actorID string, current *models.Task) {
	s.publisher.Publish(EventConflictDetected, ConflictNotice{
		TaskID:  current.ID.Hex(),
		UserID:  actorID,
		Current: current,
	})
}

func parseAssignee(raw *string) (*primitive.ObjectID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(*raw)
	if err != nil {
		return nil, models.ValidationError("invalid assigned user ID format")
	}
	return &id, nil
}
