package services

import (
	"context"

	"github.com/vee2004/collaborative-todo-board/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResolutionStrategy is the client's choice after seeing a conflict diff.
type ResolutionStrategy string

const (
	// ResolutionKeepLocal resubmits the client's own field values.
	ResolutionKeepLocal ResolutionStrategy = "keep-local"
	// ResolutionKeepServer resubmits the server's values as-is; the commit
	// is a no-op on the fields but still bumps the version.
	ResolutionKeepServer ResolutionStrategy = "keep-server"
	// ResolutionMerge resubmits a field-by-field combination chosen by the
	// user via Picks.
	ResolutionMerge ResolutionStrategy = "merge"
)

// ResolveConflictRequest is the resubmission after a 409. Version must be
// the version carried by the conflict payload, not the originally stale
// one; if the task has moved on again, the resubmission conflicts again
// and the protocol simply repeats.
type ResolveConflictRequest struct {
	Strategy ResolutionStrategy `json:"strategy"`
	Version  int64              `json:"version"`
	Local    UpdateTaskRequest  `json:"local"`
	// Picks maps a field name to "local" or "server" for the merge
	// strategy. Unlisted fields keep the server's value.
	Picks map[string]string `json:"picks,omitempty"`
}

// ResolveConflict re-applies an edit with the strategy the client chose.
// Retries are unbounded by design; capping them is the client's business.
func (s *TaskService) ResolveConflict(ctx context.Context, actorID string, taskID string, req ResolveConflictRequest) (*models.Task, error) {
	id, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, models.ValidationError("invalid task ID format")
	}

	current, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	resubmission, err := buildResolution(req, current)
	if err != nil {
		return nil, err
	}
	return s.UpdateTask(ctx, actorID, taskID, resubmission)
}

// buildResolution turns a strategy plus the authoritative state into the
// update to resubmit.
func buildResolution(req ResolveConflictRequest, server *models.Task) (UpdateTaskRequest, error) {
	version := req.Version

	switch req.Strategy {
	case ResolutionKeepLocal:
		local := req.Local
		local.Version = &version
		return local, nil

	case ResolutionKeepServer:
		resubmission := serverFields(server)
		resubmission.Version = &version
		return resubmission, nil

	case ResolutionMerge:
		merged := serverFields(server)
		if req.Picks["title"] == "local" && req.Local.Title != nil {
			merged.Title = req.Local.Title
		}
		if req.Picks["description"] == "local" && req.Local.Description != nil {
			merged.Description = req.Local.Description
		}
		if req.Picks["assignedUser"] == "local" && req.Local.AssignedUser != nil {
			merged.AssignedUser = req.Local.AssignedUser
		}
		if req.Picks["status"] == "local" && req.Local.Status != nil {
			merged.Status = req.Local.Status
		}
		if req.Picks["priority"] == "local" && req.Local.Priority != nil {
			merged.Priority = req.Local.Priority
		}
		merged.Version = &version
		return merged, nil
	}

	return UpdateTaskRequest{}, models.ValidationError("unknown resolution strategy")
}

func serverFields(server *models.Task) UpdateTaskRequest {
	title := server.Title
	description := server.Description
	status := server.Status
	priority := server.Priority
	assigned := ""
	if server.AssignedUser != nil {
		assigned = server.AssignedUser.Hex()
	}
	return UpdateTaskRequest{
		Title:        &title,
		Description:  &description,
		AssignedUser: &assigned,
		Status:       &status,
		Priority:     &priority,
	}
}
