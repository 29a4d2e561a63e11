package services

import (
	"context"
	"errors"
	"testing"

	"github.com/vee2004/collaborative-todo-board/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conflictedTask sets up a task whose version moved underneath a client
// still holding version 1, and returns the conflict payload.
func conflictedTask(t *testing.T, e *env) (string, *models.Task) {
	t.Helper()
	task := mustCreate(t, e, CreateTaskRequest{Title: "Contended edit", Description: "original"})

	_, err := e.service.UpdateTask(context.Background(), actor, task.ID.Hex(), UpdateTaskRequest{
		Description: strptr("server side change"),
		Version:     int64ptr(1),
	})
	require.NoError(t, err)

	_, err = e.service.UpdateTask(context.Background(), actor, task.ID.Hex(), UpdateTaskRequest{
		Description: strptr("stale client change"),
		Version:     int64ptr(1),
	})
	var conflict *models.ConflictError
	require.ErrorAs(t, err, &conflict)
	return task.ID.Hex(), conflict.Current
}

func TestResolveKeepLocal(t *testing.T) {
	e := newEnv()
	taskID, current := conflictedTask(t, e)

	resolved, err := e.service.ResolveConflict(context.Background(), actor, taskID, ResolveConflictRequest{
		Strategy: ResolutionKeepLocal,
		Version:  current.Version,
		Local:    UpdateTaskRequest{Description: strptr("stale client change")},
	})

	require.NoError(t, err)
	assert.Equal(t, "stale client change", resolved.Description)
	assert.Equal(t, current.Version+1, resolved.Version)
}

func TestResolveKeepServerStillBumpsVersion(t *testing.T) {
	e := newEnv()
	taskID, current := conflictedTask(t, e)

	resolved, err := e.service.ResolveConflict(context.Background(), actor, taskID, ResolveConflictRequest{
		Strategy: ResolutionKeepServer,
		Version:  current.Version,
		Local:    UpdateTaskRequest{Description: strptr("stale client change")},
	})

	require.NoError(t, err)
	assert.Equal(t, current.Description, resolved.Description)
	assert.Equal(t, current.Title, resolved.Title)
	assert.Equal(t, current.Version+1, resolved.Version, "a keep-server commit is a no-op that still bumps the version")
}

func TestResolveMergePicks(t *testing.T) {
	e := newEnv()
	taskID, current := conflictedTask(t, e)

	resolved, err := e.service.ResolveConflict(context.Background(), actor, taskID, ResolveConflictRequest{
		Strategy: ResolutionMerge,
		Version:  current.Version,
		Local: UpdateTaskRequest{
			Description: strptr("stale client change"),
			Priority:    priorityptr(models.PriorityHigh),
		},
		Picks: map[string]string{
			"description": "local",
			// priority unlisted: server's value wins
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "stale client change", resolved.Description)
	assert.Equal(t, current.Priority, resolved.Priority)
	assert.Equal(t, current.Version+1, resolved.Version)
}

func TestResolveWithStaleConflictVersionConflictsAgain(t *testing.T) {
	e := newEnv()
	taskID, current := conflictedTask(t, e)

	// Someone else commits between the conflict response and the resolve.
	_, err := e.service.UpdateTask(context.Background(), actor, taskID, UpdateTaskRequest{
		Description: strptr("interleaved"),
	})
	require.NoError(t, err)

	_, err = e.service.ResolveConflict(context.Background(), actor, taskID, ResolveConflictRequest{
		Strategy: ResolutionKeepLocal,
		Version:  current.Version,
		Local:    UpdateTaskRequest{Description: strptr("stale client change")},
	})

	var conflict *models.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, current.Version+1, conflict.Current.Version)
}

func TestResolveUnknownStrategy(t *testing.T) {
	e := newEnv()
	taskID, current := conflictedTask(t, e)

	_, err := e.service.ResolveConflict(context.Background(), actor, taskID, ResolveConflictRequest{
		Strategy: "split-the-difference",
		Version:  current.Version,
	})

	var vErr models.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestResolveRoundTripVersionArithmetic(t *testing.T) {
	e := newEnv()
	taskID, current := conflictedTask(t, e)

	resolved, err := e.service.ResolveConflict(context.Background(), actor, taskID, ResolveConflictRequest{
		Strategy: ResolutionKeepLocal,
		Version:  current.Version,
		Local:    UpdateTaskRequest{Description: strptr("resolved")},
	})

	require.NoError(t, err)
	require.Equal(t, current.Version+1, resolved.Version)

	// No further interleaving: committing with the payload's version must
	// never conflict.
	var conflict *models.ConflictError
	assert.False(t, errors.As(err, &conflict))
}

func TestBuildResolutionKeepServerSnapshotsAssignee(t *testing.T) {
	e := newEnv()
	userID := directoryUser(t, "alice").ID
	task := mustCreate(t, e, CreateTaskRequest{Title: "Assigned already", AssignedUser: &userID})

	resubmission, err := buildResolution(ResolveConflictRequest{
		Strategy: ResolutionKeepServer,
		Version:  task.Version,
	}, task)

	require.NoError(t, err)
	require.NotNil(t, resubmission.AssignedUser)
	assert.Equal(t, userID, *resubmission.AssignedUser)
	require.NotNil(t, resubmission.Version)
	assert.Equal(t, task.Version, *resubmission.Version)
}
