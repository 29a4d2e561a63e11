package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/vee2004/collaborative-todo-board/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeTaskRepo mimics the Mongo store: a keyed map with compare-and-swap
// on the version field and a unique title constraint.
type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[primitive.ObjectID]models.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[primitive.ObjectID]models.Task)}
}

func (r *fakeTaskRepo) Get(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, models.ErrTaskNotFound
	}
	copied := task
	return &copied, nil
}

func (r *fakeTaskRepo) List(ctx context.Context) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tasks []models.Task
	for _, task := range r.tasks {
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (r *fakeTaskRepo) titleTaken(title string, exclude primitive.ObjectID) bool {
	for id, task := range r.tasks {
		if id != exclude && task.Title == title {
			return true
		}
	}
	return false
}

func (r *fakeTaskRepo) Insert(ctx context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.titleTaken(task.Title, task.ID) {
		return models.ErrDuplicateTitle
	}
	r.tasks[task.ID] = *task
	return nil
}

func (r *fakeTaskRepo) Replace(ctx context.Context, expectedVersion int64, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tasks[task.ID]
	if !ok {
		return models.ErrTaskNotFound
	}
	if current.Version != expectedVersion {
		return models.ErrVersionMismatch
	}
	if r.titleTaken(task.Title, task.ID) {
		return models.ErrDuplicateTitle
	}
	r.tasks[task.ID] = *task
	return nil
}

func (r *fakeTaskRepo) Delete(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, models.ErrTaskNotFound
	}
	delete(r.tasks, id)
	copied := task
	return &copied, nil
}

func (r *fakeTaskRepo) FindByTitle(ctx context.Context, title string, exclude primitive.ObjectID) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, task := range r.tasks {
		if id != exclude && task.Title == title {
			copied := task
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeTaskRepo) CountAssignedPerUser(ctx context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, task := range r.tasks {
		if task.AssignedUser != nil {
			counts[task.AssignedUser.Hex()]++
		}
	}
	return counts, nil
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []models.ActionLog
	failErr error
}

func (r *fakeLogRepo) Append(ctx context.Context, entry *models.ActionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("entry-%d", len(r.entries)+1)
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeLogRepo) Recent(ctx context.Context, limit int) ([]models.ActionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ActionLog
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

func (r *fakeLogRepo) ForTask(ctx context.Context, taskID string) ([]models.ActionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ActionLog
	for _, entry := range r.entries {
		if entry.TaskID == taskID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) all() []models.ActionLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ActionLog(nil), r.entries...)
}

type fakeDirectory struct {
	users []models.User
	err   error
}

func (d *fakeDirectory) ListUsers(ctx context.Context) ([]models.User, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.users, nil
}

type publishedEvent struct {
	event   string
	payload interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{event: event, payload: payload})
}

func (p *fakePublisher) byEvent(event string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type env struct {
	repo      *fakeTaskRepo
	logs      *fakeLogRepo
	directory *fakeDirectory
	publisher *fakePublisher
	service   *TaskService
}

func newEnv() *env {
	repo := newFakeTaskRepo()
	logs := &fakeLogRepo{}
	directory := &fakeDirectory{}
	publisher := &fakePublisher{}
	return &env{
		repo:      repo,
		logs:      logs,
		directory: directory,
		publisher: publisher,
		service:   NewTaskService(repo, logs, directory, publisher),
	}
}
