package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vee2004/collaborative-todo-board/middleware"
	"github.com/vee2004/collaborative-todo-board/models"
	"github.com/vee2004/collaborative-todo-board/services"

	"github.com/gorilla/mux"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

func actorID(r *http.Request) (string, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.UserID == "" {
		return "", false
	}
	return claims.UserID, true
}

func (h *TaskHandler) GetAllTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.GetAllTasks(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}

func (h *TaskHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetUsers(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch users", http.StatusBadGateway)
		return
	}
	if users == nil {
		users = []models.User{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		http.Error(w, "Missing authenticated user", http.StatusUnauthorized)
		return
	}

	var req services.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	task, err := h.service.CreateTask(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		http.Error(w, "Missing authenticated user", http.StatusUnauthorized)
		return
	}
	taskID := mux.Vars(r)["id"]

	var req services.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	task, err := h.service.UpdateTask(r.Context(), actor, taskID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		http.Error(w, "Missing authenticated user", http.StatusUnauthorized)
		return
	}
	taskID := mux.Vars(r)["id"]

	if err := h.service.DeleteTask(r.Context(), actor, taskID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"message": "Task deleted"}`))
}

func (h *TaskHandler) SmartAssign(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		http.Error(w, "Missing authenticated user", http.StatusUnauthorized)
		return
	}
	taskID := mux.Vars(r)["id"]

	task, user, err := h.service.SmartAssign(r.Context(), actor, taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Task         *models.Task `json:"task"`
		AssignedUser *models.User `json:"assignedUser"`
	}{Task: task, AssignedUser: user})
}

func (h *TaskHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		http.Error(w, "Missing authenticated user", http.StatusUnauthorized)
		return
	}
	taskID := mux.Vars(r)["id"]

	var req services.ResolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	task, err := h.service.ResolveConflict(r.Context(), actor, taskID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

// writeServiceError maps service outcomes onto status codes. A version
// conflict is not a failure: it is a 409 carrying the authoritative state
// the client must resolve against.
func writeServiceError(w http.ResponseWriter, err error) {
	var conflict *models.ConflictError
	if errors.As(err, &conflict) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(struct {
			Message string       `json:"message"`
			Current *models.Task `json:"current"`
		}{Message: "Task version conflict", Current: conflict.Current})
		return
	}

	var validation models.ValidationError
	if errors.As(err, &validation) {
		http.Error(w, validation.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case errors.Is(err, models.ErrTaskNotFound):
		http.Error(w, "Task not found", http.StatusNotFound)
	case errors.Is(err, models.ErrTaskDone):
		http.Error(w, "Cannot re-assign a task that is Done.", http.StatusBadRequest)
	case errors.Is(err, models.ErrNoEligibleUser):
		http.Error(w, "No users available for assignment", http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
