package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/vee2004/collaborative-todo-board/logging"
	"github.com/vee2004/collaborative-todo-board/models"
	"github.com/vee2004/collaborative-todo-board/services"

	"github.com/gorilla/mux"
)

// recentLogLimit matches the activity feed size shown on the board.
const recentLogLimit = 20

type LogHandler struct {
	service *services.TaskService
}

func NewLogHandler(service *services.TaskService) *LogHandler {
	return &LogHandler{service: service}
}

// GetRecentLogs returns the newest entries across the board, newest first.
func (h *LogHandler) GetRecentLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.RecentLogs(r.Context(), recentLogLimit)
	if err != nil {
		logging.Logger.Errorf("Event ID: LOG_FETCH_FAILED, Description: Failed to fetch recent logs: %v", err)
		http.Error(w, "Failed to fetch logs", http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []models.ActionLog{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}

// GetTaskLogs returns one task's history in chronological order.
func (h *LogHandler) GetTaskLogs(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]

	logs, err := h.service.TaskLogs(r.Context(), taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if logs == nil {
		logs = []models.ActionLog{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}
