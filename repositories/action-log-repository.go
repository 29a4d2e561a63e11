package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vee2004/collaborative-todo-board/models"

	"github.com/gocql/gocql"
	"github.com/sirupsen/logrus"
)

// ActionLogRepo stores audit entries in Cassandra. The table partitions by
// board and clusters newest-first, so the recent-activity feed is a single
// partition read. Entries are append-only; there is no update or delete.
type ActionLogRepo struct {
	session *gocql.Session
	logger  *logrus.Logger
}

func NewActionLogRepo(logger *logrus.Logger) (*ActionLogRepo, error) {
	db := os.Getenv("CASS_DB")
	if db == "" {
		db = "127.0.0.1"
	}

	cluster := gocql.NewCluster(db)
	cluster.Keyspace = "system"
	session, err := cluster.CreateSession()
	if err != nil {
		logger.Errorf("Failed to connect to Cassandra: %v", err)
		return nil, err
	}

	err = session.Query(
		`CREATE KEYSPACE IF NOT EXISTS board
         WITH replication = {
             'class': 'SimpleStrategy',
             'replication_factor': 1
         }`).Exec()
	if err != nil {
		logger.Errorf("Failed to create keyspace: %v", err)
		return nil, err
	}
	session.Close()

	cluster.Keyspace = "board"
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		logger.Errorf("Failed to connect to board keyspace: %v", err)
		return nil, err
	}

	logger.Info("Connected to Cassandra board keyspace.")
	return &ActionLogRepo{
		session: session,
		logger:  logger,
	}, nil
}

func (r *ActionLogRepo) CloseSession() {
	r.session.Close()
	r.logger.Info("Cassandra session closed.")
}

// CreateTable creates the action_logs table and the task_id index.
func (r *ActionLogRepo) CreateTable() {
	err := r.session.Query(
		`CREATE TABLE IF NOT EXISTS action_logs (
			id UUID,
			board_id TEXT,
			action TEXT,
			task_id TEXT,
			user_id TEXT,
			details TEXT,
			message TEXT,
			created_at TIMESTAMP,
			PRIMARY KEY ((board_id), created_at, id)
		) WITH CLUSTERING ORDER BY (created_at DESC, id ASC)`).Exec()
	if err != nil {
		r.logger.Errorf("Failed to create action_logs table: %v", err)
		return
	}

	err = r.session.Query(
		`CREATE INDEX IF NOT EXISTS action_logs_task_idx ON action_logs (task_id)`).Exec()
	if err != nil {
		r.logger.Errorf("Failed to create task_id index: %v", err)
		return
	}
	r.logger.Info("Action log table ready.")
}

func (r *ActionLogRepo) Append(ctx context.Context, entry *models.ActionLog) error {
	if entry.ID == "" {
		entry.ID = gocql.TimeUUID().String()
	}
	if entry.BoardID == "" {
		entry.BoardID = models.DefaultBoardID
	}

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to encode action details: %w", err)
	}

	err = r.session.Query(
		`INSERT INTO action_logs (id, board_id, action, task_id, user_id, details, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.BoardID, string(entry.Action), entry.TaskID, entry.UserID,
		string(details), entry.Message, entry.Timestamp,
	).WithContext(ctx).Exec()
	if err != nil {
		r.logger.Errorf("Failed to append action log entry: %v", err)
		return err
	}
	return nil
}

// Recent returns the newest entries for the board, newest first.
func (r *ActionLogRepo) Recent(ctx context.Context, limit int) ([]models.ActionLog, error) {
	query := `SELECT id, board_id, action, task_id, user_id, details, message, created_at
			  FROM action_logs WHERE board_id = ? LIMIT ?`

	iter := r.session.Query(query, models.DefaultBoardID, limit).WithContext(ctx).Iter()
	entries, err := scanEntries(iter)
	if err != nil {
		r.logger.Errorf("Failed to fetch recent action logs: %v", err)
		return nil, err
	}
	return entries, nil
}

// ForTask returns a task's entries in timestamp order, oldest first, so a
// consumer can replay the task's history as a narrative.
func (r *ActionLogRepo) ForTask(ctx context.Context, taskID string) ([]models.ActionLog, error) {
	query := `SELECT id, board_id, action, task_id, user_id, details, message, created_at
			  FROM action_logs WHERE task_id = ?`

	iter := r.session.Query(query, taskID).WithContext(ctx).Iter()
	entries, err := scanEntries(iter)
	if err != nil {
		r.logger.Errorf("Failed to fetch action logs for task %s: %v", taskID, err)
		return nil, err
	}

	// Clustering order is newest-first; flip for chronological replay.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func scanEntries(iter *gocql.Iter) ([]models.ActionLog, error) {
	var entries []models.ActionLog
	var entry models.ActionLog
	var action, details string

	for iter.Scan(&entry.ID, &entry.BoardID, &action, &entry.TaskID, &entry.UserID,
		&details, &entry.Message, &entry.Timestamp) {
		entry.Action = models.ActionType(action)
		var decoded models.ActionDetails
		if details != "" {
			if err := json.Unmarshal([]byte(details), &decoded); err != nil {
				return nil, fmt.Errorf("failed to decode action details: %w", err)
			}
		}
		entry.Details = decoded
		entries = append(entries, entry)
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}
	return entries, nil
}
