package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/vee2004/collaborative-todo-board/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaskRepository stores tasks in MongoDB. The version field is the fencing
// token: Replace writes only when the stored version still matches the one
// the caller read, so concurrent writers to the same task cannot both win.
type TaskRepository struct {
	collection *mongo.Collection
}

func NewTaskRepository(collection *mongo.Collection) *TaskRepository {
	return &TaskRepository{collection: collection}
}

// EnsureIndexes creates the unique title index. The index, not the
// pre-write lookup, is what actually closes the race between two creates
// or renames to the same title.
func (r *TaskRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "title", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create title index: %w", err)
	}
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) List(ctx context.Context) ([]models.Task, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Insert(ctx context.Context, task *models.Task) error {
	_, err := r.collection.InsertOne(ctx, task)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrDuplicateTitle
	}
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Replace is the atomic compare-and-swap: the filter matches both the id
// and the version the caller read, so of two racers exactly one matches.
func (r *TaskRepository) Replace(ctx context.Context, expectedVersion int64, task *models.Task) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": task.ID, "version": expectedVersion}, task)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrDuplicateTitle
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": task.ID})
		if err != nil {
			return fmt.Errorf("failed to check task existence: %w", err)
		}
		if count == 0 {
			return models.ErrTaskNotFound
		}
		return models.ErrVersionMismatch
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var prior models.Task
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&prior)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}
	return &prior, nil
}

// FindByTitle returns the task carrying the title, or nil if free. A
// non-zero exclude skips the task being renamed.
func (r *TaskRepository) FindByTitle(ctx context.Context, title string, exclude primitive.ObjectID) (*models.Task, error) {
	filter := bson.M{"title": title}
	if exclude != primitive.NilObjectID {
		filter["_id"] = bson.M{"$ne": exclude}
	}

	var task models.Task
	err := r.collection.FindOne(ctx, filter).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up title: %w", err)
	}
	return &task, nil
}

// CountAssignedPerUser aggregates live assignment counts, unassigned tasks
// excluded. The snapshot is not isolated from concurrent writes.
func (r *TaskRepository) CountAssignedPerUser(ctx context.Context) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"assignedUser": bson.M{"$ne": nil}}}},
		{{Key: "$group", Value: bson.M{"_id": "$assignedUser", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate assignment counts: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int)
	for cursor.Next(ctx) {
		var row struct {
			ID    primitive.ObjectID `bson:"_id"`
			Count int                `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode assignment count: %w", err)
		}
		counts[row.ID.Hex()] = row.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return counts, nil
}
