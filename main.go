package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/vee2004/collaborative-todo-board/clients"
	"github.com/vee2004/collaborative-todo-board/handlers"
	"github.com/vee2004/collaborative-todo-board/logging"
	"github.com/vee2004/collaborative-todo-board/middleware"
	"github.com/vee2004/collaborative-todo-board/repositories"
	"github.com/vee2004/collaborative-todo-board/services"
	"github.com/vee2004/collaborative-todo-board/sockets"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Board Service...")
	err := godotenv.Load(".env")
	if err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_ERROR, Description: Error loading .env file: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	mongoDBName := os.Getenv("MONGO_DB_NAME")
	mongoCollectionName := os.Getenv("MONGO_COLLECTION")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer mongoClient.Disconnect(ctx)

	if err := mongoClient.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	tasksCollection := mongoClient.Database(mongoDBName).Collection(mongoCollectionName)
	taskRepo := repositories.NewTaskRepository(tasksCollection)
	if err := taskRepo.EnsureIndexes(ctx); err != nil {
		logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: Failed to ensure task indexes: %v", err)
	}

	logRepo, err := repositories.NewActionLogRepo(logging.Logger)
	if err != nil {
		logging.Logger.Fatalf("Event ID: CASS_CONNECTION_FAILED, Description: Cassandra connection failed: %v", err)
	}
	defer logRepo.CloseSession()
	logRepo.CreateTable()

	usersBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "UsersServiceCB",
		MaxRequests: 1,
		Timeout:     2 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
	userClient := clients.NewUserClient(os.Getenv("USERS_SERVICE_URL"), usersBreaker)

	hub := sockets.NewHub()
	defer hub.Close()

	taskService := services.NewTaskService(taskRepo, logRepo, userClient, hub)
	taskHandler := handlers.NewTaskHandler(taskService)
	logHandler := handlers.NewLogHandler(taskService)

	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.JWTAuthMiddleware)
	api.HandleFunc("/tasks", taskHandler.GetAllTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/users", taskHandler.GetUsers).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", taskHandler.UpdateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{id}", taskHandler.DeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id}/smart-assign", taskHandler.SmartAssign).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/resolve", taskHandler.ResolveConflict).Methods(http.MethodPost)
	api.HandleFunc("/logs", logHandler.GetRecentLogs).Methods(http.MethodGet)
	api.HandleFunc("/logs/task/{id}", logHandler.GetTaskLogs).Methods(http.MethodGet)

	r.HandleFunc("/ws", hub.ServeWS)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Board service is running"))
	}).Methods(http.MethodGet)

	corsRouter := enableCORS(r)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: SERVER_PORT is not set in the environment variables.")
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
