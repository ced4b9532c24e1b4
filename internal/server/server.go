package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Shavez90/Task-api/config"
	"github.com/Shavez90/Task-api/internal/db"
	"github.com/Shavez90/Task-api/internal/handlers"
	"github.com/Shavez90/Task-api/internal/mq"
	"github.com/Shavez90/Task-api/internal/services"
	"github.com/Shavez90/Task-api/internal/storage"
	"github.com/Shavez90/Task-api/internal/store"
	"github.com/Shavez90/Task-api/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	codec, err := token.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	taskRepo := store.NewTaskRepository(dbConn)
	attachmentRepo := store.NewAttachmentRepository(dbConn)

	broker, events, err := setupEvents(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	attachmentService, err := setupAttachments(ctx, cfg, attachmentRepo, taskRepo)
	if err != nil {
		if broker != nil {
			_ = broker.Close()
		}
		_ = dbConn.Close()
		return nil, err
	}

	userService := services.NewUserService(userRepo)
	authService := services.NewAuthService(userRepo, codec)
	taskService := services.NewTaskService(taskRepo, events, slog.Default())

	authMiddleware := handlers.RequireAuth(codec, userService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Get("/readyz", handlers.Readyz(dbConn))
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, userService, authMiddleware)
	})
	router.Route("/tasks", func(r chi.Router) {
		handlers.TaskRouter(r, taskService, attachmentService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

func setupEvents(ctx context.Context, cfg config.Config) (*mq.MQ, *mq.TaskEventPublisher, error) {
	backend, err := mq.NewBackend(ctx, cfg.MQ)
	if err != nil {
		return nil, nil, err
	}
	if backend == nil {
		return nil, nil, nil
	}
	broker := mq.New(backend)
	return broker, mq.NewTaskEventPublisher(broker, ""), nil
}

func setupAttachments(
	ctx context.Context,
	cfg config.Config,
	attachmentRepo *store.AttachmentRepository,
	taskRepo *store.TaskRepository,
) (*services.AttachmentService, error) {
	var backend storage.ObjectStorage
	switch cfg.Storage.Backend {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	objects := storage.NewStorage(backend)
	if err := objects.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return services.NewAttachmentService(attachmentRepo, taskRepo, objects), nil
}
