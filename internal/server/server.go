package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/todo-api/apiserver/config"
	"github.com/todo-api/apiserver/internal/auth"
	"github.com/todo-api/apiserver/internal/db"
	"github.com/todo-api/apiserver/internal/handlers"
	"github.com/todo-api/apiserver/internal/logging"
	"github.com/todo-api/apiserver/internal/mq"
	"github.com/todo-api/apiserver/internal/services"
	"github.com/todo-api/apiserver/internal/store"
	"github.com/todo-api/apiserver/internal/store/memory"
	"github.com/todo-api/apiserver/types"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
	stopWatch  context.CancelFunc
	log        *slog.Logger
}

type repositories struct {
	users services.UserRepository
	todos services.TodoRepository
	db    *sql.DB
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := logging.New(os.Stdout, cfg.Log.Format, cfg.Log.Level, slog.String("service", "todoapi"))
	slog.SetDefault(logger)

	tokens, err := auth.NewTokens(
		cfg.Auth.JWTSecret,
		cfg.Auth.JWTAlgorithm,
		time.Duration(cfg.Auth.TokenExpireMinute)*time.Minute,
	)
	if err != nil {
		return nil, fmt.Errorf("configure tokens: %w", err)
	}

	policy, err := services.NewPasswordPolicy(cfg.Auth.PasswordPolicy)
	if err != nil {
		return nil, err
	}

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queue, err := mq.Open(ctx, cfg.Events)
	if err != nil {
		closeDB(repos.db)
		return nil, err
	}
	events := services.NewEvents(queue, cfg.Events.Topic, logger)

	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	userService := services.NewUserService(repos.users, hasher, policy, events)
	todoService := services.NewTodoService(repos.todos, events)
	authService := services.NewAuthService(repos.users, hasher, tokens)

	router := NewRouter(userService, todoService, authService)

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

	logger.Info("server configured",
		"store", cfg.StoreBackend,
		"events", cfg.Events.Backend,
		"password_policy", cfg.Auth.PasswordPolicy,
	)

	srv := &Server{
		httpServer: httpServer,
		router:     router,
		db:         repos.db,
		queue:      queue,
		log:        logger,
	}
	if cfg.Events.Backend == config.EventsLocal {
		srv.watchLocalEvents(cfg.Events.Topic)
	}
	return srv, nil
}

// watchLocalEvents logs events published on the in-process backend, which
// no other process can subscribe to.
func (s *Server) watchLocalEvents(topic string) {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopWatch = cancel
	go func() {
		err := services.Watch(ctx, s.queue, topic, func(_ context.Context, event types.Event) error {
			s.log.Info("event", "id", event.ID, "type", event.Type, "user_id", event.UserID, "todo_id", event.TodoID)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("watch local events", "error", err)
		}
	}()
}

// NewRouter mounts every route on a chi router. Paths match with or
// without a trailing slash.
func NewRouter(userService *services.UserService, todoService *services.TodoService, authService *services.AuthService) *chi.Mux {
	authMiddleware := handlers.RequireAuth(authService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.StripSlashes,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/", handlers.Root)
	router.Get("/hello", handlers.Hello)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, authMiddleware)
	})
	router.Route("/todos", func(r chi.Router) {
		handlers.TodoRouter(r, todoService, authMiddleware)
	})
	return router
}

func openRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		mem := memory.New()
		return repositories{users: mem.Users(), todos: mem.Todos()}, nil
	case "", config.StorePostgres:
		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return repositories{}, err
		}
		return repositories{
			users: store.NewUserRepository(dbConn),
			todos: store.NewTodoRepository(dbConn),
			db:    dbConn,
		}, nil
	default:
		return repositories{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func closeDB(dbConn *sql.DB) {
	if dbConn != nil {
		_ = dbConn.Close()
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.log.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx ends, then releases the
// database pool and the broker connection.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.stopWatch != nil {
		s.stopWatch()
	}
	if qerr := s.queue.Close(); qerr != nil {
		s.log.Warn("close events backend", "error", qerr)
	}
	closeDB(s.db)
	return err
}
