package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/attendance-hq/apiserver/config"
	"github.com/attendance-hq/apiserver/internal/db"
	"github.com/attendance-hq/apiserver/internal/mq"
	"github.com/attendance-hq/apiserver/internal/observability"
	"github.com/attendance-hq/apiserver/internal/services"
	"github.com/attendance-hq/apiserver/internal/storage"
	"github.com/attendance-hq/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

// Server wraps the HTTP server, its router and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
	logger     *slog.Logger
}

// New opens the database, blob store and message queue selected by cfg and
// wires them into a router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := NewLogger(cfg)

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	blobs, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	var publisher services.EventPublisher
	if queue != nil {
		publisher = queue
	}

	userRepo := store.NewUserRepository(dbConn)
	employeeRepo := store.NewEmployeeRepository(dbConn)
	attendanceRepo := store.NewAttendanceRepository(dbConn)

	svc, err := BuildServices(cfg, Repositories{
		Users:      userRepo,
		Employees:  employeeRepo,
		Attendance: attendanceRepo,
	}, blobs, publisher, observability.Global(), logger)
	if err != nil {
		closeAll(dbConn, queue)
		return nil, err
	}

	if cfg.SeedFile != "" {
		seed, err := services.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			closeAll(dbConn, queue)
			return nil, err
		}
		seeder := services.NewSeeder(userRepo, employeeRepo, svc.Users.HashPassword, logger)
		if err := seeder.Apply(ctx, seed); err != nil {
			closeAll(dbConn, queue)
			return nil, fmt.Errorf("apply seed file: %w", err)
		}
	}

	router := NewRouter(cfg, svc, dbConn, logger)

	port := cfg.ServerPort
	if port == 0 {
		port = 3000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		queue:      queue,
		logger:     logger,
	}, nil
}

// NewLogger returns the JSON application logger. Development builds log at
// debug level.
func NewLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func closeAll(dbConn *sql.DB, queue *mq.MQ) {
	if queue != nil {
		_ = queue.Close()
	}
	if dbConn != nil {
		_ = dbConn.Close()
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires, then releases the
// queue and database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	closeAll(s.db, s.queue)
	return err
}
