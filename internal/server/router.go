package server

import (
	"log/slog"
	"time"

	"github.com/attendance-hq/apiserver/config"
	"github.com/attendance-hq/apiserver/internal/handlers"
	"github.com/attendance-hq/apiserver/internal/observability"
	"github.com/attendance-hq/apiserver/internal/services"
	"github.com/attendance-hq/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

const handlerTimeout = 60 * time.Second

// UserStore is the persistence surface of users.
type UserStore interface {
	services.UserRepository
	services.SeedUserStore
}

// EmployeeStore is the persistence surface of employees.
type EmployeeStore interface {
	services.EmployeeRepository
	services.SeedEmployeeStore
}

// Repositories holds the persistence layer the services are built on.
// Both the Postgres store and the in-memory store satisfy it.
type Repositories struct {
	Users      UserStore
	Employees  EmployeeStore
	Attendance services.AttendanceRepository
}

// Services bundles the use-case layer the router dispatches to.
type Services struct {
	Users      *services.UserService
	Employees  *services.EmployeeService
	Attendance *services.AttendanceService
	Photos     *services.PhotoService
}

// BuildServices wires the services over repos. publisher and telemetry may
// be nil.
func BuildServices(cfg config.Config, repos Repositories, blobs services.BlobStore, publisher services.EventPublisher, telemetry *observability.Telemetry, logger *slog.Logger) (Services, error) {
	location, err := cfg.Location()
	if err != nil {
		return Services{}, err
	}

	resolver := services.NewEmployeeResolver(repos.Employees)
	opts := []services.AttendanceOption{
		services.WithLocation(location),
		services.WithTelemetry(telemetry),
		services.WithLogger(logger),
	}
	if publisher != nil {
		opts = append(opts, services.WithEventPublisher(publisher, cfg.MQ.Channel))
	}

	maxUpload := cfg.HTTP.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}

	return Services{
		Users:      services.NewUserService(repos.Users, repos.Employees),
		Employees:  services.NewEmployeeService(repos.Employees, resolver),
		Attendance: services.NewAttendanceService(repos.Attendance, resolver, opts...),
		Photos:     services.NewPhotoService(blobs, maxUpload),
	}, nil
}

var _ EmployeeStore = (*store.EmployeeRepository)(nil)
var _ UserStore = (*store.UserRepository)(nil)
var _ services.AttendanceRepository = (*store.AttendanceRepository)(nil)

// NewRouter mounts every route under /api behind the shared middleware
// stack. health reports database reachability on /health.
func NewRouter(cfg config.Config, svc Services, health handlers.Pinger, logger *slog.Logger) *chi.Mux {
	render := handlers.NewRenderer(logger, cfg.IsDev())
	tokens := handlers.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authMiddleware := handlers.RequireAuth(tokens)

	authHandler := handlers.NewAuthHandler(svc.Users, tokens, render)
	userHandler := handlers.NewUserHandler(svc.Users, render)
	employeeHandler := handlers.NewEmployeeHandler(svc.Employees, svc.Photos, render)
	attendanceHandler := handlers.NewAttendanceHandler(svc.Attendance, svc.Photos, render)
	exportHandler := handlers.NewExportHandler(svc.Attendance, render)
	fileHandler := handlers.NewFileHandler(svc.Photos, render)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.HTTP.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Timeout(handlerTimeout),
	)
	router.NotFound(handlers.NotFound)
	router.Get("/health", handlers.Health(health, cfg.Env, time.Now()))

	router.Route("/api", func(r chi.Router) {
		if cfg.HTTP.RateLimit > 0 {
			r.Use(httprate.Limit(
				cfg.HTTP.RateLimit,
				cfg.HTTP.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(handlers.TooManyRequests),
			))
		}

		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authHandler, authMiddleware)
		})
		r.Route("/export", func(r chi.Router) {
			handlers.ExportRouter(r, exportHandler, authMiddleware)
		})
		r.Get("/files/{filename}", fileHandler.Serve)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Route("/users", func(r chi.Router) {
				handlers.UserRouter(r, userHandler)
			})
			r.Route("/employees", func(r chi.Router) {
				handlers.EmployeeRouter(r, employeeHandler)
			})
			r.Route("/attendance", func(r chi.Router) {
				handlers.AttendanceRouter(r, attendanceHandler)
			})
			r.Post("/upload/photo", fileHandler.Upload)
		})
	})

	return router
}
