package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/code-hustle/apiserver/config"
	"github.com/code-hustle/apiserver/internal/db"
	"github.com/code-hustle/apiserver/internal/handlers"
	"github.com/code-hustle/apiserver/internal/metrics"
	"github.com/code-hustle/apiserver/internal/mq"
	"github.com/code-hustle/apiserver/internal/services"
	"github.com/code-hustle/apiserver/internal/storage"
	"github.com/code-hustle/apiserver/internal/store"
	"github.com/code-hustle/apiserver/internal/token"
)

// Server wraps the HTTP server, router, and long-lived dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
	log        zerolog.Logger
	cancel     context.CancelFunc
}

// New constructs a Server with all services wired. ctx bounds the lifetime
// of the judge-result consumer.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	objectStore, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		if broker != nil {
			_ = broker.Close()
		}
		_ = dbConn.Close()
		return nil, err
	}
	if objectStore != nil {
		if err := objectStore.EnsureBucket(ctx); err != nil {
			if broker != nil {
				_ = broker.Close()
			}
			_ = dbConn.Close()
			return nil, err
		}
	}

	userRepo := store.NewUserRepository(dbConn)
	problemRepo := store.NewProblemRepository(dbConn)
	submissionRepo := store.NewSubmissionRepository(dbConn)
	statsRepo := store.NewStatsRepository(dbConn)

	tokens := token.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	userService := services.NewUserService(userRepo, tokens, cfg.BcryptCost)
	problemService := services.NewProblemService(problemRepo)
	submissionService := services.NewSubmissionService(submissionRepo, problemRepo, broker, log)

	authMiddleware := handlers.NewAuthMiddleware(userService, tokens, log)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger(log),
		metrics.Instrument,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}),
	)

	router.Get("/healthz", handlers.Healthz)
	router.Method("GET", "/metrics", promhttp.Handler())

	submissionHandler := handlers.NewSubmissionHandler(submissionService)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, userService, authMiddleware, log)
		})
		r.With(authMiddleware.RequireAuth).Get("/protected", handlers.Protected)
		r.Route("/problems", func(r chi.Router) {
			handlers.ProblemRouter(r, problemService, authMiddleware)
			r.With(authMiddleware.RequireAuth).Post("/{problemID}/submissions", submissionHandler.CreateSubmission)
		})
		r.Route("/submissions", func(r chi.Router) {
			handlers.SubmissionRouter(r, submissionService, authMiddleware)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.AvatarRouter(r, userService, objectStore, authMiddleware)
		})
		r.Route("/admin", func(r chi.Router) {
			handlers.AdminRouter(r, statsRepo, authMiddleware, log)
		})
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

	consumerCtx, cancel := context.WithCancel(ctx)
	if broker != nil {
		go func() {
			if err := submissionService.ConsumeResults(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("judge result consumer stopped")
			}
		}()
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
		log:        log,
		cancel:     cancel,
	}, nil
}

// Router exposes the chi router for route registration and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. Returns nil after a clean Shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown attempts a graceful shutdown, then closes the broker and the
// database pool.
func (s *Server) Shutdown() error {
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)

	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}

// requestLogger emits one structured log line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
