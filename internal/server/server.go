// Package server wires the application together: database, services,
// handlers, middleware, and routes. It is the composition root — every
// dependency is constructed and connected here, and main.go stays minimal.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/friendlylisteh/server/internal/auth"
	"github.com/friendlylisteh/server/internal/handler"
	"github.com/friendlylisteh/server/internal/middleware"
	sqliteRepo "github.com/friendlylisteh/server/internal/repository/sqlite"
	"github.com/friendlylisteh/server/internal/service"
	"github.com/friendlylisteh/server/internal/upload"
)

// Config holds everything the server needs from the environment. Google and
// Cloudinary credentials are optional — the corresponding features degrade
// gracefully when they're absent.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string

	// CORS allow-list; also the redirect target for the OAuth callback.
	ClientOrigins []string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
}

// Server owns the router and the resources that must be released on
// shutdown. The DB connection is closed during graceful shutdown to flush
// pending writes and release the file lock.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain: sqlite.DB → services → handlers →
// routes. Each layer only receives what it needs; services get repository
// interfaces, handlers get services.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		db.Close()
		return nil, err
	}
	passwords := auth.NewPasswordService()

	var google *auth.GoogleProvider
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		google = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
	}

	var images service.ImageUploader
	if cfg.CloudinaryCloudName != "" {
		uploader, err := upload.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		if err != nil {
			db.Close()
			return nil, err
		}
		images = uploader
	} else {
		logger.Warn("cloudinary not configured, image uploads fall back to placeholder URLs")
	}

	auths := service.NewAuthService(db, tokens, passwords, logger)
	posts := service.NewPostService(db, images, logger)
	comments := service.NewCommentService(db, db, db, logger)
	favorites := service.NewFavoriteService(db, db, logger)
	users := service.NewUserService(db, passwords, images, logger)

	clientOrigin := "/"
	if len(cfg.ClientOrigins) > 0 {
		clientOrigin = cfg.ClientOrigins[0]
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	s.setupRoutes(
		handler.NewAuthHandler(auths, google, clientOrigin, logger),
		handler.NewPostHandler(posts, logger),
		handler.NewCommentHandler(comments, logger),
		handler.NewFavoriteHandler(favorites, logger),
		handler.NewUserHandler(users, logger),
		tokens,
	)

	return s, nil
}

// setupRoutes configures middleware and maps every route to its handler.
//
// Middleware order matters: RequestID and RealIP first so the logger sees
// them, Recoverer before the handlers so panics become 500s, CORS before
// routing so preflights are answered.
func (s *Server) setupRoutes(
	authH *handler.AuthHandler,
	postH *handler.PostHandler,
	commentH *handler.CommentHandler,
	favoriteH *handler.FavoriteHandler,
	userH *handler.UserHandler,
	tokens *auth.TokenService,
) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// The SPA runs on a different origin in development, and the auth cookie
	// only flows cross-origin when AllowCredentials is set and the origin is
	// explicitly allow-listed (no wildcard with credentials).
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.ClientOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	requireAuth := auth.RequireAuth(tokens)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authH.HandleSignup)
			r.Post("/signin", authH.HandleSignin)
			r.Post("/google", authH.HandleGoogleSignin)
			r.Get("/google/login", authH.HandleGoogleLogin)
			r.Get("/google/callback", authH.HandleGoogleCallback)
		})

		r.Route("/post", func(r chi.Router) {
			r.Get("/read", postH.HandleRead)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/create", postH.HandleCreate)
				r.Put("/update/{postId}/{userId}", postH.HandleUpdate)
				r.Delete("/delete/{postId}/{userId}", postH.HandleDelete)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.Get("/getComments/{postId}", commentH.HandleGetByPost)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/addComment", commentH.HandleAdd)
				r.Get("/getAllComments", commentH.HandleGetAll)
				r.Delete("/deleteComments/{commentId}", commentH.HandleDelete)
			})
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/toggle", favoriteH.HandleToggle)
			r.Get("/read", favoriteH.HandleRead)
		})

		r.Route("/user", func(r chi.Router) {
			// Signout only clears the cookie, so it works even with an
			// expired token.
			r.Post("/signout", authH.HandleSignout)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/getUser", userH.HandleList)
				r.Get("/{userId}", userH.HandleGet)
				r.Put("/update/{userId}", userH.HandleUpdate)
				r.Delete("/delete/{userId}", userH.HandleDelete)
				r.Delete("/admin-delete/{userId}", userH.HandleAdminDelete)
			})
		})
	})
}

// Router exposes the configured router so tests can drive the full stack
// through httptest without opening a port.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: in-flight requests get up to 10 seconds to finish, and the
// database is closed last.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		s.db.Close()
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		s.logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		s.db.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
