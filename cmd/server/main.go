// Package main is the entry point for the Friendly Listeh API server.
//
// main stays minimal: load configuration from the environment, build the
// logger, hand everything to internal/server, and start. All actual logic
// lives in the imported packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/friendlylisteh/server/internal/server"
)

func main() {
	// Best-effort: a .env file is a development convenience, production sets
	// real environment variables.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Ensure the database directory exists before sqlite tries to open it.
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// loadConfig reads the environment. PORT, DB_PATH, and JWT_SECRET are
// required — better to refuse to start than to run half-configured. Google
// and Cloudinary credentials are optional; the features degrade gracefully.
func loadConfig() (server.Config, error) {
	var cfg server.Config

	portStr, err := requireEnv("PORT")
	if err != nil {
		return cfg, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return cfg, err
	}
	cfg.Port = port

	if cfg.DBPath, err = requireEnv("DB_PATH"); err != nil {
		return cfg, err
	}
	if cfg.JWTSecret, err = requireEnv("JWT_SECRET"); err != nil {
		return cfg, err
	}

	// Comma-separated allow-list, e.g. "http://localhost:5173,https://app.example.com"
	if origins := os.Getenv("CLIENT_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.ClientOrigins = append(cfg.ClientOrigins, o)
			}
		}
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.GoogleCallbackURL = os.Getenv("GOOGLE_CALLBACK_URL")

	cfg.CloudinaryCloudName = os.Getenv("CLOUDINARY_CLOUD_NAME")
	cfg.CloudinaryAPIKey = os.Getenv("CLOUDINARY_API_KEY")
	cfg.CloudinaryAPISecret = os.Getenv("CLOUDINARY_API_SECRET")
	cfg.CloudinaryFolder = os.Getenv("CLOUDINARY_FOLDER")
	if cfg.CloudinaryFolder == "" {
		cfg.CloudinaryFolder = "friendly-listeh"
	}

	return cfg, nil
}

func requireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", &missingEnvError{name: name}
	}
	return v, nil
}

type missingEnvError struct{ name string }

func (e *missingEnvError) Error() string {
	return "required environment variable " + e.name + " is not set"
}

// logLevel maps LOG_LEVEL to a slog level, defaulting to Info.
func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
