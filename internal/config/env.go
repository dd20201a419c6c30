package config

import (
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order. Variables already present in the process
// environment, or set by an earlier file, are not overridden.
var envFiles = []string{".env", ".env.local"}

func loadEnvFiles() {
	for _, name := range envFiles {
		if _, err := os.Stat(name); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load environment file", slog.String("path", name), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Loaded environment variables", slog.String("path", name))
	}
}
