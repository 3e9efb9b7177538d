package main

import (
	"log/slog"
	"os"

	"github.com/TylerWon/chat-rooms/internal/logging"
)

func setupLogger(format, level string) *slog.Logger {
	l := logging.New(format, logging.ParseLevel(level), os.Stderr).With("app", "chat-server")
	logging.Set(l)
	return l
}
