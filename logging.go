package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const logFileName = "hqx.log"

// logger writes to ~/.hqx/hqx.log; stdout belongs to the TUI.
var logger = zerolog.Nop()

func initLogging() (func(), error) {
	home := strings.TrimSpace(os.Getenv("HOME"))
	if home == "" {
		return func() {}, nil
	}
	dir := filepath.Join(home, ".hqx")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	level := zerolog.InfoLevel
	if raw := strings.TrimSpace(os.Getenv("HQX_LOG_LEVEL")); raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}

	logger = zerolog.New(file).Level(level).With().Timestamp().Logger()
	return func() {
		logger = zerolog.Nop()
		_ = file.Close()
	}, nil
}
