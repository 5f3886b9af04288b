package internal

import (
	"io"

	"resume-canvas/internal/config"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *config.Config
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *config.Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects console logging, stderr by default.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
