package internal

import (
	"github.com/radrebel/fedscout/internal/notifier"
	"github.com/radrebel/fedscout/internal/usajobs"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	configPath string
	client     usajobs.Client
	sink       notifier.Sink
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithConfigPath sets the config file path to watch for live reloads.
// Without it, hot reload is disabled.
func WithConfigPath(path string) Option {
	return func(a *application) {
		a.configPath = path
	}
}

// WithSearchClient overrides the upstream job search client.
func WithSearchClient(c usajobs.Client) Option {
	return func(a *application) {
		a.client = c
	}
}

// WithSink overrides the notification sink.
func WithSink(s notifier.Sink) Option {
	return func(a *application) {
		a.sink = s
	}
}
