package hookflow

import (
	"time"

	"github.com/dmitrymomot/hookflow/core/server"
)

// Config holds application configuration with environment variable support.
// Load it with config.Load and pass it to NewFromConfig.
type Config struct {
	Name           string        `env:"APP_NAME" envDefault:"root"`
	BodyLimit      int64         `env:"APP_BODY_LIMIT" envDefault:"1048576"`
	RequestTimeout time.Duration `env:"APP_REQUEST_TIMEOUT" envDefault:"0s"`

	Server server.Config
}
