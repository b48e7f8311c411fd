package bootstrap

import (
	"time"

	"github.com/canvashub/canvashub/internal/app/system/timeouts"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS,
// logging, CORS, body limits); AppConfig carries everything specific to
// CanvasHub. Values come from config files, CANVASHUB_* environment
// variables, or command-line flags, loaded in LoadConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer token configuration
	TokenSecret string        // HMAC signing secret (must be strong in production)
	TokenTTL    time.Duration // how long issued tokens stay valid

	// SuperAdmin bootstrap: created (or re-promoted) on startup so a
	// fresh deployment is never locked out.
	SuperAdminUsername string
	SuperAdminPassword string
	SuperAdminEmail    string

	// Background workers
	MaxShift      time.Duration // auto clock-out threshold
	SweepInterval time.Duration // worker tick for both sweeps

	// Handler deadline overrides; zero fields keep the defaults.
	Timeouts timeouts.Config
}
