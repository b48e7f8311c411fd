package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"

	"github.com/canvashub/canvashub/internal/app/system/timeouts"
)

// appConfigKeys defines the configuration keys for CanvasHub, loaded via
// WAFFLE's config system with support for:
//   - Config files: mongo_uri, token_secret, etc.
//   - Environment variables: CANVASHUB_MONGO_URI, CANVASHUB_TOKEN_SECRET, etc.
//   - Command-line flags: --mongo_uri, --token_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "canvashub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "token_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Bearer token signing secret (must be strong in production)"},
	{Name: "token_ttl", Default: "24h", Desc: "Bearer token lifetime (e.g., 24h, 8h)"},

	// SuperAdmin bootstrap
	{Name: "superadmin_username", Default: "", Desc: "Username of the super admin bootstrapped on startup"},
	{Name: "superadmin_password", Default: "", Desc: "Password for the bootstrapped super admin (required when username is set)"},
	{Name: "superadmin_email", Default: "", Desc: "Email for the bootstrapped super admin"},

	// Background workers
	{Name: "max_shift", Default: "8h", Desc: "Auto clock-out threshold for open work sessions"},
	{Name: "sweep_interval", Default: "5m", Desc: "How often background sweeps run"},

	// Handler deadline overrides; empty keeps the package defaults.
	{Name: "timeout_ping", Default: "", Desc: "Deadline for health-check pings"},
	{Name: "timeout_short", Default: "", Desc: "Deadline for single-document reads"},
	{Name: "timeout_medium", Default: "", Desc: "Deadline for list queries and moderate writes"},
	{Name: "timeout_long", Default: "", Desc: "Deadline for multi-collection writes"},
	{Name: "timeout_batch", Default: "", Desc: "Deadline for bulk operations such as CSV export"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CANVASHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		TokenSecret: appValues.String("token_secret"),
		TokenTTL:    appValues.Duration("token_ttl", 24*time.Hour),

		SuperAdminUsername: appValues.String("superadmin_username"),
		SuperAdminPassword: appValues.String("superadmin_password"),
		SuperAdminEmail:    appValues.String("superadmin_email"),

		MaxShift:      appValues.Duration("max_shift", 8*time.Hour),
		SweepInterval: appValues.Duration("sweep_interval", 5*time.Minute),

		Timeouts: timeouts.Config{
			Ping:   appValues.Duration("timeout_ping", 0),
			Short:  appValues.Duration("timeout_short", 0),
			Medium: appValues.Duration("timeout_medium", 0),
			Long:   appValues.Duration("timeout_long", 0),
			Batch:  appValues.Duration("timeout_batch", 0),
		},
	}
	return coreCfg, appCfg, nil
}

// ValidateConfig enforces the invariants a misconfigured deployment
// would otherwise only discover at first request.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if coreCfg.Env == "prod" && appCfg.TokenSecret == "dev-only-change-me-please-0123456789ABCDEF" {
		return fmt.Errorf("token_secret must be set in production")
	}
	if appCfg.SuperAdminUsername != "" && appCfg.SuperAdminPassword == "" {
		return fmt.Errorf("superadmin_password is required when superadmin_username is set")
	}
	if appCfg.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive")
	}
	for name, d := range map[string]time.Duration{
		"timeout_ping":   appCfg.Timeouts.Ping,
		"timeout_short":  appCfg.Timeouts.Short,
		"timeout_medium": appCfg.Timeouts.Medium,
		"timeout_long":   appCfg.Timeouts.Long,
		"timeout_batch":  appCfg.Timeouts.Batch,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}
