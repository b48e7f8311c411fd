package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

// Startup runs one-time initialization after DB connections and schema
// setup are complete, but before the HTTP handler is built. CanvasHub
// uses it to bootstrap the configured super admin so a fresh deployment
// is never locked out.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(appCfg.Timeouts)

	if appCfg.SuperAdminUsername == "" {
		return nil
	}
	return ensureSuperAdmin(ctx, userstore.New(deps.MongoDatabase), appCfg, logger)
}

// ensureSuperAdmin creates the configured super admin, or re-promotes
// and reactivates an existing user of the same name.
func ensureSuperAdmin(ctx context.Context, users *userstore.Store, appCfg AppConfig, logger *zap.Logger) error {
	existing, err := users.GetByUsername(ctx, appCfg.SuperAdminUsername)
	switch {
	case err == nil:
		if existing.Role != roles.SuperAdmin {
			if err := users.SetRole(ctx, existing.Username, roles.SuperAdmin, ""); err != nil {
				return err
			}
			logger.Info("promoted existing user to super admin", zap.String("username", existing.Username))
		}
		if !existing.IsActive {
			if err := users.Reactivate(ctx, existing.Username); err != nil {
				return err
			}
			logger.Info("reactivated super admin", zap.String("username", existing.Username))
		}
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		hash, err := auth.HashPassword(appCfg.SuperAdminPassword)
		if err != nil {
			return err
		}
		_, err = users.Create(ctx, models.User{
			Username: appCfg.SuperAdminUsername,
			Password: hash,
			Email:    appCfg.SuperAdminEmail,
			Role:     roles.SuperAdmin,
		})
		if err != nil {
			return err
		}
		logger.Info("bootstrapped super admin", zap.String("username", appCfg.SuperAdminUsername))
		return nil
	default:
		return err
	}
}
