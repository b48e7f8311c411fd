package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authfeature "github.com/canvashub/canvashub/internal/app/features/auth"
	competitionsfeature "github.com/canvashub/canvashub/internal/app/features/competitions"
	healthfeature "github.com/canvashub/canvashub/internal/app/features/health"
	leaderboardfeature "github.com/canvashub/canvashub/internal/app/features/leaderboard"
	leadsfeature "github.com/canvashub/canvashub/internal/app/features/leads"
	newsfeature "github.com/canvashub/canvashub/internal/app/features/news"
	notificationsfeature "github.com/canvashub/canvashub/internal/app/features/notifications"
	organizationsfeature "github.com/canvashub/canvashub/internal/app/features/organizations"
	projectsfeature "github.com/canvashub/canvashub/internal/app/features/projects"
	rewardsfeature "github.com/canvashub/canvashub/internal/app/features/rewards"
	timetrackingfeature "github.com/canvashub/canvashub/internal/app/features/timetracking"
	trackingfeature "github.com/canvashub/canvashub/internal/app/features/tracking"
	usersfeature "github.com/canvashub/canvashub/internal/app/features/users"

	blobstore "github.com/canvashub/canvashub/internal/app/store/blobs"
	competitionstore "github.com/canvashub/canvashub/internal/app/store/competitions"
	counterstore "github.com/canvashub/canvashub/internal/app/store/counters"
	leadstore "github.com/canvashub/canvashub/internal/app/store/leads"
	trackstore "github.com/canvashub/canvashub/internal/app/store/livetracking"
	newsstore "github.com/canvashub/canvashub/internal/app/store/news"
	notificationstore "github.com/canvashub/canvashub/internal/app/store/notifications"
	organizationstore "github.com/canvashub/canvashub/internal/app/store/organizations"
	projectstore "github.com/canvashub/canvashub/internal/app/store/projects"
	rewardstore "github.com/canvashub/canvashub/internal/app/store/rewards"
	timestore "github.com/canvashub/canvashub/internal/app/store/timetracking"
	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	sysauth "github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/workers"
)

// background workers started with the handler, stopped in Shutdown.
var runningWorkers []interface{ Stop() }

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and Startup have completed. Every request passes through
// LoadBearerUser so handlers can read the caller via auth.CurrentUser;
// authorization itself happens per route.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	counters := counterstore.New(db)
	users := userstore.New(db)
	orgs := organizationstore.New(db)
	leads := leadstore.New(db)
	comps := competitionstore.New(db)
	news := newsstore.New(db)
	projects := projectstore.New(db)
	blobs := blobstore.New(db)
	rewards := rewardstore.New(db)
	sessions := timestore.New(db)
	tracks := trackstore.New(db)
	notifications := notificationstore.New(db, counters)
	dispatcher := notificationstore.NewDispatcher(notifications, logger)

	tokens := sysauth.NewManager(appCfg.TokenSecret, appCfg.TokenTTL)

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators.
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, logger)))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(tokens.LoadBearerUser)

		r.Mount("/auth", authfeature.Routes(authfeature.NewHandler(users, tokens, logger)))
		r.Mount("/users", usersfeature.Routes(usersfeature.NewHandler(users, orgs, leads, logger)))
		r.Mount("/organizations", organizationsfeature.Routes(organizationsfeature.NewHandler(orgs, users, projects, counters, logger)))
		r.Mount("/leads", leadsfeature.Routes(leadsfeature.NewHandler(leads, users, blobs, counters, dispatcher, logger)))
		r.Mount("/competitions", competitionsfeature.Routes(competitionsfeature.NewHandler(comps, users, leads, counters, dispatcher, logger)))
		r.Mount("/leaderboard", leaderboardfeature.Routes(leaderboardfeature.NewHandler(users, leads, logger)))
		r.Mount("/news", newsfeature.Routes(newsfeature.NewHandler(news, orgs, users, blobs, counters, dispatcher, logger)))
		r.Mount("/projects", projectsfeature.Routes(projectsfeature.NewHandler(projects, orgs, blobs, counters, logger)))
		r.Mount("/rewards", rewardsfeature.Routes(rewardsfeature.NewHandler(rewards, users, blobs, counters, dispatcher, logger)))
		r.Mount("/time", timetrackingfeature.Routes(timetrackingfeature.NewHandler(sessions, users, logger)))
		r.Mount("/tracking", trackingfeature.Routes(trackingfeature.NewHandler(tracks, sessions, users, logger)))
		r.Mount("/notifications", notificationsfeature.Routes(notificationsfeature.NewHandler(notifications, logger)))
	})

	// Background sweeps share the store instances the handlers use.
	autoClockOut := workers.NewAutoClockOut(sessions, logger, appCfg.SweepInterval, appCfg.MaxShift)
	autoClockOut.Start()
	newsCleanup := workers.NewNewsCleanup(news, logger, appCfg.SweepInterval)
	newsCleanup.Start()
	runningWorkers = append(runningWorkers, autoClockOut, newsCleanup)

	return r, nil
}
