// Package health serves the unauthenticated liveness probe.
package health

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
)

// Handler holds dependencies for the health endpoint.
type Handler struct {
	Client *mongo.Client
	Log    *zap.Logger
}

func NewHandler(client *mongo.Client, logger *zap.Logger) *Handler {
	return &Handler{Client: client, Log: logger}
}

// Serve handles GET /health: a Mongo ping plus a timestamp. Returns 503
// when the database is unreachable so load balancers pull the instance.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "health ping")
	defer cancel()

	status := "ok"
	code := http.StatusOK
	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Warn("health ping failed", zap.Error(err))
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	httpjson.Write(w, code, map[string]string{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Routes returns a subrouter serving the probe, mounted under /health.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	return r
}
