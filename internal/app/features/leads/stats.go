package leads

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/app/system/csvutil"
	"github.com/canvashub/canvashub/internal/app/system/httpjson"
	"github.com/canvashub/canvashub/internal/app/system/timeouts"
)

// Stats handles GET /leads/stats: counts by status within the caller's
// scope, with optional since/until bounds.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "lead stats")
	defer cancel()

	f, err := h.scopedFilter(ctx, actor)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	q := r.URL.Query()
	if since, err := time.Parse(time.RFC3339, q.Get("since")); err == nil {
		f.Since = &since
	}
	if until, err := time.Parse(time.RFC3339, q.Get("until")); err == nil {
		f.Until = &until
	}

	summary, err := h.Leads.StatusSummary(ctx, f)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	var total int64
	for _, n := range summary {
		total += n
	}
	httpjson.OK(w, map[string]any{"by_status": summary, "total": total})
}

// Export handles GET /leads/export: the caller's visible leads as a CSV
// attachment.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "export leads")
	defer cancel()

	f, err := h.scopedFilter(ctx, actor)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	leads, err := h.Leads.List(ctx, f)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		`attachment; filename="`+csvutil.ExportFilename(f.OrgID, time.Now())+`"`)
	if _, err := csvutil.WriteLeads(w, leads); err != nil {
		h.Log.Error("lead export write failed", zap.Error(err))
	}
}
