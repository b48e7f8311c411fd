package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	trackstore "github.com/canvashub/canvashub/internal/app/store/livetracking"
	timestore "github.com/canvashub/canvashub/internal/app/store/timetracking"
	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/roles"
	"github.com/canvashub/canvashub/internal/testutil"
)

func newTestHandler(t *testing.T) (*Handler, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	h := NewHandler(trackstore.New(db), timestore.New(db), userstore.New(db), zap.NewNop())
	return h, ctx
}

func serve(h *Handler, method, path, body string, id *auth.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if id != nil {
		req = auth.WithTestUser(req, id)
	}
	w := httptest.NewRecorder()

	r := chi.NewRouter()
	r.Mount("/tracking", Routes(h))
	r.ServeHTTP(w, req)
	return w
}

func fix(lat, lng float64, at time.Time) string {
	return fmt.Sprintf(`{"latitude":%f,"longitude":%f,"timestamp":%q}`, lat, lng, at.Format(time.RFC3339))
}

func TestUpdate_RequiresActiveSession(t *testing.T) {
	h, _ := newTestHandler(t)

	w := serve(h, http.MethodPost, "/tracking/update", fix(40.0, -88.0, time.Now()),
		testutil.Identity("canv1", roles.Canvasser, "ORG_0001"))
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 when not clocked in", w.Code)
	}
}

func TestUpdate_AccumulatesDistance(t *testing.T) {
	h, ctx := newTestHandler(t)
	if _, err := h.Sessions.ClockIn(ctx, "canv1", "ORG_0001", "", time.Now()); err != nil {
		t.Fatal(err)
	}

	canv := testutil.Identity("canv1", roles.Canvasser, "ORG_0001")
	t0 := time.Now().Truncate(time.Second)

	w := serve(h, http.MethodPost, "/tracking/update", fix(40.0, -88.0, t0), canv)
	if w.Code != http.StatusOK {
		t.Fatalf("first fix status = %d, body %s", w.Code, w.Body.String())
	}

	// ~111 m north one minute later.
	w = serve(h, http.MethodPost, "/tracking/update", fix(40.001, -88.0, t0.Add(time.Minute)), canv)
	if w.Code != http.StatusOK {
		t.Fatalf("second fix status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Activity string  `json:"current_activity"`
		Distance float64 `json:"total_distance_meters"`
		Points   int     `json:"points"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Points != 2 {
		t.Errorf("points = %d, want 2", resp.Points)
	}
	if resp.Distance < 100 || resp.Distance > 125 {
		t.Errorf("distance = %f, want ~111", resp.Distance)
	}
	// ~6.7 km/h falls in the cycling bucket.
	if resp.Activity != models.ActivityCycling {
		t.Errorf("activity = %q, want cycling", resp.Activity)
	}
}

func TestUpdate_RejectsBadCoordinates(t *testing.T) {
	h, ctx := newTestHandler(t)
	if _, err := h.Sessions.ClockIn(ctx, "canv1", "ORG_0001", "", time.Now()); err != nil {
		t.Fatal(err)
	}

	w := serve(h, http.MethodPost, "/tracking/update", `{"latitude":91,"longitude":0}`,
		testutil.Identity("canv1", roles.Canvasser, "ORG_0001"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCurrent_ApprovalTierOnly(t *testing.T) {
	h, ctx := newTestHandler(t)
	if _, err := h.Sessions.ClockIn(ctx, "canv1", "ORG_0001", "", time.Now()); err != nil {
		t.Fatal(err)
	}
	canv := testutil.Identity("canv1", roles.Canvasser, "ORG_0001")
	serve(h, http.MethodPost, "/tracking/update", fix(40.0, -88.0, time.Now()), canv)

	w := serve(h, http.MethodGet, "/tracking/current", "", canv)
	if w.Code != http.StatusForbidden {
		t.Fatalf("canvasser current status = %d, want 403", w.Code)
	}

	w = serve(h, http.MethodGet, "/tracking/current", "",
		testutil.Identity("mgr1", roles.Manager, "ORG_0001"))
	if w.Code != http.StatusOK {
		t.Fatalf("manager current status = %d", w.Code)
	}
	var resp struct {
		Positions []currentRow `json:"positions"`
		Count     int          `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Positions[0].Username != "canv1" {
		t.Fatalf("positions = %+v", resp.Positions)
	}
	if resp.Positions[0].LastFix == nil {
		t.Error("last_fix missing")
	}
}

func TestPath_TeamVisibility(t *testing.T) {
	h, ctx := newTestHandler(t)
	if _, err := h.Users.Create(ctx, models.User{
		Username: "mgr1", Password: "x", Email: "mgr1@example.com",
		Role: roles.Manager, OrganizationID: "ORG_0001",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Users.Create(ctx, models.User{
		Username: "canv1", Password: "x", Email: "canv1@example.com",
		Role: roles.Canvasser, OrganizationID: "ORG_0001", ManagerID: "mgr1",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Users.Create(ctx, models.User{
		Username: "canv2", Password: "x", Email: "canv2@example.com",
		Role: roles.Canvasser, OrganizationID: "ORG_0001",
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := h.Sessions.ClockIn(ctx, "canv1", "ORG_0001", "", time.Now()); err != nil {
		t.Fatal(err)
	}
	canv := testutil.Identity("canv1", roles.Canvasser, "ORG_0001")
	serve(h, http.MethodPost, "/tracking/update", fix(40.0, -88.0, time.Now()), canv)

	// Own path always visible.
	w := serve(h, http.MethodGet, "/tracking/canv1/path", "", canv)
	if w.Code != http.StatusOK {
		t.Fatalf("own path status = %d", w.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 {
		t.Errorf("own path count = %d, want 1", resp.Count)
	}

	// The assigned manager sees it; an unrelated canvasser does not.
	w = serve(h, http.MethodGet, "/tracking/canv1/path", "",
		testutil.Identity("mgr1", roles.Manager, "ORG_0001"))
	if w.Code != http.StatusOK {
		t.Fatalf("manager path status = %d", w.Code)
	}
	w = serve(h, http.MethodGet, "/tracking/canv1/path", "",
		testutil.Identity("canv2", roles.Canvasser, "ORG_0001"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("peer path status = %d, want 403", w.Code)
	}
}

func TestAnalytics_ActivityBreakdown(t *testing.T) {
	h, ctx := newTestHandler(t)
	if _, err := h.Sessions.ClockIn(ctx, "canv1", "ORG_0001", "", time.Now()); err != nil {
		t.Fatal(err)
	}

	canv := testutil.Identity("canv1", roles.Canvasser, "ORG_0001")
	t0 := time.Now().Add(-10 * time.Minute).Truncate(time.Second)
	for i, lat := range []float64{40.0, 40.001, 40.002} {
		serve(h, http.MethodPost, "/tracking/update", fix(lat, -88.0, t0.Add(time.Duration(i)*time.Minute)), canv)
	}

	w := serve(h, http.MethodGet, "/tracking/canv1/analytics", "", canv)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Sessions    int                `json:"sessions"`
		Distance    float64            `json:"total_distance_meters"`
		TrackedSecs float64            `json:"total_tracked_seconds"`
		ByActivity  map[string]float64 `json:"seconds_by_activity"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Sessions != 1 {
		t.Errorf("sessions = %d, want 1", resp.Sessions)
	}
	if resp.Distance < 200 || resp.Distance > 250 {
		t.Errorf("distance = %f, want ~222", resp.Distance)
	}
	if resp.TrackedSecs != 120 {
		t.Errorf("tracked seconds = %f, want 120", resp.TrackedSecs)
	}
	if resp.ByActivity[models.ActivityCycling] != 120 {
		t.Errorf("cycling seconds = %f, want 120", resp.ByActivity[models.ActivityCycling])
	}
}
