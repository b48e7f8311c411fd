package leads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	blobstore "github.com/canvashub/canvashub/internal/app/store/blobs"
	counterstore "github.com/canvashub/canvashub/internal/app/store/counters"
	leadstore "github.com/canvashub/canvashub/internal/app/store/leads"
	notificationstore "github.com/canvashub/canvashub/internal/app/store/notifications"
	userstore "github.com/canvashub/canvashub/internal/app/store/users"
	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/roles"
	"github.com/canvashub/canvashub/internal/testutil"
)

func newTestHandler(t *testing.T) (*Handler, *notificationstore.Store, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	counters := counterstore.New(db)
	notifStore := notificationstore.New(db, counters)
	h := NewHandler(
		leadstore.New(db),
		userstore.New(db),
		blobstore.New(db),
		counters,
		notificationstore.NewDispatcher(notifStore, zap.NewNop()),
		zap.NewNop(),
	)
	return h, notifStore, ctx
}

func seedUser(t *testing.T, h *Handler, ctx context.Context, username string, role roles.Role, managerID string) {
	t.Helper()
	_, err := h.Users.Create(ctx, models.User{
		Username:       username,
		Password:       "x",
		Email:          username + "@example.com",
		Role:           role,
		OrganizationID: "ORG_0001",
		ManagerID:      managerID,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
}

func serve(h *Handler, method, path, body string, id *auth.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if id != nil {
		req = auth.WithTestUser(req, id)
	}
	w := httptest.NewRecorder()

	r := chi.NewRouter()
	r.Mount("/leads", Routes(h))
	r.ServeHTTP(w, req)
	return w
}

func createLead(t *testing.T, h *Handler, id *auth.Identity, body string) models.Lead {
	t.Helper()
	w := serve(h, http.MethodPost, "/leads", body, id)
	if w.Code != http.StatusCreated {
		t.Fatalf("create lead status = %d, body %s", w.Code, w.Body.String())
	}
	var lead models.Lead
	if err := json.Unmarshal(w.Body.Bytes(), &lead); err != nil {
		t.Fatal(err)
	}
	return lead
}

func TestCreate_CanvasserEarnsPointsAndRoutesToManager(t *testing.T) {
	h, _, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "mgr1", roles.Manager, "")
	seedUser(t, h, ctx, "canv1", roles.Canvasser, "mgr1")

	lead := createLead(t, h, testutil.Identity("canv1", roles.Canvasser, "ORG_0001"),
		`{"client_name":"Jane Roe","phone":"555-0100"}`)

	if lead.LeadID != "LEAD_0001_0001" {
		t.Errorf("lead_id = %q, want LEAD_0001_0001", lead.LeadID)
	}
	if lead.Status != models.LeadPending {
		t.Errorf("status = %s, want pending", lead.Status)
	}
	if lead.AssignedManager != "mgr1" {
		t.Errorf("assigned_manager = %q, want mgr1", lead.AssignedManager)
	}

	u, err := h.Users.GetByUsername(ctx, "canv1")
	if err != nil {
		t.Fatal(err)
	}
	if u.Points != 10 {
		t.Errorf("creator points = %d, want 10", u.Points)
	}
}

func TestCreate_AdminSelfApprovesWithoutPoints(t *testing.T) {
	h, _, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "admin1", roles.AdminManager, "")

	lead := createLead(t, h, testutil.Identity("admin1", roles.AdminManager, "ORG_0001"),
		`{"client_name":"John Doe"}`)

	if lead.Status != models.LeadApproved {
		t.Errorf("status = %s, want approved", lead.Status)
	}
	if lead.ApprovedBy != "admin1" {
		t.Errorf("approved_by = %q, want admin1", lead.ApprovedBy)
	}

	u, err := h.Users.GetByUsername(ctx, "admin1")
	if err != nil {
		t.Fatal(err)
	}
	if u.Points != 0 {
		t.Errorf("admin points = %d, want 0", u.Points)
	}
}

func TestCreate_PhotoStoredOutOfLine(t *testing.T) {
	h, _, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "mgr1", roles.Manager, "")

	lead := createLead(t, h, testutil.Identity("mgr1", roles.Manager, "ORG_0001"),
		`{"client_name":"Jane Roe","photo":{"content_type":"image/jpeg","data":"aGVsbG8="}}`)
	if lead.PropertyPhotoID == "" {
		t.Fatal("property_photo_id not set")
	}

	blob, err := h.Blobs.Get(ctx, lead.PropertyPhotoID)
	if err != nil {
		t.Fatal(err)
	}
	if blob.Data != "aGVsbG8=" || blob.Kind != models.BlobLeadPhoto {
		t.Fatalf("blob = %+v", blob)
	}
}

func TestApprove_AwardsCreatorAndNotifies(t *testing.T) {
	h, notifs, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "mgr1", roles.Manager, "")
	seedUser(t, h, ctx, "canv1", roles.Canvasser, "mgr1")

	lead := createLead(t, h, testutil.Identity("canv1", roles.Canvasser, "ORG_0001"),
		`{"client_name":"Jane Roe"}`)

	mgr := testutil.Identity("mgr1", roles.Manager, "ORG_0001")
	w := serve(h, http.MethodPost, "/leads/"+lead.LeadID+"/approve", `{"notes":"good catch"}`, mgr)
	if w.Code != http.StatusOK {
		t.Fatalf("approve status = %d, body %s", w.Code, w.Body.String())
	}

	u, err := h.Users.GetByUsername(ctx, "canv1")
	if err != nil {
		t.Fatal(err)
	}
	if u.Points != 35 {
		t.Errorf("creator points = %d, want 35 after creation and approval", u.Points)
	}

	list, err := notifs.ListForUser(ctx, "canv1", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Type != models.NotifLeadApproved {
		t.Fatalf("notifications = %+v, want one lead_approved", list)
	}

	// Second approval hits the pending guard.
	w = serve(h, http.MethodPost, "/leads/"+lead.LeadID+"/approve", `{}`, mgr)
	if w.Code != http.StatusConflict {
		t.Fatalf("re-approve status = %d, want 409", w.Code)
	}
}

func TestApprove_CanvasserRefused(t *testing.T) {
	h, _, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "mgr1", roles.Manager, "")
	seedUser(t, h, ctx, "canv1", roles.Canvasser, "mgr1")

	lead := createLead(t, h, testutil.Identity("canv1", roles.Canvasser, "ORG_0001"),
		`{"client_name":"Jane Roe"}`)

	w := serve(h, http.MethodPost, "/leads/"+lead.LeadID+"/approve", `{}`,
		testutil.Identity("canv1", roles.Canvasser, "ORG_0001"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestApprove_OtherTeamManagerRefused(t *testing.T) {
	h, _, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "mgr1", roles.Manager, "")
	seedUser(t, h, ctx, "mgr2", roles.Manager, "")
	seedUser(t, h, ctx, "canv1", roles.Canvasser, "mgr1")

	lead := createLead(t, h, testutil.Identity("canv1", roles.Canvasser, "ORG_0001"),
		`{"client_name":"Jane Roe"}`)

	w := serve(h, http.MethodPost, "/leads/"+lead.LeadID+"/approve", `{}`,
		testutil.Identity("mgr2", roles.Manager, "ORG_0001"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestReject_RequiresReasonKeepsCreationAward(t *testing.T) {
	h, _, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "mgr1", roles.Manager, "")
	seedUser(t, h, ctx, "canv1", roles.Canvasser, "mgr1")

	lead := createLead(t, h, testutil.Identity("canv1", roles.Canvasser, "ORG_0001"),
		`{"client_name":"Jane Roe"}`)

	mgr := testutil.Identity("mgr1", roles.Manager, "ORG_0001")
	w := serve(h, http.MethodPost, "/leads/"+lead.LeadID+"/reject", `{}`, mgr)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("no-reason reject status = %d, want 400", w.Code)
	}

	w = serve(h, http.MethodPost, "/leads/"+lead.LeadID+"/reject", `{"reason":"duplicate"}`, mgr)
	if w.Code != http.StatusOK {
		t.Fatalf("reject status = %d, body %s", w.Code, w.Body.String())
	}

	u, err := h.Users.GetByUsername(ctx, "canv1")
	if err != nil {
		t.Fatal(err)
	}
	if u.Points != 10 {
		t.Errorf("points = %d, want creation award kept at 10", u.Points)
	}
}

func TestMarkSold_CommissionTruncated(t *testing.T) {
	h, _, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "mgr1", roles.Manager, "")
	seedUser(t, h, ctx, "canv1", roles.Canvasser, "mgr1")

	lead := createLead(t, h, testutil.Identity("canv1", roles.Canvasser, "ORG_0001"),
		`{"client_name":"Jane Roe"}`)

	mgr := testutil.Identity("mgr1", roles.Manager, "ORG_0001")
	if w := serve(h, http.MethodPost, "/leads/"+lead.LeadID+"/approve", `{}`, mgr); w.Code != http.StatusOK {
		t.Fatalf("approve status = %d", w.Code)
	}
	w := serve(h, http.MethodPost, "/leads/"+lead.LeadID+"/sold", `{"sale_amount":2599.99}`, mgr)
	if w.Code != http.StatusOK {
		t.Fatalf("sold status = %d, body %s", w.Code, w.Body.String())
	}

	u, err := h.Users.GetByUsername(ctx, "canv1")
	if err != nil {
		t.Fatal(err)
	}
	// 10 creation + 25 approval + floor(2599.99 * 0.01) = 60
	if u.Points != 60 {
		t.Errorf("points = %d, want 60", u.Points)
	}

	// Selling twice is refused.
	w = serve(h, http.MethodPost, "/leads/"+lead.LeadID+"/sold", `{"sale_amount":100}`, mgr)
	if w.Code != http.StatusConflict {
		t.Fatalf("re-sell status = %d, want 409", w.Code)
	}
}

func TestList_CanvasserSeesOwnOnly(t *testing.T) {
	h, _, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "mgr1", roles.Manager, "")
	seedUser(t, h, ctx, "canv1", roles.Canvasser, "mgr1")
	seedUser(t, h, ctx, "canv2", roles.Canvasser, "mgr1")

	createLead(t, h, testutil.Identity("canv1", roles.Canvasser, "ORG_0001"), `{"client_name":"A"}`)
	createLead(t, h, testutil.Identity("canv2", roles.Canvasser, "ORG_0001"), `{"client_name":"B"}`)

	w := serve(h, http.MethodGet, "/leads", "", testutil.Identity("canv1", roles.Canvasser, "ORG_0001"))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 {
		t.Fatalf("canvasser sees %d leads, want 1", resp.Count)
	}

	// The manager sees the whole team.
	w = serve(h, http.MethodGet, "/leads", "", testutil.Identity("mgr1", roles.Manager, "ORG_0001"))
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 {
		t.Fatalf("manager sees %d leads, want 2", resp.Count)
	}
}

func TestExport_CSV(t *testing.T) {
	h, _, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "admin1", roles.AdminManager, "")
	createLead(t, h, testutil.Identity("admin1", roles.AdminManager, "ORG_0001"), `{"client_name":"A"}`)

	w := serve(h, http.MethodGet, "/leads/export", "", testutil.Identity("admin1", roles.AdminManager, "ORG_0001"))
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("export lines = %d, want header plus one row", len(lines))
	}
}
