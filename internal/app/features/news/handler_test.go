package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	blobstore "github.com/canvashub/canvashub/internal/app/store/blobs"
	counterstore "github.com/canvashub/canvashub/internal/app/store/counters"
	newsstore "github.com/canvashub/canvashub/internal/app/store/news"
	notificationstore "github.com/canvashub/canvashub/internal/app/store/notifications"
	organizationstore "github.com/canvashub/canvashub/internal/app/store/organizations"
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

	counters := counterstore.New(db)
	h := NewHandler(
		newsstore.New(db),
		organizationstore.New(db),
		userstore.New(db),
		blobstore.New(db),
		counters,
		notificationstore.NewDispatcher(notificationstore.New(db, counters), zap.NewNop()),
		zap.NewNop(),
	)
	if _, err := h.Orgs.Create(ctx, models.Organization{OrgID: "ORG_0001", Name: "Acme", Plan: models.PlanBasic}); err != nil {
		t.Fatal(err)
	}
	return h, ctx
}

func seedUser(t *testing.T, h *Handler, ctx context.Context, username string, role roles.Role) {
	t.Helper()
	_, err := h.Users.Create(ctx, models.User{
		Username:       username,
		Password:       "x",
		Email:          username + "@example.com",
		Role:           role,
		OrganizationID: "ORG_0001",
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
	r.Mount("/news", Routes(h))
	r.ServeHTTP(w, req)
	return w
}

func TestCreate_SanitizesContent(t *testing.T) {
	h, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "mgr1", roles.Manager)

	body := `{"title":"Heads up","content":"<p>All hands</p><script>alert(1)</script>","expiry_hours":48}`
	w := serve(h, http.MethodPost, "/news", body, testutil.Identity("mgr1", roles.Manager, "ORG_0001"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}

	var post models.News
	if err := json.Unmarshal(w.Body.Bytes(), &post); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(post.Content, "script") {
		t.Errorf("script survived sanitization: %q", post.Content)
	}
	if !strings.Contains(post.Content, "<p>All hands</p>") {
		t.Errorf("allowed markup dropped: %q", post.Content)
	}
	if post.NewsID != "NEWS_0001_0001" {
		t.Errorf("news_id = %q", post.NewsID)
	}
}

func TestCreate_ExpiryWindowEnforced(t *testing.T) {
	h, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "mgr1", roles.Manager)

	w := serve(h, http.MethodPost, "/news",
		`{"title":"X","content":"y","expiry_hours":36}`,
		testutil.Identity("mgr1", roles.Manager, "ORG_0001"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreate_ImageCapByPlan(t *testing.T) {
	h, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "admin1", roles.AdminManager)

	// Basic plan allows 3 news images.
	images := `[{"data":"YQ=="},{"data":"Yg=="},{"data":"Yw=="},{"data":"ZA=="}]`
	w := serve(h, http.MethodPost, "/news",
		`{"title":"X","content":"y","images":`+images+`}`,
		testutil.Identity("admin1", roles.AdminManager, "ORG_0001"))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body %s", w.Code, w.Body.String())
	}
}

func TestCreate_CanvasserRefused(t *testing.T) {
	h, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "canv1", roles.Canvasser)

	w := serve(h, http.MethodPost, "/news", `{"title":"X","content":"y"}`,
		testutil.Identity("canv1", roles.Canvasser, "ORG_0001"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestPin_ManagerRefused(t *testing.T) {
	h, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "mgr1", roles.Manager)

	mgr := testutil.Identity("mgr1", roles.Manager, "ORG_0001")
	w := serve(h, http.MethodPost, "/news", `{"title":"X","content":"y"}`, mgr)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var post models.News
	if err := json.Unmarshal(w.Body.Bytes(), &post); err != nil {
		t.Fatal(err)
	}

	w = serve(h, http.MethodPut, "/news/"+post.NewsID+"/pin", `{"pinned":true}`, mgr)
	if w.Code != http.StatusForbidden {
		t.Fatalf("pin status = %d, want 403", w.Code)
	}
}

func TestListAndReadReceipts(t *testing.T) {
	h, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "mgr1", roles.Manager)
	seedUser(t, h, ctx, "canv1", roles.Canvasser)

	mgr := testutil.Identity("mgr1", roles.Manager, "ORG_0001")
	w := serve(h, http.MethodPost, "/news", `{"title":"A","content":"first"}`, mgr)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var post models.News
	if err := json.Unmarshal(w.Body.Bytes(), &post); err != nil {
		t.Fatal(err)
	}

	canv := testutil.Identity("canv1", roles.Canvasser, "ORG_0001")
	var resp struct {
		Count  int `json:"count"`
		Unread int `json:"unread"`
	}
	w = serve(h, http.MethodGet, "/news", "", canv)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Unread != 1 {
		t.Fatalf("before read: count=%d unread=%d, want 1/1", resp.Count, resp.Unread)
	}

	if w = serve(h, http.MethodPost, "/news/"+post.NewsID+"/read", "", canv); w.Code != http.StatusOK {
		t.Fatalf("mark read status = %d", w.Code)
	}
	// Marking twice is idempotent.
	if w = serve(h, http.MethodPost, "/news/"+post.NewsID+"/read", "", canv); w.Code != http.StatusOK {
		t.Fatalf("second mark read status = %d", w.Code)
	}

	w = serve(h, http.MethodGet, "/news", "", canv)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Unread != 0 {
		t.Fatalf("after read: unread=%d, want 0", resp.Unread)
	}
}

func TestUpdate_ManagerOwnPostsOnly(t *testing.T) {
	h, ctx := newTestHandler(t)
	seedUser(t, h, ctx, "mgr1", roles.Manager)
	seedUser(t, h, ctx, "mgr2", roles.Manager)

	w := serve(h, http.MethodPost, "/news", `{"title":"A","content":"first"}`,
		testutil.Identity("mgr1", roles.Manager, "ORG_0001"))
	var post models.News
	if err := json.Unmarshal(w.Body.Bytes(), &post); err != nil {
		t.Fatal(err)
	}

	w = serve(h, http.MethodPut, "/news/"+post.NewsID, `{"title":"B","content":"second"}`,
		testutil.Identity("mgr2", roles.Manager, "ORG_0001"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("other manager edit status = %d, want 403", w.Code)
	}

	w = serve(h, http.MethodPut, "/news/"+post.NewsID, `{"title":"B","content":"second"}`,
		testutil.Identity("admin1", roles.AdminManager, "ORG_0001"))
	if w.Code != http.StatusOK {
		t.Fatalf("admin edit status = %d, body %s", w.Code, w.Body.String())
	}
}
