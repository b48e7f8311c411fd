package projects

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
	organizationstore "github.com/canvashub/canvashub/internal/app/store/organizations"
	projectstore "github.com/canvashub/canvashub/internal/app/store/projects"
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

	h := NewHandler(
		projectstore.New(db),
		organizationstore.New(db),
		blobstore.New(db),
		counterstore.New(db),
		zap.NewNop(),
	)
	if _, err := h.Orgs.Create(ctx, models.Organization{OrgID: "ORG_0001", Name: "Acme", Plan: models.PlanBasic}); err != nil {
		t.Fatal(err)
	}
	return h, ctx
}

func serve(h *Handler, method, path, body string, id *auth.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if id != nil {
		req = auth.WithTestUser(req, id)
	}
	w := httptest.NewRecorder()

	r := chi.NewRouter()
	r.Mount("/projects", Routes(h))
	r.ServeHTTP(w, req)
	return w
}

func TestCreate_AdminTierOnly(t *testing.T) {
	h, _ := newTestHandler(t)

	w := serve(h, http.MethodPost, "/projects", `{"title":"Roof rebuild"}`,
		testutil.Identity("mgr1", roles.Manager, "ORG_0001"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("manager create status = %d, want 403", w.Code)
	}

	w = serve(h, http.MethodPost, "/projects", `{"title":"Roof rebuild"}`,
		testutil.Identity("admin1", roles.AdminManager, "ORG_0001"))
	if w.Code != http.StatusCreated {
		t.Fatalf("admin create status = %d, body %s", w.Code, w.Body.String())
	}

	var p models.Project
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.ProjectID != "PROJ_0001_0001" {
		t.Errorf("project_id = %q", p.ProjectID)
	}
}

func TestCreate_ImageCapByPlan(t *testing.T) {
	h, _ := newTestHandler(t)

	// Basic plan allows 5 project images.
	var imgs []string
	for i := 0; i < 6; i++ {
		imgs = append(imgs, `{"data":"YQ=="}`)
	}
	body := `{"title":"X","images":[` + strings.Join(imgs, ",") + `]}`
	w := serve(h, http.MethodPost, "/projects", body,
		testutil.Identity("admin1", roles.AdminManager, "ORG_0001"))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body %s", w.Code, w.Body.String())
	}
}

func TestList_FeaturedFirstAndCategoryFilter(t *testing.T) {
	h, _ := newTestHandler(t)
	admin := testutil.Identity("admin1", roles.AdminManager, "ORG_0001")

	for _, body := range []string{
		`{"title":"Plain roof","category":"roofing"}`,
		`{"title":"Showcase solar","category":"solar","featured":true}`,
	} {
		if w := serve(h, http.MethodPost, "/projects", body, admin); w.Code != http.StatusCreated {
			t.Fatalf("create status = %d", w.Code)
		}
	}

	canv := testutil.Identity("canv1", roles.Canvasser, "ORG_0001")
	var resp struct {
		Projects []models.Project `json:"projects"`
		Count    int              `json:"count"`
	}
	w := serve(h, http.MethodGet, "/projects", "", canv)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if !resp.Projects[0].IsFeatured {
		t.Errorf("featured project should sort first, got %q", resp.Projects[0].Title)
	}

	w = serve(h, http.MethodGet, "/projects?category=roofing", "", canv)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Projects[0].Category != "roofing" {
		t.Fatalf("category filter: count=%d", resp.Count)
	}
}

func TestDelete_RemovesImages(t *testing.T) {
	h, ctx := newTestHandler(t)
	admin := testutil.Identity("admin1", roles.AdminManager, "ORG_0001")

	w := serve(h, http.MethodPost, "/projects",
		`{"title":"X","images":[{"content_type":"image/png","data":"YQ=="}]}`, admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var p models.Project
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if len(p.ImageIDs) != 1 {
		t.Fatalf("image_ids = %v", p.ImageIDs)
	}

	if w = serve(h, http.MethodDelete, "/projects/"+p.ProjectID, "", admin); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	n, err := h.Blobs.CountByOwnerKind(ctx, models.BlobProjectImage, p.ProjectID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("blobs left after delete = %d", n)
	}

	if w = serve(h, http.MethodGet, "/projects/"+p.ProjectID, "", admin); w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestGet_CrossTenantReadsNotFound(t *testing.T) {
	h, ctx := newTestHandler(t)
	if _, err := h.Orgs.Create(ctx, models.Organization{OrgID: "ORG_0002", Name: "Rival", Plan: models.PlanBasic}); err != nil {
		t.Fatal(err)
	}

	w := serve(h, http.MethodPost, "/projects", `{"title":"Secret job"}`,
		testutil.Identity("admin1", roles.AdminManager, "ORG_0001"))
	var p models.Project
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}

	w = serve(h, http.MethodGet, "/projects/"+p.ProjectID, "",
		testutil.Identity("spy", roles.AdminManager, "ORG_0002"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant get status = %d, want 404", w.Code)
	}
}
