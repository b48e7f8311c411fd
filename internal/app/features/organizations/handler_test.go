package organizations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	counterstore "github.com/canvashub/canvashub/internal/app/store/counters"
	organizationstore "github.com/canvashub/canvashub/internal/app/store/organizations"
	projectstore "github.com/canvashub/canvashub/internal/app/store/projects"
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

	h := NewHandler(
		organizationstore.New(db),
		userstore.New(db),
		projectstore.New(db),
		counterstore.New(db),
		zap.NewNop(),
	)
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
	r.Mount("/organizations", Routes(h))
	r.ServeHTTP(w, req)
	return w
}

func TestCreate_SequentialIDs(t *testing.T) {
	h, _ := newTestHandler(t)
	super := testutil.Identity("root", roles.SuperAdmin, "")

	var ids []string
	for _, name := range []string{"Acme Solar", "Borealis Roofing"} {
		w := serve(h, http.MethodPost, "/organizations", `{"name":"`+name+`","plan":"professional"}`, super)
		if w.Code != http.StatusCreated {
			t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
		}
		var org models.Organization
		if err := json.Unmarshal(w.Body.Bytes(), &org); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, org.OrgID)
		if org.MaxUsers != 50 {
			t.Fatalf("max_users = %d, want 50 for professional", org.MaxUsers)
		}
	}
	if ids[0] != "ORG_0001" || ids[1] != "ORG_0002" {
		t.Fatalf("org ids = %v, want ORG_0001, ORG_0002", ids)
	}
}

func TestCreate_SuperAdminOnly(t *testing.T) {
	h, _ := newTestHandler(t)

	w := serve(h, http.MethodPost, "/organizations", `{"name":"Rogue Org"}`,
		testutil.Identity("admin1", roles.AdminManager, "ORG_0001"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestGet_OrgScoped(t *testing.T) {
	h, ctx := newTestHandler(t)
	if _, err := h.Orgs.Create(ctx, models.Organization{OrgID: "ORG_0001", Name: "Acme"}); err != nil {
		t.Fatal(err)
	}

	w := serve(h, http.MethodGet, "/organizations/ORG_0001", "",
		testutil.Identity("mgr1", roles.Manager, "ORG_0001"))
	if w.Code != http.StatusOK {
		t.Fatalf("member get status = %d, body %s", w.Code, w.Body.String())
	}

	w = serve(h, http.MethodGet, "/organizations/ORG_0001", "",
		testutil.Identity("outsider", roles.AdminManager, "ORG_0002"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("outsider get status = %d, want 403", w.Code)
	}
}

func TestSetPlan_RefreshesLimits(t *testing.T) {
	h, ctx := newTestHandler(t)
	if _, err := h.Orgs.Create(ctx, models.Organization{OrgID: "ORG_0001", Name: "Acme", Plan: models.PlanBasic}); err != nil {
		t.Fatal(err)
	}

	w := serve(h, http.MethodPut, "/organizations/ORG_0001/plan", `{"plan":"enterprise"}`,
		testutil.Identity("root", roles.SuperAdmin, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	org, err := h.Orgs.GetByOrgID(ctx, "ORG_0001")
	if err != nil {
		t.Fatal(err)
	}
	if org.Plan != models.PlanEnterprise {
		t.Fatalf("plan = %s, want enterprise", org.Plan)
	}
	if org.MaxUsers != -1 {
		t.Fatalf("max_users = %d, want unlimited", org.MaxUsers)
	}
}

func TestDelete_RefusedWithUsers(t *testing.T) {
	h, ctx := newTestHandler(t)
	if _, err := h.Orgs.Create(ctx, models.Organization{OrgID: "ORG_0001", Name: "Acme"}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Users.Create(ctx, models.User{
		Username: "mgr1", Password: "x", Email: "m@example.com",
		Role: roles.Manager, OrganizationID: "ORG_0001",
	}); err != nil {
		t.Fatal(err)
	}

	super := testutil.Identity("root", roles.SuperAdmin, "")
	w := serve(h, http.MethodDelete, "/organizations/ORG_0001", "", super)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body %s", w.Code, w.Body.String())
	}

	if _, err := h.Users.Delete(ctx, "mgr1"); err != nil {
		t.Fatal(err)
	}
	w = serve(h, http.MethodDelete, "/organizations/ORG_0001", "", super)
	if w.Code != http.StatusOK {
		t.Fatalf("empty-org delete status = %d, body %s", w.Code, w.Body.String())
	}
}
