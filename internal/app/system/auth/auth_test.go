package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/canvashub/canvashub/internal/app/system/auth"
	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

func testUser() *models.User {
	return &models.User{
		ID:             primitive.NewObjectID(),
		Username:       "jdoe",
		Role:           roles.Canvasser,
		OrganizationID: "ORG_0001",
	}
}

func TestIssueAndParseToken(t *testing.T) {
	m := auth.NewManager("test-signing-key", time.Hour)
	u := testUser()

	tok, exp, err := m.IssueToken(u, time.Now())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Errorf("expiry too soon: %v", exp)
	}

	id, err := m.ParseToken(tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if id.Username != "jdoe" || id.Role != roles.Canvasser || id.OrganizationID != "ORG_0001" {
		t.Errorf("identity round trip: got %+v", id)
	}
	if id.UserID != u.ID.Hex() {
		t.Errorf("user id: got %q, want %q", id.UserID, u.ID.Hex())
	}
}

func TestParseToken_Rejects(t *testing.T) {
	m := auth.NewManager("test-signing-key", time.Hour)
	other := auth.NewManager("different-key", time.Hour)
	u := testUser()

	t.Run("wrong key", func(t *testing.T) {
		tok, _, _ := other.IssueToken(u, time.Now())
		if _, err := m.ParseToken(tok); err == nil {
			t.Error("token signed with a different key should be rejected")
		}
	})

	t.Run("expired", func(t *testing.T) {
		tok, _, _ := m.IssueToken(u, time.Now().Add(-2*time.Hour))
		if _, err := m.ParseToken(tok); err == nil {
			t.Error("expired token should be rejected")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.ParseToken("not.a.token"); err == nil {
			t.Error("malformed token should be rejected")
		}
	})
}

func TestLoadBearerUser(t *testing.T) {
	m := auth.NewManager("test-signing-key", time.Hour)
	tok, _, _ := m.IssueToken(testUser(), time.Now())

	var got *auth.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	m.LoadBearerUser(next).ServeHTTP(httptest.NewRecorder(), req)
	if got == nil || got.Username != "jdoe" {
		t.Fatalf("identity not loaded: %+v", got)
	}

	got = nil
	anon := httptest.NewRequest("GET", "/", nil)
	m.LoadBearerUser(next).ServeHTTP(httptest.NewRecorder(), anon)
	if got != nil {
		t.Error("anonymous request should carry no identity")
	}
}

func TestRequireSignedIn(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	auth.RequireSignedIn(next).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: got %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.Identity{Username: "jdoe", Role: roles.Canvasser})
	auth.RequireSignedIn(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("signed in: got %d, want 204", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mw := auth.RequireRole(roles.SuperAdmin, roles.AdminManager)

	tests := []struct {
		role roles.Role
		want int
	}{
		{roles.SuperAdmin, http.StatusNoContent},
		{roles.AdminManager, http.StatusNoContent},
		{roles.Manager, http.StatusForbidden},
		{roles.Canvasser, http.StatusForbidden},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.Identity{Username: "u", Role: tc.role})
		mw(next).ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("role %s: got %d, want %d", tc.role, rec.Code, tc.want)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("hunter2!")
	if err != nil {
		t.Fatal(err)
	}
	if !auth.CheckPassword(hash, "hunter2!") {
		t.Error("correct password should verify")
	}
	if auth.CheckPassword(hash, "wrong") {
		t.Error("wrong password should not verify")
	}
}
