package notifications

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

	counterstore "github.com/canvashub/canvashub/internal/app/store/counters"
	notificationstore "github.com/canvashub/canvashub/internal/app/store/notifications"
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

	h := NewHandler(notificationstore.New(db, counterstore.New(db)), zap.NewNop())
	return h, ctx
}

func serve(h *Handler, method, path string, id *auth.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(""))
	if id != nil {
		req = auth.WithTestUser(req, id)
	}
	w := httptest.NewRecorder()

	r := chi.NewRouter()
	r.Mount("/notifications", Routes(h))
	r.ServeHTTP(w, req)
	return w
}

func send(t *testing.T, h *Handler, ctx context.Context, n models.Notification) models.Notification {
	t.Helper()
	out, err := h.Notifications.Create(ctx, n)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestList_OnlyAddressedAndUnexpired(t *testing.T) {
	h, ctx := newTestHandler(t)

	send(t, h, ctx, models.Notification{
		OrganizationID: "ORG_0001", Title: "For canv1", Message: "m",
		Type: models.NotifLeadApproved, Recipients: []string{"canv1"},
	})
	send(t, h, ctx, models.Notification{
		OrganizationID: "ORG_0001", Title: "For canv2", Message: "m",
		Type: models.NotifLeadApproved, Recipients: []string{"canv2"},
	})
	expired := time.Now().Add(-time.Hour)
	send(t, h, ctx, models.Notification{
		OrganizationID: "ORG_0001", Title: "Old", Message: "m",
		Type: models.NotifNewsPosted, Recipients: []string{"canv1"}, ExpiresAt: &expired,
	})

	w := serve(h, http.MethodGet, "/notifications", testutil.Identity("canv1", roles.Canvasser, "ORG_0001"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Count  int `json:"count"`
		Unread int `json:"unread"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Unread != 1 {
		t.Fatalf("count=%d unread=%d, want 1/1", resp.Count, resp.Unread)
	}
}

func TestMarkRead_FlipsBadge(t *testing.T) {
	h, ctx := newTestHandler(t)
	canv := testutil.Identity("canv1", roles.Canvasser, "ORG_0001")

	n := send(t, h, ctx, models.Notification{
		OrganizationID: "ORG_0001", Title: "T", Message: "m",
		Type: models.NotifLeadApproved, Recipients: []string{"canv1"},
	})

	var badge struct {
		Unread int64 `json:"unread"`
	}
	w := serve(h, http.MethodGet, "/notifications/unread-count", canv)
	if err := json.Unmarshal(w.Body.Bytes(), &badge); err != nil {
		t.Fatal(err)
	}
	if badge.Unread != 1 {
		t.Fatalf("unread = %d, want 1", badge.Unread)
	}

	if w = serve(h, http.MethodPost, "/notifications/"+n.NotificationID+"/read", canv); w.Code != http.StatusOK {
		t.Fatalf("mark read status = %d", w.Code)
	}

	w = serve(h, http.MethodGet, "/notifications/unread-count", canv)
	if err := json.Unmarshal(w.Body.Bytes(), &badge); err != nil {
		t.Fatal(err)
	}
	if badge.Unread != 0 {
		t.Fatalf("unread after read = %d, want 0", badge.Unread)
	}
}

func TestMarkRead_NotAddressedIsNotFound(t *testing.T) {
	h, ctx := newTestHandler(t)

	n := send(t, h, ctx, models.Notification{
		OrganizationID: "ORG_0001", Title: "T", Message: "m",
		Type: models.NotifLeadApproved, Recipients: []string{"canv1"},
	})

	w := serve(h, http.MethodPost, "/notifications/"+n.NotificationID+"/read",
		testutil.Identity("canv2", roles.Canvasser, "ORG_0001"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
