package userstore

import (
	"errors"
	"testing"

	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/roles"
	"github.com/canvashub/canvashub/internal/testutil"
)

func seedCanvasser(t *testing.T, s *Store, username string) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, err := s.Create(ctx, models.User{
		Username:       username,
		Password:       "x",
		Email:          username + "@example.com",
		Role:           roles.Canvasser,
		OrganizationID: "ORG_0001",
	})
	if err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
}

func TestLedger_AccumulatesAcrossAwards(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	seedCanvasser(t, s, "jdoe")

	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Two lead submissions and one approval.
	if _, err := s.AwardPoints(ctx, "jdoe", 10, "lead created", "jdoe"); err != nil {
		t.Fatalf("first award: %v", err)
	}
	if _, err := s.AwardPoints(ctx, "jdoe", 25, "lead approved", "msmith"); err != nil {
		t.Fatalf("second award: %v", err)
	}
	balance, err := s.AwardPoints(ctx, "jdoe", 10, "lead created", "jdoe")
	if err != nil {
		t.Fatalf("third award: %v", err)
	}
	if balance != 45 {
		t.Fatalf("balance = %d, want 45", balance)
	}

	u, err := s.GetByUsername(ctx, "jdoe")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Points != 45 {
		t.Fatalf("stored points = %d, want 45", u.Points)
	}
	if len(u.PointsHistory) != 3 {
		t.Fatalf("history entries = %d, want 3", len(u.PointsHistory))
	}
	for i, e := range u.PointsHistory {
		if e.NewValue != e.OldValue+e.Points {
			t.Errorf("entry %d: old %d + delta %d != new %d", i, e.OldValue, e.Points, e.NewValue)
		}
	}
	if last := u.PointsHistory[2]; last.OldValue != 35 || last.NewValue != 45 {
		t.Fatalf("last entry %d -> %d, want 35 -> 45", last.OldValue, last.NewValue)
	}
}

func TestDeductPoints_RefusesOverdraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	seedCanvasser(t, s, "jdoe")

	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.AwardPoints(ctx, "jdoe", 20, "seed", "admin1"); err != nil {
		t.Fatalf("award: %v", err)
	}
	if _, err := s.DeductPoints(ctx, "jdoe", 50, "reward", "jdoe"); !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("overdraft err = %v, want ErrInsufficientPoints", err)
	}

	u, _ := s.GetByUsername(ctx, "jdoe")
	if u.Points != 20 {
		t.Fatalf("points after refused deduction = %d, want 20", u.Points)
	}
	if len(u.PointsHistory) != 1 {
		t.Fatalf("refused deduction must not append history, got %d entries", len(u.PointsHistory))
	}

	if n, err := s.DeductPoints(ctx, "jdoe", 20, "reward", "jdoe"); err != nil || n != 0 {
		t.Fatalf("exact deduction = (%d, %v), want (0, nil)", n, err)
	}
}

func TestSetPoints_RecordsSignedDifference(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	seedCanvasser(t, s, "jdoe")

	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.AwardPoints(ctx, "jdoe", 30, "seed", "admin1"); err != nil {
		t.Fatalf("award: %v", err)
	}
	if _, err := s.SetPoints(ctx, "jdoe", 12, "correction", "admin1"); err != nil {
		t.Fatalf("set: %v", err)
	}

	u, _ := s.GetByUsername(ctx, "jdoe")
	if u.Points != 12 {
		t.Fatalf("points = %d, want 12", u.Points)
	}
	last := u.PointsHistory[len(u.PointsHistory)-1]
	if last.Action != ActionUpdate || last.Points != -18 {
		t.Fatalf("last entry = %s %d, want %s -18", last.Action, last.Points, ActionUpdate)
	}
}
