package csvutil

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/canvashub/canvashub/internal/domain/models"
)

func TestWriteLeads(t *testing.T) {
	amount := 15000.0
	saleDate := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	leads := []models.Lead{
		{
			LeadID:         "LEAD_0001_0001",
			OrganizationID: "ORG_0001",
			ClientName:     "Jane Roe",
			Address:        "12 Elm St\nApt 4",
			Status:         models.LeadSold,
			CreatedBy:      "canv1",
			CreatedAt:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			SaleAmount:     &amount,
			SaleDate:       &saleDate,
			SoldBy:         "mgr1",
		},
		{
			LeadID:         "LEAD_0001_0002",
			OrganizationID: "ORG_0001",
			ClientName:     "John Doe",
			Status:         models.LeadPending,
			CreatedBy:      "canv1",
			CreatedAt:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf strings.Builder
	n, err := WriteLeads(&buf, leads)
	if err != nil {
		t.Fatalf("WriteLeads() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("rows written = %d, want 2", n)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("re-parse export: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("record count = %d, want header plus 2 rows", len(records))
	}
	if records[0][0] != "lead_id" {
		t.Fatalf("header starts with %q", records[0][0])
	}
	if got := records[1][11]; got != "15000.00" {
		t.Errorf("sale_amount = %q, want 15000.00", got)
	}
	if got := records[1][5]; strings.Contains(got, "\n") {
		t.Errorf("address kept a newline: %q", got)
	}
	if got := records[2][11]; got != "" {
		t.Errorf("unsold lead sale_amount = %q, want empty", got)
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	if got := ExportFilename("ORG_0001", now); got != "leads_org_0001_20260823.csv" {
		t.Fatalf("ExportFilename() = %q", got)
	}
	if got := ExportFilename("", now); got != "leads_all_20260823.csv" {
		t.Fatalf("ExportFilename() all-orgs = %q", got)
	}
}
