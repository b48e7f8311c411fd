// Package csvutil renders CSV exports for reporting endpoints.
package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/canvashub/canvashub/internal/domain/models"
)

// MaxExportRows caps a single export so one request cannot stream an
// unbounded result set.
const MaxExportRows = 20000

var leadHeader = []string{
	"lead_id", "organization_id", "client_name", "phone", "email", "address",
	"status", "created_by", "assigned_manager", "created_at",
	"approved_by", "sale_amount", "sale_date", "sold_by",
}

// WriteLeads streams leads as CSV. Rows beyond MaxExportRows are dropped
// and the count of written rows is returned.
func WriteLeads(w io.Writer, leads []models.Lead) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(leadHeader); err != nil {
		return 0, err
	}

	n := 0
	for _, l := range leads {
		if n >= MaxExportRows {
			break
		}
		if err := cw.Write(leadRow(l)); err != nil {
			return n, err
		}
		n++
	}
	cw.Flush()
	return n, cw.Error()
}

func leadRow(l models.Lead) []string {
	var amount, saleDate string
	if l.SaleAmount != nil {
		amount = fmt.Sprintf("%.2f", *l.SaleAmount)
	}
	if l.SaleDate != nil {
		saleDate = l.SaleDate.UTC().Format(time.RFC3339)
	}
	return []string{
		l.LeadID,
		l.OrganizationID,
		l.ClientName,
		l.Phone,
		l.Email,
		strings.ReplaceAll(l.Address, "\n", " "),
		string(l.Status),
		l.CreatedBy,
		l.AssignedManager,
		l.CreatedAt.UTC().Format(time.RFC3339),
		l.ApprovedBy,
		amount,
		saleDate,
		l.SoldBy,
	}
}

// ExportFilename builds the attachment name for a lead export.
func ExportFilename(orgID string, now time.Time) string {
	scope := "all"
	if orgID != "" {
		scope = strings.ToLower(orgID)
	}
	return fmt.Sprintf("leads_%s_%s.csv", scope, now.UTC().Format("20060102"))
}
