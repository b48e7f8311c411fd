package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LeadStatus is the lifecycle state of a lead.
type LeadStatus string

const (
	LeadPending   LeadStatus = "pending"
	LeadApproved  LeadStatus = "approved"
	LeadSold      LeadStatus = "sold"
	LeadCancelled LeadStatus = "cancelled"
	LeadSuperstar LeadStatus = "superstar"
)

// GeoPoint is a captured GPS fix attached to a lead.
type GeoPoint struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
	Address   string  `bson:"address,omitempty" json:"address,omitempty"`
	Accuracy  float64 `bson:"accuracy,omitempty" json:"accuracy,omitempty"`
}

// SuperstarInfo is the overlay recorded when a lead is flagged as a
// superstar. It never clears sold fields; sold and superstar are
// independent facts about a lead.
type SuperstarInfo struct {
	Reason        string    `bson:"reason" json:"reason"`
	PriorityLevel int       `bson:"priority_level" json:"priority_level"`
	SpecialNotes  string    `bson:"special_notes,omitempty" json:"special_notes,omitempty"`
	MarkedBy      string    `bson:"marked_by" json:"marked_by"`
	MarkedAt      time.Time `bson:"marked_at" json:"marked_at"`
}

// Lead is one captured prospect. LeadID is the org-scoped display id
// (LEAD_0001_0007); created_by and assigned_manager are usernames.
type Lead struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LeadID         string             `bson:"lead_id" json:"lead_id"`
	OrganizationID string             `bson:"organization_id" json:"organization_id"`
	CreatedBy      string             `bson:"created_by" json:"created_by"`

	ClientName               string    `bson:"client_name" json:"client_name"`
	Phone                    string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Email                    string    `bson:"email,omitempty" json:"email,omitempty"`
	Address                  string    `bson:"address,omitempty" json:"address,omitempty"`
	MaritalStatus            string    `bson:"marital_status,omitempty" json:"marital_status,omitempty"`
	Location                 *GeoPoint `bson:"location,omitempty" json:"location,omitempty"`
	ProductsInterested       []string  `bson:"products_interested,omitempty" json:"products_interested,omitempty"`
	PreferredAppointmentTime string    `bson:"preferred_appointment_time,omitempty" json:"preferred_appointment_time,omitempty"`
	Notes                    string    `bson:"notes,omitempty" json:"notes,omitempty"`
	PropertyPhotoID          string    `bson:"property_photo_id,omitempty" json:"property_photo_id,omitempty"`

	Status          LeadStatus `bson:"lead_status" json:"lead_status"`
	AssignedManager string     `bson:"assigned_manager,omitempty" json:"assigned_manager,omitempty"`

	ApprovedBy        string     `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	ApprovalTimestamp *time.Time `bson:"approval_timestamp,omitempty" json:"approval_timestamp,omitempty"`
	ApprovalNotes     string     `bson:"approval_notes,omitempty" json:"approval_notes,omitempty"`
	RejectionReason   string     `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`

	SaleAmount *float64   `bson:"sale_amount,omitempty" json:"sale_amount,omitempty"`
	SaleDate   *time.Time `bson:"sale_date,omitempty" json:"sale_date,omitempty"`
	SaleNotes  string     `bson:"sale_notes,omitempty" json:"sale_notes,omitempty"`
	SoldBy     string     `bson:"sold_by,omitempty" json:"sold_by,omitempty"`

	Superstar *SuperstarInfo `bson:"superstar_info,omitempty" json:"superstar_info,omitempty"`

	IsActive  bool      `bson:"is_active" json:"is_active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Sold reports whether the lead has recorded a sale, regardless of the
// current status string (a superstar lead keeps its sale fields).
func (l Lead) Sold() bool {
	return l.SoldBy != "" || l.SaleAmount != nil
}
