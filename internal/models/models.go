// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a profile's marketplace role.
type Role string

const (
	RoleMusician Role = "musician"
	RoleVenue    Role = "venue"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleMusician || r == RoleVenue
}

// Status is an application's lifecycle state. Pending is the only
// non-terminal state; decisions never transition back or between each other.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusRejected
}

// Decided reports whether the status is terminal.
func (s Status) Decided() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Profile is a marketplace identity: a musician or a venue. Contact fields
// are the reusable defaults copied into application snapshots on apply.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	Role         Role      `json:"role"`
	DisplayName  string    `json:"displayName"`
	ContactEmail string    `json:"contactEmail,omitempty"`
	ContactPhone string    `json:"contactPhone,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Gig is a venue's posted engagement opportunity.
type Gig struct {
	ID              int64     `json:"id"`
	VenueID         uuid.UUID `json:"venueId"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	City            string    `json:"city,omitempty"`
	StartTime       time.Time `json:"startTime"`
	DurationMinutes int       `json:"durationMinutes"`
	BudgetMin       *int      `json:"budgetMin,omitempty"`
	BudgetMax       *int      `json:"budgetMax,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// EndTime is the gig's computed end: start plus duration.
func (g Gig) EndTime() time.Time {
	return g.StartTime.Add(time.Duration(g.DurationMinutes) * time.Minute)
}

// ContactSnapshot is the (email, phone) pair held at the profile level as a
// reusable default and at the application level as a point-in-time copy
// shown to the counterparty on accept.
type ContactSnapshot struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Empty reports whether both fields are blank.
func (c ContactSnapshot) Empty() bool {
	return c.Email == "" && c.Phone == ""
}

// Application is a musician's interest in one gig. At most one current
// application per (gig, musician) pair is surfaced; when duplicates exist the
// most recent wins.
type Application struct {
	ID           int64           `json:"id"`
	GigID        int64           `json:"gigId"`
	MusicianID   uuid.UUID       `json:"musicianId"`
	Message      string          `json:"message,omitempty"`
	Status       Status          `json:"status"`
	Contact      ContactSnapshot `json:"contact"`
	MusicianName string          `json:"musicianName,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Message belongs to exactly one application. Immutable once created;
// ordering is by CreatedAt ascending and identifiers are unique within a
// merged log regardless of delivery path.
type Message struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"applicationId"`
	SenderID      uuid.UUID `json:"senderId"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ApplicationSummary is a musician-side application listing row joined with
// its gig's headline fields.
type ApplicationSummary struct {
	ID        int64     `json:"id"`
	GigID     int64     `json:"gigId"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	GigTitle  string    `json:"gigTitle,omitempty"`
	GigCity   string    `json:"gigCity,omitempty"`
	GigStart  time.Time `json:"gigStart"`
}
