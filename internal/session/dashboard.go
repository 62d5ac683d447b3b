// internal/session/dashboard.go
package session

import (
	"context"
	"sync"

	"musikmatch/internal/common/errors"
	"musikmatch/internal/common/logger"
	"musikmatch/internal/models"

	"github.com/google/uuid"
)

// DashboardStore is the backing-store surface the dashboard screen uses.
type DashboardStore interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateProfileContact(ctx context.Context, id uuid.UUID, contact models.ContactSnapshot) (*models.ContactSnapshot, error)
	PropagateContact(ctx context.Context, musicianID uuid.UUID, contact models.ContactSnapshot) error
	ListApplicationsByMusician(ctx context.Context, musicianID uuid.UUID) ([]models.ApplicationSummary, error)
	ListGigsByVenue(ctx context.Context, venueID uuid.UUID) ([]models.Gig, error)
	CountApplicationsByGig(ctx context.Context, gigIDs []int64) (map[int64]int, error)
	DeleteGig(ctx context.Context, id int64, venueID uuid.UUID) error
}

// Dashboard is the viewer's home screen: their profile with editable contact
// defaults, plus their applications (musician) or their gigs with application
// counts (venue).
type Dashboard struct {
	mu     sync.Mutex
	store  DashboardStore
	logger logger.Logger

	viewer models.Profile
}

// OpenDashboard loads the home screen for a viewer.
func OpenDashboard(ctx context.Context, store DashboardStore, viewerID uuid.UUID, log logger.Logger) (*Dashboard, error) {
	profile, err := store.GetProfile(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		store: store,
		logger: log.WithFields(map[string]interface{}{
			"component": "dashboard",
			"profileId": viewerID.String(),
		}),
		viewer: *profile,
	}, nil
}

// Profile returns the viewer's profile as currently loaded.
func (d *Dashboard) Profile() models.Profile {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewer
}

// SaveContact updates the viewer's contact defaults and, for a musician,
// copies the new snapshot into every existing application so owners of
// accepted gigs see current details. Open gig screens pick the change up
// from the profiles feed event the write produces.
func (d *Dashboard) SaveContact(ctx context.Context, contact models.ContactSnapshot) (*models.ContactSnapshot, error) {
	d.mu.Lock()
	id := d.viewer.ID
	role := d.viewer.Role
	d.mu.Unlock()

	saved, err := d.store.UpdateProfileContact(ctx, id, contact)
	if err != nil {
		return nil, err
	}

	if role == models.RoleMusician {
		if err := d.store.PropagateContact(ctx, id, *saved); err != nil {
			// The profile write already succeeded; applications catch up on
			// the next submit.
			d.logger.Warn("contact propagation to applications failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	d.mu.Lock()
	d.viewer.ContactEmail = saved.Email
	d.viewer.ContactPhone = saved.Phone
	d.mu.Unlock()
	return saved, nil
}

// Applications lists the musician's applications, most recent first.
func (d *Dashboard) Applications(ctx context.Context) ([]models.ApplicationSummary, error) {
	d.mu.Lock()
	id := d.viewer.ID
	role := d.viewer.Role
	d.mu.Unlock()

	if role != models.RoleMusician {
		return nil, errors.NewNoPermissionError("only musicians have an application list")
	}
	return d.store.ListApplicationsByMusician(ctx, id)
}

// GigWithCount is one row of the venue's gig list.
type GigWithCount struct {
	Gig          models.Gig
	Applications int
}

// Gigs lists the venue's gigs with their application counts.
func (d *Dashboard) Gigs(ctx context.Context) ([]GigWithCount, error) {
	d.mu.Lock()
	id := d.viewer.ID
	role := d.viewer.Role
	d.mu.Unlock()

	if role != models.RoleVenue {
		return nil, errors.NewNoPermissionError("only venues have a gig list")
	}

	gigs, err := d.store.ListGigsByVenue(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(gigs))
	for i, g := range gigs {
		ids[i] = g.ID
	}
	counts, err := d.store.CountApplicationsByGig(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]GigWithCount, len(gigs))
	for i, g := range gigs {
		out[i] = GigWithCount{Gig: g, Applications: counts[g.ID]}
	}
	return out, nil
}

// DeleteGig removes one of the venue's own gigs.
func (d *Dashboard) DeleteGig(ctx context.Context, gigID int64) error {
	d.mu.Lock()
	id := d.viewer.ID
	role := d.viewer.Role
	d.mu.Unlock()

	if role != models.RoleVenue {
		return errors.NewNoPermissionError("only venues can delete gigs")
	}
	return d.store.DeleteGig(ctx, gigID, id)
}
