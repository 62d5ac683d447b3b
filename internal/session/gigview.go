// internal/session/gigview.go

// Package session scopes per-screen state to an explicit object with defined
// open and close rules instead of ambient globals. A GigView owns everything
// one gig-detail screen needs: the gig, the viewer's role, the application
// list or the viewer's own application, the conversation log, and the
// contact form.
package session

import (
	"context"
	"sync"

	"musikmatch/internal/common/errors"
	"musikmatch/internal/common/logger"
	"musikmatch/internal/contactsync"
	"musikmatch/internal/conversation"
	"musikmatch/internal/feed"
	"musikmatch/internal/models"

	"github.com/google/uuid"
)

// Store is the backing-store surface a gig view uses.
type Store interface {
	contactsync.Store
	conversation.MessageStore

	GetGig(ctx context.Context, id int64) (*models.Gig, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListApplicationsByGig(ctx context.Context, gigID int64) ([]models.Application, error)
	SetApplicationStatus(ctx context.Context, id int64, status models.Status, ownerID uuid.UUID) (*models.Application, error)
	DeleteApplication(ctx context.Context, id int64, musicianID uuid.UUID) error
}

// GigView is one gig-detail screen instance. It is created by Open and must
// be released with Close; a view that outlives its screen leaks the live
// subscription.
type GigView struct {
	mu     sync.Mutex
	store  Store
	source feed.Source
	logger logger.Logger

	viewer models.Profile
	gig    models.Gig
	owner  bool

	myApplication *models.Application
	applications  []models.Application

	log        *conversation.Log
	subscriber *conversation.Subscriber
	form       *contactsync.Form

	profileStream feed.Stream
	closed        bool
}

// Open loads a gig-detail screen for a viewer. The gig and the viewer's
// profile are fetched concurrently; each completion fills only its own field
// and the results are joined before any role-dependent work. The
// role-dependent fetch follows: the viewer's own application for a musician,
// the full application list for the owning venue.
func Open(ctx context.Context, store Store, source feed.Source, viewerID uuid.UUID, gigID int64, log logger.Logger) (*GigView, error) {
	var (
		wg         sync.WaitGroup
		gig        *models.Gig
		profile    *models.Profile
		gigErr     error
		profileErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		gig, gigErr = store.GetGig(ctx, gigID)
	}()
	go func() {
		defer wg.Done()
		profile, profileErr = store.GetProfile(ctx, viewerID)
	}()
	wg.Wait()
	if gigErr != nil {
		return nil, gigErr
	}
	if profileErr != nil {
		return nil, profileErr
	}

	v := &GigView{
		store:  store,
		source: source,
		logger: log.WithFields(map[string]interface{}{
			"component": "gig-view",
			"gigId":     gigID,
		}),
		viewer: *profile,
		gig:    *gig,
		owner:  gig.VenueID == profile.ID,
	}
	v.log = conversation.NewLog(store, profile.ID, log)
	v.subscriber = conversation.NewSubscriber(source, v.log, log)

	switch {
	case v.owner:
		apps, err := store.ListApplicationsByGig(ctx, gigID)
		if err != nil {
			v.teardown()
			return nil, err
		}
		v.applications = apps

	case profile.Role == models.RoleMusician:
		v.form = contactsync.NewForm(store, v.log, gigID, profile.ID, log)
		app, err := store.CurrentApplication(ctx, gigID, profile.ID)
		if err != nil && !errors.IsNotFound(err) {
			v.teardown()
			return nil, err
		}
		v.form.Seed(models.ContactSnapshot{Email: profile.ContactEmail, Phone: profile.ContactPhone}, app)
		if app != nil {
			v.adoptApplication(ctx, app)
		}
		v.watchProfileUpdates()
	}

	return v, nil
}

// adoptApplication wires an application into the conversation machinery.
func (v *GigView) adoptApplication(ctx context.Context, app *models.Application) {
	v.myApplication = app
	v.log.Seed(app.ID)
	v.subscriber.Watch(app.ID)
	if err := v.log.LoadHistory(ctx, app.ID); err != nil {
		v.logger.Warn("initial history load failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
	}
}

// watchProfileUpdates feeds dashboard-side contact edits into the form while
// the screen is open. These are background refreshes: a decode failure just
// leaves prior form state unchanged.
func (v *GigView) watchProfileUpdates() {
	stream := v.source.Subscribe(feed.TableProfiles)
	v.profileStream = stream

	go func() {
		for event := range stream.Events() {
			if event.Action != feed.ActionUpdate {
				continue
			}
			id, contact, err := event.DecodeProfileContact()
			if err != nil || id != v.viewer.ID {
				continue
			}

			v.mu.Lock()
			if v.closed {
				v.mu.Unlock()
				return
			}
			v.viewer.ContactEmail = contact.Email
			v.viewer.ContactPhone = contact.Phone
			form := v.form
			v.mu.Unlock()

			if form != nil {
				form.OnExternalContactUpdate(contact)
			}
		}
	}()
}

// Gig returns the gig being viewed.
func (v *GigView) Gig() models.Gig {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gig
}

// IsOwner reports whether the viewer owns this gig.
func (v *GigView) IsOwner() bool { return v.owner }

// MyApplication returns the musician's current application, nil when the
// viewer has not applied.
func (v *GigView) MyApplication() *models.Application {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.myApplication == nil {
		return nil
	}
	out := *v.myApplication
	return &out
}

// Applications returns the owner-side list. Contact snapshots are blanked
// until an application is accepted; the snapshot becomes visible to the
// owner only then.
func (v *GigView) Applications() []models.Application {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.Application, len(v.applications))
	copy(out, v.applications)
	for i := range out {
		if out[i].Status != models.StatusAccepted {
			out[i].Contact = models.ContactSnapshot{}
		}
	}
	return out
}

// Form returns the musician's contact form, nil for owners.
func (v *GigView) Form() *contactsync.Form {
	return v.form
}

// Log returns the conversation log for this screen.
func (v *GigView) Log() *conversation.Log {
	return v.log
}

// Apply submits the contact form, creating or updating the viewer's
// application, and starts watching its conversation.
func (v *GigView) Apply(ctx context.Context) (*models.Application, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil, errors.NewNoPermissionError("screen is closed")
	}
	form := v.form
	v.mu.Unlock()

	if form == nil {
		return nil, errors.NewNoPermissionError("only musicians can apply")
	}

	app, err := form.Submit(ctx)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	if !v.closed {
		v.myApplication = app
		v.subscriber.Watch(app.ID)
	}
	v.mu.Unlock()
	return app, nil
}

// OpenConversation loads and watches the message log for one of the gig's
// applications. Owners may open any listed application; a musician only
// their own.
func (v *GigView) OpenConversation(ctx context.Context, applicationID int64) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return errors.NewNoPermissionError("screen is closed")
	}
	if !v.visible(applicationID) {
		v.mu.Unlock()
		return errors.NewNoPermissionError("application is not part of this screen")
	}
	v.mu.Unlock()

	v.log.Seed(applicationID)
	v.subscriber.Watch(applicationID)
	return v.log.LoadHistory(ctx, applicationID)
}

// visible must be called with the lock held.
func (v *GigView) visible(applicationID int64) bool {
	if v.myApplication != nil && v.myApplication.ID == applicationID {
		return true
	}
	for _, a := range v.applications {
		if a.ID == applicationID {
			return true
		}
	}
	return false
}

// SendMessage posts to an application's conversation.
func (v *GigView) SendMessage(ctx context.Context, applicationID int64, body string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return errors.NewNoPermissionError("screen is closed")
	}
	if !v.visible(applicationID) {
		v.mu.Unlock()
		return errors.NewNoPermissionError("application is not part of this screen")
	}
	v.mu.Unlock()

	return v.log.Send(ctx, applicationID, body)
}

// SetStatus moves a pending application to accepted or rejected. Only the
// owning venue can do this, enforced again by the store; on success the
// local list reflects the new status immediately, and an accepted
// application's contact snapshot becomes visible through Applications.
func (v *GigView) SetStatus(ctx context.Context, applicationID int64, status models.Status) (*models.Application, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil, errors.NewNoPermissionError("screen is closed")
	}
	if !v.owner {
		v.mu.Unlock()
		return nil, errors.NewNotOwnerError("only the gig owner can change application status")
	}
	v.mu.Unlock()

	updated, err := v.store.SetApplicationStatus(ctx, applicationID, status, v.viewer.ID)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	for i := range v.applications {
		if v.applications[i].ID == updated.ID {
			v.applications[i] = *updated
			break
		}
	}
	v.mu.Unlock()

	return updated, nil
}

// Withdraw deletes the musician's own application and discards its
// conversation state. The form reseeds from profile defaults so a fresh
// apply starts clean.
func (v *GigView) Withdraw(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return errors.NewNoPermissionError("screen is closed")
	}
	app := v.myApplication
	v.mu.Unlock()

	if app == nil {
		return errors.NewNotFoundError("applications", "current")
	}

	if err := v.store.DeleteApplication(ctx, app.ID, v.viewer.ID); err != nil {
		return err
	}

	v.mu.Lock()
	v.myApplication = nil
	viewer := v.viewer
	v.mu.Unlock()

	v.subscriber.Unwatch(app.ID)
	v.log.Drop(app.ID)
	if v.form != nil {
		v.form.Seed(models.ContactSnapshot{Email: viewer.ContactEmail, Phone: viewer.ContactPhone}, nil)
	}
	return nil
}

// Close releases the screen's subscriptions. Idempotent; every Open must be
// paired with a Close.
func (v *GigView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()
	v.teardown()
}

func (v *GigView) teardown() {
	v.subscriber.Close()
	if v.profileStream != nil {
		v.profileStream.Close()
	}
}
