// internal/contactsync/form.go

// Package contactsync reconciles three contact sources for one
// (gig, musician) pair: the profile's stored defaults, the application's
// stored snapshot, and the in-progress form. A per-field touched flag stops
// external updates from clobbering unsaved input.
package contactsync

import (
	"context"
	"strings"
	"sync"

	"musikmatch/internal/common/errors"
	"musikmatch/internal/common/logger"
	"musikmatch/internal/models"

	"github.com/google/uuid"
)

// Field names the two gated contact fields.
type Field string

const (
	FieldEmail Field = "email"
	FieldPhone Field = "phone"
)

// Store is the slice of the backing store the form needs.
type Store interface {
	CurrentApplication(ctx context.Context, gigID int64, musicianID uuid.UUID) (*models.Application, error)
	UpdateProfileContact(ctx context.Context, id uuid.UUID, contact models.ContactSnapshot) (*models.ContactSnapshot, error)
	UpdateApplication(ctx context.Context, id int64, message string, contact models.ContactSnapshot) (*models.Application, error)
	InsertApplication(ctx context.Context, a *models.Application) (*models.Application, error)
}

// Refresher is the conversation side that needs to know about the
// application resulting from a submit.
type Refresher interface {
	Seed(applicationID int64)
	LoadHistory(ctx context.Context, applicationID int64) error
}

type fieldState struct {
	value   string
	touched bool
}

// Form is the contact form for one (gig, musician) pair. Each contact field
// is either unedited, safe to overwrite from external updates, or touched,
// in which case external updates are ignored until the next successful save.
type Form struct {
	mu            sync.Mutex
	store         Store
	conversations Refresher
	logger        logger.Logger

	gigID      int64
	musicianID uuid.UUID

	email   fieldState
	phone   fieldState
	message string
}

func NewForm(store Store, conversations Refresher, gigID int64, musicianID uuid.UUID, log logger.Logger) *Form {
	return &Form{
		store:         store,
		conversations: conversations,
		logger:        log.WithFields(map[string]interface{}{"component": "contact-form"}),
		gigID:         gigID,
		musicianID:    musicianID,
	}
}

// Seed fills the form from the application snapshot when one exists, else
// from the profile defaults, and resets both fields to unedited. Called on
// first load and whenever the viewed application context changes.
func (f *Form) Seed(profileDefaults models.ContactSnapshot, application *models.Application) {
	f.mu.Lock()
	defer f.mu.Unlock()

	source := profileDefaults
	if application != nil && !application.Contact.Empty() {
		source = application.Contact
	}
	f.email = fieldState{value: source.Email}
	f.phone = fieldState{value: source.Phone}
	if application != nil {
		f.message = application.Message
	}
}

// Touch records user input in a contact field, marking it touched so later
// external updates leave it alone.
func (f *Form) Touch(field Field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case FieldEmail:
		f.email = fieldState{value: value, touched: true}
	case FieldPhone:
		f.phone = fieldState{value: value, touched: true}
	}
}

// SetMessage updates the free-text application message. The message is not
// gated; only contact fields carry the touched flag.
func (f *Form) SetMessage(message string) {
	f.mu.Lock()
	f.message = message
	f.mu.Unlock()
}

// OnExternalContactUpdate applies new profile-level defaults to each contact
// field that is still unedited. Touched fields keep the user's input.
func (f *Form) OnExternalContactUpdate(newDefaults models.ContactSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.email.touched {
		f.email.value = newDefaults.Email
	}
	if !f.phone.touched {
		f.phone.value = newDefaults.Phone
	}
}

// Values returns the current form contents.
func (f *Form) Values() (message string, contact models.ContactSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message, models.ContactSnapshot{Email: f.email.value, Phone: f.phone.value}
}

// Touched reports whether a contact field has unsaved user input.
func (f *Form) Touched(field Field) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case FieldEmail:
		return f.email.touched
	case FieldPhone:
		return f.phone.touched
	}
	return false
}

// Submit persists the form. It re-reads the current application first so a
// concurrent edit or status change made elsewhere is not overwritten blindly,
// then writes the contact values as the new profile defaults, then updates
// the existing application or inserts a new pending one. A profile write
// affecting zero rows is a permission failure and aborts before the
// application is touched. On success both fields return to unedited with the
// values the store actually returned, and the conversation log is refreshed
// for the resulting application.
func (f *Form) Submit(ctx context.Context) (*models.Application, error) {
	f.mu.Lock()
	message := strings.TrimSpace(f.message)
	contact := models.ContactSnapshot{Email: f.email.value, Phone: f.phone.value}
	f.mu.Unlock()

	if message == "" {
		return nil, errors.NewMissingFieldError("message")
	}

	current, err := f.store.CurrentApplication(ctx, f.gigID, f.musicianID)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}

	saved, err := f.store.UpdateProfileContact(ctx, f.musicianID, contact)
	if err != nil {
		return nil, err
	}

	var app *models.Application
	if current != nil {
		app, err = f.store.UpdateApplication(ctx, current.ID, message, *saved)
	} else {
		app, err = f.store.InsertApplication(ctx, &models.Application{
			GigID:      f.gigID,
			MusicianID: f.musicianID,
			Message:    message,
			Status:     models.StatusPending,
			Contact:    *saved,
		})
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.email = fieldState{value: app.Contact.Email}
	f.phone = fieldState{value: app.Contact.Phone}
	f.message = app.Message
	f.mu.Unlock()

	f.conversations.Seed(app.ID)
	if err := f.conversations.LoadHistory(ctx, app.ID); err != nil {
		// The submit itself succeeded; history recovers on the next load.
		f.logger.Warn("post-submit history refresh failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
	}
	return app, nil
}
