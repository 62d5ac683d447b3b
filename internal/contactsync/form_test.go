// internal/contactsync/form_test.go
package contactsync

import (
	"context"
	"sync"
	"testing"
	"time"

	stderrors "errors"

	"musikmatch/internal/common/errors"
	"musikmatch/internal/common/logger"
	"musikmatch/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFormStore struct {
	mu      sync.Mutex
	current *models.Application
	nextID  int64

	currentErr error
	profileErr error
	writeErr   error

	profileWrites []models.ContactSnapshot
	updates       int
	inserts       int
}

func newFakeFormStore() *fakeFormStore {
	return &fakeFormStore{nextID: 100}
}

func (f *fakeFormStore) CurrentApplication(_ context.Context, gigID int64, musicianID uuid.UUID) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	if f.current == nil {
		return nil, errors.NewNotFoundError("applications", "current")
	}
	out := *f.current
	return &out, nil
}

func (f *fakeFormStore) UpdateProfileContact(_ context.Context, id uuid.UUID, contact models.ContactSnapshot) (*models.ContactSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	f.profileWrites = append(f.profileWrites, contact)
	out := contact
	return &out, nil
}

func (f *fakeFormStore) UpdateApplication(_ context.Context, id int64, message string, contact models.ContactSnapshot) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.updates++
	f.current.Message = message
	f.current.Contact = contact
	out := *f.current
	return &out, nil
}

func (f *fakeFormStore) InsertApplication(_ context.Context, a *models.Application) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.inserts++
	f.nextID++
	out := *a
	out.ID = f.nextID
	out.CreatedAt = time.Now().UTC()
	f.current = &out
	return &out, nil
}

type fakeRefresher struct {
	mu      sync.Mutex
	seeded  []int64
	loaded  []int64
	loadErr error
}

func (f *fakeRefresher) Seed(applicationID int64) {
	f.mu.Lock()
	f.seeded = append(f.seeded, applicationID)
	f.mu.Unlock()
}

func (f *fakeRefresher) LoadHistory(_ context.Context, applicationID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = append(f.loaded, applicationID)
	return nil
}

func createTestForm(t *testing.T, store *fakeFormStore) (*Form, *fakeRefresher, uuid.UUID) {
	t.Helper()
	musicianID := uuid.New()
	refresher := &fakeRefresher{}
	form := NewForm(store, refresher, 42, musicianID, logger.NewTestLogger(t))
	return form, refresher, musicianID
}

func TestSeedPrefersApplicationSnapshot(t *testing.T) {
	defaults := models.ContactSnapshot{Email: "default@x.com", Phone: "111"}

	tests := []struct {
		name        string
		application *models.Application
		wantEmail   string
		wantPhone   string
	}{
		{
			name:        "no application uses profile defaults",
			application: nil,
			wantEmail:   "default@x.com",
			wantPhone:   "111",
		},
		{
			name: "application snapshot wins",
			application: &models.Application{
				ID:      1,
				Contact: models.ContactSnapshot{Email: "snap@x.com", Phone: "222"},
			},
			wantEmail: "snap@x.com",
			wantPhone: "222",
		},
		{
			name:        "empty snapshot falls back to defaults",
			application: &models.Application{ID: 1},
			wantEmail:   "default@x.com",
			wantPhone:   "111",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form, _, _ := createTestForm(t, newFakeFormStore())
			form.Touch(FieldEmail, "typed@x.com")

			form.Seed(defaults, tt.application)

			_, contact := form.Values()
			assert.Equal(t, tt.wantEmail, contact.Email)
			assert.Equal(t, tt.wantPhone, contact.Phone)
			assert.False(t, form.Touched(FieldEmail), "seed must reset touched state")
			assert.False(t, form.Touched(FieldPhone))
		})
	}
}

func TestExternalUpdateSkipsTouchedFields(t *testing.T) {
	form, _, _ := createTestForm(t, newFakeFormStore())
	form.Seed(models.ContactSnapshot{Email: "old@x.com", Phone: "111"}, nil)

	form.Touch(FieldEmail, "typed@x.com")
	form.OnExternalContactUpdate(models.ContactSnapshot{Email: "new@x.com", Phone: "999"})

	_, contact := form.Values()
	assert.Equal(t, "typed@x.com", contact.Email, "touched field keeps user input")
	assert.Equal(t, "999", contact.Phone, "unedited field follows external update")
}

func TestSubmitInsertsNewApplication(t *testing.T) {
	store := newFakeFormStore()
	form, refresher, musicianID := createTestForm(t, store)
	form.Seed(models.ContactSnapshot{}, nil)
	form.SetMessage("Hi")
	form.Touch(FieldEmail, "a@x.com")

	app, err := form.Submit(context.Background())

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, int64(42), app.GigID)
	assert.Equal(t, musicianID, app.MusicianID)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Equal(t, "a@x.com", app.Contact.Email)
	assert.Empty(t, app.Contact.Phone)

	require.Len(t, store.profileWrites, 1)
	assert.Equal(t, "a@x.com", store.profileWrites[0].Email)
	assert.Equal(t, 1, store.inserts)
	assert.Equal(t, 0, store.updates)

	assert.Equal(t, []int64{app.ID}, refresher.seeded)
	assert.Equal(t, []int64{app.ID}, refresher.loaded)
}

func TestSubmitUpdatesExistingApplication(t *testing.T) {
	store := newFakeFormStore()
	store.current = &models.Application{
		ID:      55,
		GigID:   42,
		Message: "old message",
		Status:  models.StatusPending,
		Contact: models.ContactSnapshot{Email: "old@x.com"},
	}
	form, refresher, _ := createTestForm(t, store)
	form.Seed(models.ContactSnapshot{}, store.current)
	form.SetMessage("updated message")
	form.Touch(FieldPhone, "555")

	app, err := form.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(55), app.ID)
	assert.Equal(t, "updated message", app.Message)
	assert.Equal(t, "555", app.Contact.Phone)
	assert.Equal(t, 1, store.updates)
	assert.Equal(t, 0, store.inserts)
	assert.Equal(t, []int64{55}, refresher.seeded)
}

func TestSubmitResetsTouchedStateFromReturnedValues(t *testing.T) {
	store := newFakeFormStore()
	form, _, _ := createTestForm(t, store)
	form.Seed(models.ContactSnapshot{}, nil)
	form.SetMessage("Hi")
	form.Touch(FieldEmail, "a@x.com")
	form.Touch(FieldPhone, "123")

	_, err := form.Submit(context.Background())
	require.NoError(t, err)

	assert.False(t, form.Touched(FieldEmail))
	assert.False(t, form.Touched(FieldPhone))

	// External updates apply again now that the save succeeded.
	form.OnExternalContactUpdate(models.ContactSnapshot{Email: "later@x.com", Phone: "777"})
	_, contact := form.Values()
	assert.Equal(t, "later@x.com", contact.Email)
	assert.Equal(t, "777", contact.Phone)
}

func TestSubmitRequiresMessage(t *testing.T) {
	store := newFakeFormStore()
	form, _, _ := createTestForm(t, store)
	form.SetMessage("   ")

	_, err := form.Submit(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindValidation))
	assert.Empty(t, store.profileWrites, "validation failure must not reach the store")
}

func TestSubmitAbortsOnProfilePermissionFailure(t *testing.T) {
	store := newFakeFormStore()
	store.profileErr = errors.NewNoPermissionError("profile update affected no rows")
	form, _, _ := createTestForm(t, store)
	form.SetMessage("Hi")
	form.Touch(FieldEmail, "a@x.com")

	_, err := form.Submit(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindPermission))
	assert.Equal(t, 0, store.inserts, "application must not be touched after profile failure")
	assert.Equal(t, 0, store.updates)
	assert.True(t, form.Touched(FieldEmail), "failed submit leaves touched state intact")
}

func TestSubmitSurfacesApplicationWriteFailure(t *testing.T) {
	store := newFakeFormStore()
	store.writeErr = errors.NewStoreWriteFailedError("applications", stderrors.New("timeout"))
	form, refresher, _ := createTestForm(t, store)
	form.SetMessage("Hi")
	form.Touch(FieldEmail, "a@x.com")

	_, err := form.Submit(context.Background())

	require.Error(t, err)
	assert.True(t, form.Touched(FieldEmail))
	assert.Empty(t, refresher.seeded)
}

func TestSubmitSurfacesReReadFailure(t *testing.T) {
	store := newFakeFormStore()
	store.currentErr = errors.NewStoreQueryFailedError("applications", stderrors.New("connection reset"))
	form, _, _ := createTestForm(t, store)
	form.SetMessage("Hi")

	_, err := form.Submit(context.Background())

	require.Error(t, err)
	assert.Empty(t, store.profileWrites, "profile must not be written when the re-read fails")
}

func TestSubmitSucceedsWhenHistoryRefreshFails(t *testing.T) {
	store := newFakeFormStore()
	form, refresher, _ := createTestForm(t, store)
	refresher.loadErr = errors.NewStoreQueryFailedError("application_messages", stderrors.New("timeout"))
	form.SetMessage("Hi")

	app, err := form.Submit(context.Background())

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, []int64{app.ID}, refresher.seeded)
}
