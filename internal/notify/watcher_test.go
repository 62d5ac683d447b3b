// internal/notify/watcher_test.go
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	stderrors "errors"

	"musikmatch/internal/common/logger"
	"musikmatch/internal/feed"
	"musikmatch/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeedStream struct {
	events chan feed.Event
	once   sync.Once
}

func (s *fakeFeedStream) Events() <-chan feed.Event { return s.events }

func (s *fakeFeedStream) Close() {
	s.once.Do(func() { close(s.events) })
}

type fakeFeedSource struct {
	mu     sync.Mutex
	stream *fakeFeedStream
}

func (f *fakeFeedSource) Subscribe(tables ...string) feed.Stream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stream = &fakeFeedStream{events: make(chan feed.Event, 16)}
	return f.stream
}

func (f *fakeFeedSource) current(t *testing.T) *fakeFeedStream {
	t.Helper()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.stream != nil
	}, time.Second, 5*time.Millisecond, "watcher never subscribed")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stream
}

type fakeGigStore struct {
	mu   sync.Mutex
	gigs map[int64]models.Gig
	err  error
}

func (f *fakeGigStore) GetGig(_ context.Context, id int64) (*models.Gig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	gig, ok := f.gigs[id]
	if !ok {
		return nil, stderrors.New("gig not found")
	}
	return &gig, nil
}

func applicationRow(t *testing.T, id int64, status models.Status) json.RawMessage {
	t.Helper()
	row, err := json.Marshal(map[string]interface{}{
		"id":            id,
		"gig_id":        int64(42),
		"musician_id":   uuid.NewString(),
		"message":       "Hi",
		"status":        string(status),
		"contact_email": "ana@x.com",
	})
	require.NoError(t, err)
	return row
}

func applicationEvent(t *testing.T, action feed.Action, id int64, status models.Status) feed.Event {
	t.Helper()
	return feed.Event{Table: feed.TableApplications, Action: action, Row: applicationRow(t, id, status)}
}

func applicationUpdateEvent(t *testing.T, id int64, from, to models.Status) feed.Event {
	t.Helper()
	return feed.Event{
		Table:  feed.TableApplications,
		Action: feed.ActionUpdate,
		Row:    applicationRow(t, id, to),
		OldRow: applicationRow(t, id, from),
	}
}

func createTestWatcher(t *testing.T) (*DecisionWatcher, *fakeFeedSource, *fakeEmail, context.CancelFunc) {
	t.Helper()
	email := &fakeEmail{}
	notifier := NewNotifier(notifyConfig(true, false), email, &fakeSMS{}, logger.NewTestLogger(t))
	gigs := &fakeGigStore{gigs: map[int64]models.Gig{42: testGig()}}
	source := &fakeFeedSource{}
	watcher := NewDecisionWatcher(source, gigs, notifier, logger.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		watcher.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("watcher did not stop")
		}
	})
	return watcher, source, email, cancel
}

func waitForEmails(t *testing.T, email *fakeEmail, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return email.count() >= want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDecisionWatcherNotifiesOnDecidedUpdate(t *testing.T) {
	_, source, email, _ := createTestWatcher(t)

	source.current(t).events <- applicationUpdateEvent(t, 1, models.StatusPending, models.StatusAccepted)

	waitForEmails(t, email, 1)
}

func TestDecisionWatcherIgnoresPendingAndNonUpdateEvents(t *testing.T) {
	_, source, email, _ := createTestWatcher(t)

	stream := source.current(t)
	stream.events <- applicationEvent(t, feed.ActionInsert, 1, models.StatusPending)
	stream.events <- applicationUpdateEvent(t, 2, models.StatusPending, models.StatusPending)
	stream.events <- applicationEvent(t, feed.ActionDelete, 3, models.StatusAccepted)
	stream.events <- applicationUpdateEvent(t, 4, models.StatusPending, models.StatusRejected)

	waitForEmails(t, email, 1)
	assert.Equal(t, 1, email.count(), "only the decided update notifies")
}

func TestDecisionWatcherIgnoresContactEditsOfDecidedApplications(t *testing.T) {
	_, source, email, _ := createTestWatcher(t)

	stream := source.current(t)
	stream.events <- applicationUpdateEvent(t, 1, models.StatusPending, models.StatusAccepted)
	waitForEmails(t, email, 1)

	// A contact change touches every row the musician owns, decided ones
	// included. Those updates keep their decided status on both sides and
	// must not replay the decision.
	stream.events <- applicationUpdateEvent(t, 1, models.StatusAccepted, models.StatusAccepted)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, email.count(), "decision notified exactly once")
}

func TestDecisionWatcherSkipsUpdatesWithoutPreviousRow(t *testing.T) {
	_, source, email, _ := createTestWatcher(t)

	source.current(t).events <- applicationEvent(t, feed.ActionUpdate, 1, models.StatusAccepted)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, email.count())
}

func TestDecisionWatcherSurvivesUndecodableEvents(t *testing.T) {
	_, source, email, _ := createTestWatcher(t)

	stream := source.current(t)
	stream.events <- feed.Event{
		Table:  feed.TableApplications,
		Action: feed.ActionUpdate,
		Row:    json.RawMessage(`{"id":"not-a-number"}`),
	}
	stream.events <- applicationUpdateEvent(t, 1, models.StatusPending, models.StatusAccepted)

	waitForEmails(t, email, 1)
}

func TestDecisionWatcherSkipsWhenGigLookupFails(t *testing.T) {
	email := &fakeEmail{}
	notifier := NewNotifier(notifyConfig(true, false), email, &fakeSMS{}, logger.NewTestLogger(t))
	gigs := &fakeGigStore{err: stderrors.New("connection refused")}
	source := &fakeFeedSource{}
	watcher := NewDecisionWatcher(source, gigs, notifier, logger.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	source.current(t).events <- applicationUpdateEvent(t, 1, models.StatusPending, models.StatusAccepted)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, email.count())
}
