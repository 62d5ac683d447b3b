// internal/conversation/subscriber_test.go
package conversation

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"musikmatch/internal/common/logger"
	"musikmatch/internal/feed"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	events chan feed.Event
	once   sync.Once
}

func (s *fakeStream) Events() <-chan feed.Event { return s.events }

func (s *fakeStream) Close() {
	s.once.Do(func() { close(s.events) })
}

type fakeSource struct {
	mu      sync.Mutex
	streams []*fakeStream
}

func (f *fakeSource) Subscribe(tables ...string) feed.Stream {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeStream{events: make(chan feed.Event, 16)}
	f.streams = append(f.streams, s)
	return s
}

func (f *fakeSource) openStreams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

func (f *fakeSource) current() *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[len(f.streams)-1]
}

func messageEvent(t *testing.T, id, appID int64, body string, at time.Time) feed.Event {
	t.Helper()
	row, err := json.Marshal(map[string]interface{}{
		"id":             id,
		"application_id": appID,
		"sender_id":      uuid.NewString(),
		"body":           body,
		"created_at":     at.Format(time.RFC3339),
	})
	require.NoError(t, err)
	return feed.Event{Table: feed.TableMessages, Action: feed.ActionInsert, Row: row}
}

func waitForMessages(t *testing.T, log *Log, applicationID int64, want int) []msgView {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		msgs := log.Messages(applicationID)
		if len(msgs) >= want {
			out := make([]msgView, len(msgs))
			for i, m := range msgs {
				out[i] = msgView{ID: m.ID, Body: m.Body}
			}
			return out
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d messages, have %d", want, len(msgs))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type msgView struct {
	ID   int64
	Body string
}

func createTestSubscriber(t *testing.T) (*Subscriber, *Log, *fakeSource) {
	t.Helper()
	store := newFakeMessageStore()
	log := createTestLog(t, store)
	source := &fakeSource{}
	sub := NewSubscriber(source, log, logger.NewTestLogger(t))
	t.Cleanup(sub.Close)
	return sub, log, source
}

func TestWatchOpensSingleSubscription(t *testing.T) {
	sub, _, source := createTestSubscriber(t)

	sub.Watch(7)
	sub.Watch(8)
	sub.Watch(9)

	assert.Equal(t, 1, source.openStreams(), "one subscription regardless of watcher count")
}

func TestLiveEventsReachWatchedApplications(t *testing.T) {
	sub, log, source := createTestSubscriber(t)
	sub.Watch(7)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	source.current().events <- messageEvent(t, 1, 7, "hello", at)

	msgs := waitForMessages(t, log, 7, 1)
	assert.Equal(t, "hello", msgs[0].Body)
}

func TestEventsForUnwatchedApplicationsAreIgnored(t *testing.T) {
	sub, log, source := createTestSubscriber(t)
	sub.Watch(7)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	source.current().events <- messageEvent(t, 1, 99, "other conversation", at)
	source.current().events <- messageEvent(t, 2, 7, "mine", at.Add(time.Second))

	msgs := waitForMessages(t, log, 7, 1)
	require.Len(t, msgs, 1)
	assert.Equal(t, "mine", msgs[0].Body)
	assert.Empty(t, log.Messages(99))
}

func TestDuplicateDeliveryAppendsOnce(t *testing.T) {
	sub, log, source := createTestSubscriber(t)
	sub.Watch(7)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	source.current().events <- messageEvent(t, 1, 7, "once", at)
	source.current().events <- messageEvent(t, 1, 7, "once", at)
	source.current().events <- messageEvent(t, 2, 7, "twice", at.Add(time.Second))

	msgs := waitForMessages(t, log, 7, 2)
	assert.Len(t, msgs, 2)
}

func TestUndecodableEventsAreDropped(t *testing.T) {
	sub, log, source := createTestSubscriber(t)
	sub.Watch(7)

	source.current().events <- feed.Event{
		Table:  feed.TableMessages,
		Action: feed.ActionInsert,
		Row:    json.RawMessage(`{"id":"not-a-number"}`),
	}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	source.current().events <- messageEvent(t, 1, 7, "still alive", at)

	msgs := waitForMessages(t, log, 7, 1)
	assert.Equal(t, "still alive", msgs[0].Body)
}

func TestUnwatchingLastApplicationReleasesSubscription(t *testing.T) {
	sub, _, source := createTestSubscriber(t)

	sub.Watch(7)
	sub.Watch(8)
	stream := source.current()

	sub.Unwatch(7)
	assertStreamOpen(t, stream)

	sub.Unwatch(8)
	assertStreamClosed(t, stream)

	// A new watch opens a fresh subscription.
	sub.Watch(7)
	assert.Equal(t, 2, source.openStreams())
}

func TestCloseReleasesSubscriptionAndBlocksNewWatches(t *testing.T) {
	sub, _, source := createTestSubscriber(t)
	sub.Watch(7)
	stream := source.current()

	sub.Close()
	assertStreamClosed(t, stream)

	sub.Watch(8)
	assert.Equal(t, 1, source.openStreams(), "closed subscriber must not resubscribe")

	sub.Close() // idempotent
}

func assertStreamOpen(t *testing.T, s *fakeStream) {
	t.Helper()
	select {
	case _, ok := <-s.events:
		if !ok {
			t.Fatal("stream unexpectedly closed")
		}
	default:
	}
}

func assertStreamClosed(t *testing.T, s *fakeStream) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-s.events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream was not closed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
