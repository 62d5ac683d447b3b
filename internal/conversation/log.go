// internal/conversation/log.go
package conversation

import (
	"context"
	"sort"
	"strings"
	"sync"

	"musikmatch/internal/common/errors"
	"musikmatch/internal/common/logger"
	"musikmatch/internal/common/metrics"
	"musikmatch/internal/models"

	"github.com/google/uuid"
)

// MessageStore is the slice of the backing store the log needs.
type MessageStore interface {
	ListMessages(ctx context.Context, applicationID int64) ([]models.Message, error)
	InsertMessage(ctx context.Context, applicationID int64, senderID uuid.UUID, body string) (*models.Message, error)
}

// Log maintains one ascending-time, id-deduplicated message sequence per
// application. Entries arrive through two paths, a bulk history load and a
// one-at-a-time live feed, and the same message may show up on both; dedup
// by identifier with keep-first is the only correctness mechanism, there are
// no sequence numbers.
type Log struct {
	mu        sync.Mutex
	store     MessageStore
	senderID  uuid.UUID
	logger    logger.Logger
	apps      map[int64]*appLog
	observers []func(applicationID int64)
}

type appLog struct {
	messages []models.Message
	compose  string
	loadErr  error
	sendErr  error
}

func NewLog(store MessageStore, senderID uuid.UUID, log logger.Logger) *Log {
	return &Log{
		store:    store,
		senderID: senderID,
		logger:   log.WithFields(map[string]interface{}{"component": "conversation-log"}),
		apps:     make(map[int64]*appLog),
	}
}

// OnChange registers an observer invoked after any mutation of an
// application's sequence. Callbacks run outside the log's lock.
func (l *Log) OnChange(fn func(applicationID int64)) {
	l.mu.Lock()
	l.observers = append(l.observers, fn)
	l.mu.Unlock()
}

func (l *Log) notify(applicationID int64) {
	l.mu.Lock()
	observers := make([]func(int64), len(l.observers))
	copy(observers, l.observers)
	l.mu.Unlock()

	for _, fn := range observers {
		fn(applicationID)
	}
}

func (l *Log) app(applicationID int64) *appLog {
	a, ok := l.apps[applicationID]
	if !ok {
		a = &appLog{}
		l.apps[applicationID] = a
	}
	return a
}

// Seed registers an application with an empty sequence so observers and
// compose state exist before any history arrives.
func (l *Log) Seed(applicationID int64) {
	l.mu.Lock()
	l.app(applicationID)
	l.mu.Unlock()
}

// LoadHistory fetches the full message history for an application and merges
// it into the in-memory sequence: concatenate, drop duplicate identifiers
// keeping the first occurrence, re-sort by creation time ascending. Calling
// it twice against the same backing data is a no-op the second time. A failed
// read records a per-application error and leaves prior messages intact.
func (l *Log) LoadHistory(ctx context.Context, applicationID int64) error {
	fetched, err := l.store.ListMessages(ctx, applicationID)

	l.mu.Lock()
	a := l.app(applicationID)
	if err != nil {
		a.loadErr = err
		l.mu.Unlock()
		l.logger.Error("history load failed", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err.Error(),
		})
		return err
	}
	a.loadErr = nil
	a.messages = merge(a.messages, fetched)
	l.mu.Unlock()

	metrics.MessagesAppended.WithLabelValues("history").Add(float64(len(fetched)))
	l.notify(applicationID)
	return nil
}

// AppendLive inserts one live-feed message, ignoring it when the identifier
// is already present. The feed delivers at least once and unordered with
// respect to history loads.
func (l *Log) AppendLive(msg models.Message) {
	l.mu.Lock()
	a := l.app(msg.ApplicationID)
	before := len(a.messages)
	a.messages = merge(a.messages, []models.Message{msg})
	appended := len(a.messages) > before
	l.mu.Unlock()

	if !appended {
		metrics.MessagesDeduplicated.Inc()
		return
	}
	metrics.MessagesAppended.WithLabelValues("live").Inc()
	l.notify(msg.ApplicationID)
}

// SetCompose stores in-progress input for an application.
func (l *Log) SetCompose(applicationID int64, body string) {
	l.mu.Lock()
	l.app(applicationID).compose = body
	l.mu.Unlock()
}

// Compose returns the current in-progress input for an application.
func (l *Log) Compose(applicationID int64) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.app(applicationID).compose
}

// Send submits a message for an application. Whitespace-only input is
// rejected locally without touching the store. On success the returned row,
// carrying the server-assigned identifier and timestamp, is merged into the
// sequence and the compose field is cleared. On failure the compose field is
// left alone so typed text is not lost.
func (l *Log) Send(ctx context.Context, applicationID int64, body string) error {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return errors.NewEmptyMessageError()
	}

	msg, err := l.store.InsertMessage(ctx, applicationID, l.senderID, trimmed)

	l.mu.Lock()
	a := l.app(applicationID)
	if err != nil {
		a.sendErr = err
		l.mu.Unlock()
		metrics.MessageSendFailures.WithLabelValues(string(errors.Classify(err).Code)).Inc()
		return err
	}
	a.sendErr = nil
	a.compose = ""
	before := len(a.messages)
	a.messages = merge(a.messages, []models.Message{*msg})
	appended := len(a.messages) > before
	l.mu.Unlock()

	if appended {
		metrics.MessagesAppended.WithLabelValues("send").Inc()
	} else {
		metrics.MessagesDeduplicated.Inc()
	}
	l.notify(applicationID)
	return nil
}

// Messages returns a copy of the current sequence for an application.
func (l *Log) Messages(applicationID int64) []models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.apps[applicationID]
	if !ok {
		return nil
	}
	out := make([]models.Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// Err returns the most recent load or send failure for an application, nil
// when the last operations succeeded.
func (l *Log) Err(applicationID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.apps[applicationID]
	if !ok {
		return nil
	}
	if a.loadErr != nil {
		return a.loadErr
	}
	return a.sendErr
}

// Drop discards all state for an application, used when the musician deletes
// their application or the screen stops showing it.
func (l *Log) Drop(applicationID int64) {
	l.mu.Lock()
	delete(l.apps, applicationID)
	l.mu.Unlock()
}

// merge concatenates existing and incoming, keeps the first occurrence of
// each identifier, and re-sorts ascending by creation time. Sort stability
// preserves insertion order between equal timestamps.
func merge(existing, incoming []models.Message) []models.Message {
	seen := make(map[int64]struct{}, len(existing)+len(incoming))
	out := make([]models.Message, 0, len(existing)+len(incoming))
	for _, m := range existing {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	for _, m := range incoming {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
