// internal/conversation/subscriber.go
package conversation

import (
	"sync"

	"musikmatch/internal/common/logger"
	"musikmatch/internal/feed"
)

// Subscriber feeds live message events into a Log for a set of watched
// applications. It holds at most one feed subscription: opened when the
// watched set becomes non-empty, released when it empties or the subscriber
// is closed. A subscription outliving its watchers is a leak.
type Subscriber struct {
	mu      sync.Mutex
	source  feed.Source
	log     *Log
	logger  logger.Logger
	watched map[int64]struct{}
	stream  feed.Stream
	closed  bool
}

func NewSubscriber(source feed.Source, log *Log, lg logger.Logger) *Subscriber {
	return &Subscriber{
		source:  source,
		log:     log,
		logger:  lg.WithFields(map[string]interface{}{"component": "conversation-subscriber"}),
		watched: make(map[int64]struct{}),
	}
}

// Watch adds an application to the watched set, opening the feed
// subscription if this is the first watcher.
func (s *Subscriber) Watch(applicationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.watched[applicationID] = struct{}{}
	if s.stream != nil {
		return
	}
	// The feed source owns the subscription gauge; only open the stream here.
	s.stream = s.source.Subscribe(feed.TableMessages)
	go s.consume(s.stream)
}

// Unwatch removes an application from the watched set and releases the
// subscription once nothing is being watched.
func (s *Subscriber) Unwatch(applicationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watched, applicationID)
	if len(s.watched) == 0 {
		s.release()
	}
}

// Close tears down the subscriber on screen teardown.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.watched = make(map[int64]struct{})
	s.release()
}

// release must be called with the lock held.
func (s *Subscriber) release() {
	if s.stream == nil {
		return
	}
	s.stream.Close()
	s.stream = nil
}

func (s *Subscriber) consume(stream feed.Stream) {
	for event := range stream.Events() {
		if event.Action != feed.ActionInsert {
			continue
		}
		msg, err := event.DecodeMessage()
		if err != nil {
			s.logger.Warn("dropping undecodable message event", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}

		s.mu.Lock()
		_, watching := s.watched[msg.ApplicationID]
		s.mu.Unlock()
		if !watching {
			continue
		}
		s.log.AppendLive(*msg)
	}
}
