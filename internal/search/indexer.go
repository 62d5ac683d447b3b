// internal/search/indexer.go
package search

import (
	"context"
	"encoding/json"

	"musikmatch/internal/common/logger"
	"musikmatch/internal/feed"
	"musikmatch/internal/models"
)

// Indexer mirrors gig row changes into the search index. Failures are logged
// and skipped; the index catches up on the next change to the same row.
type Indexer struct {
	index  *GigIndex
	source feed.Source
	logger logger.Logger
}

func NewIndexer(index *GigIndex, source feed.Source, log logger.Logger) *Indexer {
	return &Indexer{
		index:  index,
		source: source,
		logger: log.WithFields(map[string]interface{}{"component": "gig-indexer"}),
	}
}

// Run consumes gig change events until the context is cancelled.
func (i *Indexer) Run(ctx context.Context) {
	stream := i.source.Subscribe(feed.TableGigs)
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-stream.Events():
			if !ok {
				return
			}
			i.handle(ctx, event)
		}
	}
}

func (i *Indexer) handle(ctx context.Context, event feed.Event) {
	var doc gigDocument
	if err := json.Unmarshal(event.Row, &doc); err != nil {
		i.logger.Warn("dropping undecodable gig event", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	var err error
	switch event.Action {
	case feed.ActionInsert, feed.ActionUpdate:
		var gig models.Gig
		gig, err = doc.toModel()
		if err == nil {
			err = i.index.Index(ctx, gig)
		}
	case feed.ActionDelete:
		err = i.index.Delete(ctx, doc.ID)
	}
	if err != nil {
		i.logger.Error("index update failed", map[string]interface{}{
			"gigId":  doc.ID,
			"action": string(event.Action),
			"error":  err.Error(),
		})
	}
}
