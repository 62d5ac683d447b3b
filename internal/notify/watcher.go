// internal/notify/watcher.go
package notify

import (
	"context"

	"musikmatch/internal/common/logger"
	"musikmatch/internal/feed"
	"musikmatch/internal/models"
)

// GigGetter resolves the gig referenced by a decided application.
type GigGetter interface {
	GetGig(ctx context.Context, id int64) (*models.Gig, error)
}

// DecisionWatcher turns application status changes on the live feed into
// notifications. Only updates moving a row from pending to a decided status
// are forwarded: inserts are always pending, deletes have nobody left to
// notify, and edits of a decided row (contact propagation touches every
// application the musician has) must not replay the decision.
type DecisionWatcher struct {
	source   feed.Source
	gigs     GigGetter
	notifier *Notifier
	logger   logger.Logger
}

func NewDecisionWatcher(source feed.Source, gigs GigGetter, notifier *Notifier, log logger.Logger) *DecisionWatcher {
	return &DecisionWatcher{
		source:   source,
		gigs:     gigs,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "decision-watcher"}),
	}
}

// Run consumes application events until the context is cancelled.
func (w *DecisionWatcher) Run(ctx context.Context) {
	stream := w.source.Subscribe(feed.TableApplications)
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-stream.Events():
			if !ok {
				return
			}
			w.handle(ctx, event)
		}
	}
}

func (w *DecisionWatcher) handle(ctx context.Context, event feed.Event) {
	if event.Action != feed.ActionUpdate {
		return
	}

	app, err := event.DecodeApplication()
	if err != nil {
		w.logger.Warn("dropping undecodable application event", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if !app.Status.Decided() {
		return
	}

	prev, err := event.DecodeOldApplication()
	if err != nil {
		w.logger.Warn("update without a decodable previous row, not notifying", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
		return
	}
	if prev.Status != models.StatusPending {
		return
	}

	gig, err := w.gigs.GetGig(ctx, app.GigID)
	if err != nil {
		w.logger.Error("gig lookup failed, decision not notified", map[string]interface{}{
			"applicationId": app.ID,
			"gigId":         app.GigID,
			"error":         err.Error(),
		})
		return
	}

	if err := w.notifier.NotifyDecision(ctx, *app, *gig); err != nil {
		w.logger.Error("decision notification failed", map[string]interface{}{
			"applicationId": app.ID,
			"status":        string(app.Status),
			"error":         err.Error(),
		})
	}
}
