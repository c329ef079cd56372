// Package notifier re-runs alert-enabled saved searches, computes which
// results are new relative to each search's watermark, and emits
// notification intents. Delivery is behind the Sink interface; this package
// only decides whether and what to schedule.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/radrebel/fedscout/internal/classify"
	"github.com/radrebel/fedscout/internal/executor"
	"github.com/radrebel/fedscout/internal/models"
	"github.com/radrebel/fedscout/internal/opstate"
	"github.com/radrebel/fedscout/internal/usajobs"
)

// Intent describes a desired user alert, decoupled from delivery.
type Intent struct {
	ID          string    `json:"id"`
	SearchID    string    `json:"search_id"`
	SearchName  string    `json:"search_name"`
	Count       int       `json:"count"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	TriggerTime time.Time `json:"trigger_time"`
}

// Sink receives notification intents for delivery.
type Sink interface {
	Schedule(intent Intent) error
	Cancel(id string) error
}

// LogSink writes intents to the log; the daemon's stand-in for platform
// notification delivery.
type LogSink struct {
	Logger *slog.Logger
}

// Schedule logs the intent.
func (s *LogSink) Schedule(intent Intent) error {
	s.Logger.Info("notification scheduled",
		slog.String("id", intent.ID),
		slog.String("search", intent.SearchName),
		slog.Int("count", intent.Count),
		slog.String("title", intent.Title))
	return nil
}

// Cancel logs the cancellation.
func (s *LogSink) Cancel(id string) error {
	s.Logger.Info("notification cancelled", slog.String("id", id))
	return nil
}

// WatermarkStore is the slice of the entity store the notifier mutates.
type WatermarkStore interface {
	ListAlertSearches() ([]models.SavedSearch, error)
	SetLastCheckedAt(id string, t time.Time) error
}

// Notifier checks saved searches for new postings.
type Notifier struct {
	store  WatermarkStore
	search usajobs.Client
	exec   *executor.Executor
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Notifier.
func New(store WatermarkStore, search usajobs.Client, exec *executor.Executor, sink Sink, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		store:  store,
		search: search,
		exec:   exec,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// SetSink replaces the notification sink. Must be called before any checks
// run; the notifier does not guard the field.
func (n *Notifier) SetSink(s Sink) {
	n.sink = s
}

// CheckSavedQuery re-executes one saved search and returns an intent when
// postings newer than the watermark exist.
//
// The watermark always advances after a successful check, even when nothing
// new was found: it tracks "last time we successfully checked", not "last
// time the user saw new results", and that advance is what suppresses
// duplicate alerts across repeated background runs. A failed check leaves
// the watermark untouched so the postings are not silently skipped, and
// never alerts the user about the failure.
func (n *Notifier) CheckSavedQuery(ctx context.Context, s models.SavedSearch) (*Intent, *classify.Error) {
	if !s.AlertsEnabled {
		return nil, nil
	}

	jobs, ce := executor.DoWithRetry(ctx, n.exec, opstate.SlotCheckAlerts, 0, func(ctx context.Context, report func(float64)) ([]models.Job, error) {
		return n.search.Search(ctx, s.Criteria)
	})
	if ce != nil {
		return nil, ce
	}

	checkedAt := n.now()
	count := 0
	for _, job := range jobs {
		if job.PostedAt.After(s.LastCheckedAt) {
			count++
		}
	}

	if err := n.store.SetLastCheckedAt(s.ID, checkedAt); err != nil {
		n.logger.Warn("watermark update failed",
			slog.String("search_id", s.ID),
			slog.String("error", err.Error()))
	}

	if count == 0 {
		return nil, nil
	}

	noun := "jobs"
	if count == 1 {
		noun = "job"
	}
	return &Intent{
		ID:          uuid.NewString(),
		SearchID:    s.ID,
		SearchName:  s.Name,
		Count:       count,
		Title:       fmt.Sprintf("%d new %s for %q", count, noun, s.Name),
		Body:        fmt.Sprintf("Your saved search %q has %d new %s since the last check.", s.Name, count, noun),
		TriggerTime: checkedAt,
	}, nil
}

// CheckAll runs CheckSavedQuery for every alert-enabled saved search and
// forwards any intents to the sink. Failures are absorbed: a background
// check never surfaces an error to the user, it just means no alert this
// cycle.
func (n *Notifier) CheckAll(ctx context.Context) {
	searches, err := n.store.ListAlertSearches()
	if err != nil {
		n.logger.Warn("listing alert searches failed", slog.String("error", err.Error()))
		return
	}

	for _, s := range searches {
		intent, ce := n.CheckSavedQuery(ctx, s)
		if ce != nil {
			n.logger.Info("alert check failed, skipping this cycle",
				slog.String("search", s.Name),
				slog.String("kind", ce.Kind.String()))
			continue
		}
		if intent == nil {
			continue
		}
		if err := n.sink.Schedule(*intent); err != nil {
			n.logger.Warn("scheduling notification failed",
				slog.String("search", s.Name),
				slog.String("error", err.Error()))
		}
	}
}
