package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/radrebel/fedscout/internal/classify"
	"github.com/radrebel/fedscout/internal/executor"
	"github.com/radrebel/fedscout/internal/models"
	"github.com/radrebel/fedscout/internal/opstate"
)

type fakeStore struct {
	mu       sync.Mutex
	searches map[string]models.SavedSearch
}

func newFakeStore(searches ...models.SavedSearch) *fakeStore {
	fs := &fakeStore{searches: make(map[string]models.SavedSearch)}
	for _, s := range searches {
		fs.searches[s.ID] = s
	}
	return fs
}

func (f *fakeStore) ListAlertSearches() ([]models.SavedSearch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SavedSearch
	for _, s := range f.searches {
		if s.AlertsEnabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) SetLastCheckedAt(id string, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.searches[id]
	if !ok {
		return fmt.Errorf("no such search %s", id)
	}
	s.LastCheckedAt = t
	f.searches[id] = s
	return nil
}

func (f *fakeStore) get(id string) models.SavedSearch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches[id]
}

type fakeClient struct {
	jobs []models.Job
	err  error
}

func (f *fakeClient) Search(ctx context.Context, c models.Criteria) ([]models.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.jobs, nil
}

func (f *fakeClient) Position(ctx context.Context, id string) (*models.Job, error) {
	return nil, fmt.Errorf("not implemented")
}

type fakeSink struct {
	mu      sync.Mutex
	intents []Intent
}

func (f *fakeSink) Schedule(intent Intent) error {
	f.mu.Lock()
	f.intents = append(f.intents, intent)
	f.mu.Unlock()
	return nil
}

func (f *fakeSink) Cancel(id string) error { return nil }

type statusError struct{ code int }

func (e *statusError) Error() string   { return fmt.Sprintf("HTTP %d", e.code) }
func (e *statusError) HTTPStatus() int { return e.code }

func testNotifier(t *testing.T, store *fakeStore, client *fakeClient, sink Sink) *Notifier {
	t.Helper()
	states := opstate.NewStore(20 * time.Millisecond)
	exec := executor.New(states, classify.Policy{BaseDelay: time.Millisecond, RateLimitedBaseDelay: time.Millisecond}, slog.Default())
	if sink == nil {
		sink = &fakeSink{}
	}
	return New(store, client, exec, sink, slog.Default())
}

func TestCheckYieldsIntentForNewPostings(t *testing.T) {
	t0 := time.Now().Add(-10 * time.Minute)
	search := models.SavedSearch{
		ID:            "ss-1",
		Name:          "Rangers",
		Criteria:      models.Criteria{Keyword: "ranger"},
		AlertsEnabled: true,
		LastCheckedAt: t0,
	}
	client := &fakeClient{jobs: []models.Job{
		{ID: "old", PostedAt: t0.Add(-time.Hour)},
		{ID: "new", PostedAt: t0.Add(5 * time.Minute)},
	}}
	store := newFakeStore(search)
	n := testNotifier(t, store, client, nil)

	checkTime := t0.Add(10 * time.Minute)
	n.now = func() time.Time { return checkTime }

	intent, ce := n.CheckSavedQuery(context.Background(), search)
	if ce != nil {
		t.Fatalf("unexpected error: %v", ce)
	}
	if intent == nil {
		t.Fatal("expected an intent for the new posting")
	}
	if intent.Count != 1 {
		t.Errorf("count = %d, want 1 (only the posting after the watermark)", intent.Count)
	}
	if intent.SearchID != "ss-1" || intent.SearchName != "Rangers" {
		t.Errorf("intent = %+v", intent)
	}
	if got := store.get("ss-1").LastCheckedAt; !got.Equal(checkTime) {
		t.Errorf("watermark = %v, want advanced to %v", got, checkTime)
	}
}

func TestWatermarkAdvancesEvenWithoutNewPostings(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	search := models.SavedSearch{
		ID: "ss-1", Name: "Rangers", AlertsEnabled: true, LastCheckedAt: t0,
		Criteria: models.Criteria{Keyword: "ranger"},
	}
	client := &fakeClient{jobs: []models.Job{{ID: "old", PostedAt: t0.Add(-time.Hour)}}}
	store := newFakeStore(search)
	n := testNotifier(t, store, client, nil)

	checkTime := time.Now()
	n.now = func() time.Time { return checkTime }

	intent, ce := n.CheckSavedQuery(context.Background(), search)
	if ce != nil || intent != nil {
		t.Fatalf("intent = %v, err = %v; want nil, nil", intent, ce)
	}
	if got := store.get("ss-1").LastCheckedAt; !got.Equal(checkTime) {
		t.Errorf("watermark = %v, want %v even with no new items", got, checkTime)
	}
}

func TestSecondCheckIsSilenced(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	search := models.SavedSearch{
		ID: "ss-1", Name: "Rangers", AlertsEnabled: true, LastCheckedAt: t0,
		Criteria: models.Criteria{Keyword: "ranger"},
	}
	// Remote result set does not change between checks.
	client := &fakeClient{jobs: []models.Job{{ID: "j1", PostedAt: t0.Add(time.Minute)}}}
	store := newFakeStore(search)
	n := testNotifier(t, store, client, nil)

	first, ce := n.CheckSavedQuery(context.Background(), search)
	if ce != nil || first == nil {
		t.Fatalf("first check: intent = %v, err = %v", first, ce)
	}

	mark1 := store.get("ss-1").LastCheckedAt
	second, ce := n.CheckSavedQuery(context.Background(), store.get("ss-1"))
	if ce != nil {
		t.Fatalf("second check error: %v", ce)
	}
	if second != nil {
		t.Error("second check against an unchanged result set must not alert again")
	}
	if mark2 := store.get("ss-1").LastCheckedAt; !mark2.After(mark1) {
		t.Errorf("watermark must strictly increase: %v then %v", mark1, mark2)
	}
}

func TestDisabledSearchIsNoOp(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	search := models.SavedSearch{
		ID: "ss-1", Name: "Rangers", AlertsEnabled: false, LastCheckedAt: t0,
		Criteria: models.Criteria{Keyword: "ranger"},
	}
	client := &fakeClient{jobs: []models.Job{{ID: "j1", PostedAt: time.Now()}}}
	store := newFakeStore(search)
	n := testNotifier(t, store, client, nil)

	intent, ce := n.CheckSavedQuery(context.Background(), search)
	if intent != nil || ce != nil {
		t.Fatalf("disabled search: intent = %v, err = %v", intent, ce)
	}
	if got := store.get("ss-1").LastCheckedAt; !got.Equal(t0) {
		t.Errorf("watermark touched for disabled search: %v", got)
	}
}

func TestFailedCheckLeavesWatermark(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	search := models.SavedSearch{
		ID: "ss-1", Name: "Rangers", AlertsEnabled: true, LastCheckedAt: t0,
		Criteria: models.Criteria{Keyword: "ranger"},
	}
	client := &fakeClient{err: &statusError{500}}
	store := newFakeStore(search)
	n := testNotifier(t, store, client, nil)

	intent, ce := n.CheckSavedQuery(context.Background(), search)
	if intent != nil {
		t.Error("no intent may be produced on failure")
	}
	if ce == nil || ce.Kind != classify.KindServerError {
		t.Errorf("error = %v, want server_error", ce)
	}
	if got := store.get("ss-1").LastCheckedAt; !got.Equal(t0) {
		t.Errorf("watermark must be untouched on failure, got %v", got)
	}
}

func TestCheckAllSchedulesAndAbsorbsFailures(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	ok := models.SavedSearch{
		ID: "ok", Name: "Works", AlertsEnabled: true, LastCheckedAt: t0,
		Criteria: models.Criteria{Keyword: "ranger"},
	}
	off := models.SavedSearch{
		ID: "off", Name: "Disabled", AlertsEnabled: false, LastCheckedAt: t0,
		Criteria: models.Criteria{Keyword: "forester"},
	}
	client := &fakeClient{jobs: []models.Job{{ID: "j1", PostedAt: time.Now()}}}
	store := newFakeStore(ok, off)
	sink := &fakeSink{}
	n := testNotifier(t, store, client, sink)

	n.CheckAll(context.Background())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.intents) != 1 {
		t.Fatalf("scheduled %d intents, want 1", len(sink.intents))
	}
	if sink.intents[0].SearchID != "ok" {
		t.Errorf("intent = %+v", sink.intents[0])
	}
	if sink.intents[0].ID == "" {
		t.Error("intent must carry a generated id")
	}
}

func TestSchedulerKick(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	search := models.SavedSearch{
		ID: "ss-1", Name: "Rangers", AlertsEnabled: true, LastCheckedAt: t0,
		Criteria: models.Criteria{Keyword: "ranger"},
	}
	client := &fakeClient{jobs: []models.Job{{ID: "j1", PostedAt: time.Now()}}}
	store := newFakeStore(search)
	sink := &fakeSink{}
	n := testNotifier(t, store, client, sink)

	// Long interval: only a kick can trigger the check.
	s := NewScheduler(n, time.Hour, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.Kick()

	deadline := time.After(2 * time.Second)
	for {
		sink.mu.Lock()
		got := len(sink.intents)
		sink.mu.Unlock()
		if got == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("kicked check never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSchedulerSetInterval(t *testing.T) {
	n := testNotifier(t, newFakeStore(), &fakeClient{}, nil)
	s := NewScheduler(n, time.Hour, slog.Default())

	s.SetInterval(time.Minute)
	if got := s.Interval(); got != time.Minute {
		t.Errorf("Interval = %v, want 1m", got)
	}
	s.SetInterval(0) // ignored
	if got := s.Interval(); got != time.Minute {
		t.Errorf("Interval = %v after ignored update, want 1m", got)
	}
}
