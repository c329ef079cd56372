// Package syncer decides, per request, whether to serve from the offline
// cache, fetch fresh through the retry executor, or both.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/radrebel/fedscout/internal/cache"
	"github.com/radrebel/fedscout/internal/classify"
	"github.com/radrebel/fedscout/internal/executor"
	"github.com/radrebel/fedscout/internal/opstate"
)

// Source tags where a result's payload came from, so the caller can render
// an "offline, showing cached data" indicator. The syncer never decides UI
// messaging itself.
type Source int

const (
	// SourceNetwork: freshly fetched and written through to the cache.
	SourceNetwork Source = iota
	// SourceCache: served from cache within its max age.
	SourceCache
	// SourceStale: served from cache beyond its max age, best effort.
	SourceStale
)

// String returns the lowercase name of the source.
func (s Source) String() string {
	switch s {
	case SourceNetwork:
		return "network"
	case SourceStale:
		return "stale"
	default:
		return "cache"
	}
}

// Mode selects the behavior when the cache is present and fresh while
// online.
type Mode int

const (
	// ModeReadThrough serves the fresh cache without touching the network.
	ModeReadThrough Mode = iota
	// ModeEagerRefresh refetches even when the cache is fresh, falling back
	// to the cached copy if the refresh fails.
	ModeEagerRefresh
)

var errNoCachedCopy = errors.New("offline with no cached copy")

// Result is a tagged fetch outcome.
type Result struct {
	Payload   []byte
	FetchedAt time.Time
	Source    Source
}

// Connectivity is the read side of the connectivity monitor.
type Connectivity interface {
	IsConnected() bool
}

// Syncer coordinates the offline cache, the retry executor and the
// connectivity signal.
type Syncer struct {
	cache  *cache.Cache
	exec   *executor.Executor
	net    Connectivity
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Syncer.
func New(c *cache.Cache, exec *executor.Executor, net Connectivity, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{cache: c, exec: exec, net: net, logger: logger, now: time.Now}
}

// Fetch resolves a payload for key according to the offline-first decision
// table:
//
//	online, cache fresh:   serve cache (read-through) or refresh (eager)
//	online, cache stale:   fetch; write through on success; stale fallback on failure
//	online, cache absent:  fetch; surface the failure
//	offline, cache present: serve cache, flagged stale when beyond maxAge
//	offline, cache absent:  surface NoConnection immediately, no retry
//
// Successful fetches run under the given slot via the retry executor, so the
// operation state store reflects them like any other operation.
func (s *Syncer) Fetch(ctx context.Context, key string, slot opstate.Slot, maxAge time.Duration, mode Mode, work executor.Work[[]byte]) (Result, *classify.Error) {
	entry, err := s.cache.Get(key)
	if err != nil {
		// A broken cache read degrades to a plain fetch.
		s.logger.Warn("cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		entry = nil
	}

	if !s.net.IsConnected() {
		if entry != nil {
			src := SourceCache
			if s.cache.IsStale(entry, maxAge) {
				src = SourceStale
			}
			return Result{Payload: entry.Payload, FetchedAt: entry.FetchedAt, Source: src}, nil
		}
		ce := &classify.Error{Kind: classify.KindNoConnection, Cause: errNoCachedCopy}
		// Record the failure on the slot so the UI sees it; no fetch is
		// attempted while offline.
		gen := s.exec.States().Begin(slot)
		s.exec.States().Fail(slot, gen, ce)
		return Result{}, ce
	}

	if entry != nil && !s.cache.IsStale(entry, maxAge) && mode == ModeReadThrough {
		return Result{Payload: entry.Payload, FetchedAt: entry.FetchedAt, Source: SourceCache}, nil
	}

	payload, ce := executor.DoWithRetry(ctx, s.exec, slot, 0, work)
	if ce == nil {
		fetchedAt := s.now()
		if err := s.cache.Put(key, payload, fetchedAt); err != nil {
			s.logger.Warn("cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return Result{Payload: payload, FetchedAt: fetchedAt, Source: SourceNetwork}, nil
	}

	if entry != nil {
		s.logger.Info("fetch failed, serving cached payload",
			slog.String("key", key),
			slog.String("kind", ce.Kind.String()))
		src := SourceCache
		if s.cache.IsStale(entry, maxAge) {
			src = SourceStale
		}
		return Result{Payload: entry.Payload, FetchedAt: entry.FetchedAt, Source: src}, nil
	}

	return Result{}, ce
}
