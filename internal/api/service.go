package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/radrebel/fedscout/internal/apperr"
	"github.com/radrebel/fedscout/internal/cache"
	"github.com/radrebel/fedscout/internal/classify"
	"github.com/radrebel/fedscout/internal/executor"
	"github.com/radrebel/fedscout/internal/export"
	"github.com/radrebel/fedscout/internal/jobindex"
	"github.com/radrebel/fedscout/internal/models"
	"github.com/radrebel/fedscout/internal/notifier"
	"github.com/radrebel/fedscout/internal/opstate"
	"github.com/radrebel/fedscout/internal/store"
	"github.com/radrebel/fedscout/internal/syncer"
	"github.com/radrebel/fedscout/internal/usajobs"
)

// Deps holds the collaborators the service coordinates.
type Deps struct {
	Sync     *syncer.Syncer
	Cache    *cache.Cache
	Store    store.EntityStore
	Client   usajobs.Client
	Exec     *executor.Executor
	Notifier *notifier.Notifier
	// Index and Exports are optional; local search and export endpoints
	// report unavailability when nil.
	Index   jobindex.Index
	Exports *export.Store
}

// Service coordinates the sync layer, the entity store and the notifier for
// the API layer. Every remote operation runs under its slot so the
// operations dashboard reflects it.
type Service struct {
	sync     *syncer.Syncer
	cache    *cache.Cache
	store    store.EntityStore
	client   usajobs.Client
	exec     *executor.Executor
	notifier *notifier.Notifier
	index    jobindex.Index
	exports  *export.Store

	searchMaxAge time.Duration
	detailMaxAge time.Duration
	now          func() time.Time
}

// NewService creates an API service.
func NewService(d Deps, searchMaxAge, detailMaxAge time.Duration) *Service {
	if searchMaxAge <= 0 {
		searchMaxAge = time.Hour
	}
	if detailMaxAge <= 0 {
		detailMaxAge = 24 * time.Hour
	}
	return &Service{
		sync:         d.Sync,
		cache:        d.Cache,
		store:        d.Store,
		client:       d.Client,
		exec:         d.Exec,
		notifier:     d.Notifier,
		index:        d.Index,
		exports:      d.Exports,
		searchMaxAge: searchMaxAge,
		detailMaxAge: detailMaxAge,
		now:          time.Now,
	}
}

// SearchJobs runs a job search through the offline-first sync coordinator.
func (s *Service) SearchJobs(ctx context.Context, criteria models.Criteria) ([]models.Job, syncer.Source, *classify.Error) {
	res, ce := s.sync.Fetch(ctx, criteria.CacheKey(), opstate.SlotSearchJobs, s.searchMaxAge, syncer.ModeReadThrough,
		func(ctx context.Context, report func(float64)) ([]byte, error) {
			jobs, err := s.client.Search(ctx, criteria)
			if err != nil {
				return nil, err
			}
			return json.Marshal(jobs)
		})
	if ce != nil {
		return nil, 0, ce
	}

	var jobs []models.Job
	if err := json.Unmarshal(res.Payload, &jobs); err != nil {
		return nil, 0, classify.Classify(fmt.Errorf("cached search payload: %w: %w", classify.ErrDecode, err))
	}
	if res.Source == syncer.SourceNetwork && s.index != nil {
		if err := s.index.UpsertJobs(jobs, s.now()); err != nil {
			slog.Warn("job index update failed", slog.String("error", err.Error()))
		}
	}
	return jobs, res.Source, nil
}

// ErrUnavailable is returned by endpoints whose optional backing store was
// not configured.
var ErrUnavailable = errors.New("feature unavailable")

// LocalSearch queries the local job index. Works fully offline; only
// postings previously seen from the network are searchable.
func (s *Service) LocalSearch(query string, limit int) ([]models.Job, error) {
	if s.index == nil {
		return nil, fmt.Errorf("local search: %w", ErrUnavailable)
	}
	return s.index.Search(query, limit)
}

// JobDetails fetches one posting, cached with the longer detail max age
// since postings rarely change once published.
func (s *Service) JobDetails(ctx context.Context, id string) (*models.Job, syncer.Source, *classify.Error) {
	res, ce := s.sync.Fetch(ctx, "job/"+id, opstate.SlotJobDetails, s.detailMaxAge, syncer.ModeReadThrough,
		func(ctx context.Context, report func(float64)) ([]byte, error) {
			job, err := s.client.Position(ctx, id)
			if err != nil {
				return nil, err
			}
			return json.Marshal(job)
		})
	if ce != nil {
		return nil, 0, ce
	}

	var job models.Job
	if err := json.Unmarshal(res.Payload, &job); err != nil {
		return nil, 0, classify.Classify(fmt.Errorf("cached job payload: %w: %w", classify.ErrDecode, err))
	}
	if res.Source == syncer.SourceNetwork && s.index != nil {
		if err := s.index.UpsertJobs([]models.Job{job}, s.now()); err != nil {
			slog.Warn("job index update failed", slog.String("error", err.Error()))
		}
	}
	return &job, res.Source, nil
}

// ExportFavorite writes a bookmarked posting to a Markdown file in the
// export directory and returns the file metadata.
func (s *Service) ExportFavorite(ctx context.Context, jobID string) (*export.FileMeta, error) {
	if s.exports == nil {
		return nil, fmt.Errorf("export: %w", ErrUnavailable)
	}
	isFav, err := s.store.IsFavorite(jobID)
	if err != nil {
		return nil, err
	}
	if !isFav {
		return nil, fmt.Errorf("job %s is not a favorite: %w", jobID, apperr.ErrNotFound)
	}
	job, _, ce := s.JobDetails(ctx, jobID)
	if ce != nil {
		return nil, ce
	}

	exportedAt := s.now()
	name := export.Filename(jobID)
	cs, err := s.exports.Write(name, export.Render(*job, exportedAt))
	if err != nil {
		return nil, err
	}
	return &export.FileMeta{Path: name, Checksum: cs, UpdatedAt: exportedAt}, nil
}

// Exports lists exported files.
func (s *Service) Exports() ([]export.FileMeta, error) {
	if s.exports == nil {
		return nil, fmt.Errorf("export: %w", ErrUnavailable)
	}
	return s.exports.List()
}

// ToggleFavorite bookmarks the job, or removes the bookmark if present.
// Returns whether the job is a favorite after the call.
func (s *Service) ToggleFavorite(ctx context.Context, fav models.Favorite) (bool, *classify.Error) {
	return executor.Do(ctx, s.exec, opstate.SlotToggleFavorite, func(ctx context.Context, report func(float64)) (bool, error) {
		exists, err := s.store.IsFavorite(fav.JobID)
		if err != nil {
			return false, err
		}
		if exists {
			if err := s.store.RemoveFavorite(fav.JobID); err != nil {
				return false, err
			}
			return false, nil
		}
		fav.SavedAt = s.now()
		if err := s.store.AddFavorite(fav); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Favorites lists bookmarked jobs.
func (s *Service) Favorites(ctx context.Context) ([]models.Favorite, *classify.Error) {
	return executor.Do(ctx, s.exec, opstate.SlotLoadFavorites, func(ctx context.Context, report func(float64)) ([]models.Favorite, error) {
		return s.store.ListFavorites()
	})
}

// CreateSavedSearch persists a named search.
func (s *Service) CreateSavedSearch(ctx context.Context, name string, criteria models.Criteria) (*models.SavedSearch, *classify.Error) {
	if name == "" {
		return nil, classify.Classify(fmt.Errorf("search name required: %w", classify.ErrValidation))
	}
	return executor.Do(ctx, s.exec, opstate.SlotSaveSearch, func(ctx context.Context, report func(float64)) (*models.SavedSearch, error) {
		search := models.SavedSearch{
			ID:        uuid.NewString(),
			Name:      name,
			Criteria:  criteria,
			CreatedAt: s.now(),
		}
		if err := s.store.CreateSavedSearch(search); err != nil {
			return nil, err
		}
		return &search, nil
	})
}

// SavedSearches lists saved searches.
func (s *Service) SavedSearches(ctx context.Context) ([]models.SavedSearch, *classify.Error) {
	return executor.Do(ctx, s.exec, opstate.SlotLoadSavedSearches, func(ctx context.Context, report func(float64)) ([]models.SavedSearch, error) {
		return s.store.ListSavedSearches()
	})
}

// UpdateSavedSearch replaces the name and criteria of a saved search.
func (s *Service) UpdateSavedSearch(ctx context.Context, id, name string, criteria models.Criteria) (*models.SavedSearch, *classify.Error) {
	if name == "" {
		return nil, classify.Classify(fmt.Errorf("search name required: %w", classify.ErrValidation))
	}
	return executor.Do(ctx, s.exec, opstate.SlotSaveSearch, func(ctx context.Context, report func(float64)) (*models.SavedSearch, error) {
		if err := s.store.UpdateSavedSearch(models.SavedSearch{ID: id, Name: name, Criteria: criteria}); err != nil {
			return nil, err
		}
		return s.store.GetSavedSearch(id)
	})
}

// DeleteSavedSearch removes a saved search.
func (s *Service) DeleteSavedSearch(id string) error {
	return s.store.DeleteSavedSearch(id)
}

// SetAlerts enables or disables alerts for a saved search.
func (s *Service) SetAlerts(id string, enabled bool) error {
	return s.store.SetAlertsEnabled(id, enabled)
}

// CheckSavedSearchNow runs an immediate alert check for one saved search and
// returns the intent, if any. Unlike the background scheduler, failures are
// surfaced to the caller.
func (s *Service) CheckSavedSearchNow(ctx context.Context, id string) (*notifier.Intent, error) {
	search, err := s.store.GetSavedSearch(id)
	if err != nil {
		return nil, err
	}
	intent, ce := s.notifier.CheckSavedQuery(ctx, *search)
	if ce != nil {
		return nil, ce
	}
	return intent, nil
}

// TrackApplication starts tracking an application for a job.
func (s *Service) TrackApplication(ctx context.Context, a models.Application) (*models.Application, *classify.Error) {
	if a.JobID == "" {
		return nil, classify.Classify(fmt.Errorf("job id required: %w", classify.ErrValidation))
	}
	if a.Status == "" {
		a.Status = models.StatusSaved
	}
	if !models.ValidStatus(a.Status) {
		return nil, classify.Classify(fmt.Errorf("unknown status %q: %w", a.Status, classify.ErrValidation))
	}
	return executor.Do(ctx, s.exec, opstate.SlotTrackApplication, func(ctx context.Context, report func(float64)) (*models.Application, error) {
		a.ID = uuid.NewString()
		a.CreatedAt = s.now()
		a.UpdatedAt = a.CreatedAt
		if err := s.store.CreateApplication(a); err != nil {
			return nil, err
		}
		return &a, nil
	})
}

// Applications lists tracked applications.
func (s *Service) Applications(ctx context.Context) ([]models.Application, *classify.Error) {
	return executor.Do(ctx, s.exec, opstate.SlotLoadApplications, func(ctx context.Context, report func(float64)) ([]models.Application, error) {
		return s.store.ListApplications()
	})
}

// UpdateApplication updates an application's status, notes and applied time.
func (s *Service) UpdateApplication(ctx context.Context, id, status, notes string, appliedAt time.Time) (*models.Application, *classify.Error) {
	if !models.ValidStatus(status) {
		return nil, classify.Classify(fmt.Errorf("unknown status %q: %w", status, classify.ErrValidation))
	}
	return executor.Do(ctx, s.exec, opstate.SlotTrackApplication, func(ctx context.Context, report func(float64)) (*models.Application, error) {
		if err := s.store.UpdateApplication(id, status, notes, appliedAt); err != nil {
			return nil, err
		}
		return s.store.GetApplication(id)
	})
}

// DeleteApplication removes a tracked application.
func (s *Service) DeleteApplication(id string) error {
	return s.store.DeleteApplication(id)
}

// States exposes the operation state store for the dashboard handlers.
func (s *Service) States() *opstate.Store {
	return s.exec.States()
}

// CancelOperation cancels the in-flight run on a slot, if any.
func (s *Service) CancelOperation(slot opstate.Slot) {
	s.exec.Cancel(slot)
}

// ClearCache drops every cached payload.
func (s *Service) ClearCache() error {
	return s.cache.ClearAll()
}
