// Package store provides SQLite-backed persistence for favorites, saved
// searches and tracked applications.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/radrebel/fedscout/internal/apperr"
	"github.com/radrebel/fedscout/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS favorites (
	job_id       TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	organization TEXT NOT NULL DEFAULT '',
	location     TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	posted_at    INTEGER NOT NULL DEFAULT 0,
	saved_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS saved_searches (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	criteria        TEXT NOT NULL DEFAULT '{}',
	alerts_enabled  INTEGER NOT NULL DEFAULT 0,
	last_checked_at INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS applications (
	id           TEXT PRIMARY KEY,
	job_id       TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	organization TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'saved',
	notes        TEXT NOT NULL DEFAULT '',
	applied_at   INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_applications_job_id ON applications(job_id);
`

// EntityStore is the persistence interface consumed by the service layers.
type EntityStore interface {
	AddFavorite(f models.Favorite) error
	RemoveFavorite(jobID string) error
	IsFavorite(jobID string) (bool, error)
	ListFavorites() ([]models.Favorite, error)

	CreateSavedSearch(s models.SavedSearch) error
	GetSavedSearch(id string) (*models.SavedSearch, error)
	ListSavedSearches() ([]models.SavedSearch, error)
	ListAlertSearches() ([]models.SavedSearch, error)
	UpdateSavedSearch(s models.SavedSearch) error
	SetAlertsEnabled(id string, enabled bool) error
	SetLastCheckedAt(id string, t time.Time) error
	DeleteSavedSearch(id string) error

	CreateApplication(a models.Application) error
	GetApplication(id string) (*models.Application, error)
	ListApplications() ([]models.Application, error)
	UpdateApplication(id, status, notes string, appliedAt time.Time) error
	DeleteApplication(id string) error

	Close() error
}

// Verify *DB satisfies EntityStore at compile time.
var _ EntityStore = (*DB)(nil)

// DB wraps a sql.DB with entity operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the entity database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// AddFavorite inserts a favorite; ErrAlreadyExists when the job is already
// bookmarked.
func (db *DB) AddFavorite(f models.Favorite) error {
	_, err := db.conn.Exec(`
		INSERT INTO favorites (job_id, title, organization, location, url, posted_at, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, f.JobID, f.Title, f.Organization, f.Location, f.URL, millis(f.PostedAt), millis(f.SavedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: favorite %s: %w", f.JobID, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite deletes a favorite; ErrNotFound when absent.
func (db *DB) RemoveFavorite(jobID string) error {
	res, err := db.conn.Exec(`DELETE FROM favorites WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("store: remove favorite: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: favorite %s: %w", jobID, apperr.ErrNotFound)
	}
	return nil
}

// IsFavorite reports whether the job is bookmarked.
func (db *DB) IsFavorite(jobID string) (bool, error) {
	var n int
	err := db.conn.QueryRow(`SELECT count(*) FROM favorites WHERE job_id = ?`, jobID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: is favorite: %w", err)
	}
	return n > 0, nil
}

// ListFavorites returns all favorites, most recently saved first.
func (db *DB) ListFavorites() ([]models.Favorite, error) {
	rows, err := db.conn.Query(`
		SELECT job_id, title, organization, location, url, posted_at, saved_at
		FROM favorites ORDER BY saved_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list favorites: %w", err)
	}
	defer rows.Close()

	var out []models.Favorite
	for rows.Next() {
		var f models.Favorite
		var postedAt, savedAt int64
		if err := rows.Scan(&f.JobID, &f.Title, &f.Organization, &f.Location, &f.URL, &postedAt, &savedAt); err != nil {
			return nil, err
		}
		f.PostedAt = fromMillis(postedAt)
		f.SavedAt = fromMillis(savedAt)
		out = append(out, f)
	}
	return out, rows.Err()
}

// CreateSavedSearch inserts a saved search.
func (db *DB) CreateSavedSearch(s models.SavedSearch) error {
	criteria, err := json.Marshal(s.Criteria)
	if err != nil {
		return fmt.Errorf("store: marshal criteria: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO saved_searches (id, name, criteria, alerts_enabled, last_checked_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ID, s.Name, string(criteria), boolInt(s.AlertsEnabled), millis(s.LastCheckedAt), millis(s.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: saved search %s: %w", s.ID, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: create saved search: %w", err)
	}
	return nil
}

// GetSavedSearch returns a saved search by id; ErrNotFound when absent.
func (db *DB) GetSavedSearch(id string) (*models.SavedSearch, error) {
	row := db.conn.QueryRow(`
		SELECT id, name, criteria, alerts_enabled, last_checked_at, created_at
		FROM saved_searches WHERE id = ?
	`, id)
	s, err := scanSavedSearch(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: saved search %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get saved search: %w", err)
	}
	return s, nil
}

// ListSavedSearches returns all saved searches, newest first.
func (db *DB) ListSavedSearches() ([]models.SavedSearch, error) {
	return db.listSearches(`
		SELECT id, name, criteria, alerts_enabled, last_checked_at, created_at
		FROM saved_searches ORDER BY created_at DESC
	`)
}

// ListAlertSearches returns only the saved searches with alerts enabled.
func (db *DB) ListAlertSearches() ([]models.SavedSearch, error) {
	return db.listSearches(`
		SELECT id, name, criteria, alerts_enabled, last_checked_at, created_at
		FROM saved_searches WHERE alerts_enabled = 1 ORDER BY created_at DESC
	`)
}

func (db *DB) listSearches(query string) ([]models.SavedSearch, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("store: list saved searches: %w", err)
	}
	defer rows.Close()

	var out []models.SavedSearch
	for rows.Next() {
		s, err := scanSavedSearch(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSavedSearch(scan func(...any) error) (*models.SavedSearch, error) {
	var (
		s             models.SavedSearch
		criteria      string
		alertsEnabled int
		lastChecked   int64
		createdAt     int64
	)
	if err := scan(&s.ID, &s.Name, &criteria, &alertsEnabled, &lastChecked, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(criteria), &s.Criteria); err != nil {
		return nil, fmt.Errorf("unmarshal criteria: %w", err)
	}
	s.AlertsEnabled = alertsEnabled != 0
	s.LastCheckedAt = fromMillis(lastChecked)
	s.CreatedAt = fromMillis(createdAt)
	return &s, nil
}

// UpdateSavedSearch replaces the name and criteria of a saved search.
func (db *DB) UpdateSavedSearch(s models.SavedSearch) error {
	criteria, err := json.Marshal(s.Criteria)
	if err != nil {
		return fmt.Errorf("store: marshal criteria: %w", err)
	}
	res, err := db.conn.Exec(`
		UPDATE saved_searches SET name = ?, criteria = ? WHERE id = ?
	`, s.Name, string(criteria), s.ID)
	if err != nil {
		return fmt.Errorf("store: update saved search: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: saved search %s: %w", s.ID, apperr.ErrNotFound)
	}
	return nil
}

// SetAlertsEnabled toggles alerting for a saved search.
func (db *DB) SetAlertsEnabled(id string, enabled bool) error {
	res, err := db.conn.Exec(`UPDATE saved_searches SET alerts_enabled = ? WHERE id = ?`, boolInt(enabled), id)
	if err != nil {
		return fmt.Errorf("store: set alerts enabled: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: saved search %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// SetLastCheckedAt advances the alert watermark for a saved search.
func (db *DB) SetLastCheckedAt(id string, t time.Time) error {
	res, err := db.conn.Exec(`UPDATE saved_searches SET last_checked_at = ? WHERE id = ?`, millis(t), id)
	if err != nil {
		return fmt.Errorf("store: set last checked: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: saved search %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// DeleteSavedSearch removes a saved search; ErrNotFound when absent.
func (db *DB) DeleteSavedSearch(id string) error {
	res, err := db.conn.Exec(`DELETE FROM saved_searches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete saved search: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: saved search %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// CreateApplication inserts a tracked application.
func (db *DB) CreateApplication(a models.Application) error {
	_, err := db.conn.Exec(`
		INSERT INTO applications (id, job_id, title, organization, status, notes, applied_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.JobID, a.Title, a.Organization, a.Status, a.Notes, millis(a.AppliedAt), millis(a.CreatedAt), millis(a.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: application %s: %w", a.ID, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: create application: %w", err)
	}
	return nil
}

// GetApplication returns a tracked application by id; ErrNotFound when
// absent.
func (db *DB) GetApplication(id string) (*models.Application, error) {
	row := db.conn.QueryRow(`
		SELECT id, job_id, title, organization, status, notes, applied_at, created_at, updated_at
		FROM applications WHERE id = ?
	`, id)
	a, err := scanApplication(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: application %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get application: %w", err)
	}
	return a, nil
}

// ListApplications returns all tracked applications, most recently updated
// first.
func (db *DB) ListApplications() ([]models.Application, error) {
	rows, err := db.conn.Query(`
		SELECT id, job_id, title, organization, status, notes, applied_at, created_at, updated_at
		FROM applications ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list applications: %w", err)
	}
	defer rows.Close()

	var out []models.Application
	for rows.Next() {
		a, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanApplication(scan func(...any) error) (*models.Application, error) {
	var (
		a         models.Application
		appliedAt int64
		createdAt int64
		updatedAt int64
	)
	if err := scan(&a.ID, &a.JobID, &a.Title, &a.Organization, &a.Status, &a.Notes, &appliedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.AppliedAt = fromMillis(appliedAt)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}

// UpdateApplication updates the mutable fields of a tracked application.
func (db *DB) UpdateApplication(id, status, notes string, appliedAt time.Time) error {
	res, err := db.conn.Exec(`
		UPDATE applications SET status = ?, notes = ?, applied_at = ?, updated_at = ?
		WHERE id = ?
	`, status, notes, millis(appliedAt), time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("store: update application: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: application %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// DeleteApplication removes a tracked application; ErrNotFound when absent.
func (db *DB) DeleteApplication(id string) error {
	res, err := db.conn.Exec(`DELETE FROM applications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete application: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: application %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// go-sqlite3 reports constraint violations as "UNIQUE constraint failed".
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
