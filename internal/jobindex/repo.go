package jobindex

import (
	"fmt"
	"time"

	"github.com/radrebel/fedscout/internal/models"
)

// Index defines the interface for job indexing operations. Consumers should
// depend on this interface rather than the concrete *DB type to facilitate
// testing with mocks.
type Index interface {
	UpsertJobs(jobs []models.Job, seenAt time.Time) error
	Get(id string) (*models.Job, error)
	Search(query string, limit int) ([]models.Job, error)
	Prune(cutoff time.Time) (int64, error)
	Count() (int, error)
	Close() error
}

// Verify *DB satisfies Index at compile time.
var _ Index = (*DB)(nil)

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

// UpsertJobs inserts or replaces a batch of postings within one transaction.
// seenAt drives later pruning.
func (db *DB) UpsertJobs(jobs []models.Job, seenAt time.Time) error {
	if len(jobs) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("jobindex: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`
		INSERT INTO jobs (id, title, organization, location, url, posted_at, seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title        = excluded.title,
			organization = excluded.organization,
			location     = excluded.location,
			url          = excluded.url,
			posted_at    = excluded.posted_at,
			seen_at      = excluded.seen_at
	`)
	if err != nil {
		return fmt.Errorf("jobindex: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, j := range jobs {
		if j.ID == "" {
			continue
		}
		if _, err := stmt.Exec(j.ID, j.Title, j.Organization, j.Location, j.URL, millis(j.PostedAt), millis(seenAt)); err != nil {
			return fmt.Errorf("jobindex: upsert job: %w", err)
		}
		if err := ftsUpsert(tx, j.ID, j.Title, j.Organization, j.Location); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Get returns one indexed posting by ID.
func (db *DB) Get(id string) (*models.Job, error) {
	var j models.Job
	var postedAt int64
	err := db.conn.QueryRow(`
		SELECT id, title, organization, location, url, posted_at
		FROM jobs WHERE id = ?
	`, id).Scan(&j.ID, &j.Title, &j.Organization, &j.Location, &j.URL, &postedAt)
	if err != nil {
		return nil, err
	}
	j.PostedAt = fromMillis(postedAt)
	return &j, nil
}

// Prune removes postings not seen since cutoff and returns how many were
// removed.
func (db *DB) Prune(cutoff time.Time) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("jobindex: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.Query(`SELECT id FROM jobs WHERE seen_at < ?`, millis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("jobindex: select stale: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		stale = append(stale, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range stale {
		ftsDelete(tx, id)
	}
	res, err := tx.Exec(`DELETE FROM jobs WHERE seen_at < ?`, millis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("jobindex: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

// Count returns the number of indexed postings.
func (db *DB) Count() (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT count(*) FROM jobs`).Scan(&n)
	return n, err
}

func (db *DB) scanJobs(query string, args ...any) ([]models.Job, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("jobindex: search: %w", err)
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		var j models.Job
		var postedAt int64
		if err := rows.Scan(&j.ID, &j.Title, &j.Organization, &j.Location, &j.URL, &postedAt); err != nil {
			return nil, err
		}
		j.PostedAt = fromMillis(postedAt)
		out = append(out, j)
	}
	return out, rows.Err()
}
