//go:build !sqlite_fts5

package jobindex

import (
	"database/sql"

	"github.com/radrebel/fedscout/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses a LIKE fallback on the jobs table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _, _ string) error {
	// Columns are already stored in the jobs table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]models.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	return db.scanJobs(`
		SELECT id, title, organization, location, url, posted_at
		FROM jobs
		WHERE title LIKE ? OR organization LIKE ? OR location LIKE ?
		ORDER BY posted_at DESC
		LIMIT ?
	`, like, like, like, limit)
}
