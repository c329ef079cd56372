//go:build sqlite_fts5

package jobindex

import (
	"database/sql"
	"fmt"

	"github.com/radrebel/fedscout/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS jobs_fts USING fts5(
			id UNINDEXED,
			title,
			organization,
			location,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, title, organization, location string) error {
	_, _ = tx.Exec(`DELETE FROM jobs_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO jobs_fts (id, title, organization, location) VALUES (?, ?, ?, ?)`,
		id, title, organization, location)
	if err != nil {
		return fmt.Errorf("jobindex: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM jobs_fts WHERE id = ?`, id)
}

// Search performs an FTS5 full-text search over indexed postings.
func (db *DB) Search(query string, limit int) ([]models.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.scanJobs(`
		SELECT j.id, j.title, j.organization, j.location, j.url, j.posted_at
		FROM jobs_fts f
		JOIN jobs j ON j.id = f.id
		WHERE jobs_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
}
