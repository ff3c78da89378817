package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"justdial-scraper/models"
	"justdial-scraper/utils"
)

var _ RecordStore = (*PostgresWriter)(nil)

// PostgresWriter persists final records to PostgreSQL, keyed by item_id.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, Logger: logger}
	if err := retry.Do("postgres ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS contacts (
			item_id     TEXT        PRIMARY KEY,
			title       TEXT        NOT NULL DEFAULT '',
			rating      NUMERIC(2,1),
			address     TEXT        NOT NULL DEFAULT '',
			detail_url  TEXT        NOT NULL DEFAULT '',
			source_url  TEXT        NOT NULL DEFAULT '',
			phone       VARCHAR(15),
			resolution  VARCHAR(16) NOT NULL,
			scraped_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_contacts_resolution ON contacts(resolution);
		CREATE INDEX IF NOT EXISTS idx_contacts_source     ON contacts(source_url);
	`)
	return err
}

// Write upserts final records in batches. Records whose resolution was never
// attempted are skipped.
func (pw *PostgresWriter) Write(records []models.Record) error {
	final := make([]models.Record, 0, len(records))
	for _, r := range records {
		if r.Final() {
			final = append(final, r)
		}
	}

	const batchSize = 50
	for i := 0; i < len(final); i += batchSize {
		end := min(i+batchSize, len(final))
		if err := pw.upsertBatch(final[i:end]); err != nil {
			return err
		}
	}
	return nil
}

const contactColumns = 9

func (pw *PostgresWriter) upsertBatch(batch []models.Record) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*contactColumns)

	for idx, r := range batch {
		base := idx * contactColumns
		placeholders := make([]string, contactColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			r.ItemID, r.Title, nullable(r.Rating), r.Address, r.DetailURL, r.SourceURL,
			r.Phone, string(r.Resolution), r.ScrapedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO contacts (item_id, title, rating, address, detail_url, source_url, phone, resolution, scraped_at)
		VALUES %s
		ON CONFLICT (item_id) DO UPDATE SET
			title = EXCLUDED.title,
			rating = EXCLUDED.rating,
			address = EXCLUDED.address,
			detail_url = EXCLUDED.detail_url,
			source_url = EXCLUDED.source_url,
			phone = COALESCE(EXCLUDED.phone, contacts.phone),
			resolution = CASE WHEN EXCLUDED.phone IS NULL AND contacts.phone IS NOT NULL
				THEN contacts.resolution ELSE EXCLUDED.resolution END,
			scraped_at = EXCLUDED.scraped_at,
			updated_at = NOW()
	`, strings.Join(valueStrings, ","))

	if _, err := pw.db.Exec(query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: upsert: %w", err)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// FetchAll retrieves all stored contacts, oldest first.
func (pw *PostgresWriter) FetchAll() ([]models.Record, error) {
	rows, err := pw.db.Query(`
		SELECT item_id, title, COALESCE(rating::text, ''), address, detail_url, source_url,
		       phone, resolution, scraped_at
		FROM contacts
		ORDER BY scraped_at, item_id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var (
			r     models.Record
			phone sql.NullString
			res   string
		)
		if err := rows.Scan(
			&r.ItemID, &r.Title, &r.Rating, &r.Address, &r.DetailURL, &r.SourceURL,
			&phone, &res, &r.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if phone.Valid {
			p := phone.String
			r.Phone = &p
		}
		r.Resolution = models.ResolutionStatus(res)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
