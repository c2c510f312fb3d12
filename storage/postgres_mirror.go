package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"garage-scraper/models"
	"garage-scraper/utils"
)

const sampleColumns = 8

// PostgresMirror keeps an append-only copy of every sample in PostgreSQL.
// The CSV streams stay the source of truth for the report path.
type PostgresMirror struct {
	db *sql.DB
}

// OpenPostgresMirror connects to PostgreSQL, runs schema migrations, and
// returns a ready-to-use PostgresMirror.
func OpenPostgresMirror(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresMirror, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	err = retry.Do(ctx, "postgres-ping", func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pm := NewPostgresMirror(db)
	if err := pm.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pm, nil
}

// NewPostgresMirror wraps an already open database without migrating it.
func NewPostgresMirror(db *sql.DB) *PostgresMirror {
	return &PostgresMirror{db: db}
}

func (pm *PostgresMirror) migrate(ctx context.Context) error {
	_, err := pm.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS parking_samples (
			id          BIGSERIAL PRIMARY KEY,
			weekday     VARCHAR(16) NOT NULL,
			garage      INTEGER     NOT NULL,
			sample_date DATE        NOT NULL,
			hour        SMALLINT    NOT NULL,
			minute      SMALLINT    NOT NULL,
			permit_type TEXT        NOT NULL DEFAULT '',
			spaces_left TEXT        NOT NULL DEFAULT '',
			spaces      INTEGER,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_parking_samples_stream ON parking_samples(weekday, garage);
		CREATE INDEX IF NOT EXISTS idx_parking_samples_hour   ON parking_samples(hour);
	`)
	return err
}

// Append batch-inserts samples for one stream.
func (pm *PostgresMirror) Append(id models.StreamID, samples []models.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(samples); i += batchSize {
		end := i + batchSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := pm.insertBatch(id, samples[i:end]); err != nil {
			return fmt.Errorf("postgres: insert %s: %w", id, err)
		}
	}
	return nil
}

func (pm *PostgresMirror) insertBatch(id models.StreamID, batch []models.Sample) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*sampleColumns)

	for idx, s := range batch {
		placeholders := make([]string, sampleColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", idx*sampleColumns+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")

		var spaces sql.NullInt64
		if n, ok := s.Spaces(); ok {
			spaces = sql.NullInt64{Int64: int64(n), Valid: true}
		}
		valueArgs = append(valueArgs,
			id.Weekday, id.Garage, s.Date.Format(models.DateLayout),
			s.Hour, s.Minute, s.PermitType, s.SpacesLeft, spaces)
	}

	query := fmt.Sprintf(
		"INSERT INTO parking_samples (weekday, garage, sample_date, hour, minute, permit_type, spaces_left, spaces) VALUES %s",
		strings.Join(valueStrings, ","))

	_, err := pm.db.Exec(query, valueArgs...)
	return err
}

func (pm *PostgresMirror) Close() error {
	return pm.db.Close()
}
