package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/lib/pq"

	"github.com/shortontech/botmeter/internal/detect"
	"github.com/shortontech/botmeter/internal/record"
)

// tableNameRe enforces PostgreSQL identifier rules so the table name can be
// interpolated into DDL/DML without quoting tricks.
var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

func validateTableName(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// PGConfig holds Postgres store settings.
type PGConfig struct {
	DSN   string
	Table string
}

// PGStore persists classified records to Postgres.
type PGStore struct {
	db     *sql.DB
	config PGConfig
}

// NewPGStore opens a connection pool for the given config.
func NewPGStore(cfg PGConfig) (*PGStore, error) {
	if cfg.Table == "" {
		cfg.Table = "classified_entries"
	}
	if err := validateTableName(cfg.Table); err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &PGStore{db: db, config: cfg}, nil
}

// NewPGStoreWithDB wraps an existing handle; used by tests with sqlmock.
func NewPGStoreWithDB(db *sql.DB, table string) (*PGStore, error) {
	if table == "" {
		table = "classified_entries"
	}
	if err := validateTableName(table); err != nil {
		return nil, err
	}
	return &PGStore{db: db, config: PGConfig{Table: table}}, nil
}

// EnsureSchema creates the record table and its query index if missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		site TEXT NOT NULL,
		ts TIMESTAMPTZ NOT NULL,
		ip TEXT NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		status INT NOT NULL,
		bytes BIGINT NOT NULL,
		user_agent TEXT NOT NULL,
		response_time_ms BIGINT NOT NULL,
		is_bot BOOLEAN NOT NULL,
		bot_name TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		severity TEXT NOT NULL DEFAULT '',
		recommendation TEXT NOT NULL DEFAULT '',
		confidence DOUBLE PRECISION NOT NULL,
		ingested_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, s.config.Table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	idx := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_site_ts_idx ON %s (site, ts DESC)`,
		s.config.Table, s.config.Table)
	if _, err := s.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("ensure schema index: %w", err)
	}
	return nil
}

// InsertBatch writes all records in one transaction; either the whole batch
// lands or none of it does.
func (s *PGStore) InsertBatch(ctx context.Context, records []record.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, site, ts, ip, method, path, status, bytes, user_agent,
			response_time_ms, is_bot, bot_name, category, severity, recommendation,
			confidence, ingested_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		s.config.Table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Site, r.Entry.Timestamp, r.Entry.IP, r.Entry.Method,
			r.Entry.Path, r.Entry.Status, r.Entry.Bytes, r.Entry.UserAgent,
			r.Entry.ResponseTimeMS, r.Result.IsBot, r.Result.BotName,
			string(r.Result.Category), string(r.Result.Severity),
			string(r.Result.Recommendation), r.Result.Confidence, r.IngestedAt,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert record %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert batch: %w", err)
	}
	return nil
}

// RecentBySite returns up to limit records for site newer than since,
// newest first.
func (s *PGStore) RecentBySite(ctx context.Context, site string, since time.Time, limit int) ([]record.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, site, ts, ip, method, path, status, bytes, user_agent,
			response_time_ms, is_bot, bot_name, category, severity, recommendation,
			confidence, ingested_at
		FROM %s WHERE site = $1 AND ts >= $2 ORDER BY ts DESC LIMIT $3`,
		s.config.Table), site, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent records: %w", err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var (
			r                        record.Record
			cat, sev, recommendation string
		)
		if err := rows.Scan(
			&r.ID, &r.Site, &r.Entry.Timestamp, &r.Entry.IP, &r.Entry.Method,
			&r.Entry.Path, &r.Entry.Status, &r.Entry.Bytes, &r.Entry.UserAgent,
			&r.Entry.ResponseTimeMS, &r.Result.IsBot, &r.Result.BotName,
			&cat, &sev, &recommendation, &r.Result.Confidence, &r.IngestedAt,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Result.Category = detect.Category(cat)
		r.Result.Severity = detect.Severity(sev)
		r.Result.Recommendation = detect.Action(recommendation)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (s *PGStore) Close() error {
	return s.db.Close()
}
