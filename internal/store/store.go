// Package store implements the relational persistence contract from
// spec.md §6 against PostgreSQL via database/sql and lib/pq.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Store is the persistence boundary stage B (registry commit) and stage D
// (enriched-record writes) both use. A pooled connection must tolerate
// concurrent access from both callers.
type Store interface {
	EnsureSchema(ctx context.Context) error
	InsertNonDuplicates(ctx context.Context, domains []string) (map[string]int64, error)
	InsertIPs(ctx context.Context, rows []IPRow) error
	InsertNS(ctx context.Context, rows []NSRow) error
	Close() error
}

// IPRow is one row destined for domains_ip.
type IPRow struct {
	DomainID int64
	IP       string
}

// NSRow is one row destined for domains_ns.
type NSRow struct {
	DomainID int64
	NS       string
}

// Postgres is the Store implementation backing the pipeline in
// production. Pool sizing follows spec.md §5's recommendation of a
// min 5 / max 20 connection pool with a 10s connect timeout.
type Postgres struct {
	db *sql.DB
}

// Open connects to Postgres with the given DSN and pool bounds.
func Open(dsn string, minConns, maxConns int, connectTimeout time.Duration) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(minConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Postgres{db: db}, nil
}

// EnsureSchema idempotently creates the tables spec.md §6 names, so the
// pipeline can start against a fresh database without an external
// migration step. Supplements the spec per SPEC_FULL.md §6.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS domains (
			id     BIGSERIAL PRIMARY KEY,
			domain TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS domains_ip (
			domain_id BIGINT NOT NULL REFERENCES domains(id),
			ip        TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS domains_ns (
			domain_id BIGINT NOT NULL REFERENCES domains(id),
			ns        TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: ensure schema: %w", err)
		}
	}
	return nil
}

// InsertNonDuplicates atomically inserts rows for domains not already
// present and returns {domain -> id} for the inserted subset only,
// preserving the "new domain -> authoritative id" contract spec.md §4.2
// requires. Reimplemented as one batched INSERT ... ON CONFLICT DO
// NOTHING RETURNING statement per spec.md §9's own suggested
// reimplementation of the source's per-domain INSERT IGNORE loop.
func (p *Postgres) InsertNonDuplicates(ctx context.Context, domains []string) (map[string]int64, error) {
	result := make(map[string]int64, len(domains))
	if len(domains) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(domains))
	args := make([]interface{}, len(domains))
	for i, d := range domains {
		placeholders[i] = fmt.Sprintf("($%d)", i+1)
		args[i] = d
	}

	query := fmt.Sprintf(
		`INSERT INTO domains (domain) VALUES %s
		 ON CONFLICT (domain) DO NOTHING
		 RETURNING id, domain`,
		strings.Join(placeholders, ","),
	)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: insert non duplicates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var domain string
		if err := rows.Scan(&id, &domain); err != nil {
			return nil, fmt.Errorf("store: scan inserted domain: %w", err)
		}
		result[domain] = id
	}
	return result, rows.Err()
}

// InsertIPs bulk-copies rows into domains_ip inside its own transaction.
// Failures roll back and are logged; the caller continues with the next
// record (spec.md §4.4).
func (p *Postgres) InsertIPs(ctx context.Context, rows []IPRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin insert ips: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, buildCopyIn("domains_ip", "domain_id", "ip"))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("store: prepare copy ips: %w", err)
	}
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.DomainID, r.IP); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("store: copy ip row: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		tx.Rollback()
		return fmt.Errorf("store: flush copy ips: %w", err)
	}
	if err := stmt.Close(); err != nil {
		tx.Rollback()
		return fmt.Errorf("store: close copy ips: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit insert ips: %w", err)
	}
	return nil
}

// InsertNS bulk-copies rows into domains_ns inside its own transaction.
func (p *Postgres) InsertNS(ctx context.Context, rows []NSRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin insert ns: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, buildCopyIn("domains_ns", "domain_id", "ns"))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("store: prepare copy ns: %w", err)
	}
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.DomainID, r.NS); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("store: copy ns row: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		tx.Rollback()
		return fmt.Errorf("store: flush copy ns: %w", err)
	}
	if err := stmt.Close(); err != nil {
		tx.Rollback()
		return fmt.Errorf("store: close copy ns: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit insert ns: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	if p.db == nil {
		return nil
	}
	log.Println("store: closing connection pool")
	return p.db.Close()
}

func buildCopyIn(table string, columns ...string) string {
	return pqCopyIn(table, columns...)
}
