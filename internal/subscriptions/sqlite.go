package subscriptions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteSource reads subscriptions from a persistent table, the production
// replacement for the env-derived static list. The Resolve contract of the
// registry is unchanged regardless of which source backs it.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLiteSource opens (or creates) the database at path and ensures the
// subscriptions table exists.
func OpenSQLiteSource(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening subscriptions database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteSource{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func (s *SQLiteSource) ensureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS webhook_subscriptions (
			id         TEXT PRIMARY KEY,
			url        TEXT NOT NULL,
			events     TEXT NOT NULL,
			headers    TEXT,
			secret     TEXT,
			active     INTEGER NOT NULL DEFAULT 1,
			tenant_id  TEXT
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating subscriptions table: %w", err)
	}
	return nil
}

// Load reads every row; the registry applies the active/match filtering.
func (s *SQLiteSource) Load(ctx context.Context) ([]*Subscription, error) {
	query := `
		SELECT id, url, events, headers, secret, active, tenant_id
		FROM webhook_subscriptions
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		var (
			sub         Subscription
			eventsJSON  string
			headersJSON sql.NullString
			secret      sql.NullString
			tenantID    sql.NullString
			activeInt   int
		)
		if err := rows.Scan(&sub.ID, &sub.URL, &eventsJSON, &headersJSON, &secret, &activeInt, &tenantID); err != nil {
			return nil, fmt.Errorf("scanning subscription row: %w", err)
		}

		if err := json.Unmarshal([]byte(eventsJSON), &sub.Events); err != nil {
			return nil, fmt.Errorf("subscription %s: unmarshaling events: %w", sub.ID, err)
		}
		if headersJSON.Valid && headersJSON.String != "" {
			if err := json.Unmarshal([]byte(headersJSON.String), &sub.Headers); err != nil {
				return nil, fmt.Errorf("subscription %s: unmarshaling headers: %w", sub.ID, err)
			}
		}
		sub.Secret = secret.String
		sub.TenantID = tenantID.String
		sub.Active = activeInt != 0

		if err := sub.Compile(); err != nil {
			return nil, err
		}
		subs = append(subs, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscription rows: %w", err)
	}
	return subs, nil
}

// Upsert inserts or replaces a subscription row. Administrative tooling and
// tests use this; the delivery path itself never writes.
func (s *SQLiteSource) Upsert(ctx context.Context, sub *Subscription) error {
	eventsJSON, err := json.Marshal(sub.Events)
	if err != nil {
		return fmt.Errorf("marshaling events: %w", err)
	}
	headersJSON, err := json.Marshal(sub.Headers)
	if err != nil {
		return fmt.Errorf("marshaling headers: %w", err)
	}

	query := `
		INSERT INTO webhook_subscriptions (id, url, events, headers, secret, active, tenant_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			events = excluded.events,
			headers = excluded.headers,
			secret = excluded.secret,
			active = excluded.active,
			tenant_id = excluded.tenant_id
	`
	active := 0
	if sub.Active {
		active = 1
	}
	if _, err := s.db.ExecContext(ctx, query,
		sub.ID, sub.URL, string(eventsJSON), string(headersJSON), sub.Secret, active, sub.TenantID,
	); err != nil {
		return fmt.Errorf("upserting subscription %s: %w", sub.ID, err)
	}
	return nil
}

// Deactivate flips a subscription to inactive without deleting it.
func (s *SQLiteSource) Deactivate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE webhook_subscriptions SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivating subscription %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("subscription %s not found", id)
	}
	return nil
}
