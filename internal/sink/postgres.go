package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ozayn/planner/internal/identity"
	"github.com/ozayn/planner/internal/pipeline"
)

// DB is the subset of pgxpool.Pool the Postgres sink needs; pgxmock
// satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements the Sink contract on a pgx connection pool. Identity
// is enforced by a unique index on (title_norm, start_date, start_time);
// date and time components are stored as the literal normalized text so the
// empty-component semantics survive round trips.
type Postgres struct {
	db DB
}

// NewPostgres connects a pool and wraps it in a Postgres sink.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{db: pool}, pool, nil
}

// NewPostgresWithDB wraps an existing querier (pool or mock).
func NewPostgresWithDB(db DB) *Postgres {
	return &Postgres{db: db}
}

const upsertQuery = `
	INSERT INTO events (
		title, title_norm, description,
		start_date, end_date, start_time, end_time,
		location_text, price_text, source_url, organizer,
		confidence, venue_id, city_id, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
	ON CONFLICT (title_norm, start_date, start_time) DO UPDATE SET
		description   = CASE WHEN EXCLUDED.description   <> '' THEN EXCLUDED.description   ELSE events.description   END,
		end_date      = CASE WHEN EXCLUDED.end_date      <> '' THEN EXCLUDED.end_date      ELSE events.end_date      END,
		end_time      = CASE WHEN EXCLUDED.end_time      <> '' THEN EXCLUDED.end_time      ELSE events.end_time      END,
		location_text = CASE WHEN EXCLUDED.location_text <> '' THEN EXCLUDED.location_text ELSE events.location_text END,
		price_text    = CASE WHEN EXCLUDED.price_text    <> '' THEN EXCLUDED.price_text    ELSE events.price_text    END,
		source_url    = CASE WHEN EXCLUDED.source_url    <> '' THEN EXCLUDED.source_url    ELSE events.source_url    END,
		organizer     = CASE WHEN EXCLUDED.organizer     <> '' THEN EXCLUDED.organizer     ELSE events.organizer     END,
		confidence    = GREATEST(events.confidence, EXCLUDED.confidence),
		venue_id      = COALESCE(EXCLUDED.venue_id, events.venue_id),
		city_id       = COALESCE(EXCLUDED.city_id, events.city_id),
		updated_at    = now()
	RETURNING id, (xmax = 0) AS is_new;
`

// Upsert inserts or field-merges the record by identity key.
func (p *Postgres) Upsert(ctx context.Context, event pipeline.CanonicalEvent) (pipeline.UpsertResult, error) {
	key := identity.OfEvent(event)
	var result pipeline.UpsertResult
	err := p.db.QueryRow(ctx, upsertQuery,
		event.Title, key.Title, event.Description,
		key.Date, event.EndDate, key.Time, event.EndTime,
		event.LocationText, event.PriceText, event.SourceURL, event.Organizer,
		event.Confidence, event.VenueID, event.CityID,
	).Scan(&result.ID, &result.IsNew)
	if err != nil {
		return pipeline.UpsertResult{}, &pipeline.SinkError{Op: "upsert", Err: err}
	}
	return result, nil
}

const selectColumns = `
	id, title, description,
	start_date, end_date, start_time, end_time,
	location_text, price_text, source_url, organizer,
	confidence, venue_id, city_id, created_at, updated_at
`

// FindByKey fetches the record sharing the given identity components.
func (p *Postgres) FindByKey(ctx context.Context, normalizedTitle, isoDate, hhmm string) (pipeline.CanonicalEvent, bool, error) {
	query := "SELECT " + selectColumns + `
		FROM events
		WHERE title_norm = $1 AND start_date = $2 AND start_time = $3;`
	event, err := scanEvent(p.db.QueryRow(ctx, query, normalizedTitle, isoDate, hhmm))
	if errors.Is(err, pgx.ErrNoRows) {
		return pipeline.CanonicalEvent{}, false, nil
	}
	if err != nil {
		return pipeline.CanonicalEvent{}, false, &pipeline.SinkError{Op: "find", Err: err}
	}
	return event, true, nil
}

// ListSnapshot returns all records ordered by surrogate ID.
func (p *Postgres) ListSnapshot(ctx context.Context) ([]pipeline.CanonicalEvent, error) {
	query := "SELECT " + selectColumns + " FROM events ORDER BY id;"
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, &pipeline.SinkError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []pipeline.CanonicalEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, &pipeline.SinkError{Op: "list", Err: err}
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, &pipeline.SinkError{Op: "list", Err: err}
	}
	return out, nil
}

func scanEvent(row pgx.Row) (pipeline.CanonicalEvent, error) {
	var e pipeline.CanonicalEvent
	err := row.Scan(
		&e.ID, &e.Title, &e.Description,
		&e.StartDate, &e.EndDate, &e.StartTime, &e.EndTime,
		&e.LocationText, &e.PriceText, &e.SourceURL, &e.Organizer,
		&e.Confidence, &e.VenueID, &e.CityID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return pipeline.CanonicalEvent{}, err
	}
	return e, nil
}
