package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/ozayn/planner/internal/pipeline"
)

func TestPostgres_UpsertNormalizesIdentityColumns(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresWithDB(mock)

	event := pipeline.CanonicalEvent{
		Title:      "  Autumn   Print Workshop ",
		StartDate:  "2025-11-12",
		StartTime:  "14:00:30",
		SourceURL:  "https://museum.example/events",
		Organizer:  "City Museum",
		Confidence: 0.85,
	}

	mock.ExpectQuery("INSERT INTO events").
		WithArgs(
			event.Title, "autumn print workshop", "",
			"2025-11-12", "", "14:00", "",
			"", "", event.SourceURL, event.Organizer,
			event.Confidence, (*int64)(nil), (*int64)(nil),
		).
		WillReturnRows(pgxmock.NewRows([]string{"id", "is_new"}).AddRow(int64(42), true))

	res, err := store.Upsert(context.Background(), event)
	require.NoError(t, err)
	require.True(t, res.IsNew)
	require.Equal(t, int64(42), res.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertWrapsSinkError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresWithDB(mock)
	mock.ExpectQuery("INSERT INTO events").
		WillReturnError(errors.New("connection refused"))

	_, err = store.Upsert(context.Background(), pipeline.CanonicalEvent{Title: "Tour"})
	var sinkErr *pipeline.SinkError
	require.ErrorAs(t, err, &sinkErr)
	require.Equal(t, "upsert", sinkErr.Op)
}

func TestPostgres_FindByKeyMissingIsNotError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresWithDB(mock)
	mock.ExpectQuery("SELECT").
		WithArgs("gallery talk", "2025-12-10", "").
		WillReturnError(pgx.ErrNoRows)

	_, found, err := store.FindByKey(context.Background(), "gallery talk", "2025-12-10", "")
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListSnapshot(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresWithDB(mock)
	now := time.Unix(1700000000, 0).UTC()

	rows := pgxmock.NewRows([]string{
		"id", "title", "description",
		"start_date", "end_date", "start_time", "end_time",
		"location_text", "price_text", "source_url", "organizer",
		"confidence", "venue_id", "city_id", "created_at", "updated_at",
	}).
		AddRow(int64(1), "Gallery Talk", "", "2025-12-10", "", "14:00", "",
			"", "", "https://museum.example", "City Museum",
			0.7, (*int64)(nil), (*int64)(nil), now, now).
		AddRow(int64(2), "Autumn Print Workshop", "", "2025-11-12", "", "", "",
			"", "", "https://museum.example", "City Museum",
			0.6, (*int64)(nil), (*int64)(nil), now, now)

	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	events, err := store.ListSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "Gallery Talk", events[0].Title)
	require.Equal(t, int64(2), events[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
