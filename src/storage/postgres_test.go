package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return &PostgresDB{
		Config: &models.MConfig{},
		DB:     sqlDB,
		Schema: "nifty_dashboard",
		Logger: logger.NewLogger(nil, "test"),
	}, mock
}

func TestNewPostgresDBSchema(t *testing.T) {
	cfg := &models.MConfig{Storage: models.MStorageConfig{Schema: "nifty-dash"}}
	db, err := NewPostgresDB(cfg, logger.NewLogger(nil, "test"))
	require.NoError(t, err)
	assert.Equal(t, "nifty_dash", db.Schema)
}

func TestPostgresSaveSeriesUpserts(t *testing.T) {
	db, mock := newMockPostgres(t)
	fetched := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO "nifty_dashboard"."price_history"`).
		WithArgs("TCS.NS", "1y", fetched, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := db.SaveSeries(models.MCacheEntry{Ticker: "TCS.NS", Period: models.Period1Y, FetchedAt: fetched})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadSeries(t *testing.T) {
	db, mock := newMockPostgres(t)
	fetched := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	payload, _ := json.Marshal([]models.MPricePoint{{Date: fetched, Close: 10}})

	mock.ExpectQuery(`SELECT fetched_at, payload FROM "nifty_dashboard"."price_history"`).
		WithArgs("TCS.NS", "1y").
		WillReturnRows(sqlmock.NewRows([]string{"fetched_at", "payload"}).AddRow(fetched, payload))

	got, err := db.LoadSeries("TCS.NS", models.Period1Y)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10.0, got.Payload[0].Close)

	mock.ExpectQuery(`SELECT fetched_at, payload`).
		WithArgs("NONE.NS", "1y").
		WillReturnRows(sqlmock.NewRows([]string{"fetched_at", "payload"}))
	missing, err := db.LoadSeries("NONE.NS", models.Period1Y)
	require.NoError(t, err)
	assert.Nil(t, missing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadProfileError(t *testing.T) {
	db, mock := newMockPostgres(t)
	mock.ExpectQuery(`SELECT fetched_at, payload FROM "nifty_dashboard"."profiles"`).
		WillReturnError(errors.New("connection reset"))

	_, err := db.LoadProfile("TCS.NS")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load profile")
}

func TestPostgresPurgeAll(t *testing.T) {
	db, mock := newMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "nifty_dashboard"."price_history"`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM "nifty_dashboard"."profiles"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := db.Purge("")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSymbolSource(t *testing.T) {
	db, mock := newMockPostgres(t)
	src, err := NewPostgresSymbolSource(db, "ref.nifty50.symbol", ".NS")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT "symbol" FROM "ref"."nifty50"`).
		WillReturnRows(sqlmock.NewRows([]string{"symbol"}).AddRow("tcs").AddRow("INFY").AddRow(""))
	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO "nifty_dashboard"."symbols"`)
	mock.ExpectExec(`INSERT INTO "nifty_dashboard"."symbols"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "nifty_dashboard"."symbols"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "nifty_dashboard"."symbols"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectClose()

	listings, err := src.LoadListings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "TCS.NS", listings[0].Ticker())
	assert.Equal(t, "INFY.NS", listings[1].Ticker())
	assert.Nil(t, db.DB, "connection released after load")
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = NewPostgresSymbolSource(db, "not-a-ref", ".NS")
	assert.Error(t, err)
}

func TestPostgresSymbolSourceClosesOnQueryError(t *testing.T) {
	db, mock := newMockPostgres(t)
	src, err := NewPostgresSymbolSource(db, "ref.nifty50.symbol", ".NS")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT "symbol" FROM "ref"."nifty50"`).WillReturnError(errors.New("relation does not exist"))
	mock.ExpectClose()

	_, err = src.LoadListings(context.Background())
	assert.ErrorContains(t, err, "ref.nifty50.symbol")
	assert.Nil(t, db.DB)
	require.NoError(t, mock.ExpectationsWereMet())
}
