package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nifty-dashboard/src/helpers"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Kind() string { return "sqlite" }

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return helpers.NewDatabaseError("failed to create database directory", err)
		}
	}

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("failed to open sqlite database", err)
	}

	if err := db.Ping(); err != nil {
		return helpers.NewDatabaseError("failed to ping sqlite database", err)
	}

	// A single writer keeps WAL upserts from racing on SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS price_history (
			ticker TEXT NOT NULL,
			period TEXT NOT NULL,
			fetched_at INTEGER NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (ticker, period)
		);`,
		`CREATE TABLE IF NOT EXISTS profiles (
			ticker TEXT PRIMARY KEY,
			fetched_at INTEGER NOT NULL,
			payload TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_fetched ON price_history (fetched_at);`,
	}
	for _, q := range queries {
		if _, err := d.DB.Exec(q); err != nil {
			return helpers.NewDatabaseError("failed to create sqlite tables", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LoadSeries(ticker string, period models.Period) (*models.MCacheEntry, error) {
	var fetched int64
	var payload string
	err := d.DB.QueryRow(
		`SELECT fetched_at, payload FROM price_history WHERE ticker = ? AND period = ?`,
		ticker, string(period),
	).Scan(&fetched, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to load price history", err)
	}

	var points []models.MPricePoint
	if err := json.Unmarshal([]byte(payload), &points); err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("corrupt price history for %s/%s", ticker, period), err)
	}
	return &models.MCacheEntry{
		Ticker:    ticker,
		Period:    period,
		Payload:   points,
		FetchedAt: time.UnixMilli(fetched).UTC(),
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveSeries(entry models.MCacheEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return err
	}

	_, err = d.DB.Exec(`
		INSERT INTO price_history (ticker, period, fetched_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (ticker, period) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			payload = excluded.payload
	`, entry.Ticker, string(entry.Period), entry.FetchedAt.UnixMilli(), string(payload))
	if err != nil {
		return helpers.NewDatabaseError("failed to save price history", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LoadProfile(ticker string) (*models.MProfileEntry, error) {
	var fetched int64
	var payload string
	err := d.DB.QueryRow(`SELECT fetched_at, payload FROM profiles WHERE ticker = ?`, ticker).Scan(&fetched, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to load profile", err)
	}

	var profile models.MProfileSnapshot
	if err := json.Unmarshal([]byte(payload), &profile); err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("corrupt profile for %s", ticker), err)
	}
	return &models.MProfileEntry{
		Ticker:    ticker,
		Profile:   profile,
		FetchedAt: time.UnixMilli(fetched).UTC(),
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveProfile(entry models.MProfileEntry) error {
	payload, err := json.Marshal(entry.Profile)
	if err != nil {
		return err
	}

	_, err = d.DB.Exec(`
		INSERT INTO profiles (ticker, fetched_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT (ticker) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			payload = excluded.payload
	`, entry.Ticker, entry.FetchedAt.UnixMilli(), string(payload))
	if err != nil {
		return helpers.NewDatabaseError("failed to save profile", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Purge(ticker string) (int64, error) {
	tx, err := d.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var total int64
	for _, table := range []string{"price_history", "profiles"} {
		var res sql.Result
		if ticker == "" {
			res, err = tx.Exec(fmt.Sprintf("DELETE FROM %s", table))
		} else {
			res, err = tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE ticker = ?", table), ticker)
		}
		if err != nil {
			return 0, helpers.NewDatabaseError("failed to purge "+table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData(cutoff time.Time) (int64, error) {
	d.Logger.Info("Cleaning up cached quotes fetched before %s", cutoff.Format(time.RFC3339))

	var total int64
	for _, table := range []string{"price_history", "profiles"} {
		res, err := d.DB.Exec(fmt.Sprintf("DELETE FROM %s WHERE fetched_at < ?", table), cutoff.UnixMilli())
		if err != nil {
			d.Logger.Error("Cleanup %s error: %v", table, err)
			continue
		}
		n, _ := res.RowsAffected()
		total += n
	}

	d.Logger.Info("Cleanup completed, %d rows removed", total)
	return total, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
