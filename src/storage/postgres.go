package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nifty-dashboard/src/helpers"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB uses storage.schema, falling back to the executable name.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	name := cfg.Storage.Schema
	if name == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable name: %w", err)
		}
		name = filepath.Base(exe)
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	name = strings.ReplaceAll(name, "-", "_")

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Kind() string { return "postgres" }

// -----------------------------------------------------------------------------

// Open connects without touching the schema; enough for symbol lookups.
func (d *PostgresDB) Open() error {
	if d.DB != nil {
		return nil
	}
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return helpers.NewDatabaseError("failed to open postgres connection", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("failed to ping postgres", err)
	}
	d.DB = db
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	if err := d.Open(); err != nil {
		return err
	}
	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table(name string) string {
	return fmt.Sprintf(`"%s"."%s"`, d.Schema, name)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	queries := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				ticker TEXT NOT NULL,
				period TEXT NOT NULL,
				fetched_at TIMESTAMPTZ NOT NULL,
				payload JSONB NOT NULL,
				PRIMARY KEY (ticker, period)
			);
		`, d.table("price_history")),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				ticker TEXT PRIMARY KEY,
				fetched_at TIMESTAMPTZ NOT NULL,
				payload JSONB NOT NULL
			);
		`, d.table("profiles")),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				symbol TEXT PRIMARY KEY,
				type TEXT,
				ref_schema TEXT,
				ref_table TEXT,
				ref_field TEXT,
				source_name TEXT,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`, d.table("symbols")),
	}

	for _, q := range queries {
		if _, err := d.DB.Exec(q); err != nil {
			return helpers.NewDatabaseError("failed to create postgres tables", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadSeries(ticker string, period models.Period) (*models.MCacheEntry, error) {
	var fetched time.Time
	var payload []byte
	query := fmt.Sprintf(`SELECT fetched_at, payload FROM %s WHERE ticker = $1 AND period = $2`, d.table("price_history"))
	err := d.DB.QueryRow(query, ticker, string(period)).Scan(&fetched, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to load price history", err)
	}

	var points []models.MPricePoint
	if err := json.Unmarshal(payload, &points); err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("corrupt price history for %s/%s", ticker, period), err)
	}
	return &models.MCacheEntry{Ticker: ticker, Period: period, Payload: points, FetchedAt: fetched.UTC()}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveSeries(entry models.MCacheEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (ticker, period, fetched_at, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticker, period) DO UPDATE SET
			fetched_at = EXCLUDED.fetched_at,
			payload = EXCLUDED.payload
	`, d.table("price_history"))
	if _, err := d.DB.Exec(query, entry.Ticker, string(entry.Period), entry.FetchedAt.UTC(), payload); err != nil {
		return helpers.NewDatabaseError("failed to save price history", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadProfile(ticker string) (*models.MProfileEntry, error) {
	var fetched time.Time
	var payload []byte
	query := fmt.Sprintf(`SELECT fetched_at, payload FROM %s WHERE ticker = $1`, d.table("profiles"))
	err := d.DB.QueryRow(query, ticker).Scan(&fetched, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to load profile", err)
	}

	var profile models.MProfileSnapshot
	if err := json.Unmarshal(payload, &profile); err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("corrupt profile for %s", ticker), err)
	}
	return &models.MProfileEntry{Ticker: ticker, Profile: profile, FetchedAt: fetched.UTC()}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveProfile(entry models.MProfileEntry) error {
	payload, err := json.Marshal(entry.Profile)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (ticker, fetched_at, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker) DO UPDATE SET
			fetched_at = EXCLUDED.fetched_at,
			payload = EXCLUDED.payload
	`, d.table("profiles"))
	if _, err := d.DB.Exec(query, entry.Ticker, entry.FetchedAt.UTC(), payload); err != nil {
		return helpers.NewDatabaseError("failed to save profile", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Purge(ticker string) (int64, error) {
	tx, err := d.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var total int64
	for _, name := range []string{"price_history", "profiles"} {
		var res sql.Result
		if ticker == "" {
			res, err = tx.Exec(fmt.Sprintf(`DELETE FROM %s`, d.table(name)))
		} else {
			res, err = tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE ticker = $1`, d.table(name)), ticker)
		}
		if err != nil {
			return 0, helpers.NewDatabaseError("failed to purge "+name, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData(cutoff time.Time) (int64, error) {
	d.Logger.Info("Cleaning up cached quotes fetched before %s", cutoff.Format(time.RFC3339))

	var total int64
	for _, name := range []string{"price_history", "profiles"} {
		res, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM %s WHERE fetched_at < $1`, d.table(name)), cutoff.UTC())
		if err != nil {
			d.Logger.Error("Cleanup %s error: %v", name, err)
			continue
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// -----------------------------------------------------------------------------

// Close releases the pool. A later Open reconnects.
func (d *PostgresDB) Close() error {
	if d.DB == nil {
		return nil
	}
	err := d.DB.Close()
	d.DB = nil
	return err
}
