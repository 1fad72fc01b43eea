package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"nifty-dashboard/src/models"
)

// Symbol directory backed by a reference column in Postgres.

var pgRefRegex = regexp.MustCompile(`^(\w+)\.(\w+)\.(\w+)$`)

// SymbolMetadata defines the structure for symbol registration
type SymbolMetadata struct {
	Symbol     string
	Type       string // "classic" or "postgres_ref"
	RefSchema  string
	RefTable   string
	RefField   string
	SourceName string
}

// -----------------------------------------------------------------------------

// PostgresSymbolSource reads bare symbols from "schema.table.field".
type PostgresSymbolSource struct {
	DB     *PostgresDB
	Ref    string
	Suffix string
}

// -----------------------------------------------------------------------------

func NewPostgresSymbolSource(db *PostgresDB, ref, suffix string) (*PostgresSymbolSource, error) {
	if !pgRefRegex.MatchString(ref) {
		return nil, fmt.Errorf("invalid postgres symbol reference %q, want schema.table.field", ref)
	}
	return &PostgresSymbolSource{DB: db, Ref: ref, Suffix: suffix}, nil
}

// -----------------------------------------------------------------------------

func (s *PostgresSymbolSource) Name() string { return "postgres" }

// -----------------------------------------------------------------------------

func (s *PostgresSymbolSource) LoadListings(ctx context.Context) ([]models.MSymbolListing, error) {
	matches := pgRefRegex.FindStringSubmatch(s.Ref)
	if len(matches) != 4 {
		return nil, fmt.Errorf("invalid postgres symbol reference %q", s.Ref)
	}
	if err := s.DB.Open(); err != nil {
		return nil, err
	}
	// The pool only serves this load.
	defer func() {
		if err := s.DB.Close(); err != nil && s.DB.Logger != nil {
			s.DB.Logger.Warning("Failed to close symbol source connection: %v", err)
		}
	}()

	symbols, err := s.DB.GetSymbolsFromTable(ctx, matches[1], matches[2], matches[3])
	if err != nil {
		return nil, fmt.Errorf("failed to load symbols from %s: %w", s.Ref, err)
	}

	listings := make([]models.MSymbolListing, 0, len(symbols))
	meta := []SymbolMetadata{{
		Symbol:     s.Ref,
		Type:       "postgres_ref",
		RefSchema:  matches[1],
		RefTable:   matches[2],
		RefField:   matches[3],
		SourceName: s.Name(),
	}}
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		listings = append(listings, models.MSymbolListing{Symbol: sym, ExchangeSuffix: s.Suffix})
		meta = append(meta, SymbolMetadata{Symbol: sym, Type: "classic", SourceName: s.Name()})
	}

	// Registration is bookkeeping only; the schema may not exist in a read-only setup.
	if err := s.DB.RegisterSymbols(meta); err != nil && s.DB.Logger != nil {
		s.DB.Logger.Warning("Failed to register %d symbols: %v", len(meta), err)
	}
	return listings, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) RegisterSymbols(symbols []SymbolMetadata) error {
	if len(symbols) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (symbol, type, ref_schema, ref_table, ref_field, source_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol) DO UPDATE SET
			type = EXCLUDED.type,
			ref_schema = EXCLUDED.ref_schema,
			ref_table = EXCLUDED.ref_table,
			ref_field = EXCLUDED.ref_field,
			source_name = EXCLUDED.source_name,
			updated_at = EXCLUDED.updated_at
	`, d.table("symbols"))

	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, s := range symbols {
		if _, err := stmt.Exec(s.Symbol, s.Type, s.RefSchema, s.RefTable, s.RefField, s.SourceName, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

// GetSymbolsFromTable relies on the \w+ reference pattern plus quoting for identifier safety.
func (d *PostgresDB) GetSymbolsFromTable(ctx context.Context, schema, table, field string) ([]string, error) {
	query := fmt.Sprintf(`SELECT "%s" FROM "%s"."%s"`, field, schema, table)

	rows, err := d.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return symbols, nil
}
