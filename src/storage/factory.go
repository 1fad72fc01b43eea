package storage

import (
	"fmt"

	"nifty-dashboard/src/interfaces"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"
)

// NewQuoteStore builds and initializes the persistent tier for storage.db_type.
func NewQuoteStore(cfg *models.MConfig, log *logger.Logger) (interfaces.IQuoteStore, error) {
	var store interfaces.IQuoteStore

	switch cfg.Storage.DBType {
	case "sqlite":
		db, err := NewAsyncSQLiteDB(cfg, log)
		if err != nil {
			return nil, err
		}
		store = db
	case "postgres":
		db, err := NewPostgresDB(cfg, log)
		if err != nil {
			return nil, err
		}
		store = db
	case "memory", "":
		store = NoopStore{}
	default:
		return nil, fmt.Errorf("unsupported db_type %q", cfg.Storage.DBType)
	}

	if err := store.Initialize(); err != nil {
		return nil, err
	}
	log.Info("Quote store ready (%s)", store.Kind())
	return store, nil
}
