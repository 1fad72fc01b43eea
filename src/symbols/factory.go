package symbols

import (
	"fmt"

	"nifty-dashboard/src/interfaces"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"
	"nifty-dashboard/src/storage"
)

// NewSymbolSource picks the source named by symbols.source.
func NewSymbolSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) (interfaces.ISymbolSource, error) {
	sc := cfg.Symbols

	switch sc.Source {
	case "wikipedia", "":
		return NewWikipediaSource(sc, netMgr, log), nil
	case "csv":
		return NewCSVSource(sc.CSVPath, sc.ExchangeSuffix), nil
	case "static":
		return &StaticSource{Symbols: sc.Static, Suffix: sc.ExchangeSuffix}, nil
	case "postgres":
		db, err := storage.NewPostgresDB(cfg, log)
		if err != nil {
			return nil, err
		}
		return storage.NewPostgresSymbolSource(db, sc.PostgresRef, sc.ExchangeSuffix)
	default:
		return nil, fmt.Errorf("unsupported symbol source %q", sc.Source)
	}
}
