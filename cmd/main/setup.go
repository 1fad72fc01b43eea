package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"nifty-dashboard/src/cache"
	"nifty-dashboard/src/config"
	"nifty-dashboard/src/dashboard"
	datasource "nifty-dashboard/src/data_source"
	"nifty-dashboard/src/data_source/csvfile"
	"nifty-dashboard/src/data_source/yahoo"
	"nifty-dashboard/src/helpers"
	"nifty-dashboard/src/interfaces"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"
	"nifty-dashboard/src/network"
	"nifty-dashboard/src/storage"
	"nifty-dashboard/src/symbols"
	"nifty-dashboard/src/utils"
)

// app holds the wired components shared by every command.
type app struct {
	Config    *config.Config
	Logger    *logger.Logger
	Network   interfaces.INetworkManager
	Directory *symbols.SymbolDirectory
	Providers *datasource.MultiSourceManager
	Store     interfaces.IQuoteStore
	Quotes    *cache.QuoteCache
	Sessions  *dashboard.SessionRegistry
	Markets   *utils.MarketScheduler
	Memory    *utils.MemoryManager

	logCloser io.Closer
}

// -----------------------------------------------------------------------------

// setupBase loads config, logging, network and the symbol universe.
func setupBase(ctx context.Context) (*app, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, err
	}

	closer, err := logger.Init(cfg.MConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	appLogger := logger.NewLogger(cfg, cfg.Name)

	a := &app{
		Config:    cfg,
		Logger:    appLogger,
		Network:   setupNetwork(cfg),
		logCloser: closer,
	}

	a.Directory, err = setupSymbols(ctx, cfg, a.Network, appLogger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// -----------------------------------------------------------------------------

// setupDashboard wires providers, storage, the quote cache and sessions.
func (a *app) setupDashboard() error {
	cfg := a.Config

	providers, err := setupProviders(cfg, a.Network, a.Logger)
	if err != nil {
		return err
	}
	a.Providers = providers

	a.Store, err = storage.NewQuoteStore(cfg.MConfig, logger.NewLogger(cfg, "QuoteStore"))
	if err != nil {
		return fmt.Errorf("failed to init quote store: %w", err)
	}

	a.Quotes = cache.NewQuoteCache(providers, a.Store, cfg.FreshnessTTL(), logger.NewLogger(cfg, "QuoteCache"))

	defaults := models.MDashboardInputs{
		Period:         cfg.DefaultPeriod(),
		MovingAverages: models.MovingAverageSet{},
	}
	a.Sessions = dashboard.NewSessionRegistry(a.Quotes, a.Directory, dashboard.NewFormatter(cfg.Dashboard.Currency), defaults, logger.NewLogger(cfg, "Dashboard"))
	a.Sessions.Windows = cfg.MovingAverageWindows()

	tickers := make([]string, 0, a.Directory.Len())
	for _, o := range a.Directory.All() {
		tickers = append(tickers, o.Value)
	}
	a.Markets = utils.NewMarketScheduler(tickers, logger.NewLogger(cfg, "MarketScheduler"))

	// 0 picks a limit from physical RAM, negative disables the check
	limit := cfg.Dashboard.MaxMemoryMB
	if limit == 0 {
		limit = helpers.RecommendedMemoryLimitMB()
	}
	a.Memory = utils.NewMemoryManager(limit, logger.NewLogger(cfg, "MemoryManager"))
	a.Memory.Register("quotes", a.Quotes.DeleteExpired)
	return nil
}

// -----------------------------------------------------------------------------

func (a *app) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warning("Failed to close quote store: %v", err)
		}
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(cfg *config.Config) interfaces.INetworkManager {
	return network.NewAsyncNetworkManager(cfg.MConfig, logger.NewLogger(cfg, "NetworkManager"))
}

// -----------------------------------------------------------------------------

// setupProviders builds the provider chain in configured order.
func setupProviders(cfg *config.Config, netMgr interfaces.INetworkManager, appLogger *logger.Logger) (*datasource.MultiSourceManager, error) {
	var sources []interfaces.IMarketDataProvider
	for _, name := range cfg.Provider.Chain {
		switch name {
		case "yahoo":
			sources = append(sources, yahoo.NewYahooFinanceSource(cfg.MConfig, netMgr))
		case "csv":
			sources = append(sources, csvfile.NewCSVSource(cfg.Provider.CSVDir))
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		appLogger.Info("Added market data provider: %s", name)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no market data providers configured")
	}
	return datasource.NewMultiSourceManager(sources, logger.NewLogger(cfg, "MultiSourceManager")), nil
}

// -----------------------------------------------------------------------------

// setupSymbols loads the ticker universe, retrying transient failures.
func setupSymbols(ctx context.Context, cfg *config.Config, netMgr interfaces.INetworkManager, appLogger *logger.Logger) (*symbols.SymbolDirectory, error) {
	symLogger := logger.NewLogger(cfg, "Symbols")
	source, err := symbols.NewSymbolSource(cfg.MConfig, netMgr, symLogger)
	if err != nil {
		return nil, err
	}

	directory, err := helpers.RetryWithBackoff(ctx, "load symbols", cfg.Network.MaxRetries+1, time.Second, appLogger,
		func() (*symbols.SymbolDirectory, error) {
			return symbols.Load(ctx, source, symLogger)
		})
	if err != nil {
		return nil, fmt.Errorf("symbol universe unavailable: %w", err)
	}
	return directory, nil
}
