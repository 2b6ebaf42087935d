package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"usage-alerts/internal/alerting"
	"usage-alerts/internal/config"
	"usage-alerts/internal/monitor"
	"usage-alerts/internal/scheduler"
	"usage-alerts/internal/server"
	"usage-alerts/internal/source"
	"usage-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newAPISource() *source.APISource {
	return source.NewAPISource(source.APIOptions{
		BaseURL:   a.Config.API.BaseURL,
		Timeout:   a.Config.API.RequestTimeout,
		UserAgent: a.Config.API.UserAgent,
		Window:    a.Config.Scheduler.Interval,
	}, a.Logger)
}

func (a *App) newSource() source.RecordSource {
	if a.Config.Ingest.Mode == "live" {
		return a.newAPISource()
	}
	return source.NewSynthetic(source.SyntheticOptions{
		Customers: a.Config.Ingest.Customers,
		MinBatch:  a.Config.Ingest.MinBatch,
		MaxBatch:  a.Config.Ingest.MaxBatch,
		MaxAmount: a.Config.Ingest.MaxAmount,
		Seed:      a.Config.Ingest.RandomSeed,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	var sinks alerting.Fanout
	for _, channel := range a.Config.Alerting.Channels {
		switch channel {
		case "log":
			sinks = append(sinks, alerting.NewLogNotifier(a.Logger))
		case "telegram":
			if a.Config.Alerting.Telegram.Enabled {
				cfg := a.Config.Alerting.Telegram
				sinks = append(sinks, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger))
			}
		default:
			a.Logger.Warn().Str("channel", channel).Msg("ignoring unknown alert channel")
		}
	}
	if len(sinks) == 0 {
		return alerting.NewLogNotifier(a.Logger)
	}
	if len(sinks) == 1 {
		return sinks[0]
	}
	return sinks
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newMonitor(store *storage.Store, notifier alerting.Notifier) (*monitor.Monitor, error) {
	ruleSet, err := a.Config.Alerting.RuleSet()
	if err != nil {
		return nil, err
	}
	if !a.Config.Alerting.Enabled {
		a.Logger.Warn().Msg("alerting disabled; rules will not be evaluated")
		ruleSet = nil
	}

	opts := monitor.Options{
		Source:     a.newSource(),
		Rules:      ruleSet,
		BufferCap:  a.Config.Ingest.BufferCap,
		HistoryCap: a.Config.Alerting.HistoryCap,
		Notifier:   notifier,
	}
	if store != nil {
		opts.RecordArchive = store
		opts.AlertArchive = store
	}
	return monitor.New(opts, a.Logger)
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; archiving disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	mon, err := a.newMonitor(store, a.newNotifier())
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToStart,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	serverErr := make(chan error, 1)
	if a.Config.Server.Enabled {
		srv := server.New(server.Options{
			Addr:         a.Config.Server.Addr,
			ReadTimeout:  a.Config.Server.ReadTimeout,
			WriteTimeout: a.Config.Server.WriteTimeout,
		}, mon, a.Logger)
		go func() {
			serverErr <- srv.Run(ctx)
		}()
	}

	a.Logger.Info().
		Str("mode", a.Config.Ingest.Mode).
		Dur("interval", a.Config.Scheduler.Interval).
		Msg("starting monitoring service")

	err = sched.Run(ctx, mon.Tick)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	if a.Config.Server.Enabled {
		if srvErr := <-serverErr; srvErr != nil {
			return srvErr
		}
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// ExportOptions hold parameters for exporting archived usage.
type ExportOptions struct {
	From       *time.Time
	To         *time.Time
	CustomerID string
	PNGPath    string
	CSVPath    string
	MaxPoints  int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	From       time.Time
	To         time.Time
	CustomerID string
	DryRun     bool
}
