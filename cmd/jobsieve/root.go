package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/config"
	"github.com/amishk599/jobsieve/internal/enrich"
	"github.com/amishk599/jobsieve/internal/fetch"
	"github.com/amishk599/jobsieve/internal/listing"
	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/notifier"
	"github.com/amishk599/jobsieve/internal/pipeline"
	"github.com/amishk599/jobsieve/internal/publish"
	"github.com/amishk599/jobsieve/internal/ratelimit"
	"github.com/amishk599/jobsieve/internal/runlock"
	"github.com/amishk599/jobsieve/internal/secrets"
	"github.com/amishk599/jobsieve/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobsieve <recipient>",
	Short: "Scrape, filter and mail academic job postings",
	Long: "jobsieve discovers postings on the listing site, filters them, fetches full descriptions, " +
		"writes job_df_<date>.csv and mails the keyword hits to <recipient>.",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runRoot,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSIEVE_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig loads .env, resolves the config path and parses it. A missing
// file falls back to the built-in defaults.
// Priority: explicit path arg > JOBSIEVE_CONFIG env var > "./config.yaml"
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		if env := os.Getenv("JOBSIEVE_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	cfg, fromFile, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if !fromFile {
		logger.Info("no config file found, using defaults", "path", path)
	}
	return cfg, nil
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// setupFetcher returns the shared, per-host rate limited HTTP fetcher.
func setupFetcher(cfg *config.Config) model.Fetcher {
	httpClient := &http.Client{Timeout: cfg.Run.RequestTimeout}
	limiter := ratelimit.NewHostLimiter(cfg.Run.RequestsPerSecond, 1)
	return ratelimit.NewRateLimitedFetcher(fetch.NewHTTPFetcher(httpClient), limiter)
}

// setupNotifier builds the configured notifier. It returns nil for type "none".
func setupNotifier(cfg *config.Config, recipient string, logger *slog.Logger) (model.Notifier, error) {
	n := cfg.Notification
	switch n.Type {
	case "email":
		password, err := secrets.SMTPPassword(n.SMTP)
		if err != nil {
			return nil, err
		}
		logger.Info("using email notifier", "relay", n.SMTP.Host, "to", recipient)
		return notifier.NewEmailNotifier(notifier.EmailSettings{
			Host:     n.SMTP.Host,
			Port:     n.SMTP.Port,
			Username: n.SMTP.Username,
			Password: password,
			From:     n.SMTP.From,
			To:       recipient,
			Subject:  n.Subject,
		}, logger), nil
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(n.WebhookURL, &http.Client{Timeout: cfg.Run.RequestTimeout}, logger), nil
	case "telegram":
		logger.Info("using telegram notifier", "chat_id", n.Telegram.ChatID)
		return notifier.NewTelegramNotifier(n.Telegram.Token, n.Telegram.ChatID, logger)
	case "none":
		return nil, nil
	default:
		return notifier.NewLogNotifier(logger), nil
	}
}

// archiveStore is a run archive that must be closed after use.
type archiveStore interface {
	model.RunArchive
	Close() error
}

func setupArchive(cfg *config.Config) (archiveStore, error) {
	if cfg.Archive.Path == "" {
		return store.NewNopStore(), nil
	}
	return store.NewSQLiteStore(cfg.Archive.Path)
}

func setupPublisher(cfg *config.Config, logger *slog.Logger) pipeline.Publisher {
	s := cfg.Publish.SFTP
	if s.Host == "" {
		return nil
	}
	return publish.NewPublisher(publish.Target{
		Host:      s.Host,
		Port:      s.Port,
		User:      s.User,
		Password:  s.Password,
		RemoteDir: s.RemoteDir,
	}, logger)
}

func runRoot(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	if err := runPipeline(args[0], logger); err != nil {
		logger.Error("run failed", "error", err)
		return err
	}
	return nil
}

func runPipeline(recipient string, logger *slog.Logger) error {
	cfg, err := loadConfig(cfgPath, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info("config loaded",
		"facets", len(cfg.Listing.Facets),
		"title_exclude", len(cfg.Filters.TitleExclude),
		"location_mode", cfg.Filters.LocationMode,
		"locations", len(cfg.Filters.Locations),
		"salary_min", cfg.Filters.SalaryMin,
		"salary_max", cfg.Filters.SalaryMax,
		"description_stage", cfg.Description.Enabled,
		"workers", cfg.Run.Workers,
	)

	lock, err := runlock.Acquire(cfg.Output.Dir)
	if err != nil {
		return err
	}
	defer lock.Release()

	n, err := setupNotifier(cfg, recipient, logger)
	if err != nil {
		return fmt.Errorf("setup notifier: %w", err)
	}

	archive, err := setupArchive(cfg)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()

	fetcher := setupFetcher(cfg)
	deps := pipeline.Deps{
		Discoverer: listing.NewDiscoverer(fetcher, cfg.Listing.SearchURL, cfg.Listing.ProbePageSize, logger),
		Enricher:   enrich.NewEnricher(fetcher, cfg.Listing.SiteURL),
		Notifier:   n,
		Archive:    archive,
		Publisher:  setupPublisher(cfg, logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := pipeline.New(cfg, deps, logger).Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("done", "dataset", summary.DatasetPath, "records", summary.Records, "hits", summary.Hits)
	return nil
}
