package commands

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"ranked-crawler/internal/config"
	"ranked-crawler/internal/crawler"
	"ranked-crawler/internal/db"
	"ranked-crawler/internal/logging"
	"ranked-crawler/internal/notify"
	"ranked-crawler/internal/riot"
	"ranked-crawler/internal/storage"
)

var errKeyRejected = errors.New("api key rejected by the status endpoint")

// crawlRunner holds the collaborators of a crawl that tests replace.
type crawlRunner struct {
	cfg     config.CrawlConfig
	logger  *logging.Logger
	baseURL string     // overrides the regional API host
	clock   riot.Clock // nil means real time
	now     func() time.Time
}

func newCrawlCmd() *cobra.Command {
	cfg := config.FromEnv()
	gapSeconds := int(cfg.TimeGap / time.Second)
	var baseURL string

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a ranked league: summoners, match lists, match details and timelines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.TimeGap = time.Duration(gapSeconds) * time.Second

			r := &crawlRunner{cfg: cfg, logger: logging.Default(), baseURL: baseURL}
			_, err := r.run(cmd.Context())
			return err
		},
	}

	f := cmd.Flags()
	f.VarP(&cfg.League, "league", "l", "League to get data for (CHALLENGER|MASTER)")
	f.VarP(&cfg.Region, "region", "r", "Region, e.g. NA1, BR1, EUN1, KR, OC1")
	f.VarP(&cfg.QueueType, "queue-type", "q", "Queue type (RANKED_SOLO_5x5|TEAM_BUILDER_RANKED_SOLO|RANKED_TEAM_5x5)")
	f.IntVarP(&cfg.RequestsPerMinute, "max-requests-per-min", "m", cfg.RequestsPerMinute, "Max requests per minute")
	f.IntVarP(&cfg.MaxPlayers, "nbr-players", "n", cfg.MaxPlayers, "Number of players to get data for")
	f.IntVarP(&cfg.MaxGamesPerPlayer, "nbr-games", "g", cfg.MaxGamesPerPlayer, "Number of recent games per player")
	f.StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "Output directory")
	f.IntVarP(&gapSeconds, "time-gap", "t", gapSeconds, "Extra seconds to wait after every request")
	f.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Attempts per URL before giving up")
	f.StringVarP(&cfg.APIKeyFile, "api-key-file", "k", cfg.APIKeyFile, "File holding the Riot API key")
	f.BoolVar(&cfg.RecentOnly, "recent", false, "Use the recent match list endpoint")
	f.BoolVar(&cfg.Gzip, "gzip", false, "Gzip the output files after the run")
	f.BoolVar(&cfg.CheckKey, "check-key", false, "Validate the API key before crawling")
	f.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Also mirror records into postgres://, libsql:// or sqlite: database")
	f.StringVar(&cfg.WebhookURL, "webhook-url", cfg.WebhookURL, "Discord webhook notified when the run ends")
	f.StringVar(&baseURL, "api-base-url", "", "Override the API base URL")
	_ = f.MarkHidden("api-base-url")
	_ = cmd.MarkFlagRequired("region")

	return cmd
}

// run executes one crawl and returns its report, which is partial when the
// run aborted after the league was fetched.
func (r *crawlRunner) run(ctx context.Context) (crawler.Report, error) {
	cfg := r.cfg
	logger := r.logger
	report := crawler.Report{League: string(cfg.League), Region: string(cfg.Region), QueueType: string(cfg.QueueType)}
	if err := cfg.Validate(); err != nil {
		return report, err
	}

	apiKey, err := config.LoadAPIKey(cfg.APIKeyFile)
	if err != nil {
		return report, err
	}

	if cfg.CheckKey {
		if err := r.checkKey(ctx, apiKey); err != nil {
			r.notifyAborted(ctx, report, err, apiKey)
			return report, err
		}
	}

	exec := riot.NewExecutor(riot.ExecutorConfig{
		MaxAttempts: cfg.MaxAttempts,
		Delay:       cfg.PacingDelay(),
		Clock:       r.clock,
		Logger:      logger.Named("executor"),
	})
	endpoints := riot.NewEndpoints(cfg.Region, apiKey)
	if r.baseURL != "" {
		endpoints = riot.NewEndpointsWithBase(r.baseURL, apiKey)
	}
	client := riot.NewClient(exec, endpoints)

	var store *db.Store
	if cfg.DatabaseURL != "" {
		store, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return report, errors.Mark(err, crawler.ErrFatalPrecondition)
		}
		defer store.Close()
		if err := store.CreateTables(ctx); err != nil {
			return report, errors.Mark(err, crawler.ErrFatalPrecondition)
		}
		logger.Info("mirroring records", "dialect", store.Dialect().String())
	}

	var files *storage.FileSink
	openSink := func(info storage.RunInfo) (storage.Sink, error) {
		fs, err := storage.NewFileSink(cfg.OutputDir, info)
		if err != nil {
			return nil, err
		}
		files = fs
		if store == nil {
			return fs, nil
		}
		mirror := storage.NewBestEffortSink("database", store.Sink(ctx, info), logger.Named("mirror"))
		return storage.MultiSink{fs, mirror}, nil
	}

	c, err := crawler.New(crawler.Options{
		Config:   cfg,
		Fetcher:  client,
		OpenSink: openSink,
		Logger:   logger,
		Now:      r.now,
		Requests: exec.Requests,
	})
	if err != nil {
		return report, err
	}

	logger.Info("starting crawl",
		"league", cfg.League,
		"region", cfg.Region,
		"queue", cfg.QueueType,
		"players", cfg.MaxPlayers,
		"games", cfg.MaxGamesPerPlayer,
		"delay", exec.Delay(),
	)

	report, runErr := c.Run(ctx)
	if runErr != nil {
		logger.Error("crawl aborted", "error", runErr, "requests", report.Requests, "elapsed", report.ElapsedString())
		r.notifyAborted(ctx, report, runErr, apiKey)
		return report, runErr
	}
	crawler.LogSummary(logger, report)

	if cfg.Gzip && files != nil {
		for _, category := range storage.Categories {
			archive, err := storage.Compress(files.Paths()[category])
			if err != nil {
				logger.Warn("compress output failed", "category", string(category), "error", err)
				continue
			}
			logger.Info("compressed output", "path", archive)
		}
	}

	if cfg.WebhookURL != "" {
		if err := notify.NewWebhookClient(cfg.WebhookURL).SendRunComplete(ctx, report); err != nil {
			logger.Warn("webhook notification failed", "error", err)
		}
	}
	return report, nil
}

func (r *crawlRunner) checkKey(ctx context.Context, apiKey string) error {
	var opts []riot.KeyValidatorOption
	if r.baseURL != "" {
		opts = append(opts, riot.WithBaseURL(r.baseURL))
	}
	valid, err := riot.NewKeyValidator(r.cfg.Region, opts...).ValidateKey(ctx, apiKey)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "check api key"), crawler.ErrFatalPrecondition)
	}
	if !valid {
		return errors.Mark(errKeyRejected, crawler.ErrFatalPrecondition)
	}
	r.logger.Info("api key accepted")
	return nil
}

func (r *crawlRunner) notifyAborted(ctx context.Context, report crawler.Report, cause error, apiKey string) {
	if r.cfg.WebhookURL == "" {
		return
	}
	// the run context may already be cancelled
	ctx = context.WithoutCancel(ctx)
	if err := notify.NewWebhookClient(r.cfg.WebhookURL).SendRunAborted(ctx, report, cause, apiKey); err != nil {
		r.logger.Warn("webhook notification failed", "error", err)
	}
}
