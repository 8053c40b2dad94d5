package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gigmatch/gigmatch/internal/ai"
	"github.com/gigmatch/gigmatch/internal/bot"
	"github.com/gigmatch/gigmatch/internal/config"
	"github.com/gigmatch/gigmatch/internal/freelancer"
	"github.com/gigmatch/gigmatch/internal/matcher"
	"github.com/gigmatch/gigmatch/internal/model"
	"github.com/gigmatch/gigmatch/internal/ratelimit"
	"github.com/gigmatch/gigmatch/internal/retry"
	"github.com/gigmatch/gigmatch/internal/store"
	"github.com/gigmatch/gigmatch/internal/webapp"
	"github.com/gigmatch/gigmatch/internal/workflow"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the matching daemon",
	Long:  "Start the matcher, web app, and Telegram bot; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func openStores(cfg *config.Config) (*store.RecordStore, *store.ProfileStore, error) {
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, nil, err
	}
	records, err := store.NewRecordStore(filepath.Join(cfg.Storage.DataDir, "jobs.json"))
	if err != nil {
		return nil, nil, err
	}
	profiles, err := store.NewProfileStore(filepath.Join(cfg.Storage.DataDir, "profiles.json"))
	if err != nil {
		return nil, nil, err
	}
	return records, profiles, nil
}

func setupLetters(cfg *config.Config, logger *slog.Logger) model.LetterWriter {
	if !cfg.AI.Enabled {
		logger.Info("cover letter generation disabled, using canned letters")
		return ai.NewNopGenerator()
	}
	client := ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, &http.Client{Timeout: cfg.AI.Timeout})
	return ai.NewGenerator(client, logger)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"fetch_interval", cfg.Matcher.FetchInterval.String(),
		"max_jobs_per_user", cfg.Matcher.MaxJobsPerUser,
		"tick", cfg.Matcher.Tick.String(),
		"ai_enabled", cfg.AI.Enabled,
	)

	records, profiles, err := openStores(cfg)
	if err != nil {
		logger.Error("failed to open stores", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	marketplace := freelancer.NewClient(cfg.Freelancer.APIBase, cfg.Freelancer.APIToken, httpClient)
	letters := setupLetters(cfg, logger)

	// Searches are spaced and retried; bid placement stays a single attempt.
	var searcher model.JobSearcher = marketplace
	if cfg.Matcher.SearchDelay > 0 {
		searcher = ratelimit.NewLimitedSearcher(searcher, ratelimit.NewLimiter(cfg.Matcher.SearchDelay))
	}
	searcher = retry.NewRetrySearcher(searcher, 2, 5*time.Second, logger)

	queue := matcher.NewQueue()
	svc := matcher.NewService(searcher, profiles, records, queue, cfg.Matcher.FetchInterval, cfg.Matcher.MaxJobsPerUser, logger)
	flow := workflow.NewService(records, profiles, letters, marketplace, logger)

	tgBot, err := bot.New(bot.Options{
		Token:         cfg.Telegram.BotToken,
		WebAppURL:     cfg.WebApp.BaseURL,
		MenuPhotoURL:  cfg.Telegram.MenuPhotoURL,
		DrainInterval: 5 * time.Second,
	}, svc, flow, profiles, logger)
	if err != nil {
		logger.Error("failed to start telegram bot", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := matcher.NewScheduler(svc, cfg.Matcher.Tick.String(), logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	web, err := webapp.NewServer(cfg.WebApp.Listen, logger)
	if err != nil {
		logger.Error("failed to build webapp", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := web.Start(); err != nil {
			logger.Error("webapp error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := web.Shutdown(shutdownCtx); err != nil {
			logger.Warn("webapp shutdown", "error", err)
		}
	}()

	if err := tgBot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
