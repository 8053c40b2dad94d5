package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gigmatch/gigmatch/internal/freelancer"
	"github.com/gigmatch/gigmatch/internal/model"
)

var checkLimit int

var checkCmd = &cobra.Command{
	Use:   "check <query>",
	Short: "Run one marketplace search, print matches, exit",
	Long:  "One-shot search against the marketplace API with the given query. Does not write to the store.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().IntVar(&checkLimit, "limit", 5, "maximum number of results")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	marketplace := freelancer.NewClient(cfg.Freelancer.APIBase, cfg.Freelancer.APIToken, httpClient)

	jobs, err := marketplace.SearchJobs(ctx, model.SearchParams{Query: args[0], Limit: checkLimit})
	if err != nil {
		logger.Error("search failed", "error", err)
		os.Exit(1)
	}

	if len(jobs) == 0 {
		fmt.Println("No matching projects.")
		return nil
	}
	for _, j := range jobs {
		budget := "n/a"
		if j.BudgetMin != nil && j.BudgetMax != nil {
			budget = fmt.Sprintf("%s %.0f-%.0f", j.Currency, *j.BudgetMin, *j.BudgetMax)
		}
		fmt.Printf("%-12d %-8s %-14s bids=%-4d %s\n", j.ID, j.Type, budget, j.BidCount, j.Title)
	}
	return nil
}
