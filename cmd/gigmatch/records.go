package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gigmatch/gigmatch/internal/audit"
	"github.com/gigmatch/gigmatch/internal/store"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Browse tracked job records interactively (TUI)",
	Long:  "Shows the user picker TUI, then launches the split-pane record browser.",
	RunE:  runRecordsCmd,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
}

func runRecordsCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	records, err := store.NewRecordStore(filepath.Join(cfg.Storage.DataDir, "jobs.json"))
	if err != nil {
		logger.Error("failed to open record store", "error", err)
		os.Exit(1)
	}

	userIDs, err := records.Users()
	if err != nil {
		logger.Error("failed to list users", "error", err)
		os.Exit(1)
	}
	if len(userIDs) == 0 {
		fmt.Println("No tracked records yet.")
		return nil
	}

	var users []audit.UserEntry
	for _, id := range userIDs {
		recs, err := records.List(id)
		if err != nil {
			logger.Error("failed to list records", "user", id, "error", err)
			os.Exit(1)
		}
		users = append(users, audit.UserEntry{ID: id, Records: len(recs)})
	}

	for {
		choice, err := audit.RunUserPicker(users)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return nil
		}
		if choice < 0 {
			return nil
		}

		recs, err := records.List(users[choice].ID)
		if err != nil {
			fmt.Printf("Error loading records: %v\n", err)
			continue
		}

		wantQuit, err := audit.RunRecordsTUI(recs)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return nil
		}
		// else: loop → back to picker
	}
}
