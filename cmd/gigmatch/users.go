package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gigmatch/gigmatch/internal/store"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List tracked users",
	Long:  "Reads the record store and prints a table of tracked users with their record counts.",
	RunE:  runUsers,
}

func init() {
	rootCmd.AddCommand(usersCmd)
}

func runUsers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	records, err := store.NewRecordStore(filepath.Join(cfg.Storage.DataDir, "jobs.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open record store: %v\n", err)
		os.Exit(1)
	}

	userIDs, err := records.Users()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list users: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-15s %-10s %s\n", "User", "Records", "Open")
	fmt.Println(strings.Repeat("─", 35))

	for _, id := range userIDs {
		recs, err := records.List(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list records for %d: %v\n", id, err)
			os.Exit(1)
		}
		open := 0
		for _, r := range recs {
			if !store.IsTerminal(r.Status) {
				open++
			}
		}
		fmt.Printf("%-15d %-10d %d\n", id, len(recs), open)
	}

	fmt.Printf("\nTotal: %d users\n", len(userIDs))
	return nil
}
