package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/site-auditor/internal/db"
	"github.com/jonathan/site-auditor/internal/history"
)

var historyCommand = &cobra.Command{
	Use:   "history",
	Short: "Manage the list of past analysis runs",
}

var historyListCommand = &cobra.Command{
	Use:   "list",
	Short: "Show the most recent analysis runs",
	RunE:  historyListCmd,
}

var historyClearCommand = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored analysis runs",
	RunE:  historyClearCmd,
}

var historyDatabaseURL string

func init() {
	historyCommand.PersistentFlags().StringVar(&historyDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	historyCommand.AddCommand(historyListCommand)
	historyCommand.AddCommand(historyClearCommand)
	rootCmd.AddCommand(historyCommand)
}

func openHistory(ctx context.Context) (*history.Recorder, func(), error) {
	databaseURL := historyDatabaseURL
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	recorder := history.NewRecorder(ctx, history.NewPostgresStore(database))
	return recorder, database.Close, nil
}

func historyListCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	recorder, cleanup, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	records := recorder.Records()
	if len(records) == 0 {
		fmt.Println("No analysis runs recorded.")
		return nil
	}

	for _, record := range records {
		score := "-"
		if record.Summary != nil {
			score = fmt.Sprintf("%d/100", record.Summary.OverallScore)
		}
		fmt.Printf("%s  %-14s %-9s score %-7s %s\n",
			record.ID, record.Date, record.AnalysisType, score, record.SitemapURL)
	}
	return nil
}

func historyClearCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	recorder, cleanup, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	recorder.Clear(ctx)
	fmt.Println("Analysis history cleared.")
	return nil
}
