package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape <page_id>",
		Short: "Scrapes one page and persists the result",
		Long: `Runs a single scrape-and-ingest cycle for the given page id and
prints the ingestion result as JSON. Exits non-zero when the scrape or
any page-level write fails.`,
		Args: cobra.ExactArgs(1),
		RunE: runScrapeCommand,
	}
}

func runScrapeCommand(cmd *cobra.Command, args []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	pageID := args[0]

	res := a.Crawler.Crawl(cmd.Context(), pageID)
	if res.Error {
		return fmt.Errorf("scrape %s: %s", pageID, res.ErrorMessage)
	}

	out := a.Pipeline.Process(cmd.Context(), res)
	if !out.Success {
		return fmt.Errorf("ingest %s: %s", pageID, out.Error)
	}
	a.Cache.InvalidatePage(cmd.Context(), pageID)

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	cmd.Println(string(encoded))

	a.Logger.Info("scrape finished",
		zap.String("page_id", pageID),
		zap.Int("posts_processed", out.PostsProcessed),
		zap.Int("employees_processed", out.EmployeesProcessed),
	)
	return nil
}
