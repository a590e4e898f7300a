package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/enrich"
	"github.com/amishk599/jobsieve/internal/listing"
	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/pipeline"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Discover and filter once, print survivors, exit",
	Long: "One-shot dry run: discovers the listing, extracts every fragment and applies the first filter stage. " +
		"Detail pages are not fetched and nothing is written or sent.",
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	logger.Info("check mode: nothing will be written or sent")

	fetcher := setupFetcher(cfg)
	runner := pipeline.New(cfg, pipeline.Deps{
		Discoverer: listing.NewDiscoverer(fetcher, cfg.Listing.SearchURL, cfg.Listing.ProbePageSize, logger),
		Enricher:   enrich.NewEnricher(fetcher, cfg.Listing.SiteURL),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	passed, err := runner.Check(ctx)
	if err != nil {
		logger.Error("check failed", "error", err)
		return err
	}

	for _, p := range passed {
		fmt.Fprintf(os.Stdout, "%s\t%s\t%s\t%s\t%s\n", p.DeadlineISO(), p.Title, p.Employer, p.Location, salaryText(p.Salary))
	}
	logger.Info("check complete", "passed", len(passed))
	return nil
}

func salaryText(salary int) string {
	if salary == model.SalaryNotFound {
		return "-"
	}
	return "£" + humanize.Comma(int64(salary))
}
