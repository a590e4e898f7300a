package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/browse"
	"github.com/amishk599/jobsieve/internal/dataset"
	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/store"
)

var browseRunID string

var browseCmd = &cobra.Command{
	Use:   "browse [dir]",
	Short: "Browse persisted datasets in an interactive TUI",
	Long: "Pick a job_df_<date>.csv from the output directory (or [dir]) and browse all records " +
		"next to the keyword hits. With --run, records are read from the run archive instead.",
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseRunID, "run", "", "browse an archived run by id (requires archive.path)")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	if browseRunID != "" {
		records, err := loadArchivedRun(cmd.Context(), cfg.Archive.Path, browseRunID)
		if err != nil {
			logger.Error("failed to load archived run", "run_id", browseRunID, "error", err)
			return err
		}
		_, err = browse.Run(records, cfg.Listing.SiteURL)
		return err
	}

	dir := cfg.Output.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	files, err := browse.ListDatasets(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no datasets found in %s", dir)
	}

	for {
		idx, err := browse.RunDatasetPicker(files)
		if err != nil {
			return fmt.Errorf("dataset picker: %w", err)
		}
		if idx < 0 {
			return nil
		}

		records, err := dataset.ReadCSV(files[idx].Path)
		if err != nil {
			logger.Error("failed to read dataset", "path", files[idx].Path, "error", err)
			return err
		}

		wantQuit, err := browse.Run(records, cfg.Listing.SiteURL)
		if err != nil {
			return fmt.Errorf("browse: %w", err)
		}
		if wantQuit {
			return nil
		}
	}
}

func loadArchivedRun(ctx context.Context, path, runID string) ([]model.Record, error) {
	if path == "" {
		return nil, fmt.Errorf("archive.path is not configured")
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.LoadRecords(ctx, runID)
}
