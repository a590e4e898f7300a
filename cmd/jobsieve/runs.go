package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	if cfg.Archive.Path == "" {
		return fmt.Errorf("archive.path is not configured")
	}

	s, err := store.NewSQLiteStore(cfg.Archive.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tDATE\tFRAGMENTS\tRECORDS\tHITS\tFILTERED\tDROPPED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.ID, r.Date.Format(model.DateLayout), r.Fragments, r.Records, r.Hits, r.Filtered, r.Dropped)
	}
	return w.Flush()
}
