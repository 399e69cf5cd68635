package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/agenda/internal/eventlog"
	"github.com/teemow/agenda/internal/logging"
)

func newCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup-logs",
		Short: "Remove activity log segments older than the retention window",
		Long: `Delete the per-date activity log segments whose date lies more than
eventlog.retention_days whole days in the past. The same sweep runs
automatically before every calendar access; this command runs it on demand.

A segment that cannot be removed is reported and the sweep continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			loc, err := cfg.Calendar.Location()
			if err != nil {
				return err
			}

			store, err := eventlog.Open(cfg.EventLog.Dir,
				eventlog.WithLocation(loc),
				eventlog.WithRetentionDays(cfg.EventLog.RetentionDays),
				eventlog.WithLogger(logger),
			)
			if err != nil {
				return err
			}

			report := store.Cleanup(time.Now())
			for _, name := range report.Removed {
				logger.Info("removed log segment", logging.Segment(name))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d segments in %s, removed %d\n",
				report.Scanned, store.Dir(), len(report.Removed))

			if err := report.Err(); err != nil {
				logger.Error("cleanup incomplete",
					slog.Int("failures", len(report.Failures)),
					logging.Err(err))
				return fmt.Errorf("failed to remove %d segments: %w", len(report.Failures), err)
			}
			return nil
		},
	}

	return cmd
}
