package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"minutebook/internal/pipeline"
	"minutebook/internal/runlock"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		update         bool
		meetings       []string
		skipTranscribe bool
		skipEmbed      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the archive pipeline",
		Long: `Run the archive pipeline over the configured portal.

By default every known meeting is discovered and processed. With --update,
only meetings the update detector flags are touched; with --meeting, the run
is restricted to the named portal IDs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}

			lock, err := runlock.Acquire(cfg.LockPath())
			if err != nil {
				return err
			}
			defer lock.Release()

			st, err := ctx.openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			runner, err := ctx.buildRunner(cfg, st, logger, pipeline.NewMetrics(nil), pipeline.Options{
				SkipTranscribe: skipTranscribe,
				SkipEmbed:      skipEmbed,
			})
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var report *pipeline.Report
			if update {
				report, err = runner.RunSelective(runCtx)
			} else {
				report, err = runner.RunFull(runCtx, meetings...)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
			return nil
		},
	}

	cmd.Flags().BoolVar(&update, "update", false, "Process only meetings with detected remote changes")
	cmd.Flags().StringArrayVar(&meetings, "meeting", nil, "Restrict the run to a portal meeting ID (repeatable)")
	cmd.Flags().BoolVar(&skipTranscribe, "skip-transcribe", false, "Skip the transcription phase")
	cmd.Flags().BoolVar(&skipEmbed, "skip-embed", false, "Skip the embedding pass")
	cmd.MarkFlagsMutuallyExclusive("update", "meeting")

	return cmd
}

func renderReport(report *pipeline.Report) string {
	if report.Empty() {
		return fmt.Sprintf("Run %s (%s): no changes, nothing to do.", report.RunID, report.Mode)
	}

	rows := make([][]string, 0, len(report.Results))
	for _, result := range report.Results {
		rows = append(rows, []string{
			fmt.Sprintf("%d", result.MeetingID),
			result.PortalID,
			string(result.Status),
			strings.Join(result.Gaps, ", "),
			result.Err,
		})
	}

	processed, partial, failed := report.Counts()
	summary := fmt.Sprintf("Run %s (%s): %d processed, %d partial, %d failed, %d embedded in %s.",
		report.RunID, report.Mode, processed, partial, failed, report.Embedded,
		report.Finished.Sub(report.Started).Round(time.Millisecond))
	if report.EmbedErr != "" {
		summary += "\nEmbedding pass failed: " + report.EmbedErr
	}

	return renderTable(
		[]string{"ID", "PORTAL", "STATUS", "GAPS", "ERROR"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	) + "\n" + summary
}
