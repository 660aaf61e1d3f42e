package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Report remote changes without processing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}

			st, err := ctx.openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			detector := ctx.newDetector(cfg, st, logger)
			changes, err := detector.Detect(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, changes)
			}
			if len(changes) == 0 {
				fmt.Fprintln(out, "No remote changes.")
				return nil
			}

			rows := make([][]string, 0, len(changes))
			for _, change := range changes {
				detail := change.DocumentType
				if detail == "" {
					detail = change.VideoHandle
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", change.MeetingID),
					change.PortalID,
					string(change.Reason),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "PORTAL", "REASON", "DETAIL"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit changes as JSON")
	return cmd
}
