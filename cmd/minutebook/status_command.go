package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"minutebook/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		stateFlag  string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show archived meetings and their processing state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := ctx.openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			var states []store.ProcessingState
			if strings.TrimSpace(stateFlag) != "" {
				state, ok := store.ParseState(stateFlag)
				if !ok {
					return fmt.Errorf("unknown state %q (known: %v)", stateFlag, store.AllStates())
				}
				states = append(states, state)
			}

			meetings, err := st.ListMeetings(cmd.Context(), states...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, meetings)
			}
			if len(meetings) == 0 {
				fmt.Fprintln(out, "No meetings archived.")
				return nil
			}

			rows := make([][]string, 0, len(meetings))
			for _, meeting := range meetings {
				date := ""
				if !meeting.Date.IsZero() {
					date = meeting.Date.Format("2006-01-02")
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", meeting.ID),
					meeting.PortalID,
					meeting.Body,
					date,
					string(meeting.State),
					lifecycleFlags(meeting),
					meeting.ErrorMessage,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "PORTAL", "BODY", "DATE", "STATE", "HAS", "ERROR"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit meetings as JSON")
	cmd.Flags().StringVar(&stateFlag, "state", "", "Filter by processing state")
	return cmd
}

// lifecycleFlags renders the a/m/t/v acquisition flags, dash when missing.
func lifecycleFlags(meeting *store.Meeting) string {
	flags := []struct {
		set   bool
		label byte
	}{
		{meeting.HasAgenda, 'a'},
		{meeting.HasMinutes, 'm'},
		{meeting.HasTranscript, 't'},
		{meeting.HasVideo, 'v'},
	}
	var b strings.Builder
	for _, flag := range flags {
		if flag.set {
			b.WriteByte(flag.label)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
