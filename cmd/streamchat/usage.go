package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"streamchat/internal/audit"
	"streamchat/internal/config"
)

func newUsageCmd() *cobra.Command {
	var (
		limit  int
		failed bool
		since  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show recent prompt cycles from the audit log",
		Long: `Show recent prompt cycles recorded when logging.audit is enabled:
model, outcome, token counts and duration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := audit.NewLogger(filepath.Join(config.Dir(), "audit"), true)
			if err != nil {
				return err
			}

			filter := audit.QueryFilter{Limit: limit}
			if failed {
				ok := false
				filter.Success = &ok
			}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			entries, err := log.Query(filter)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no audit entries")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tMODEL\tFILES\tIN\tOUT\tDURATION\tRESULT")
			var in, out int
			for _, e := range entries {
				result := "ok"
				if !e.Success {
					result = e.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.Model, e.Attachments,
					e.InputTokens, e.OutputTokens, e.Duration.Round(time.Millisecond), result)
				in += e.InputTokens
				out += e.OutputTokens
			}
			fmt.Fprintf(w, "\t\t\t%d\t%d\t\t%d cycle(s)\n", in, out, len(entries))
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "show at most this many entries")
	cmd.Flags().BoolVar(&failed, "failed", false, "only failed cycles")
	cmd.Flags().DurationVar(&since, "since", 0, "only entries newer than this (e.g. 24h)")
	return cmd
}
