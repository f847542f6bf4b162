package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wolfman30/voicemail-notifier/internal/notify"
)

func transportsCmd(load pipelineLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "transports",
		Short: "List email transports in priority order with their readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := load()
			if err != nil {
				return err
			}
			return printPlan(cmd.OutOrStdout(), p.Selector.Plan())
		},
	}
}

// printPlan marks the first ready candidate, which the selector tries first.
func printPlan(w io.Writer, plan []notify.Candidate) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tTRANSPORT\tSTATUS\tMISSING")
	picked := false
	for _, c := range plan {
		mark := ""
		status := "not configured"
		if c.Ready {
			status = "ready"
			if !picked {
				mark = "*"
				picked = true
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, c.Kind, status, strings.Join(c.Missing, ", "))
	}
	return tw.Flush()
}
