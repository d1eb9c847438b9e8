package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/telekom/mailguard/pkg/output"
)

func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show quota counters of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if rt.server == "" {
				return errors.New("stats needs --server (quota counters live in the server process)")
			}
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}
			c, err := rt.client()
			if err != nil {
				return err
			}
			stats, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if format == output.FormatTable {
				output.WriteStatsTable(rt.Writer(), stats)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, stats)
		},
	}
}
