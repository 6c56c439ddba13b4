package main

import (
	"github.com/spf13/cobra"
)

func newFeedsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "feeds",
		Short: "List available feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := newTable(cmd.OutOrStdout(), []string{"KEY", "LABEL", "DEFAULT", "URL"})
			for _, f := range opts.cfg.Feeds.Sources {
				def := ""
				if f.Key == opts.cfg.Feeds.Default {
					def = "yes"
				}
				table.AddRow([]string{f.Key, f.Label, def, f.URL})
			}
			table.Render()
			return nil
		},
	}
}
