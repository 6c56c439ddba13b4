package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mr1hm/go-quake-feed/internal/config"
	"github.com/mr1hm/go-quake-feed/internal/logging"
)

type rootOptions struct {
	noColor bool
	verbose bool
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "quake-alert",
		Short: "Browse recent earthquakes from USGS feeds",
		Long: `quake-alert fetches a USGS GeoJSON summary feed and prints the events
that match a magnitude floor and a place search, plus a magnitude histogram.

Example usage:
  quake-alert feeds                              # List the available feeds
  quake-alert view                               # Past day, newest first
  quake-alert view --feed m4.5_week --sort mag_desc
  quake-alert view --min-mag 3 --search alaska --limit 20`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
	}

	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log fetch progress to stderr")

	cmd.AddCommand(newFeedsCmd(opts))
	cmd.AddCommand(newViewCmd(opts))
	return cmd
}

// init loads .env and the environment. Logs go to stderr so they never mix
// with table output.
func (o *rootOptions) init() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	o.cfg = cfg

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logging.SetupWriter(os.Stderr, level)

	if o.noColor {
		color.NoColor = true
	}
	return nil
}
