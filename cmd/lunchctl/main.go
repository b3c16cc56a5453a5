package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	jsonOutput bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "lunchctl",
		Short:         "Query school days, lunch menus and weather from the command line",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of text")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log fetch activity to stderr")

	root.AddCommand(
		newNextSchoolDayCmd(opts),
		newSchoolDayCmd(opts),
		newMenuCmd(opts),
		newWeatherCmd(opts),
		newLunchCmd(opts),
	)
	return root
}
