package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert .odb and Access sources into a cuiles/periodos database",
	Long: `convert reads a LibreOffice Base (.odb) or Access (.accdb, .mdb) source,
maps every record onto the cuiles table, pivots the monthly columns into
the periodos table and writes both to a freshly created destination.

Settings come from the environment and an optional YAML file (--config);
flags override both.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}
