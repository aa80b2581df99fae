package cmd

import (
	"github.com/coverpilot/coverpilot/pkg/dbclient"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	FlagVerbose      = "verbose"
	FlagVerboseShort = "v"
	FlagConfig       = "config"
)

var dboption = &dbclient.DBOption{}

func createLogger(cmd *cobra.Command) *logrus.Logger {
	logger := logrus.New()
	verbose, err := cmd.Flags().GetBool(FlagVerbose)
	if err != nil {
		// no verbose flag on the command, It's OK.
		verbose = false
	}
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// NewCoverPilotCommand creates the root command for analyzing coverage gaps
// and generating tests for them.
func NewCoverPilotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "coverpilot",
		Short:        "coverage gap analyzer and test generator",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolP(FlagVerbose, FlagVerboseShort, false, "verbose output")
	cmd.PersistentFlags().String(FlagConfig, "", "path to the coverpilot yaml configuration")

	cmd.PersistentFlags().BoolVar(&dboption.DataCollectionEnabled, "data-collection-enabled", false, "whether or not enable collecting analysis data")
	cmd.PersistentFlags().StringVar((*string)(&dboption.DbType), "store-type", string(dbclient.None), "db client type")
	cmd.PersistentFlags().StringVar(&dboption.KustoOption.Endpoint, "endpoint", "", "kusto endpoint")
	cmd.PersistentFlags().StringVar(&dboption.KustoOption.Database, "database", "", "kusto database")
	cmd.PersistentFlags().StringVar(&dboption.KustoOption.Event, "event", "", "kusto event")
	cmd.PersistentFlags().StringSliceVar(&dboption.KustoOption.CustomColumns, "custom-columns", []string{}, "custom kusto columns, format: {column}:{datatype}:{value}")

	cmd.AddCommand(newAnalyzeCommand())
	cmd.AddCommand(newReportCommand())
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}
