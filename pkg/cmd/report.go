package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/coverpilot/coverpilot/pkg/config"
	"github.com/coverpilot/coverpilot/pkg/coverpilot"
	"github.com/spf13/cobra"
)

var reportExample = `# Write a html gap report for the coverage report found under the current directory.
coverpilot report --output /tmp

# Write a markdown gap report for a specific coverage report.
coverpilot report --report coverage.xml --format markdown --output /tmp
`

// newReportCommand is analyze without generation or publishing: locate the
// coverage report, select the low-coverage files and write the gap report.
func newReportCommand() *cobra.Command {
	o := coverpilot.NewAnalyzeOption()

	cmd := &cobra.Command{
		Use:     "report",
		Short:   "write a coverage gap report for a local repository",
		Example: reportExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := createLogger(cmd)
			o.Logger = logger

			configPath, _ := cmd.Flags().GetString(FlagConfig)
			cfg, err := config.Load(configPath, logger)
			if err != nil {
				return err
			}
			applyConfig(cmd, cfg, o)

			pilot, err := coverpilot.NewCoverPilot(o)
			if err != nil {
				return err
			}
			if err := pilot.Run(context.Background()); err != nil {
				var cpErr *coverpilot.CoverPilotError
				if errors.As(err, &cpErr) {
					logger.WithError(cpErr.Err).Error(cpErr.ErrMessage)
					os.Exit(cpErr.ExitCode)
				}
				return fmt.Errorf("build gap report: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&o.RepositoryPath, "repository-path", o.RepositoryPath, `the root directory of git repository`)
	cmd.Flags().StringVar(&o.ReportPath, "report", "", "coverage report path, located by convention when omitted")
	cmd.Flags().StringVar(&o.CompareBranch, "compare-branch", "", `branch to compare, scopes the report to changed files`)
	cmd.Flags().IntVar(&o.Threshold, "threshold", o.Threshold, "files strictly below this coverage percentage count as low coverage")
	cmd.Flags().StringVar(&o.SourceRoot, "source-root", o.SourceRoot, "conventional source directory prefix used for path reconciliation")
	cmd.Flags().StringSliceVar(&o.Excludes, "excludes", []string{}, "exclude file patterns for low-coverage selection")
	cmd.Flags().BoolVar(&o.FailUnderThreshold, "fail-under-threshold", false, "exit non-zero when overall coverage is below the threshold")
	cmd.Flags().StringVarP(&o.Output, "output", "o", o.Output, "gap report output directory")
	cmd.Flags().StringVar(&o.ReportFormat, "format", o.ReportFormat, "format of the gap report, one of: html, markdown")
	cmd.Flags().StringVar(&o.ReportName, "report-name", o.ReportName, "gap report name")
	cmd.Flags().StringVar(&o.Style, "style", o.Style, "report code format style, refer to https://pygments.org/docs/styles for more information")

	return cmd
}
