package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/coverpilot/coverpilot/pkg/config"
	"github.com/coverpilot/coverpilot/pkg/coverpilot"
	"github.com/coverpilot/coverpilot/pkg/generator"
	"github.com/spf13/cobra"
)

var (
	analyzeLong = `Analyze a coverage report for coverage gaps and generate unit tests for them.

Use this tool on a repository checkout with a coverage report (Cobertura,
JaCoCo, pytest-cov json, Istanbul json or a Go cover profile) to find the
files below the coverage threshold, map them to uncovered functions, and
optionally generate unit tests for those functions and publish them as a
pull request.
`

	analyzeExample = `# Analyze the coverage report found under the current directory and write a html gap report.
coverpilot analyze --output /tmp

# Analyze a specific report, only for files changed against origin/main.
coverpilot analyze --report coverage.xml --compare-branch origin/main --output /tmp

# Generate tests for the gaps and open a pull request with them.
export GITHUB_TOKEN=xxxxxxxxxxxxxxxxxxxx
export OPENAI_API_KEY=xxxxxxxxxxxxxxxxxxxx
coverpilot analyze --compare-branch origin/main --generate --github-repo octo/demo --pr-number 42
`
)

func newAnalyzeCommand() *cobra.Command {
	o := coverpilot.NewAnalyzeOption()
	var (
		generate   bool
		githubRepo string
		prNumber   int
		baseBranch string
	)

	cmd := &cobra.Command{
		Use:     "analyze",
		Short:   "analyze a coverage report for coverage gaps",
		Long:    analyzeLong,
		Example: analyzeExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := createLogger(cmd)
			o.Logger = logger

			configPath, _ := cmd.Flags().GetString(FlagConfig)
			cfg, err := config.Load(configPath, logger)
			if err != nil {
				return err
			}
			applyConfig(cmd, cfg, o)

			if generate {
				if cfg.Generator.APIKey == "" {
					return errors.New("test generation requires an API key, set OPENAI_API_KEY or ANTHROPIC_API_KEY")
				}
				o.Generator = &generator.Config{
					Provider: generator.ProviderConfig{
						Type:        generator.ProviderType(cfg.Generator.Provider),
						APIKey:      cfg.Generator.APIKey,
						Model:       cfg.Generator.Model,
						BaseURL:     cfg.Generator.BaseURL,
						MaxTokens:   cfg.Generator.MaxTokens,
						Temperature: cfg.Generator.Temperature,
					},
					MaxFunctions: cfg.Generator.MaxFunctions,
				}
			}

			if githubRepo != "" {
				owner, repo, ok := splitRepo(githubRepo)
				if !ok {
					return fmt.Errorf("invalid --github-repo %q, expected owner/name", githubRepo)
				}
				o.GitHub = &coverpilot.GitHubOption{
					Owner:       owner,
					Repo:        repo,
					PullRequest: prNumber,
					Token:       cfg.GitHub.Token,
					BaseURL:     cfg.GitHub.BaseURL,
					BaseBranch:  baseBranch,
				}
			}

			if dboption.DataCollectionEnabled {
				o.DbOption = dboption
			}

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
				return fmt.Errorf("analyze coverage: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&o.RepositoryPath, "repository-path", o.RepositoryPath, `the root directory of git repository`)
	cmd.Flags().StringVar(&o.ReportPath, "report", "", "coverage report path, located by convention when omitted")
	cmd.Flags().StringVar(&o.CompareBranch, "compare-branch", o.CompareBranch, `branch to compare, scopes the analysis to changed files`)
	cmd.Flags().IntVar(&o.Threshold, "threshold", o.Threshold, "files strictly below this coverage percentage count as low coverage")
	cmd.Flags().StringVar(&o.SourceRoot, "source-root", o.SourceRoot, "conventional source directory prefix used for path reconciliation")
	cmd.Flags().StringSliceVar(&o.Excludes, "excludes", []string{}, "exclude file patterns for low-coverage selection")
	cmd.Flags().IntVar(&o.MinCoverageIncrease, "min-coverage-increase", o.MinCoverageIncrease, "minimum estimated coverage gain for generating tests")
	cmd.Flags().BoolVar(&o.FailUnderThreshold, "fail-under-threshold", false, "exit non-zero when overall coverage is below the threshold")
	cmd.Flags().StringVarP(&o.Output, "output", "o", o.Output, "gap report output directory")
	cmd.Flags().StringVar(&o.ReportFormat, "format", o.ReportFormat, "format of the gap report, one of: html, markdown")
	cmd.Flags().StringVar(&o.ReportName, "report-name", o.ReportName, "gap report name")
	cmd.Flags().StringVar(&o.Style, "style", o.Style, "report code format style, refer to https://pygments.org/docs/styles for more information")
	cmd.Flags().BoolVar(&generate, "generate", false, "generate unit tests for the uncovered functions")
	cmd.Flags().StringVar(&githubRepo, "github-repo", "", "github repository in owner/name form for publishing generated tests")
	cmd.Flags().IntVar(&prNumber, "pr-number", 0, "pull request number to comment analysis results on")
	cmd.Flags().StringVar(&baseBranch, "base-branch", "", "base branch for the generated-tests pull request")

	return cmd
}

// applyConfig fills option fields from the configuration for every flag the
// user did not set explicitly.
func applyConfig(cmd *cobra.Command, cfg *config.Config, o *coverpilot.AnalyzeOption) {
	if !cmd.Flags().Changed("threshold") {
		o.Threshold = cfg.Analysis.Threshold
	}
	if !cmd.Flags().Changed("source-root") && cfg.Analysis.SourceRoot != "" {
		o.SourceRoot = cfg.Analysis.SourceRoot
	}
	if !cmd.Flags().Changed("excludes") {
		o.Excludes = cfg.Analysis.ExcludePatterns
	}
	if !cmd.Flags().Changed("min-coverage-increase") {
		o.MinCoverageIncrease = cfg.Analysis.MinCoverageIncrease
	}
	if !cmd.Flags().Changed("report-name") && cfg.Report.Name != "" {
		o.ReportName = cfg.Report.Name
	}
	if !cmd.Flags().Changed("style") && cfg.Report.Style != "" {
		o.Style = cfg.Report.Style
	}
	if !cmd.Flags().Changed("output") && cfg.Report.Output != "" {
		o.Output = cfg.Report.Output
	}
}

func splitRepo(full string) (owner, repo string, ok bool) {
	for i := 0; i < len(full); i++ {
		if full[i] == '/' {
			if i == 0 || i == len(full)-1 {
				return "", "", false
			}
			return full[:i], full[i+1:], true
		}
	}
	return "", "", false
}
