package coverpilot

import (
	"fmt"

	"github.com/coverpilot/coverpilot/pkg/coverage"
	"github.com/coverpilot/coverpilot/pkg/dbclient"
	"github.com/coverpilot/coverpilot/pkg/generator"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCompareBranch    = "origin/main"
	DefaultReportName       = "coverage-gaps"
	DefaultStyle            = "colorful"
	DefaultTestBranchPrefix = "coverpilot/generated-tests"
)

// GitHubOption carries the settings for opening the generated-tests pull
// request and commenting analysis results.
type GitHubOption struct {
	Owner       string
	Repo        string
	PullRequest int
	Token       string
	BaseURL     string
	// BaseBranch is the branch the generated-tests PR targets.
	BaseBranch string
}

func (o *GitHubOption) Validate() error {
	if o.Owner == "" || o.Repo == "" {
		return fmt.Errorf("github owner and repo are required")
	}
	if o.Token == "" {
		return fmt.Errorf("github token is required")
	}
	return nil
}

// AnalyzeOption contains the input for one coverpilot analysis run.
type AnalyzeOption struct {
	// RepositoryPath is the root of the analyzed checkout.
	RepositoryPath string
	// ReportPath points at the coverage report. Empty means locate it by
	// convention under RepositoryPath.
	ReportPath string
	// CompareBranch scopes the analysis to files changed against this
	// branch. Empty analyzes the whole report.
	CompareBranch string

	Threshold           int
	SourceRoot          string
	Excludes            []string
	MinCoverageIncrease int

	// FailUnderThreshold makes Run return a LowCoverageErrorExitCode error
	// when the overall coverage is below Threshold.
	FailUnderThreshold bool

	Output       string
	ReportFormat string
	ReportName   string
	Style        string

	// Generator enables LLM test generation when non-nil and an API key is
	// configured.
	Generator *generator.Config
	// GitHub enables publishing generated tests as a pull request.
	GitHub *GitHubOption
	// TestBranchPrefix names the branch generated tests are committed to.
	TestBranchPrefix string

	DbOption *dbclient.DBOption

	Logger logrus.FieldLogger
}

// NewAnalyzeOption returns an AnalyzeOption with default values.
func NewAnalyzeOption() *AnalyzeOption {
	return &AnalyzeOption{
		RepositoryPath:      "./",
		CompareBranch:       "",
		Threshold:           coverage.DefaultThreshold,
		SourceRoot:          coverage.DefaultSourceRoot,
		MinCoverageIncrease: coverage.DefaultMinCoverageIncrease,
		ReportFormat:        "html",
		ReportName:          DefaultReportName,
		Style:               DefaultStyle,
		TestBranchPrefix:    DefaultTestBranchPrefix,
	}
}

func (o *AnalyzeOption) Validate() error {
	if o.Threshold < 0 || o.Threshold > 100 {
		return fmt.Errorf("threshold %d out of range [0, 100]", o.Threshold)
	}
	if o.GitHub != nil {
		if err := o.GitHub.Validate(); err != nil {
			return err
		}
	}
	if o.DbOption != nil {
		if err := o.DbOption.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// analysisConfig translates the option into the coverage package config.
func (o *AnalyzeOption) analysisConfig() coverage.AnalysisConfig {
	return coverage.AnalysisConfig{
		Threshold:           o.Threshold,
		SourceRoot:          o.SourceRoot,
		ExcludePatterns:     o.Excludes,
		MinCoverageIncrease: o.MinCoverageIncrease,
	}
}
