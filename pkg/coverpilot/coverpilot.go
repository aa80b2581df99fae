// Package coverpilot wires the analysis pipeline together: locate and parse
// the coverage report, normalize and reconcile it, select low-coverage
// files, map them to uncovered functions, generate tests for them and
// publish the results.
package coverpilot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/coverpilot/coverpilot/pkg/analyzer"
	"github.com/coverpilot/coverpilot/pkg/coverage"
	"github.com/coverpilot/coverpilot/pkg/dbclient"
	"github.com/coverpilot/coverpilot/pkg/generator"
	"github.com/coverpilot/coverpilot/pkg/github"
	"github.com/coverpilot/coverpilot/pkg/gittool"
	"github.com/coverpilot/coverpilot/pkg/report"
	"github.com/sirupsen/logrus"
)

// CoverPilot runs one coverage gap analysis.
type CoverPilot interface {
	Run(ctx context.Context) error
}

// NewCoverPilot validates the option and builds the analysis pipeline.
func NewCoverPilot(o *AnalyzeOption) (CoverPilot, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	workdir, err := filepath.Abs(o.RepositoryPath)
	if err != nil {
		return nil, fmt.Errorf("get absolute path of repo: %w", err)
	}

	logger := o.Logger
	if logger == nil {
		logger = logrus.New()
	}

	return &pilot{
		option:  o,
		workdir: workdir,
		logger:  logger.WithField("source", "coverpilot"),
	}, nil
}

type pilot struct {
	option  *AnalyzeOption
	workdir string
	logger  logrus.FieldLogger
}

var _ CoverPilot = (*pilot)(nil)

func (p *pilot) Run(ctx context.Context) error {
	reportPath := p.option.ReportPath
	if reportPath == "" {
		located, ok := coverage.LocateReport(p.workdir, p.logger)
		if !ok {
			p.logger.Info("no coverage report found, nothing to analyze")
			return nil
		}
		reportPath = located
	}

	parsed := coverage.DetectAndParse(reportPath, p.logger)
	model := coverage.Normalize(parsed, p.logger)
	if model.Empty() {
		p.logger.Infof("report %s carries no coverage data, skipping analysis", reportPath)
		return nil
	}

	cfg := p.option.analysisConfig()
	coverage.Reconcile(model, cfg, p.workdir, p.logger)

	areas := coverage.SelectLowCoverage(model, cfg, p.logger)
	if p.option.GitHub != nil && p.option.GitHub.PullRequest > 0 {
		filtered, err := p.scopeToPullRequestFiles(ctx, areas)
		if err != nil {
			return WrapError(err, "list pull request files")
		}
		areas = filtered
	} else if p.option.CompareBranch != "" {
		filtered, err := p.scopeToChangedFiles(areas)
		if err != nil {
			return WrapError(err, "diff changed files")
		}
		areas = filtered
	}
	p.logger.Infof("coverage %.2f%% (%s), %d low-coverage files", model.OverallPercent, model.SourceFormat, len(areas))

	uncovered := analyzer.New(cfg, p.workdir, p.logger).FindUncoveredFunctions(areas)

	tests, err := p.generateTests(ctx, model, areas, uncovered)
	if err != nil {
		return err
	}

	statistics := report.BuildStatistics(model, areas, cfg, p.workdir)
	statistics.ComparedBranch = p.option.CompareBranch
	for _, test := range tests {
		statistics.GeneratedTests = append(statistics.GeneratedTests, test.FileName)
	}

	if err := p.writeReports(statistics); err != nil {
		return WrapError(err, "write reports")
	}

	if p.option.GitHub != nil && len(tests) > 0 {
		if err := p.publishTests(ctx, statistics, tests); err != nil {
			return WrapError(err, "publish generated tests")
		}
	}

	if err := p.storeAnalysis(ctx, model, areas, tests); err != nil {
		return WrapError(err, "store analysis data")
	}

	if p.option.FailUnderThreshold && !model.MeetsThreshold(p.option.Threshold) {
		err := fmt.Errorf("coverage %.2f%% is below threshold %d%%", model.OverallPercent, p.option.Threshold)
		return WrapErrorWithCode(err, LowCoverageErrorExitCode, "low coverage")
	}
	return nil
}

// scopeToChangedFiles keeps only the areas whose file was touched by the
// HEAD commits relative to the compare branch.
func (p *pilot) scopeToChangedFiles(areas []coverage.LowCoverageArea) ([]coverage.LowCoverageArea, error) {
	client, err := gittool.NewGitClient(p.workdir, p.logger)
	if err != nil {
		return nil, err
	}
	changes, err := client.DiffChangesFromCommitted(p.option.CompareBranch)
	if err != nil {
		return nil, err
	}
	changed := gittool.ChangedFiles(changes)

	var scoped []coverage.LowCoverageArea
	for _, area := range areas {
		if matchesChangedFile(area.FileKey, changed) {
			scoped = append(scoped, area)
		}
	}
	p.logger.Infof("scoped %d low-coverage files to %d changed against %s", len(areas), len(scoped), p.option.CompareBranch)
	return scoped, nil
}

// scopeToPullRequestFiles keeps only the areas whose file the pull request
// touches, using the changed-file list the GitHub API reports.
func (p *pilot) scopeToPullRequestFiles(ctx context.Context, areas []coverage.LowCoverageArea) ([]coverage.LowCoverageArea, error) {
	gh, err := p.githubClient()
	if err != nil {
		return nil, err
	}
	files, err := gh.ListChangedFiles(ctx, p.option.GitHub.PullRequest)
	if err != nil {
		return nil, err
	}

	var changed []string
	for _, file := range files {
		if file.Status == "removed" {
			continue
		}
		changed = append(changed, file.Filename)
	}

	var scoped []coverage.LowCoverageArea
	for _, area := range areas {
		if matchesChangedFile(area.FileKey, changed) {
			scoped = append(scoped, area)
		}
	}
	p.logger.Infof("scoped %d low-coverage files to %d changed in pull request #%d", len(areas), len(scoped), p.option.GitHub.PullRequest)
	return scoped, nil
}

// matchesChangedFile reports whether the reconciled file key refers to one
// of the repo-relative changed paths.
func matchesChangedFile(fileKey string, changed []string) bool {
	key := filepath.ToSlash(fileKey)
	for _, file := range changed {
		file = filepath.ToSlash(file)
		if key == file || strings.HasSuffix(key, "/"+file) {
			return true
		}
	}
	return false
}

func (p *pilot) generateTests(ctx context.Context, model *coverage.CoverageModel, areas []coverage.LowCoverageArea, uncovered []analyzer.UncoveredFunction) ([]generator.GeneratedTest, error) {
	if p.option.Generator == nil || p.option.Generator.Provider.APIKey == "" {
		p.logger.Debug("test generation disabled")
		return nil, nil
	}
	if len(uncovered) == 0 {
		p.logger.Info("no uncovered functions, skipping test generation")
		return nil, nil
	}

	estimate := estimateCoverageIncrease(model, areas)
	if estimate < float64(p.option.MinCoverageIncrease) {
		p.logger.Infof("estimated coverage increase %.2f%% is below the minimum %d%%, skipping test generation", estimate, p.option.MinCoverageIncrease)
		return nil, nil
	}

	gen, err := generator.New(*p.option.Generator, p.logger)
	if err != nil {
		return nil, WrapErrorWithCode(err, GenerationErrorExitCode, "build generator")
	}
	tests, err := gen.GenerateTests(ctx, uncovered)
	if err != nil {
		return nil, WrapErrorWithCode(err, GenerationErrorExitCode, "generate tests")
	}
	return tests, nil
}

// estimateCoverageIncrease is the upper bound on the coverage gain from
// covering every missing line of the selected areas.
func estimateCoverageIncrease(model *coverage.CoverageModel, areas []coverage.LowCoverageArea) float64 {
	totalLines := 0
	for _, file := range model.Files {
		totalLines += len(file.LineDetails)
	}
	if totalLines == 0 {
		return 0
	}

	selectedMissing := 0
	for _, area := range areas {
		selectedMissing += len(area.MissingLines)
	}
	return float64(selectedMissing) / float64(totalLines) * 100
}

// publishTests commits the generated test files to a new branch, pushes it
// and opens a pull request carrying the markdown gap report.
func (p *pilot) publishTests(ctx context.Context, statistics *report.Statistics, tests []generator.GeneratedTest) error {
	client, err := gittool.NewGitClient(p.workdir, p.logger)
	if err != nil {
		return err
	}
	head, err := client.HeadBranch()
	if err != nil {
		return err
	}

	files := map[string]string{}
	var summaries []string
	for _, test := range tests {
		rel := test.FileName
		if filepath.IsAbs(rel) {
			if rel, err = filepath.Rel(p.workdir, test.FileName); err != nil {
				return fmt.Errorf("relativize %s: %w", test.FileName, err)
			}
		}
		files[rel] = test.Content
		summaries = append(summaries, fmt.Sprintf("- `%s` covering %s", rel, strings.Join(test.FunctionNames, ", ")))
	}

	branch := fmt.Sprintf("%s-%d", p.option.TestBranchPrefix, time.Now().Unix())
	message := fmt.Sprintf("Add generated tests for %d low-coverage files", len(tests))
	if _, err := client.CommitFiles(branch, message, files); err != nil {
		return err
	}
	if err := client.Push("origin", branch, p.option.GitHub.Token); err != nil {
		return err
	}

	gh, err := p.githubClient()
	if err != nil {
		return err
	}
	base := p.resolveBaseBranch(ctx, gh)

	body := fmt.Sprintf("Tests generated from `%s` for files below the %d%% coverage threshold:\n\n%s\n\n%s",
		head,
		p.option.Threshold,
		strings.Join(summaries, "\n"),
		report.NewMDReportGenerator(p.option.Output, p.option.ReportName, p.logger).Render(statistics))

	pr, err := gh.CreatePullRequest(ctx, github.NewPullRequest{
		Title: message,
		Body:  body,
		Head:  branch,
		Base:  base,
	})
	if err != nil {
		return err
	}

	if p.option.GitHub.PullRequest > 0 {
		comment := fmt.Sprintf("Opened %s with generated tests.\n\n%s", pr.HTMLURL,
			report.NewMDReportGenerator(p.option.Output, p.option.ReportName, p.logger).Render(statistics))
		if err := gh.CreateComment(ctx, p.option.GitHub.PullRequest, comment); err != nil {
			return err
		}
	}
	return nil
}

func (p *pilot) githubClient() (*github.Client, error) {
	return github.NewClient(p.option.GitHub.Owner, p.option.GitHub.Repo, &github.ClientOptions{
		Token:   p.option.GitHub.Token,
		BaseURL: p.option.GitHub.BaseURL,
		Logger:  p.logger,
	})
}

// resolveBaseBranch picks the base for the generated-tests pull request: the
// configured base branch, then the base of the analyzed pull request, then
// the compare branch, then main.
func (p *pilot) resolveBaseBranch(ctx context.Context, gh *github.Client) string {
	if p.option.GitHub.BaseBranch != "" {
		return p.option.GitHub.BaseBranch
	}
	if number := p.option.GitHub.PullRequest; number > 0 {
		pr, err := gh.GetPullRequest(ctx, number)
		if err != nil {
			p.logger.WithError(err).Warnf("cannot read pull request #%d, falling back to the compare branch", number)
		} else if pr.Base.Ref != "" {
			return pr.Base.Ref
		}
	}
	if base := strings.TrimPrefix(p.option.CompareBranch, "origin/"); base != "" {
		return base
	}
	return "main"
}

func (p *pilot) writeReports(statistics *report.Statistics) error {
	if p.option.Output == "" {
		return nil
	}

	switch p.option.ReportFormat {
	case "markdown":
		return report.NewMDReportGenerator(p.option.Output, p.option.ReportName, p.logger).GenerateReport(statistics)
	case "html", "":
		return report.NewReportGenerator(p.option.Style, p.option.Output, p.option.ReportName, p.logger).GenerateReport(statistics)
	default:
		return fmt.Errorf("unsupported report format %q", p.option.ReportFormat)
	}
}

func (p *pilot) storeAnalysis(ctx context.Context, model *coverage.CoverageModel, areas []coverage.LowCoverageArea, tests []generator.GeneratedTest) error {
	if p.option.DbOption == nil {
		return nil
	}
	client, err := p.option.DbOption.GetDbClient(p.logger)
	if err != nil {
		return err
	}
	if client == nil {
		return nil
	}

	data := &dbclient.Data{
		PreciseTimestamp: time.Now().UTC(),
		SourceFormat:     string(model.SourceFormat),
		OverallCoverage:  model.OverallPercent,
		FilesAnalyzed:    int64(len(model.Files)),
		LowCoverageFiles: int64(len(areas)),
		TestsGenerated:   int64(len(tests)),
		Branch:           strings.TrimPrefix(p.option.CompareBranch, "origin/"),
	}
	if p.option.GitHub != nil {
		data.Repository = p.option.GitHub.Owner + "/" + p.option.GitHub.Repo
		data.PullRequest = int64(p.option.GitHub.PullRequest)
	}
	return client.Store(ctx, data)
}
