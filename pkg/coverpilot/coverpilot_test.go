package coverpilot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/coverpilot/coverpilot/pkg/coverage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coberturaDoc = `<?xml version="1.0" ?>
<coverage line-rate="0.40" branch-rate="0.0" lines-covered="2" lines-valid="5" timestamp="1700000000" version="7.3.2">
  <packages>
    <package name="calculator" line-rate="0.40" branch-rate="0.0">
      <classes>
        <class name="calculator.calc" filename="src/calc.py" line-rate="0.40" branch-rate="0.0">
          <lines>
            <line number="3" hits="1"/>
            <line number="4" hits="0"/>
            <line number="5" hits="0"/>
            <line number="8" hits="1"/>
            <line number="9" hits="0"/>
          </lines>
        </class>
      </classes>
    </package>
  </packages>
</coverage>
`

const pythonSource = `import os

def add(a, b):
    total = a + b
    return total

def sub(a, b):
    diff = a - b
    return diff
`

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func setupRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "calc.py"), []byte(pythonSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "coverage.xml"), []byte(coberturaDoc), 0o644))
	return root
}

func TestRunWritesMarkdownReport(t *testing.T) {
	root := setupRepo(t)
	output := t.TempDir()

	o := NewAnalyzeOption()
	o.RepositoryPath = root
	o.Output = output
	o.ReportFormat = "markdown"
	o.Logger = testLogger()

	pilot, err := NewCoverPilot(o)
	require.NoError(t, err)
	require.NoError(t, pilot.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(output, "coverage-gaps.md"))
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, "calc.py")
	assert.Contains(t, body, "40.0%")
}

func TestRunWritesHTMLReport(t *testing.T) {
	root := setupRepo(t)
	output := t.TempDir()

	o := NewAnalyzeOption()
	o.RepositoryPath = root
	o.Output = output
	o.ReportFormat = "html"
	o.Logger = testLogger()

	pilot, err := NewCoverPilot(o)
	require.NoError(t, err)
	require.NoError(t, pilot.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(output, "coverage-gaps.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Coverage Gaps")
}

func TestRunNoReportIsNotAnError(t *testing.T) {
	o := NewAnalyzeOption()
	o.RepositoryPath = t.TempDir()
	o.Logger = testLogger()

	pilot, err := NewCoverPilot(o)
	require.NoError(t, err)
	assert.NoError(t, pilot.Run(context.Background()))
}

func TestRunEmptyReportSkipsAnalysis(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "coverage.xml"), []byte("<unrelated/>"), 0o644))

	o := NewAnalyzeOption()
	o.RepositoryPath = root
	o.Output = t.TempDir()
	o.Logger = testLogger()

	pilot, err := NewCoverPilot(o)
	require.NoError(t, err)
	require.NoError(t, pilot.Run(context.Background()))

	// Nothing was analyzed, so nothing was written.
	_, err = os.Stat(filepath.Join(o.Output, "coverage-gaps.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunFailUnderThreshold(t *testing.T) {
	root := setupRepo(t)

	o := NewAnalyzeOption()
	o.RepositoryPath = root
	o.FailUnderThreshold = true
	o.Logger = testLogger()

	pilot, err := NewCoverPilot(o)
	require.NoError(t, err)

	err = pilot.Run(context.Background())
	require.Error(t, err)
	var cpErr *CoverPilotError
	require.ErrorAs(t, err, &cpErr)
	assert.Equal(t, LowCoverageErrorExitCode, cpErr.ExitCode)
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	o := NewAnalyzeOption()
	o.Threshold = 150
	_, err := NewCoverPilot(o)
	assert.Error(t, err)
}

func TestEstimateCoverageIncrease(t *testing.T) {
	model := &coverage.CoverageModel{
		Files: map[string]*coverage.FileCoverage{
			"a.py": {LineDetails: map[int]coverage.LineDetail{1: {}, 2: {}, 3: {}, 4: {}}},
			"b.py": {LineDetails: map[int]coverage.LineDetail{1: {}, 2: {}, 3: {}, 4: {}, 5: {}, 6: {}}},
		},
	}
	areas := []coverage.LowCoverageArea{
		{FileKey: "a.py", MissingLines: []int{2, 3}},
	}
	// 2 of 10 lines.
	assert.InDelta(t, 20.0, estimateCoverageIncrease(model, areas), 0.001)

	assert.Zero(t, estimateCoverageIncrease(&coverage.CoverageModel{}, nil))
}

func TestMatchesChangedFile(t *testing.T) {
	changed := []string{"src/calc.py", "pkg/app.go"}
	assert.True(t, matchesChangedFile("/work/repo/src/calc.py", changed))
	assert.True(t, matchesChangedFile("src/calc.py", changed))
	assert.False(t, matchesChangedFile("/work/repo/src/other.py", changed))
	// Suffix matching requires a path boundary.
	assert.False(t, matchesChangedFile("/work/repo/notsrc/calc.py", []string{"rc/calc.py"}))
}

func TestWriteReportsUnsupportedFormat(t *testing.T) {
	root := setupRepo(t)

	o := NewAnalyzeOption()
	o.RepositoryPath = root
	o.Output = t.TempDir()
	o.ReportFormat = "pdf"
	o.Logger = testLogger()

	pilot, err := NewCoverPilot(o)
	require.NoError(t, err)
	assert.Error(t, pilot.Run(context.Background()))
}

func githubTestServer(t *testing.T, handler http.Handler) string {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL
}

func TestScopeToPullRequestFiles(t *testing.T) {
	url := githubTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octo/demo/pulls/42/files", r.URL.Path)
		fmt.Fprint(w, `[
			{"filename": "src/calc.py", "status": "modified"},
			{"filename": "src/gone.py", "status": "removed"}
		]`)
	}))

	o := NewAnalyzeOption()
	o.GitHub = &GitHubOption{Owner: "octo", Repo: "demo", PullRequest: 42, Token: "t", BaseURL: url}
	p := &pilot{option: o, workdir: "/work/repo", logger: testLogger()}

	areas := []coverage.LowCoverageArea{
		{FileKey: "/work/repo/src/calc.py"},
		{FileKey: "/work/repo/src/gone.py"},
		{FileKey: "/work/repo/src/other.py"},
	}
	scoped, err := p.scopeToPullRequestFiles(context.Background(), areas)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "/work/repo/src/calc.py", scoped[0].FileKey)
}

func TestResolveBaseBranch(t *testing.T) {
	requests := 0
	url := githubTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/repos/octo/demo/pulls/42", r.URL.Path)
		fmt.Fprint(w, `{"number": 42, "base": {"ref": "develop"}}`)
	}))

	o := NewAnalyzeOption()
	o.CompareBranch = "origin/release"
	o.GitHub = &GitHubOption{Owner: "octo", Repo: "demo", PullRequest: 42, Token: "t", BaseURL: url}
	p := &pilot{option: o, logger: testLogger()}
	gh, err := p.githubClient()
	require.NoError(t, err)

	t.Run("configured base branch wins", func(t *testing.T) {
		o.GitHub.BaseBranch = "stable"
		assert.Equal(t, "stable", p.resolveBaseBranch(context.Background(), gh))
		assert.Zero(t, requests)
	})

	t.Run("analyzed pull request base", func(t *testing.T) {
		o.GitHub.BaseBranch = ""
		assert.Equal(t, "develop", p.resolveBaseBranch(context.Background(), gh))
		assert.Equal(t, 1, requests)
	})

	t.Run("compare branch when no pull request", func(t *testing.T) {
		o.GitHub.PullRequest = 0
		assert.Equal(t, "release", p.resolveBaseBranch(context.Background(), gh))
	})

	t.Run("main as the last resort", func(t *testing.T) {
		o.CompareBranch = ""
		assert.Equal(t, "main", p.resolveBaseBranch(context.Background(), gh))
	})
}

func TestResolveBaseBranchUnreadablePullRequest(t *testing.T) {
	url := githubTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	}))

	o := NewAnalyzeOption()
	o.CompareBranch = "origin/main"
	o.GitHub = &GitHubOption{Owner: "octo", Repo: "demo", PullRequest: 7, Token: "t", BaseURL: url}
	p := &pilot{option: o, logger: testLogger()}
	gh, err := p.githubClient()
	require.NoError(t, err)

	assert.Equal(t, "main", p.resolveBaseBranch(context.Background(), gh))
}
