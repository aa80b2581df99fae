package coverage

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// searchDirs are the conventional locations a coverage report is looked for,
// relative to the repository root, in priority order.
var searchDirs = []string{
	".",
	"coverage",
	"target",
	"build",
}

// reportFilenames is the fixed priority list of conventional report names.
// The first existing file wins; this is a deliberate priority list, not a
// best-report selection.
var reportFilenames = []string{
	// Cobertura XML
	"coverage.xml",
	"cobertura-coverage.xml",
	"cobertura.xml",
	filepath.Join("target", "site", "cobertura", "coverage.xml"),
	filepath.Join("build", "reports", "cobertura", "coverage.xml"),
	filepath.Join("coverage", "cobertura-coverage.xml"),

	// JSON
	"coverage.json",
	".coverage.json",
	filepath.Join("coverage", "coverage-final.json"),

	// LCOV
	filepath.Join("coverage", "lcov.info"),
	"lcov.info",

	// JaCoCo
	filepath.Join("target", "site", "jacoco", "jacoco.xml"),
	filepath.Join("build", "reports", "jacoco", "test", "jacocoTestReport.xml"),

	// .NET
	"coverage.cobertura.xml",
	filepath.Join("TestResults", "coverage.cobertura.xml"),

	// Go cover profiles
	"coverage.out",
	"cover.out",
}

// LocateReport searches the conventional directories and filenames for an
// existing coverage report under root. The boolean is false when nothing was
// found, which is an expected state, not an error.
func LocateReport(root string, logger logrus.FieldLogger) (string, bool) {
	if logger == nil {
		logger = logrus.New()
	}

	for _, dir := range searchDirs {
		base := filepath.Join(root, dir)
		if info, err := os.Stat(base); err != nil || !info.IsDir() {
			continue
		}
		for _, name := range reportFilenames {
			candidate := filepath.Join(base, name)
			info, err := os.Stat(candidate)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			logger.Infof("found coverage report: %s", candidate)
			return candidate, true
		}
	}

	logger.Debug("no coverage report found")
	return "", false
}
