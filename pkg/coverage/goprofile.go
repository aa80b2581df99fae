package coverage

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/mod/modfile"
	"golang.org/x/tools/cover"
)

// GoProfileReport is the format-specific intermediate for coverage profiles
// produced by `go test -coverprofile`.
type GoProfileReport struct {
	// OverallPercent is statement-weighted, the same methodology the go
	// toolchain reports.
	OverallPercent float64
	Files          map[string]*FileCoverage
}

// ParseGoProfile parses a Go cover profile. Profiles identify files by
// import path, so the resulting keys usually need path reconciliation
// before they can be matched against a repository checkout.
func ParseGoProfile(path string, logger logrus.FieldLogger) *ParsedReport {
	profiles, err := cover.ParseProfiles(path)
	if err != nil {
		logger.WithError(err).Errorf("parse go cover profile %s", path)
		return Unsupported()
	}

	report := &GoProfileReport{Files: map[string]*FileCoverage{}}
	var totalStmts, coveredStmts int

	for _, profile := range profiles {
		var fileTotal, fileCovered int
		hitsByLine := map[int]int{}

		for _, block := range profile.Blocks {
			fileTotal += block.NumStmt
			if block.Count > 0 {
				fileCovered += block.NumStmt
			}
			for line := block.StartLine; line <= block.EndLine; line++ {
				if prev, seen := hitsByLine[line]; !seen || block.Count > prev {
					hitsByLine[line] = block.Count
				}
			}
		}
		if fileTotal == 0 {
			continue
		}

		file := NewFileCoverage()
		lines := make([]int, 0, len(hitsByLine))
		for line := range hitsByLine {
			lines = append(lines, line)
		}
		sort.Ints(lines)
		for _, line := range lines {
			file.AddLine(line, LineDetail{Hits: hitsByLine[line]})
		}
		file.sortLineSets()

		file.LineRate = lineRatio(fileCovered, fileTotal)
		file.PercentCovered = file.LineRate * 100
		report.Files[profile.FileName] = file

		totalStmts += fileTotal
		coveredStmts += fileCovered
	}

	report.OverallPercent = lineRatio(coveredStmts, totalStmts) * 100

	return &ParsedReport{Format: FormatGoProfile, GoProfile: report}
}

// goModulePrefix reads the module path declared in the go.mod of dir and
// returns it with a trailing slash, ready for prefix stripping. Profiles
// key files by import path, so trimming the module path yields the path
// relative to the repository root. Empty when dir carries no go.mod.
func goModulePrefix(dir string) string {
	bs, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return ""
	}
	path := modfile.ModulePath(bs)
	if path == "" {
		return ""
	}
	return path + "/"
}

// goProfileCandidate translates an import-path file key into the repository
// relative path by stripping the module prefix.
func goProfileCandidate(key, modulePrefix string) (string, bool) {
	if modulePrefix == "" || !strings.HasPrefix(key, modulePrefix) {
		return "", false
	}
	return filepath.FromSlash(strings.TrimPrefix(key, modulePrefix)), true
}
