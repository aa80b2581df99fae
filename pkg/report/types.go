package report

import (
	"html/template"

	"github.com/coverpilot/coverpilot/pkg/coverage"
)

// Statistics represents the coverage gap analysis for one repository, the
// input of both the html and markdown report generators.
type Statistics struct {
	// RepositoryName identifies the analyzed repository, owner/name form.
	RepositoryName string
	// ComparedBranch is the branch the analyzed changes were diffed against.
	// Empty for whole-repository analysis.
	ComparedBranch string
	// SourceFormat names the coverage report format the data came from.
	SourceFormat coverage.SourceFormat
	// OverallPercent is the overall line coverage of the report.
	OverallPercent float64
	// Threshold is the coverage percentage files were selected below.
	Threshold float64
	// TotalFiles is how many files the coverage report contained.
	TotalFiles int
	// LowCoverageFiles holds one profile per selected low-coverage file,
	// in selection order (high priority first).
	LowCoverageFiles []*FileProfile
	// GeneratedTests lists the test files produced for this analysis.
	GeneratedTests []string
	// ExcludedFiles lists the exclusion patterns applied during selection.
	ExcludedFiles []string
}

// FileProfile represents the coverage gaps of a single file.
type FileProfile struct {
	// FileName is the reconciled path of the file.
	FileName string
	// PercentCovered is the file's line coverage.
	PercentCovered float64
	// Priority is the selection priority, "high" or "medium".
	Priority coverage.Priority
	// MissingLines are the uncovered line numbers, ascending.
	MissingLines []int
	// MissingSections groups the missing lines into contiguous source
	// sections, with their contents when the file was readable.
	MissingSections []*MissingSection
	// CodeSnippet is the rendered output of MissingSections, filled by the
	// html generator.
	CodeSnippet []template.HTML
}

// MissingSection represents one run of uncovered code in a file.
type MissingSection struct {
	// MissingLines are the uncovered lines inside [StartLine, EndLine].
	MissingLines []int
	// StartLine is the first line of the section.
	StartLine int
	// EndLine is the last line of the section.
	EndLine int
	// Contents holds the [StartLine..EndLine] lines from the source file.
	// Nil when the source could not be read.
	Contents []string
}
