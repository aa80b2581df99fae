// Package coverage ingests heterogeneous coverage reports (Cobertura XML,
// JaCoCo XML, pytest-cov/Istanbul JSON, Go cover profiles) and normalizes
// them into one canonical model from which low-coverage files and their
// missing source lines are derived.
package coverage

import "sort"

// SourceFormat identifies the report format a CoverageModel was built from.
// It is retained for diagnostics and for enabling format-specific
// reconciliation heuristics.
type SourceFormat string

const (
	FormatUnknown    SourceFormat = "unknown"
	FormatCobertura  SourceFormat = "cobertura"
	FormatJaCoCo     SourceFormat = "jacoco"
	FormatPytestJSON SourceFormat = "pytest_json"
	FormatIstanbul   SourceFormat = "istanbul"
	FormatGoProfile  SourceFormat = "goprofile"
)

// LineDetail records the execution data for a single reported line.
type LineDetail struct {
	Hits     int
	IsBranch bool
	// ConditionCoverage is the raw condition-coverage string, empty when the
	// line is not a branch line or the report does not specify it.
	ConditionCoverage string
}

// FileCoverage holds the per-file summary and line sets.
//
// MissingLines, CoveredLines and PartialLines are pairwise disjoint, sorted
// ascending, and their union equals the key set of LineDetails.
type FileCoverage struct {
	PercentCovered float64
	LineRate       float64
	BranchRate     float64
	MissingLines   []int
	CoveredLines   []int
	PartialLines   []int
	LineDetails    map[int]LineDetail
}

// CoverageModel is the canonical, format-agnostic coverage record.
// It is built once per analysis run and never mutated after path
// reconciliation completes.
type CoverageModel struct {
	// OverallPercent is the aggregate covered ratio expressed in [0,100].
	// Each source format computes this with its own methodology (declared
	// line-rate, summed counters, statement hit ratios); the normalizer only
	// guarantees the range, not one measurement methodology.
	OverallPercent float64
	SourceFormat   SourceFormat
	Files          map[string]*FileCoverage
	Metadata       map[string]interface{}

	// jacocoCandidates maps a provisional file key to the ordered candidate
	// source paths the JaCoCo parser derived for it. Only the reconciler
	// probes the filesystem against these; parsers stay side-effect-free.
	jacocoCandidates map[string][]string
}

// Priority ranks a low-coverage area for test generation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// LowCoverageArea is one under-covered file derived from a CoverageModel.
type LowCoverageArea struct {
	FileKey         string
	CurrentCoverage float64
	MissingLines    []int
	Priority        Priority
}

// AnalysisConfig carries the explicit per-run configuration. It is passed
// into every component entry point, there is no ambient configuration state.
type AnalysisConfig struct {
	// Threshold is an integer percentage in [0,100]; files strictly below it
	// count as low coverage.
	Threshold int
	// SourceRoot is the conventional source directory prefix used by the
	// path reconciler, e.g. "src".
	SourceRoot string
	// ExcludePatterns are doublestar glob patterns; matching file keys are
	// dropped before low-coverage selection.
	ExcludePatterns []string
	// MinCoverageIncrease is the minimum percent-point gain a generated test
	// PR must claim to be worth opening.
	MinCoverageIncrease int
}

const (
	DefaultThreshold           = 80
	DefaultSourceRoot          = "src"
	DefaultMinCoverageIncrease = 5
)

// NewAnalysisConfig returns an AnalysisConfig with default values.
func NewAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Threshold:           DefaultThreshold,
		SourceRoot:          DefaultSourceRoot,
		MinCoverageIncrease: DefaultMinCoverageIncrease,
	}
}

// NewFileCoverage returns an empty FileCoverage with allocated line details.
func NewFileCoverage() *FileCoverage {
	return &FileCoverage{
		LineDetails: map[int]LineDetail{},
	}
}

// AddLine records one line and classifies it into exactly one of the three
// line sets. Classification order: zero hits is always missing, regardless of
// the branch flag; a branch line with hits and a condition-coverage string
// other than "100%" is partial; everything else is covered.
func (f *FileCoverage) AddLine(number int, detail LineDetail) {
	f.LineDetails[number] = detail
	switch {
	case detail.Hits == 0:
		f.MissingLines = append(f.MissingLines, number)
	case detail.IsBranch && detail.ConditionCoverage != "" && detail.ConditionCoverage != "100%":
		f.PartialLines = append(f.PartialLines, number)
	default:
		f.CoveredLines = append(f.CoveredLines, number)
	}
}

// sortLineSets orders the three line sets ascending. Parsers call it once
// after all lines are recorded.
func (f *FileCoverage) sortLineSets() {
	sort.Ints(f.MissingLines)
	sort.Ints(f.CoveredLines)
	sort.Ints(f.PartialLines)
}

// MeetsThreshold reports whether the overall coverage is at or above the
// configured threshold.
func (m *CoverageModel) MeetsThreshold(threshold int) bool {
	return m.OverallPercent >= float64(threshold)
}

// Empty reports whether the model carries no per-file coverage data.
// An empty model means "no coverage data", which callers treat as nothing
// to do rather than a failure.
func (m *CoverageModel) Empty() bool {
	return m == nil || len(m.Files) == 0
}

func newCoverageModel(format SourceFormat) *CoverageModel {
	return &CoverageModel{
		SourceFormat: format,
		Files:        map[string]*FileCoverage{},
		Metadata:     map[string]interface{}{},
	}
}

// clampPercent forces a percentage into [0,100].
func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
