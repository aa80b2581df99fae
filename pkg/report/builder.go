package report

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/coverpilot/coverpilot/pkg/coverage"
)

const (
	// sectionGap is the largest covered-line run that still joins two
	// missing lines into the same section.
	sectionGap = 3
	// sectionContext is how many surrounding lines each section includes.
	sectionContext = 2
)

// BuildStatistics assembles report statistics from a reconciled coverage
// model and its selected low-coverage areas. Source contents are read from
// disk relative to workdir; unreadable files keep their line numbers but
// render without snippets.
func BuildStatistics(model *coverage.CoverageModel, areas []coverage.LowCoverageArea, cfg coverage.AnalysisConfig, workdir string) *Statistics {
	statistics := &Statistics{
		SourceFormat:   model.SourceFormat,
		OverallPercent: model.OverallPercent,
		Threshold:      float64(cfg.Threshold),
		TotalFiles:     len(model.Files),
		ExcludedFiles:  cfg.ExcludePatterns,
	}

	for _, area := range areas {
		profile := &FileProfile{
			FileName:       area.FileKey,
			PercentCovered: area.CurrentCoverage,
			Priority:       area.Priority,
			MissingLines:   area.MissingLines,
		}
		profile.MissingSections = buildSections(area.MissingLines, readSource(area.FileKey, workdir))
		statistics.LowCoverageFiles = append(statistics.LowCoverageFiles, profile)
	}
	return statistics
}

func readSource(path, workdir string) []string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(workdir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
}

// buildSections groups ascending missing lines into contiguous sections and
// attaches the surrounding source lines when available.
func buildSections(missingLines []int, source []string) []*MissingSection {
	if len(missingLines) == 0 {
		return nil
	}

	var sections []*MissingSection
	current := &MissingSection{MissingLines: []int{missingLines[0]}}
	for _, line := range missingLines[1:] {
		last := current.MissingLines[len(current.MissingLines)-1]
		if line-last > sectionGap {
			sections = append(sections, current)
			current = &MissingSection{MissingLines: []int{line}}
			continue
		}
		current.MissingLines = append(current.MissingLines, line)
	}
	sections = append(sections, current)

	for _, section := range sections {
		section.StartLine = section.MissingLines[0] - sectionContext
		if section.StartLine < 1 {
			section.StartLine = 1
		}
		section.EndLine = section.MissingLines[len(section.MissingLines)-1] + sectionContext
		if len(source) > 0 {
			if section.EndLine > len(source) {
				section.EndLine = len(source)
			}
			if section.StartLine <= len(source) {
				section.Contents = source[section.StartLine-1 : section.EndLine]
			}
		}
	}
	return sections
}
