package coverage

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// PytestReport is the format-specific intermediate for line-based coverage
// JSON (pytest-cov and friends): a top-level totals object plus a files map.
type PytestReport struct {
	OverallPercent float64
	Files          map[string]*FileCoverage
	Meta           map[string]interface{}
}

// IstanbulReport is the format-specific intermediate for instrumentation
// style JSON: a flat per-file statement-hit map.
type IstanbulReport struct {
	// OverallPercent is derived from the summed per-file line counts.
	OverallPercent float64
	Files          map[string]*FileCoverage
}

// istanbulExtensions are the source extensions the Istanbul shape is keyed
// by. Detection requires every top-level key to end in one of these.
var istanbulExtensions = []string{".js", ".jsx", ".ts", ".tsx"}

// pytestFileJSON is one entry of the pytest-cov files map.
type pytestFileJSON struct {
	Summary struct {
		PercentCovered float64 `json:"percent_covered"`
	} `json:"summary"`
	MissingLines  []int `json:"missing_lines"`
	ExecutedLines []int `json:"executed_lines"`
	CoveredLines  []int `json:"covered_lines"`
}

// istanbulFileJSON is one entry of the Istanbul per-file map.
type istanbulFileJSON struct {
	Statements   map[string]int                  `json:"s"`
	StatementMap map[string]istanbulStatementLoc `json:"statementMap"`
}

type istanbulStatementLoc struct {
	Start struct {
		Line int `json:"line"`
	} `json:"start"`
}

// ParseJSONReport disambiguates the two supported JSON shapes without an
// explicit format tag: a totals+files object is the line-based shape, a flat
// object keyed by source paths with statement maps is the instrumentation
// shape. Anything else yields the unsupported result plus a log entry.
func ParseJSONReport(path string, logger logrus.FieldLogger) *ParsedReport {
	fd, err := os.Open(path)
	if err != nil {
		logger.WithError(err).Errorf("read json report %s", path)
		return Unsupported()
	}
	defer fd.Close()

	data, err := readAllLimited(fd)
	if err != nil {
		logger.WithError(err).Errorf("read json report %s", path)
		return Unsupported()
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		logger.WithError(err).Errorf("unmarshal json report %s", path)
		return Unsupported()
	}

	if _, hasTotals := top["totals"]; hasTotals {
		if _, hasFiles := top["files"]; hasFiles {
			return parsePytestJSON(top, logger)
		}
	}

	if isIstanbulShape(top) {
		return parseIstanbulJSON(top, logger)
	}

	logger.Warnf("unrecognized json coverage shape in %s", path)
	return Unsupported()
}

func parsePytestJSON(top map[string]json.RawMessage, logger logrus.FieldLogger) *ParsedReport {
	report := &PytestReport{
		Files: map[string]*FileCoverage{},
		Meta:  map[string]interface{}{},
	}

	var totals struct {
		PercentCovered float64 `json:"percent_covered"`
	}
	if err := json.Unmarshal(top["totals"], &totals); err != nil {
		logger.WithError(err).Warn("malformed totals object, defaulting to 0")
	}
	report.OverallPercent = totals.PercentCovered

	if raw, ok := top["meta"]; ok {
		var meta map[string]interface{}
		if err := json.Unmarshal(raw, &meta); err == nil {
			report.Meta = meta
		}
	}

	var files map[string]pytestFileJSON
	if err := json.Unmarshal(top["files"], &files); err != nil {
		logger.WithError(err).Warn("malformed files object in json report")
		return &ParsedReport{Format: FormatPytestJSON, Pytest: report}
	}

	for path, entry := range files {
		file := NewFileCoverage()
		file.PercentCovered = entry.Summary.PercentCovered
		file.LineRate = entry.Summary.PercentCovered / 100

		executed := entry.ExecutedLines
		if len(executed) == 0 {
			executed = entry.CoveredLines
		}
		for _, line := range entry.MissingLines {
			if line > 0 {
				file.AddLine(line, LineDetail{Hits: 0})
			}
		}
		for _, line := range executed {
			if line > 0 {
				if _, seen := file.LineDetails[line]; !seen {
					file.AddLine(line, LineDetail{Hits: 1})
				}
			}
		}
		file.sortLineSets()
		report.Files[path] = file
	}

	return &ParsedReport{Format: FormatPytestJSON, Pytest: report}
}

// isIstanbulShape reports whether every top-level key looks like a source
// file path with a recognized extension.
func isIstanbulShape(top map[string]json.RawMessage) bool {
	if len(top) == 0 {
		return false
	}
	for key := range top {
		if !hasIstanbulExtension(key) {
			return false
		}
	}
	return true
}

func hasIstanbulExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range istanbulExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func parseIstanbulJSON(top map[string]json.RawMessage, logger logrus.FieldLogger) *ParsedReport {
	report := &IstanbulReport{Files: map[string]*FileCoverage{}}

	var totalLines, coveredLines int
	for path, raw := range top {
		var entry istanbulFileJSON
		if err := json.Unmarshal(raw, &entry); err != nil {
			logger.WithError(err).Warnf("malformed istanbul entry for %s, skipping", path)
			continue
		}
		if len(entry.Statements) == 0 || len(entry.StatementMap) == 0 {
			continue
		}

		// A line is covered when any statement starting on it was hit,
		// missing only when every statement on it went unexecuted.
		hitsByLine := map[int]int{}
		for id, count := range entry.Statements {
			loc, ok := entry.StatementMap[id]
			if !ok || loc.Start.Line <= 0 {
				continue
			}
			if prev, seen := hitsByLine[loc.Start.Line]; !seen || count > prev {
				hitsByLine[loc.Start.Line] = count
			}
		}
		if len(hitsByLine) == 0 {
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

		covered := len(file.CoveredLines)
		total := covered + len(file.MissingLines)
		file.LineRate = lineRatio(covered, total)
		file.PercentCovered = file.LineRate * 100

		coveredLines += covered
		totalLines += total
		report.Files[path] = file
	}

	report.OverallPercent = lineRatio(coveredLines, totalLines) * 100

	return &ParsedReport{Format: FormatIstanbul, Istanbul: report}
}
