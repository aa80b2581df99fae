package coverage

import (
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
)

// SelectLowCoverage returns one LowCoverageArea per file whose coverage is
// strictly below the configured threshold, worst files first: high priority
// before medium, then ascending coverage within each tier. A file exactly at
// the threshold does not qualify.
//
// Files matching any of the config's exclude patterns are dropped before
// thresholding.
func SelectLowCoverage(model *CoverageModel, cfg AnalysisConfig, logger logrus.FieldLogger) []LowCoverageArea {
	if model == nil || len(model.Files) == 0 {
		return nil
	}
	if logger == nil {
		logger = logrus.New()
	}

	threshold := float64(cfg.Threshold)
	var areas []LowCoverageArea

	for key, file := range model.Files {
		if excluded(key, cfg.ExcludePatterns) {
			logger.Debugf("excluding %s from low-coverage selection", key)
			continue
		}
		if file.PercentCovered >= threshold {
			continue
		}

		priority := PriorityMedium
		if file.PercentCovered < threshold/2 {
			priority = PriorityHigh
		}
		missing := make([]int, len(file.MissingLines))
		copy(missing, file.MissingLines)

		areas = append(areas, LowCoverageArea{
			FileKey:         key,
			CurrentCoverage: file.PercentCovered,
			MissingLines:    missing,
			Priority:        priority,
		})
	}

	sort.Slice(areas, func(i, j int) bool {
		a, b := areas[i], areas[j]
		if a.Priority != b.Priority {
			return a.Priority == PriorityHigh
		}
		if a.CurrentCoverage != b.CurrentCoverage {
			return a.CurrentCoverage < b.CurrentCoverage
		}
		return a.FileKey < b.FileKey
	})

	return areas
}

// excluded reports whether a file key matches any doublestar pattern.
// Invalid patterns never match.
func excluded(key string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, key); err == nil && ok {
			return true
		}
	}
	return false
}
