package coverage

import (
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Normalize converts a format-tagged parse result into the canonical
// CoverageModel. Each format's own aggregate percentage is taken as-is;
// normalization only guarantees all rates are expressed in [0,100], it does
// not reconcile the differing measurement methodologies.
func Normalize(report *ParsedReport, logger logrus.FieldLogger) *CoverageModel {
	if logger == nil {
		logger = logrus.New()
	}
	if report == nil {
		return newCoverageModel(FormatUnknown)
	}

	switch report.Format {
	case FormatCobertura:
		return normalizeCobertura(report.Cobertura)
	case FormatJaCoCo:
		return normalizeJaCoCo(report.JaCoCo)
	case FormatPytestJSON:
		return normalizePytest(report.Pytest)
	case FormatIstanbul:
		return normalizeIstanbul(report.Istanbul)
	case FormatGoProfile:
		return normalizeGoProfile(report.GoProfile)
	default:
		logger.Debug("normalizing unsupported parse result to empty model")
		return newCoverageModel(FormatUnknown)
	}
}

func normalizeCobertura(report *CoberturaReport) *CoverageModel {
	model := newCoverageModel(FormatCobertura)
	if report == nil {
		return model
	}
	model.OverallPercent = clampPercent(report.Totals.PercentCovered)
	for key, file := range report.Files {
		model.Files[key] = file
	}
	model.Metadata["timestamp"] = report.Timestamp
	model.Metadata["version"] = report.Version
	model.Metadata["source_paths"] = report.SourcePaths
	return model
}

func normalizeJaCoCo(report *JaCoCoReport) *CoverageModel {
	model := newCoverageModel(FormatJaCoCo)
	if report == nil {
		return model
	}
	model.OverallPercent = clampPercent(report.OverallPercent)
	model.jacocoCandidates = map[string][]string{}
	for _, file := range report.Files {
		// The most specific candidate doubles as the provisional key; the
		// reconciler later swaps in the first candidate that exists on disk.
		candidates := ResolveCandidates(file.Package, file.Filename)
		key := candidates[0]
		model.Files[key] = file.Coverage
		model.jacocoCandidates[key] = candidates
	}
	return model
}

func normalizePytest(report *PytestReport) *CoverageModel {
	model := newCoverageModel(FormatPytestJSON)
	if report == nil {
		return model
	}
	model.OverallPercent = clampPercent(report.OverallPercent)
	for key, file := range report.Files {
		model.Files[key] = file
	}
	for key, value := range report.Meta {
		model.Metadata[key] = value
	}
	return model
}

func normalizeIstanbul(report *IstanbulReport) *CoverageModel {
	model := newCoverageModel(FormatIstanbul)
	if report == nil {
		return model
	}
	model.OverallPercent = clampPercent(report.OverallPercent)
	for key, file := range report.Files {
		model.Files[key] = file
	}
	return model
}

func normalizeGoProfile(report *GoProfileReport) *CoverageModel {
	model := newCoverageModel(FormatGoProfile)
	if report == nil {
		return model
	}
	model.OverallPercent = clampPercent(report.OverallPercent)
	for key, file := range report.Files {
		model.Files[key] = file
	}
	return model
}

// sourceRootPrefix returns the source root as a path prefix, e.g. "src/".
func sourceRootPrefix(sourceRoot string) string {
	if sourceRoot == "" {
		return ""
	}
	return filepath.Clean(sourceRoot) + string(filepath.Separator)
}
