package coverage

import (
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ParsedReport is the closed, format-tagged result of parsing one report
// file. Exactly one of the variant fields is set, matching Format; an
// unsupported or unparseable report carries FormatUnknown and no variant.
type ParsedReport struct {
	Format SourceFormat

	Cobertura *CoberturaReport
	JaCoCo    *JaCoCoReport
	Pytest    *PytestReport
	Istanbul  *IstanbulReport
	GoProfile *GoProfileReport
}

// Unsupported returns the empty parse result. Callers treat it as "no
// coverage data", never as an error.
func Unsupported() *ParsedReport {
	return &ParsedReport{Format: FormatUnknown}
}

// Empty reports whether the parse produced no per-file coverage.
func (r *ParsedReport) Empty() bool {
	if r == nil {
		return true
	}
	switch r.Format {
	case FormatCobertura:
		return r.Cobertura == nil || len(r.Cobertura.Files) == 0
	case FormatJaCoCo:
		return r.JaCoCo == nil || len(r.JaCoCo.Files) == 0
	case FormatPytestJSON:
		return r.Pytest == nil || len(r.Pytest.Files) == 0
	case FormatIstanbul:
		return r.Istanbul == nil || len(r.Istanbul.Files) == 0
	case FormatGoProfile:
		return r.GoProfile == nil || len(r.GoProfile.Files) == 0
	}
	return true
}

// jacocoMarker reports whether a report path carries a JaCoCo naming
// convention, which changes the XML parser ordering.
func jacocoMarker(path string) bool {
	return strings.Contains(strings.ToLower(path), "jacoco")
}

// DetectAndParse selects a parser for the report at path by extension and
// content heuristics and returns the format-tagged result. Failures of any
// kind degrade to the unsupported result plus a log entry; this function
// never returns an error.
//
// XML ordering: the generic Cobertura parser runs first unless the path
// carries a JaCoCo marker, in which case JaCoCo is attempted first. Either
// way the other XML parser serves as the fallback, which tolerates JaCoCo's
// Cobertura-compatible export mode.
func DetectAndParse(path string, logger logrus.FieldLogger) *ParsedReport {
	if logger == nil {
		logger = logrus.New()
	}
	logger = logger.WithField("source", "coverage")

	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".xml"):
		return parseXMLReport(path, logger)
	case strings.HasSuffix(name, ".json"):
		return ParseJSONReport(path, logger)
	case strings.HasSuffix(name, ".info"):
		return ParseLCOV(path, logger)
	case strings.HasSuffix(name, ".out"):
		return ParseGoProfile(path, logger)
	}

	logger.Warnf("unknown coverage report format: %s", path)
	return Unsupported()
}

func parseXMLReport(path string, logger logrus.FieldLogger) *ParsedReport {
	first, second := ParseCobertura, ParseJaCoCo
	if jacocoMarker(path) {
		first, second = second, first
	}

	if result := first(path, logger); !result.Empty() {
		return result
	}
	if result := second(path, logger); !result.Empty() {
		return result
	}
	return Unsupported()
}
