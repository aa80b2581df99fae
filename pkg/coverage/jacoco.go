package coverage

import (
	"encoding/xml"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// jacocoXML mirrors JaCoCo's native report schema.
type jacocoXML struct {
	XMLName  xml.Name           `xml:"report"`
	Name     string             `xml:"name,attr"`
	Packages []jacocoPackageXML `xml:"package"`
	Counters []jacocoCounterXML `xml:"counter"`
}

type jacocoPackageXML struct {
	Name        string              `xml:"name,attr"`
	SourceFiles []jacocoSourceXML   `xml:"sourcefile"`
	Counters    []jacocoCounterXML  `xml:"counter"`
}

type jacocoSourceXML struct {
	Name     string             `xml:"name,attr"`
	Lines    []jacocoLineXML    `xml:"line"`
	Counters []jacocoCounterXML `xml:"counter"`
}

type jacocoLineXML struct {
	Nr string `xml:"nr,attr"`
	Mi string `xml:"mi,attr"`
	Ci string `xml:"ci,attr"`
}

type jacocoCounterXML struct {
	Type    string `xml:"type,attr"`
	Missed  string `xml:"missed,attr"`
	Covered string `xml:"covered,attr"`
}

// JaCoCoFile is one source file from a JaCoCo report together with its
// slash-normalized package, kept separate so candidate source paths can be
// derived without touching the filesystem during parsing.
type JaCoCoFile struct {
	Package  string
	Filename string
	Coverage *FileCoverage
}

// JaCoCoReport is the format-specific intermediate for JaCoCo XML.
type JaCoCoReport struct {
	// OverallPercent is derived from the summed per-file LINE counters,
	// not from a declared rate.
	OverallPercent float64
	Files          []*JaCoCoFile
}

// ParseJaCoCo parses a JaCoCo XML report in its native schema. Documents
// with a different root tag, entity declarations, or unparseable markup
// yield the unsupported result plus a log entry.
func ParseJaCoCo(path string, logger logrus.FieldLogger) *ParsedReport {
	data, err := readHardenedXML(path)
	if err != nil {
		logger.WithError(err).Errorf("read jacoco report %s", path)
		return Unsupported()
	}

	root, err := xmlRootTag(data)
	if err != nil {
		logger.WithError(err).Errorf("parse jacoco report %s", path)
		return Unsupported()
	}
	if root != "report" {
		logger.Debugf("not a jacoco report %s: root tag is %q", path, root)
		return Unsupported()
	}

	var doc jacocoXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		logger.WithError(err).Errorf("unmarshal jacoco report %s", path)
		return Unsupported()
	}

	report := &JaCoCoReport{}
	var totalMissed, totalCovered int

	for _, pkg := range doc.Packages {
		pkgName := NormalizeJavaPackage(pkg.Name)

		for _, src := range pkg.SourceFiles {
			if src.Name == "" {
				continue
			}
			file := NewFileCoverage()

			if len(src.Lines) > 0 {
				for _, line := range src.Lines {
					nr := intAttr(line.Nr, logger, "nr")
					if nr <= 0 {
						continue
					}
					// Covered instructions decide the line state; JaCoCo has
					// no per-line hit count, so covered lines carry hits=1.
					ci := intAttr(line.Ci, logger, "ci")
					hits := 0
					if ci > 0 {
						hits = 1
					}
					file.AddLine(nr, LineDetail{Hits: hits})
				}
				file.sortLineSets()
				covered := len(file.CoveredLines)
				missed := len(file.MissingLines)
				file.LineRate = lineRatio(covered, covered+missed)
				totalCovered += covered
				totalMissed += missed
			} else {
				// No per-line detail, fall back to the file's LINE counter.
				missed, covered, ok := lineCounter(src.Counters, logger)
				if !ok {
					logger.Debugf("jacoco sourcefile %s/%s has no line data", pkgName, src.Name)
				}
				file.LineRate = lineRatio(covered, covered+missed)
				totalCovered += covered
				totalMissed += missed
			}
			file.PercentCovered = file.LineRate * 100

			report.Files = append(report.Files, &JaCoCoFile{
				Package:  pkgName,
				Filename: src.Name,
				Coverage: file,
			})
		}
	}

	report.OverallPercent = lineRatio(totalCovered, totalCovered+totalMissed) * 100

	return &ParsedReport{Format: FormatJaCoCo, JaCoCo: report}
}

// NormalizeJavaPackage converts dot-separated package names to the
// slash-separated form JaCoCo path candidates are built from.
func NormalizeJavaPackage(pkg string) string {
	return strings.ReplaceAll(pkg, ".", "/")
}

// ResolveCandidates returns the candidate source paths for a JaCoCo
// package/filename pair, in descending specificity. It is a pure function;
// filesystem existence checking is isolated to the reconciler.
func ResolveCandidates(pkg, filename string) []string {
	pkg = NormalizeJavaPackage(pkg)
	if pkg == "" {
		return []string{
			filepath.Join("src", "main", "java", filename),
			filepath.Join("src", filename),
			filename,
		}
	}
	return []string{
		filepath.Join(pkg, filename),
		filepath.Join("src", "main", "java", pkg, filename),
		filepath.Join("src", pkg, filename),
		filepath.Join("src", "main", "java", filename),
		filepath.Join("src", filename),
		filename,
	}
}

func lineCounter(counters []jacocoCounterXML, logger logrus.FieldLogger) (missed, covered int, ok bool) {
	for _, c := range counters {
		if c.Type == "LINE" {
			return intAttr(c.Missed, logger, "missed"), intAttr(c.Covered, logger, "covered"), true
		}
	}
	return 0, 0, false
}

func lineRatio(covered, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total)
}
