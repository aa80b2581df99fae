package coverage

import (
	"bytes"
	"encoding/xml"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrEntityExpansion marks an XML document that declares a DTD or entity,
// which is rejected outright as an untrusted-input defense.
var ErrEntityExpansion = errors.New("xml document declares doctype or entity")

// coberturaXML mirrors the Cobertura document shape. Numeric attributes stay
// strings so a single bad value degrades to zero instead of failing the
// whole document.
type coberturaXML struct {
	XMLName         xml.Name `xml:"coverage"`
	LineRate        string   `xml:"line-rate,attr"`
	BranchRate      string   `xml:"branch-rate,attr"`
	LinesCovered    string   `xml:"lines-covered,attr"`
	LinesValid      string   `xml:"lines-valid,attr"`
	BranchesCovered string   `xml:"branches-covered,attr"`
	BranchesValid   string   `xml:"branches-valid,attr"`
	Timestamp       string   `xml:"timestamp,attr"`
	Version         string   `xml:"version,attr"`
	Sources         struct {
		Source []string `xml:"source"`
	} `xml:"sources"`
	Packages []coberturaPackageXML `xml:"packages>package"`
}

type coberturaPackageXML struct {
	Name       string              `xml:"name,attr"`
	LineRate   string              `xml:"line-rate,attr"`
	BranchRate string              `xml:"branch-rate,attr"`
	Classes    []coberturaClassXML `xml:"classes>class"`
}

type coberturaClassXML struct {
	Name       string             `xml:"name,attr"`
	Filename   string             `xml:"filename,attr"`
	LineRate   string             `xml:"line-rate,attr"`
	BranchRate string             `xml:"branch-rate,attr"`
	Lines      []coberturaLineXML `xml:"lines>line"`
}

type coberturaLineXML struct {
	Number            string `xml:"number,attr"`
	Hits              string `xml:"hits,attr"`
	Branch            string `xml:"branch,attr"`
	ConditionCoverage string `xml:"condition-coverage,attr"`
}

// CoberturaTotals carries the declared overall metrics of a Cobertura
// document.
type CoberturaTotals struct {
	LinesValid      int
	LinesCovered    int
	LineRate        float64
	BranchesValid   int
	BranchesCovered int
	BranchRate      float64
	PercentCovered  float64
}

// CoberturaPackageSummary is the per-package roll-up.
type CoberturaPackageSummary struct {
	Name           string
	LineRate       float64
	BranchRate     float64
	PercentCovered float64
}

// CoberturaReport is the format-specific intermediate for Cobertura XML.
type CoberturaReport struct {
	Totals      CoberturaTotals
	Packages    []CoberturaPackageSummary
	Files       map[string]*FileCoverage
	Timestamp   string
	Version     string
	SourcePaths []string
}

// ParseCobertura parses a Cobertura XML report. Any structural or I/O
// failure, including an unexpected root tag, yields the unsupported result
// plus a log entry; a single malformed numeric attribute degrades to zero
// and parsing continues.
func ParseCobertura(path string, logger logrus.FieldLogger) *ParsedReport {
	data, err := readHardenedXML(path)
	if err != nil {
		logger.WithError(err).Errorf("read cobertura report %s", path)
		return Unsupported()
	}

	root, err := xmlRootTag(data)
	if err != nil {
		logger.WithError(err).Errorf("parse cobertura report %s", path)
		return Unsupported()
	}
	if root != "coverage" {
		logger.Errorf("invalid cobertura format in %s: root tag is %q, expected \"coverage\"", path, root)
		return Unsupported()
	}

	var doc coberturaXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		logger.WithError(err).Errorf("unmarshal cobertura report %s", path)
		return Unsupported()
	}

	report := &CoberturaReport{
		Files:     map[string]*FileCoverage{},
		Timestamp: doc.Timestamp,
		Version:   doc.Version,
	}
	for _, s := range doc.Sources.Source {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			report.SourcePaths = append(report.SourcePaths, trimmed)
		}
	}

	lineRate := floatAttr(doc.LineRate, logger, "line-rate")
	report.Totals = CoberturaTotals{
		LinesValid:      intAttr(doc.LinesValid, logger, "lines-valid"),
		LinesCovered:    intAttr(doc.LinesCovered, logger, "lines-covered"),
		LineRate:        lineRate,
		BranchesValid:   intAttr(doc.BranchesValid, logger, "branches-valid"),
		BranchesCovered: intAttr(doc.BranchesCovered, logger, "branches-covered"),
		BranchRate:      floatAttr(doc.BranchRate, logger, "branch-rate"),
		PercentCovered:  lineRate * 100,
	}

	for _, pkg := range doc.Packages {
		pkgLineRate := floatAttr(pkg.LineRate, logger, "line-rate")
		report.Packages = append(report.Packages, CoberturaPackageSummary{
			Name:           pkg.Name,
			LineRate:       pkgLineRate,
			BranchRate:     floatAttr(pkg.BranchRate, logger, "branch-rate"),
			PercentCovered: pkgLineRate * 100,
		})

		for _, class := range pkg.Classes {
			if class.Filename == "" {
				continue
			}
			file := NewFileCoverage()
			file.LineRate = floatAttr(class.LineRate, logger, "line-rate")
			file.BranchRate = floatAttr(class.BranchRate, logger, "branch-rate")
			file.PercentCovered = file.LineRate * 100

			for _, line := range class.Lines {
				number := intAttr(line.Number, logger, "number")
				if number <= 0 {
					continue
				}
				file.AddLine(number, LineDetail{
					Hits:              intAttr(line.Hits, logger, "hits"),
					IsBranch:          strings.EqualFold(line.Branch, "true"),
					ConditionCoverage: line.ConditionCoverage,
				})
			}
			file.sortLineSets()
			report.Files[class.Filename] = file
		}
	}

	return &ParsedReport{Format: FormatCobertura, Cobertura: report}
}

// readHardenedXML reads the report bytes and rejects any document carrying a
// DTD or entity declaration before it ever reaches the decoder.
func readHardenedXML(path string) ([]byte, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	data, err := readAllLimited(fd)
	if err != nil {
		return nil, err
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = true
	for {
		token, err := decoder.Token()
		if err != nil {
			// Leave malformed markup to the unmarshal step so its
			// diagnostics carry the position.
			break
		}
		if directive, ok := token.(xml.Directive); ok {
			upper := strings.ToUpper(string(directive))
			if strings.Contains(upper, "DOCTYPE") || strings.Contains(upper, "ENTITY") {
				return nil, ErrEntityExpansion
			}
		}
	}
	return data, nil
}

// xmlRootTag returns the local name of the document's first start element.
func xmlRootTag(data []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err != nil {
			return "", err
		}
		if start, ok := token.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// floatAttr converts a numeric attribute, degrading to 0 on failure.
// A bad attribute is a field-level failure, not a document-level one.
func floatAttr(s string, logger logrus.FieldLogger, name string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		logger.Warnf("non-numeric %s attribute %q, defaulting to 0", name, s)
		return 0
	}
	return v
}

func intAttr(s string, logger logrus.FieldLogger, name string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		logger.Warnf("non-numeric %s attribute %q, defaulting to 0", name, s)
		return 0
	}
	return v
}
