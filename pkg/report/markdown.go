package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// MDGen renders the gap statistics as markdown, suitable for pull request
// comments.
type MDGen struct {
	// outputPath report path
	outputPath string
	// reportName report name
	reportName string
	// logger
	logger logrus.FieldLogger
}

var _ ReportGenerator = (*MDGen)(nil)

// NewMDReportGenerator creates a markdown report generator.
func NewMDReportGenerator(
	outputPath string,
	reportName string,
	logger logrus.FieldLogger,
) *MDGen {
	return &MDGen{
		outputPath: outputPath,
		reportName: reportName,
		logger:     logger,
	}
}

func (md *MDGen) GenerateReport(statistics *Statistics) error {
	reportFile := filepath.Join(md.outputPath, fmt.Sprintf("%s.md", md.reportName))
	f, err := os.Create(reportFile)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(md.Render(statistics)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	md.logger.Debugf("generate markdown report to %s", reportFile)
	return nil
}

// Render produces the markdown body. It is used both for the report file and
// for pull request comments.
func (md *MDGen) Render(statistics *Statistics) string {
	if len(statistics.LowCoverageFiles) == 0 {
		return "#### :+1: Congrats! Every analyzed file meets the coverage threshold. :green_circle:"
	}

	report := []string{
		fmt.Sprintf("#### Coverage gaps (overall %.2f%%, threshold %.0f%%):\n", statistics.OverallPercent, statistics.Threshold),
	}

	for _, profile := range statistics.LowCoverageFiles {
		report = append(report, "<details>\n")
		report = append(report, fmt.Sprintf("<summary>%s %.1f%% %s</summary>\n", profile.FileName, profile.PercentCovered, coverageCircle(profile.PercentCovered)))
		report = append(report, fmt.Sprintf("Priority: %s, missing lines: %s\n", profile.Priority, lineRanges(profile.MissingLines)))
		report = append(report, "</details>\n")
	}

	if len(statistics.GeneratedTests) > 0 {
		report = append(report, "#### Generated tests:\n")
		for _, test := range statistics.GeneratedTests {
			report = append(report, fmt.Sprintf("- `%s`", test))
		}
	}

	return strings.Join(report, "\n")
}

func coverageCircle(percent float64) string {
	switch {
	case percent > 75:
		return ":yellow_circle:"
	case percent > 50:
		return ":orange_circle:"
	default:
		return ":red_circle:"
	}
}

// lineRanges collapses ascending line numbers into "3-5, 9, 12-13" form.
func lineRanges(lines []int) string {
	if len(lines) == 0 {
		return ""
	}

	var ranges []string
	start, end := lines[0], lines[0]
	for _, line := range lines[1:] {
		if line == end+1 {
			end = line
			continue
		}
		ranges = append(ranges, formatRange(start, end))
		start, end = line, line
	}
	ranges = append(ranges, formatRange(start, end))
	return strings.Join(ranges, ", ")
}

func formatRange(start, end int) string {
	if start == end {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}
