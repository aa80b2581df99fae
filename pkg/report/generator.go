package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/sirupsen/logrus"
)

// ReportGenerator represents the feature that generates a coverage gap report.
type ReportGenerator interface {
	GenerateReport(statistics *Statistics) error
}

// htmlReportGenerator implements a html style report generator.
type htmlReportGenerator struct {
	// style for code snippets
	style *chroma.Style
	// outputPath report path
	outputPath string
	// reportName report name
	reportName string
	// logger
	logger logrus.FieldLogger
}

var _ ReportGenerator = (*htmlReportGenerator)(nil)

// codeHighlightColor background color for those uncovered code lines.
const codeHighlightColor = "bg:#ffcccc"

// NewReportGenerator creates a html report generator to generate html
// coverage gap report. We will use https://pygments.org/docs/styles to style
// the output, and use https://github.com/alecthomas/chroma to generate the
// code snippets.
func NewReportGenerator(
	codeStyle string,
	outputPath string,
	reportName string,
	logger logrus.FieldLogger,
) ReportGenerator {
	style := styles.Get(codeStyle)
	if style == nil {
		style = styles.Fallback
	}

	builder := style.Builder().Add(chroma.LineHighlight, codeHighlightColor)
	if s, err := builder.Build(); err == nil {
		style = s
	}

	return &htmlReportGenerator{
		style:      style,
		outputPath: outputPath,
		reportName: reportName,
		logger:     logger,
	}
}

// GenerateReport processes the gap statistics and writes the final html
// report.
func (g *htmlReportGenerator) GenerateReport(statistics *Statistics) error {
	err := g.processCodeSnippets(statistics)
	if err != nil {
		return fmt.Errorf("process code snippets: %w", err)
	}

	reportFile := filepath.Join(g.outputPath, finalName(g.reportName))
	f, err := os.Create(reportFile)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	err = htmlGapReportTemplate.Execute(f, statistics)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	g.logger.Debugf("generate html report to %s", reportFile)
	return nil
}

// processCodeSnippets renders each missing section into a highlighted code
// snippet showing the concrete lines that lack test coverage. The lexer is
// matched per file, since reports mix languages.
func (g *htmlReportGenerator) processCodeSnippets(statistics *Statistics) error {
	for _, profile := range statistics.LowCoverageFiles {
		lexer := lexerFor(profile.FileName)

		for _, section := range profile.MissingSections {
			if len(section.Contents) == 0 {
				continue
			}

			iter, err := lexer.Tokenise(nil, strings.Join(section.Contents, "\n"))
			if err != nil {
				return fmt.Errorf("tokenise failed: %w", err)
			}

			var hlLines [][2]int
			for _, line := range section.MissingLines {
				hlLines = append(hlLines, [2]int{line, line})
			}

			formatter := html.New(
				html.WithLineNumbers(true),
				html.LineNumbersInTable(true),
				html.BaseLineNumber(section.StartLine),
				html.WithLinkableLineNumbers(true, ""),
				html.HighlightLines(hlLines),
			)

			var buf bytes.Buffer
			err = formatter.Format(&buf, g.style, iter)
			if err != nil {
				return fmt.Errorf("format code snippet: %w", err)
			}

			profile.CodeSnippet = append(profile.CodeSnippet, template.HTML(buf.String()))
		}
	}
	return nil
}

func lexerFor(filename string) chroma.Lexer {
	lexer := lexers.Match(filepath.Base(filename))
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return lexer
}

func finalName(reportName string) string {
	return fmt.Sprintf("%s.html", reportName)
}

// htmlGapReportTemplate is the render engine for the html gap report.
var htmlGapReportTemplate = template.Must(
	template.New("htmlGapReportTemplate").
		Funcs(template.FuncMap{"IntsJoin": intsJoin}).
		Funcs(template.FuncMap{"NormalizeFiles": normalizeFiles}).
		Parse(htmlGapReport),
)

// intsJoin returns string that a int slice join with ,
func intsJoin(inputs []int) string {
	var s []string
	for _, i := range inputs {
		s = append(s, fmt.Sprintf("%d", i))
	}
	return strings.Join(s, ",")
}

// normalizeFiles pluralizes the noun if number is greater than one.
func normalizeFiles(files int) string {
	if files < 2 {
		return fmt.Sprintf("%d file", files)
	}
	return fmt.Sprintf("%d files", files)
}
