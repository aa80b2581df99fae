package coverage

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coberturaDoc = `<?xml version="1.0" ?>
<coverage line-rate="0.75" branch-rate="0.5" lines-covered="9" lines-valid="12" branches-covered="2" branches-valid="4" timestamp="1700000000" version="7.3.2">
  <sources>
    <source>/repo/src</source>
  </sources>
  <packages>
    <package name="calculator" line-rate="0.75" branch-rate="0.5">
      <classes>
        <class name="calculator.calc" filename="src/calc.py" line-rate="0.75" branch-rate="0.5">
          <lines>
            <line number="1" hits="3"/>
            <line number="2" hits="0"/>
            <line number="3" hits="2" branch="true" condition-coverage="50% (1/2)"/>
            <line number="4" hits="5" branch="true" condition-coverage="100%"/>
            <line number="5" hits="0" branch="true" condition-coverage="0% (0/2)"/>
          </lines>
        </class>
      </classes>
    </package>
  </packages>
</coverage>
`

func writeReport(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write report: %s", err)
	}
	return path
}

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestParseCobertura(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		result := ParseCobertura(writeReport(t, "coverage.xml", coberturaDoc), testLogger())
		require.Equal(t, FormatCobertura, result.Format)
		require.NotNil(t, result.Cobertura)

		report := result.Cobertura
		assert.Equal(t, 12, report.Totals.LinesValid)
		assert.Equal(t, 9, report.Totals.LinesCovered)
		assert.Equal(t, 4, report.Totals.BranchesValid)
		assert.Equal(t, 2, report.Totals.BranchesCovered)
		assert.InDelta(t, 0.75, report.Totals.LineRate, 1e-9)
		assert.InDelta(t, 75.0, report.Totals.PercentCovered, 1e-9)
		assert.Equal(t, "1700000000", report.Timestamp)
		assert.Equal(t, []string{"/repo/src"}, report.SourcePaths)

		require.Len(t, report.Packages, 1)
		assert.InDelta(t, report.Packages[0].LineRate*100, report.Packages[0].PercentCovered, 1e-9)

		file, ok := report.Files["src/calc.py"]
		require.True(t, ok)
		assert.InDelta(t, file.LineRate*100, file.PercentCovered, 1e-9)
		assert.Equal(t, []int{2, 5}, file.MissingLines)
		assert.Equal(t, []int{3}, file.PartialLines)
		assert.Equal(t, []int{1, 4}, file.CoveredLines)
	})

	t.Run("line sets partition the line details", func(t *testing.T) {
		result := ParseCobertura(writeReport(t, "coverage.xml", coberturaDoc), testLogger())
		file := result.Cobertura.Files["src/calc.py"]

		seen := map[int]int{}
		for _, set := range [][]int{file.MissingLines, file.CoveredLines, file.PartialLines} {
			for _, line := range set {
				seen[line]++
			}
		}
		assert.Len(t, seen, len(file.LineDetails))
		for line, count := range seen {
			assert.Equal(t, 1, count, "line %d classified more than once", line)
			_, ok := file.LineDetails[line]
			assert.True(t, ok, "line %d missing from details", line)
		}
	})

	t.Run("line classification", func(t *testing.T) {
		cases := []struct {
			name   string
			detail LineDetail
			want   string
		}{
			{"zero hits is missing", LineDetail{Hits: 0}, "missing"},
			{"zero hits on a branch line is still missing", LineDetail{Hits: 0, IsBranch: true, ConditionCoverage: "50% (1/2)"}, "missing"},
			{"partial branch", LineDetail{Hits: 2, IsBranch: true, ConditionCoverage: "50% (1/2)"}, "partial"},
			{"fully covered branch", LineDetail{Hits: 2, IsBranch: true, ConditionCoverage: "100%"}, "covered"},
			{"branch without condition coverage", LineDetail{Hits: 2, IsBranch: true}, "covered"},
			{"plain covered line", LineDetail{Hits: 1}, "covered"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				file := NewFileCoverage()
				file.AddLine(10, tc.detail)
				got := "covered"
				if len(file.MissingLines) == 1 {
					got = "missing"
				} else if len(file.PartialLines) == 1 {
					got = "partial"
				}
				assert.Equal(t, tc.want, got)
			})
		}
	})

	t.Run("malformed line-rate degrades to zero totals", func(t *testing.T) {
		doc := `<coverage line-rate="not-a-number" branch-rate="also-bad"><packages/></coverage>`
		result := ParseCobertura(writeReport(t, "coverage.xml", doc), testLogger())
		require.Equal(t, FormatCobertura, result.Format)
		assert.Zero(t, result.Cobertura.Totals.LineRate)
		assert.Zero(t, result.Cobertura.Totals.BranchRate)
		assert.Zero(t, result.Cobertura.Totals.PercentCovered)
		assert.Zero(t, result.Cobertura.Totals.LinesValid)
	})

	t.Run("unknown root tag yields empty result", func(t *testing.T) {
		doc := `<notcoverage line-rate="0.9"></notcoverage>`
		result := ParseCobertura(writeReport(t, "coverage.xml", doc), testLogger())
		assert.Equal(t, FormatUnknown, result.Format)
		assert.True(t, result.Empty())
	})

	t.Run("unparseable xml yields empty result", func(t *testing.T) {
		result := ParseCobertura(writeReport(t, "coverage.xml", "<coverage><packages></coverage>"), testLogger())
		assert.True(t, result.Empty())
	})

	t.Run("missing file yields empty result", func(t *testing.T) {
		result := ParseCobertura(filepath.Join(t.TempDir(), "absent.xml"), testLogger())
		assert.True(t, result.Empty())
	})

	t.Run("doctype declaration is rejected", func(t *testing.T) {
		doc := `<?xml version="1.0"?>
<!DOCTYPE coverage [<!ENTITY xxe SYSTEM "file:///etc/passwd">]>
<coverage line-rate="0.5"><packages/></coverage>`
		result := ParseCobertura(writeReport(t, "coverage.xml", doc), testLogger())
		assert.Equal(t, FormatUnknown, result.Format)
		assert.True(t, result.Empty())
	})

	t.Run("single bad line attribute does not abort the document", func(t *testing.T) {
		doc := `<coverage line-rate="0.5">
  <packages><package name="p" line-rate="0.5" branch-rate="0">
    <classes><class name="c" filename="src/a.py" line-rate="0.5" branch-rate="0">
      <lines>
        <line number="1" hits="oops"/>
        <line number="2" hits="4"/>
      </lines>
    </class></classes>
  </package></packages>
</coverage>`
		result := ParseCobertura(writeReport(t, "coverage.xml", doc), testLogger())
		file := result.Cobertura.Files["src/a.py"]
		require.NotNil(t, file)
		// hits defaulted to 0, so line 1 counts as missing.
		assert.Equal(t, []int{1}, file.MissingLines)
		assert.Equal(t, []int{2}, file.CoveredLines)
	})
}

func TestFloatAttrTolerance(t *testing.T) {
	logger := testLogger()
	if got := floatAttr("0.875", logger, "line-rate"); math.Abs(got-0.875) > 1e-9 {
		t.Errorf("floatAttr = %f, want 0.875", got)
	}
	if got := floatAttr("", logger, "line-rate"); got != 0 {
		t.Errorf("empty attr should default to 0, got %f", got)
	}
	if got := intAttr("12x", logger, "hits"); got != 0 {
		t.Errorf("bad int attr should default to 0, got %d", got)
	}
}
