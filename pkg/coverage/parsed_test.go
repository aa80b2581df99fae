package coverage

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAndParse(t *testing.T) {
	t.Run("xml defaults to cobertura", func(t *testing.T) {
		result := DetectAndParse(writeReport(t, "coverage.xml", coberturaDoc), testLogger())
		assert.Equal(t, FormatCobertura, result.Format)
	})

	t.Run("jacoco marker tries jacoco first", func(t *testing.T) {
		result := DetectAndParse(writeReport(t, "jacoco.xml", jacocoDoc), testLogger())
		assert.Equal(t, FormatJaCoCo, result.Format)
	})

	t.Run("jacoco named file with cobertura export falls back", func(t *testing.T) {
		// JaCoCo's optional Cobertura-compatible XML export mode.
		result := DetectAndParse(writeReport(t, "jacocoTestReport.xml", coberturaDoc), testLogger())
		assert.Equal(t, FormatCobertura, result.Format)
	})

	t.Run("plain name holding a jacoco document falls back", func(t *testing.T) {
		result := DetectAndParse(writeReport(t, "coverage.xml", jacocoDoc), testLogger())
		assert.Equal(t, FormatJaCoCo, result.Format)
	})

	t.Run("json dispatches to the json parser", func(t *testing.T) {
		result := DetectAndParse(writeReport(t, "coverage.json", pytestDoc), testLogger())
		assert.Equal(t, FormatPytestJSON, result.Format)
	})

	t.Run("lcov tracefile is recognized but unimplemented", func(t *testing.T) {
		result := DetectAndParse(writeReport(t, "lcov.info", "SF:a\nend_of_record\n"), testLogger())
		assert.True(t, result.Empty())
	})

	t.Run("unknown extension yields empty result", func(t *testing.T) {
		result := DetectAndParse(writeReport(t, "coverage.txt", "hello"), testLogger())
		assert.True(t, result.Empty())
	})
}

func TestParsingIsIdempotent(t *testing.T) {
	path := writeReport(t, "coverage.xml", coberturaDoc)

	first := Normalize(DetectAndParse(path, testLogger()), testLogger())
	second := Normalize(DetectAndParse(path, testLogger()), testLogger())

	require.False(t, first.Empty())
	if !reflect.DeepEqual(first, second) {
		t.Error("parsing the same report twice should yield identical models")
	}
}
