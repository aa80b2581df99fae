package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/coverpilot/coverpilot/pkg/analyzer"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	responses []string
	errs      []error
	calls     int

	systemPrompts []string
	userPrompts   []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.systemPrompts = append(f.systemPrompts, systemPrompt)
	f.userPrompts = append(f.userPrompts, userPrompt)
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", nil
}

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func uncoveredFn(name, file, language string, priority int) analyzer.UncoveredFunction {
	return analyzer.UncoveredFunction{
		Function: analyzer.Function{
			Name:       name,
			Kind:       analyzer.KindFunction,
			StartLine:  3,
			EndLine:    5,
			Signature:  "def " + name + "()",
			Complexity: analyzer.ComplexityLow,
		},
		File:             file,
		Language:         language,
		MissingLines:     []int{4},
		UncoveredPercent: 66.7,
		Priority:         priority,
	}
}

func TestGenerateTests(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "calc.py")
	require.NoError(t, os.WriteFile(source, []byte("import os\n\ndef add(a, b):\n    total = a + b\n    return total\n"), 0o644))

	provider := &fakeProvider{responses: []string{
		"Here are the tests:\n```python\ndef test_add():\n    assert add(1, 2) == 3\n```\n",
	}}
	g := NewWithProvider(Config{}, provider, testLogger())

	tests, err := g.GenerateTests(context.Background(), []analyzer.UncoveredFunction{
		uncoveredFn("add", source, "python", 90),
	})
	require.NoError(t, err)
	require.Len(t, tests, 1)

	assert.Equal(t, filepath.Join(root, "test_calc.py"), tests[0].FileName)
	assert.Equal(t, "def test_add():\n    assert add(1, 2) == 3\n", tests[0].Content)
	assert.Equal(t, []string{"add"}, tests[0].FunctionNames)

	require.Len(t, provider.userPrompts, 1)
	assert.Contains(t, provider.userPrompts[0], "`add`")
	assert.Contains(t, provider.userPrompts[0], "Missing lines: 4")
	// Surrounding context includes the import above the function.
	assert.Contains(t, provider.userPrompts[0], "import os")
	assert.Contains(t, provider.systemPrompts[0], "pytest")
}

func TestGenerateTestsGroupsByFile(t *testing.T) {
	provider := &fakeProvider{responses: []string{"```go\nfunc TestBoth(t *testing.T) {}\n```"}}
	g := NewWithProvider(Config{}, provider, testLogger())

	tests, err := g.GenerateTests(context.Background(), []analyzer.UncoveredFunction{
		uncoveredFn("Add", "pkg/calc.go", "go", 90),
		uncoveredFn("Sub", "pkg/calc.go", "go", 80),
	})
	require.NoError(t, err)
	require.Len(t, tests, 1)

	// One completion serves both functions of the file.
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, []string{"Add", "Sub"}, tests[0].FunctionNames)
	assert.Equal(t, filepath.Join("pkg", "calc_test.go"), tests[0].FileName)
	assert.Contains(t, provider.userPrompts[0], "one test file covering all the functions")
}

func TestGenerateTestsSkipsFailedFiles(t *testing.T) {
	provider := &fakeProvider{
		errs:      []error{errors.New("rate limited"), nil},
		responses: []string{"", "```python\ndef test_b(): pass\n```"},
	}
	g := NewWithProvider(Config{}, provider, testLogger())

	tests, err := g.GenerateTests(context.Background(), []analyzer.UncoveredFunction{
		uncoveredFn("a", "a.py", "python", 90),
		uncoveredFn("b", "b.py", "python", 80),
	})
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, []string{"b"}, tests[0].FunctionNames)
}

func TestGenerateTestsAllFailed(t *testing.T) {
	provider := &fakeProvider{errs: []error{errors.New("boom")}}
	g := NewWithProvider(Config{}, provider, testLogger())

	_, err := g.GenerateTests(context.Background(), []analyzer.UncoveredFunction{
		uncoveredFn("a", "a.py", "python", 90),
	})
	assert.ErrorContains(t, err, "boom")
}

func TestGenerateTestsHonorsMaxFunctions(t *testing.T) {
	provider := &fakeProvider{responses: []string{"```python\ndef test_a(): pass\n```"}}
	g := NewWithProvider(Config{MaxFunctions: 1}, provider, testLogger())

	tests, err := g.GenerateTests(context.Background(), []analyzer.UncoveredFunction{
		uncoveredFn("a", "a.py", "python", 90),
		uncoveredFn("b", "b.py", "python", 80),
	})
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, 1, provider.calls)
}

func TestExtractCode(t *testing.T) {
	t.Run("fenced block", func(t *testing.T) {
		code, fenced := ExtractCode("intro\n```go\nfunc TestX(t *testing.T) {}\n```\noutro")
		assert.True(t, fenced)
		assert.Equal(t, "func TestX(t *testing.T) {}\n", code)
	})

	t.Run("first of several blocks wins", func(t *testing.T) {
		code, fenced := ExtractCode("```python\nfirst\n```\n```python\nsecond\n```")
		assert.True(t, fenced)
		assert.Equal(t, "first\n", code)
	})

	t.Run("no fences falls back to raw text", func(t *testing.T) {
		code, fenced := ExtractCode("def test_a():\n    pass")
		assert.False(t, fenced)
		assert.Equal(t, "def test_a():\n    pass\n", code)
	})

	t.Run("empty response", func(t *testing.T) {
		code, fenced := ExtractCode("   \n")
		assert.False(t, fenced)
		assert.Empty(t, code)
	})
}

func TestTestFileName(t *testing.T) {
	cases := []struct {
		language string
		source   string
		want     string
	}{
		{"go", "pkg/calc.go", filepath.Join("pkg", "calc_test.go")},
		{"python", "src/calc.py", filepath.Join("src", "test_calc.py")},
		{"java", "src/main/java/simpleCalculator.java", filepath.Join("src", "main", "java", "SimpleCalculatorTest.java")},
		{"javascript", "src/app.js", filepath.Join("src", "app.test.js")},
		{"typescript", "src/app.ts", filepath.Join("src", "app.test.ts")},
	}
	for _, tc := range cases {
		t.Run(tc.language, func(t *testing.T) {
			assert.Equal(t, tc.want, TestFileName(tc.language, tc.source))
		})
	}
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Type: ProviderTypeAnthropic})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewProvider(ProviderConfig{Type: ProviderTypeOpenAI})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewProvider(ProviderConfig{Type: "gemini", APIKey: "k"})
	assert.ErrorContains(t, err, "unsupported provider type")
}

func TestNewProviderDefaults(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Type: ProviderTypeAnthropic, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	// Empty type defaults to OpenAI.
	p, err = NewProvider(ProviderConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}
