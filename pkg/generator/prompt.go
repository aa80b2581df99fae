package generator

import (
	"fmt"
	"strings"

	"github.com/coverpilot/coverpilot/pkg/analyzer"
)

// systemPrompts carries the per-language generation instructions. Each one
// names the test framework the generated file must target.
var systemPrompts = map[string]string{
	"go": "You are an expert Go engineer. Write table-driven tests using the " +
		"standard testing package and github.com/stretchr/testify assertions. " +
		"Respond with a single fenced Go code block containing one complete test file.",
	"python": "You are an expert Python engineer. Write pytest tests covering the " +
		"uncovered lines, including edge cases and error paths. " +
		"Respond with a single fenced Python code block containing one complete test file.",
	"javascript": "You are an expert JavaScript engineer. Write Jest tests covering the " +
		"uncovered lines, including edge cases and error paths. " +
		"Respond with a single fenced JavaScript code block containing one complete test file.",
	"typescript": "You are an expert TypeScript engineer. Write Jest tests covering the " +
		"uncovered lines, including edge cases and error paths. " +
		"Respond with a single fenced TypeScript code block containing one complete test file.",
	"java": "You are an expert Java engineer. Write JUnit 5 tests covering the " +
		"uncovered lines, including edge cases and error paths. " +
		"Respond with a single fenced Java code block containing one complete test file.",
}

const defaultSystemPrompt = "You are an expert software engineer. Write unit tests " +
	"covering the uncovered lines. Respond with a single fenced code block " +
	"containing one complete test file."

// SystemPrompt returns the generation instructions for a language.
func SystemPrompt(language string) string {
	if prompt, ok := systemPrompts[language]; ok {
		return prompt
	}
	return defaultSystemPrompt
}

// contextPadding is how many lines around the function are included so the
// model sees imports, helpers and types the function touches.
const contextPadding = 10

// BuildPrompt renders the user prompt for one uncovered function. source is
// the full file split into lines; it may be nil when the file could not be
// read, in which case only the metadata is included.
func BuildPrompt(fn analyzer.UncoveredFunction, source []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate unit tests for the %s `%s` in %s.\n\n", fn.Kind, fn.Name, fn.File)
	fmt.Fprintf(&b, "Signature: %s\n", fn.Signature)
	if fn.Doc != "" {
		fmt.Fprintf(&b, "Documentation: %s\n", fn.Doc)
	}
	fmt.Fprintf(&b, "Complexity: %s\n", fn.Complexity)
	fmt.Fprintf(&b, "Uncovered: %.1f%% of its lines have no test coverage.\n", fn.UncoveredPercent)
	fmt.Fprintf(&b, "Missing lines: %s\n", joinInts(fn.MissingLines))
	if len(fn.Dependencies) > 0 {
		fmt.Fprintf(&b, "Calls: %s\n", strings.Join(fn.Dependencies, ", "))
	}

	if snippet := sourceContext(source, fn.StartLine, fn.EndLine); snippet != "" {
		fmt.Fprintf(&b, "\nSource context (lines are numbered, the function spans %d-%d):\n", fn.StartLine, fn.EndLine)
		fmt.Fprintf(&b, "```%s\n%s\n```\n", fn.Language, snippet)
	}

	b.WriteString("\nFocus the tests on the missing lines. Include edge cases and error paths.")
	return b.String()
}

// sourceContext returns the numbered lines around [startLine, endLine].
func sourceContext(source []string, startLine, endLine int) string {
	if len(source) == 0 {
		return ""
	}
	from := startLine - contextPadding
	if from < 1 {
		from = 1
	}
	to := endLine + contextPadding
	if to > len(source) {
		to = len(source)
	}

	var lines []string
	for i := from; i <= to; i++ {
		lines = append(lines, fmt.Sprintf("%4d  %s", i, source[i-1]))
	}
	return strings.Join(lines, "\n")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
