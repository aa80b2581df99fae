package generator

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```[a-zA-Z0-9+-]*\n(.*?)```")

// ExtractCode pulls the test code out of a model response. It returns the
// first fenced code block; when the response has no fences the whole trimmed
// response is returned, since some models skip them despite instructions.
func ExtractCode(response string) (string, bool) {
	if m := fencedBlockRe.FindStringSubmatch(response); m != nil {
		return strings.TrimRight(m[1], "\n") + "\n", true
	}
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return "", false
	}
	return trimmed + "\n", false
}

// TestFileName derives the conventional test file path for a source file,
// following each ecosystem's naming convention. The returned path is in the
// same directory as the source file.
func TestFileName(language, sourceFile string) string {
	dir := filepath.Dir(sourceFile)
	base := filepath.Base(sourceFile)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	var name string
	switch language {
	case "go":
		name = stem + "_test.go"
	case "python":
		name = "test_" + stem + ".py"
	case "java":
		name = upperFirst(stem) + "Test.java"
	case "typescript":
		name = stem + ".test.ts"
	default:
		name = stem + ".test.js"
	}
	return filepath.Join(dir, name)
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// GeneratedTest is one produced test file.
type GeneratedTest struct {
	// FileName is the path the test should be written to, relative to the
	// repository root when the source path was relative.
	FileName string
	// Content is the full test file contents.
	Content string
	// FunctionNames lists the uncovered functions the file targets.
	FunctionNames []string
	// Language is the source language the test is written for.
	Language string
}

// Summary renders a short human-readable description used in commit and pull
// request bodies.
func (t *GeneratedTest) Summary() string {
	return fmt.Sprintf("%s: tests for %s", t.FileName, strings.Join(t.FunctionNames, ", "))
}
