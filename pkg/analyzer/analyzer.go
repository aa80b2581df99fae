// Package analyzer maps missing coverage lines onto the function and method
// boundaries of the source files they belong to, producing the ranked list
// of uncovered functions that test generation consumes.
package analyzer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coverpilot/coverpilot/pkg/coverage"
	"github.com/sirupsen/logrus"
)

// FunctionKind distinguishes what a structural unit is.
type FunctionKind string

const (
	KindFunction FunctionKind = "function"
	KindMethod   FunctionKind = "method"
	KindClass    FunctionKind = "class"
)

// Complexity is a coarse cyclomatic bucket.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Function is one structural unit of a source file.
type Function struct {
	Name         string
	Kind         FunctionKind
	StartLine    int
	EndLine      int
	Signature    string
	Doc          string
	Complexity   Complexity
	Dependencies []string
	Exported     bool
}

// FileStructure is the parsed structure of one source file.
type FileStructure struct {
	Path      string
	Language  string
	Functions []Function
	Source    []string
}

// UncoveredFunction is a function intersecting missing coverage lines,
// ranked for test generation.
type UncoveredFunction struct {
	Function
	File             string
	Language         string
	MissingLines     []int
	UncoveredPercent float64
	Priority         int
}

// Analyzer walks low-coverage files and extracts their uncovered functions.
type Analyzer struct {
	cfg     coverage.AnalysisConfig
	workdir string
	logger  logrus.FieldLogger
}

// New returns an Analyzer rooted at workdir.
func New(cfg coverage.AnalysisConfig, workdir string, logger logrus.FieldLogger) *Analyzer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Analyzer{
		cfg:     cfg,
		workdir: workdir,
		logger:  logger.WithField("source", "analyzer"),
	}
}

// languageByExtension maps supported source extensions to their language
// tag. Unsupported files are skipped, not failed.
var languageByExtension = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".java": "java",
}

// FindUncoveredFunctions maps each low-coverage area's missing lines onto
// the functions of its file and returns them ranked by priority, highest
// first. Files that cannot be analyzed are logged and skipped.
func (a *Analyzer) FindUncoveredFunctions(areas []coverage.LowCoverageArea) []UncoveredFunction {
	var uncovered []UncoveredFunction

	for _, area := range areas {
		structure, err := a.AnalyzeFile(area.FileKey)
		if err != nil {
			a.logger.WithError(err).Warnf("skipping %s", area.FileKey)
			continue
		}

		missing := make(map[int]bool, len(area.MissingLines))
		for _, line := range area.MissingLines {
			missing[line] = true
		}

		for _, fn := range structure.Functions {
			if fn.Kind == KindClass {
				continue
			}
			var hit []int
			for line := fn.StartLine; line <= fn.EndLine; line++ {
				if missing[line] {
					hit = append(hit, line)
				}
			}
			if len(hit) == 0 {
				continue
			}

			total := fn.EndLine - fn.StartLine + 1
			pct := float64(len(hit)) / float64(total) * 100
			uncovered = append(uncovered, UncoveredFunction{
				Function:         fn,
				File:             structure.Path,
				Language:         structure.Language,
				MissingLines:     hit,
				UncoveredPercent: pct,
				Priority:         priorityScore(fn, pct),
			})
		}
	}

	sort.SliceStable(uncovered, func(i, j int) bool {
		return uncovered[i].Priority > uncovered[j].Priority
	})
	return uncovered
}

// AnalyzeFile parses the structure of one source file, resolving the path
// against the working directory and falling back to a basename search when
// the exact path does not exist.
func (a *Analyzer) AnalyzeFile(path string) (*FileStructure, error) {
	resolved, err := a.resolvePath(path)
	if err != nil {
		return nil, err
	}

	language, ok := languageByExtension[strings.ToLower(filepath.Ext(resolved))]
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(resolved))
	}

	source, err := readLines(resolved)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", resolved, err)
	}

	structure := &FileStructure{Path: resolved, Language: language, Source: source}
	switch language {
	case "go":
		structure.Functions, err = parseGoFunctions(resolved)
		if err != nil {
			return nil, fmt.Errorf("parse go source %s: %w", resolved, err)
		}
	case "python":
		structure.Functions = parsePythonFunctions(source)
	case "javascript", "typescript":
		structure.Functions = parseScriptFunctions(source)
	case "java":
		structure.Functions = parseJavaFunctions(source)
	}

	return structure, nil
}

func (a *Analyzer) resolvePath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.workdir, path)
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	// The report may use a build-tool path layout that does not match the
	// checkout; fall back to searching the tree for the basename.
	if found, ok := a.findByBasename(filepath.Base(path)); ok {
		a.logger.Debugf("fuzzy-resolved %s -> %s", path, found)
		return found, nil
	}
	return "", fmt.Errorf("file does not exist: %s", path)
}

// skipDirs are directory names never descended into during basename search.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
}

func (a *Analyzer) findByBasename(basename string) (string, bool) {
	var found string
	filepath.WalkDir(a.workdir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == basename {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found, found != ""
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"), nil
}

// priorityScore ranks a function for test generation: mostly-uncovered,
// exported, complex, dependency-heavy functions first.
func priorityScore(fn Function, uncoveredPct float64) int {
	score := int(uncoveredPct)
	if fn.Exported {
		score += 20
	}
	switch fn.Complexity {
	case ComplexityHigh:
		score += 30
	case ComplexityMedium:
		score += 15
	}
	deps := len(fn.Dependencies) * 5
	if deps > 25 {
		deps = 25
	}
	return score + deps
}

// bucketComplexity maps a raw decision-point count to a bucket.
func bucketComplexity(decisionPoints int) Complexity {
	switch {
	case decisionPoints <= 3:
		return ComplexityLow
	case decisionPoints <= 7:
		return ComplexityMedium
	default:
		return ComplexityHigh
	}
}
