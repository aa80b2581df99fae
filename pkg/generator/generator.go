// Package generator turns ranked uncovered functions into unit test files by
// prompting an LLM provider, one generated test file per source file.
package generator

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/coverpilot/coverpilot/pkg/analyzer"
	"github.com/sirupsen/logrus"
)

const defaultMaxFunctions = 10

// Config controls test generation.
type Config struct {
	// Provider selects and configures the LLM backend.
	Provider ProviderConfig
	// MaxFunctions caps how many uncovered functions are sent to the
	// provider per run. Zero means the default of 10.
	MaxFunctions int
}

// Generator produces test files for uncovered functions.
type Generator struct {
	provider Provider
	config   Config
	logger   logrus.FieldLogger
}

// New builds a Generator backed by the configured provider.
func New(config Config, logger logrus.FieldLogger) (*Generator, error) {
	provider, err := NewProvider(config.Provider)
	if err != nil {
		return nil, err
	}
	return NewWithProvider(config, provider, logger), nil
}

// NewWithProvider builds a Generator around an existing provider. Tests use
// it to inject fakes.
func NewWithProvider(config Config, provider Provider, logger logrus.FieldLogger) *Generator {
	if logger == nil {
		logger = logrus.New()
	}
	if config.MaxFunctions <= 0 {
		config.MaxFunctions = defaultMaxFunctions
	}
	return &Generator{
		provider: provider,
		config:   config,
		logger:   logger.WithField("source", "generator"),
	}
}

// GenerateTests prompts the provider for each source file that has uncovered
// functions, highest priority first, and returns the produced test files.
// Provider failures on individual files are logged and skipped; an error is
// returned only when every file failed.
func (g *Generator) GenerateTests(ctx context.Context, functions []analyzer.UncoveredFunction) ([]GeneratedTest, error) {
	if len(functions) > g.config.MaxFunctions {
		g.logger.Infof("limiting generation to the top %d of %d uncovered functions", g.config.MaxFunctions, len(functions))
		functions = functions[:g.config.MaxFunctions]
	}

	groups, order := groupByFile(functions)

	var tests []GeneratedTest
	var lastErr error
	for _, file := range order {
		test, err := g.generateForFile(ctx, file, groups[file])
		if err != nil {
			g.logger.WithError(err).Warnf("skipping test generation for %s", file)
			lastErr = err
			continue
		}
		tests = append(tests, *test)
	}

	if len(tests) == 0 && lastErr != nil {
		return nil, fmt.Errorf("generate tests: %w", lastErr)
	}
	return tests, nil
}

func (g *Generator) generateForFile(ctx context.Context, file string, functions []analyzer.UncoveredFunction) (*GeneratedTest, error) {
	source := readSourceLines(file)
	language := functions[0].Language

	var prompts []string
	var names []string
	for _, fn := range functions {
		prompts = append(prompts, BuildPrompt(fn, source))
		names = append(names, fn.Name)
	}
	userPrompt := strings.Join(prompts, "\n\n---\n\n")
	if len(functions) > 1 {
		userPrompt += "\n\nProduce one test file covering all the functions above."
	}

	g.logger.Infof("generating tests for %d functions in %s via %s", len(functions), file, g.provider.Name())
	response, err := g.provider.Complete(ctx, SystemPrompt(language), userPrompt)
	if err != nil {
		return nil, err
	}

	code, fenced := ExtractCode(response)
	if code == "" {
		return nil, fmt.Errorf("empty response for %s", file)
	}
	if !fenced {
		g.logger.Warnf("response for %s had no fenced code block, using raw text", file)
	}

	return &GeneratedTest{
		FileName:      TestFileName(language, file),
		Content:       code,
		FunctionNames: names,
		Language:      language,
	}, nil
}

// groupByFile buckets functions by source file, keeping the order files
// first appear in the ranked input.
func groupByFile(functions []analyzer.UncoveredFunction) (map[string][]analyzer.UncoveredFunction, []string) {
	groups := map[string][]analyzer.UncoveredFunction{}
	var order []string
	for _, fn := range functions {
		if _, ok := groups[fn.File]; !ok {
			order = append(order, fn.File)
		}
		groups[fn.File] = append(groups[fn.File], fn)
	}
	return groups, order
}

func readSourceLines(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
}
