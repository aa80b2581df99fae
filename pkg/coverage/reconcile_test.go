package coverage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	cfg := NewAnalysisConfig()

	t.Run("absolute keys are kept", func(t *testing.T) {
		model := newCoverageModel(FormatPytestJSON)
		abs := filepath.Join(string(filepath.Separator), "repo", "src", "calc.py")
		model.Files[abs] = NewFileCoverage()

		Reconcile(model, cfg, t.TempDir(), testLogger())
		assert.Contains(t, model.Files, abs)
	})

	t.Run("source-root prefixed keys resolve against workdir", func(t *testing.T) {
		workdir := t.TempDir()
		model := newCoverageModel(FormatPytestJSON)
		model.Files[filepath.Join("src", "calc.py")] = NewFileCoverage()

		Reconcile(model, cfg, workdir, testLogger())
		assert.Contains(t, model.Files, filepath.Join(workdir, "src", "calc.py"))
	})

	t.Run("bare keys resolve relative to the source root", func(t *testing.T) {
		workdir := t.TempDir()
		model := newCoverageModel(FormatPytestJSON)
		model.Files["calc.py"] = NewFileCoverage()

		Reconcile(model, cfg, workdir, testLogger())
		assert.Contains(t, model.Files, filepath.Join(workdir, "src", "calc.py"))
	})

	t.Run("jacoco candidates probe the filesystem", func(t *testing.T) {
		workdir := t.TempDir()
		existing := filepath.Join(workdir, "src", "main", "java", "com", "example", "Foo.java")
		touch(t, existing)

		model := newCoverageModel(FormatJaCoCo)
		key := filepath.Join("com", "example", "Foo.java")
		model.Files[key] = NewFileCoverage()
		model.jacocoCandidates = map[string][]string{key: ResolveCandidates("com/example", "Foo.java")}

		Reconcile(model, cfg, workdir, testLogger())
		require.Contains(t, model.Files, existing)
		assert.Nil(t, model.jacocoCandidates)
	})

	t.Run("jacoco placeholder when no candidate exists", func(t *testing.T) {
		workdir := t.TempDir()
		model := newCoverageModel(FormatJaCoCo)
		key := filepath.Join("com", "example", "Gone.java")
		model.Files[key] = NewFileCoverage()
		model.jacocoCandidates = map[string][]string{key: ResolveCandidates("com/example", "Gone.java")}

		Reconcile(model, cfg, workdir, testLogger())
		// The generic rule applies to the placeholder key.
		assert.Contains(t, model.Files, filepath.Join(workdir, "src", key))
	})

	t.Run("go profile keys strip the module path", func(t *testing.T) {
		workdir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(workdir, "go.mod"), []byte("module github.com/acme/calc\n\ngo 1.22\n"), 0644))
		touch(t, filepath.Join(workdir, "calc.go"))

		model := newCoverageModel(FormatGoProfile)
		model.Files["github.com/acme/calc/calc.go"] = NewFileCoverage()
		model.Files["github.com/acme/calc/internal/util.go"] = NewFileCoverage()

		Reconcile(model, cfg, workdir, testLogger())
		require.Contains(t, model.Files, filepath.Join(workdir, "calc.go"))
		// A key under the module resolves even when the file is absent.
		assert.Contains(t, model.Files, filepath.Join(workdir, "internal", "util.go"))
	})

	t.Run("go profile keys outside the module use the generic rule", func(t *testing.T) {
		workdir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(workdir, "go.mod"), []byte("module github.com/acme/calc\n"), 0644))

		model := newCoverageModel(FormatGoProfile)
		model.Files["github.com/other/dep/dep.go"] = NewFileCoverage()

		Reconcile(model, cfg, workdir, testLogger())
		assert.Contains(t, model.Files, filepath.Join(workdir, "src", "github.com", "other", "dep", "dep.go"))
	})

	t.Run("go profile without a go.mod uses the generic rule", func(t *testing.T) {
		workdir := t.TempDir()
		model := newCoverageModel(FormatGoProfile)
		model.Files["github.com/acme/calc/calc.go"] = NewFileCoverage()

		Reconcile(model, cfg, workdir, testLogger())
		assert.Contains(t, model.Files, filepath.Join(workdir, "src", "github.com", "acme", "calc", "calc.go"))
	})

	t.Run("empty model is a no-op", func(t *testing.T) {
		model := newCoverageModel(FormatUnknown)
		Reconcile(model, cfg, t.TempDir(), testLogger())
		assert.True(t, model.Empty())
	})
}

func TestGoModulePrefix(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module github.com/example/demo\n\ngo 1.22\n"), 0644))
	assert.Equal(t, "github.com/example/demo/", goModulePrefix(dir))

	assert.Empty(t, goModulePrefix(t.TempDir()))

	malformed := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(malformed, "go.mod"), []byte("go 1.22\n"), 0644))
	assert.Empty(t, goModulePrefix(malformed))
}
