package coverage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Reconcile rewrites every file key in the model to an absolute path so the
// keys can be cross-referenced against the paths a caller derives from a PR
// diff. The rewrite is a best-effort heuristic: an already absolute key is
// kept, a key starting with the configured source root resolves against the
// working directory, and anything else resolves relative to the source root.
// Callers that need the file to exist must verify with a filesystem check.
//
// For JaCoCo models the ordered candidate paths recorded during parsing are
// probed against the working directory first; the first candidate that
// exists on disk wins, otherwise the most specific candidate is kept as a
// placeholder key. Go cover profiles key files by import path; those keys
// resolve by stripping the module path declared in the go.mod under the
// working directory. This is the single step where the filesystem is
// consulted.
//
// The model must not be mutated after Reconcile returns.
func Reconcile(model *CoverageModel, cfg AnalysisConfig, workdir string, logger logrus.FieldLogger) {
	if model == nil || len(model.Files) == 0 {
		return
	}
	if logger == nil {
		logger = logrus.New()
	}

	modulePrefix := ""
	if model.SourceFormat == FormatGoProfile {
		if modulePrefix = goModulePrefix(workdir); modulePrefix == "" {
			logger.Debugf("no module path under %s, go profile keys fall back to the source-root rule", workdir)
		}
	}

	reconciled := make(map[string]*FileCoverage, len(model.Files))
	for key, file := range model.Files {
		var absolute string
		if candidate, found := probeCandidates(model.jacocoCandidates[key], workdir); found {
			// The probe already pinned an existing file, the generic
			// source-root rule must not rewrite it.
			absolute = filepath.Join(workdir, candidate)
		} else if candidate, ok := goProfileCandidate(key, modulePrefix); ok {
			absolute = filepath.Join(workdir, candidate)
		} else {
			absolute = resolveKey(key, cfg.SourceRoot, workdir)
		}
		if absolute != key {
			logger.Debugf("reconciled %s -> %s", key, absolute)
		}
		reconciled[absolute] = file
	}

	model.Files = reconciled
	model.jacocoCandidates = nil
}

// probeCandidates returns the first candidate that exists under workdir.
// No candidate existing is legitimate: the report may cover a generated or
// moved file, and the caller keeps the most specific key as a placeholder.
func probeCandidates(candidates []string, workdir string) (string, bool) {
	for _, candidate := range candidates {
		if info, err := os.Stat(filepath.Join(workdir, candidate)); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

func resolveKey(key, sourceRoot, workdir string) string {
	if filepath.IsAbs(key) {
		return filepath.Clean(key)
	}
	if prefix := sourceRootPrefix(sourceRoot); prefix != "" && strings.HasPrefix(key, prefix) {
		return filepath.Join(workdir, key)
	}
	return filepath.Join(workdir, sourceRoot, key)
}
