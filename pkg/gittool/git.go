package gittool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/sirupsen/logrus"
)

// GitClient exposes the git operations the analysis workflow needs:
// computing the changed files of the head branch against a base branch, and
// committing generated test files onto a new branch.
type GitClient interface {
	// DiffChangesFromCommitted returns the changes between the HEAD commit
	// and the compared branch.
	DiffChangesFromCommitted(compareBranch string) ([]*Change, error)
	// HeadBranch returns the short name of the currently checked out branch.
	HeadBranch() (string, error)
	// CommitFiles creates branch off HEAD, writes the given files into the
	// worktree and commits them, returning the commit hash.
	CommitFiles(branch, message string, files map[string]string) (string, error)
	// Push pushes the given branch to the named remote, authenticating with
	// token when it is non-empty.
	Push(remote, branch, token string) error
}

type gitClient struct {
	repositoryPath string
	repository     *gogit.Repository
	logger         logrus.FieldLogger
}

var _ GitClient = (*gitClient)(nil)

// NewGitClient opens the git repository at repositoryPath.
func NewGitClient(repositoryPath string, logger logrus.FieldLogger) (GitClient, error) {
	if logger == nil {
		logger = logrus.New()
	}
	repository, err := gogit.PlainOpen(repositoryPath)
	if err != nil {
		return nil, fmt.Errorf("open git repository %s: %w", repositoryPath, err)
	}
	return &gitClient{
		repositoryPath: repositoryPath,
		repository:     repository,
		logger:         logger.WithField("source", "gittool"),
	}, nil
}

func (g *gitClient) HeadBranch() (string, error) {
	head, err := g.repository.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return head.Name().Short(), nil
}

func (g *gitClient) DiffChangesFromCommitted(compareBranch string) ([]*Change, error) {
	headTree, err := g.treeOf("HEAD")
	if err != nil {
		return nil, err
	}
	baseTree, err := g.treeOf(compareBranch)
	if err != nil {
		return nil, err
	}

	treeChanges, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	var changes []*Change
	for _, treeChange := range treeChanges {
		change, err := g.buildChange(treeChange)
		if err != nil {
			return nil, err
		}
		if change != nil {
			changes = append(changes, change)
		}
	}
	return changes, nil
}

func (g *gitClient) treeOf(revision string) (*object.Tree, error) {
	hash, err := g.repository.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, fmt.Errorf("resolve revision %s: %w", revision, err)
	}
	commit, err := g.repository.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("commit object %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("commit tree %s: %w", hash, err)
	}
	return tree, nil
}

func (g *gitClient) buildChange(treeChange *object.Change) (*Change, error) {
	action, err := treeChange.Action()
	if err != nil {
		return nil, fmt.Errorf("change action: %w", err)
	}

	switch action {
	case merkletrie.Insert:
		return g.buildChangeFromFile(treeChange.To.Name)
	case merkletrie.Delete:
		return &Change{FileName: treeChange.From.Name, Mode: DeleteMode}, nil
	case merkletrie.Modify:
		if treeChange.From.Name != treeChange.To.Name {
			return g.buildChangeFromFile(treeChange.To.Name)
		}
		return g.buildModifyChange(treeChange)
	}
	return nil, nil
}

// buildChangeFromFile treats the whole file as one added section, used for
// newly created and renamed files.
func (g *gitClient) buildChangeFromFile(filename string) (*Change, error) {
	data, err := os.ReadFile(filepath.Join(g.repositoryPath, filename))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	contents := splitLines(string(data))
	return &Change{
		FileName: filename,
		Mode:     NewMode,
		Sections: []*Section{{
			Operation: Add,
			Count:     len(contents),
			StartLine: 1,
			EndLine:   len(contents),
			Contents:  contents,
		}},
	}, nil
}

// buildModifyChange walks the file patch chunks tracking the destination
// line number, emitting one section per added chunk.
func (g *gitClient) buildModifyChange(treeChange *object.Change) (*Change, error) {
	patch, err := treeChange.Patch()
	if err != nil {
		return nil, fmt.Errorf("change patch: %w", err)
	}

	change := &Change{FileName: treeChange.To.Name, Mode: ModifyMode}
	for _, filePatch := range patch.FilePatches() {
		line := 1
		for _, chunk := range filePatch.Chunks() {
			contents := splitLines(chunk.Content())
			switch chunk.Type() {
			case diff.Equal:
				line += len(contents)
			case diff.Add:
				change.Sections = append(change.Sections, &Section{
					Operation: Add,
					Count:     len(contents),
					StartLine: line,
					EndLine:   line + len(contents) - 1,
					Contents:  contents,
				})
				line += len(contents)
			case diff.Delete:
				// Deleted lines do not exist in the new file.
			}
		}
	}
	return change, nil
}

func (g *gitClient) CommitFiles(branch, message string, files map[string]string) (string, error) {
	worktree, err := g.repository.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}

	err = worktree.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
		Keep:   true,
	})
	if err != nil {
		return "", fmt.Errorf("checkout branch %s: %w", branch, err)
	}

	for name, contents := range files {
		path := filepath.Join(g.repositoryPath, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("create directory for %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
		if _, err := worktree.Add(name); err != nil {
			return "", fmt.Errorf("stage %s: %w", name, err)
		}
	}

	hash, err := worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "coverpilot",
			Email: "coverpilot@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	g.logger.Infof("committed %d generated test files to %s (%s)", len(files), branch, hash)
	return hash.String(), nil
}

func (g *gitClient) Push(remote, branch, token string) error {
	options := &gogit.PushOptions{RemoteName: remote}
	if token != "" {
		options.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: token}
	}
	ref := plumbing.NewBranchReferenceName(branch)
	options.RefSpecs = []gitconfig.RefSpec{gitconfig.RefSpec(ref + ":" + ref)}

	if err := g.repository.Push(options); err != nil {
		return fmt.Errorf("push %s to %s: %w", branch, remote, err)
	}
	return nil
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
