package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoverPilotCommand(t *testing.T) {
	cmd := NewCoverPilotCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "analyze")
	assert.Contains(t, names, "report")
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "version")
}

func TestVersionCommand(t *testing.T) {
	cmd := NewCoverPilotCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "CoverPilot Version")
}

func TestAnalyzeRejectsBadGitHubRepo(t *testing.T) {
	cmd := NewCoverPilotCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"analyze", "--github-repo", "not-a-repo", "--repository-path", t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner/name")
}

func TestSplitRepo(t *testing.T) {
	owner, repo, ok := splitRepo("octo/demo")
	assert.True(t, ok)
	assert.Equal(t, "octo", owner)
	assert.Equal(t, "demo", repo)

	_, _, ok = splitRepo("octo")
	assert.False(t, ok)
	_, _, ok = splitRepo("/demo")
	assert.False(t, ok)
	_, _, ok = splitRepo("octo/")
	assert.False(t, ok)
}
