package coverpilot

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/coverpilot/coverpilot/pkg/webhook"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/sirupsen/logrus"
)

// WebhookRunner turns pull request webhook events into analysis runs: it
// clones the repository at the PR head branch into a scratch directory and
// runs the pipeline against it.
type WebhookRunner struct {
	// Base is the AnalyzeOption template each run is derived from.
	Base *AnalyzeOption
	// Token authenticates the clone and the GitHub API calls.
	Token  string
	Logger logrus.FieldLogger
}

var _ webhook.Runner = (*WebhookRunner)(nil)

func NewWebhookRunner(base *AnalyzeOption, token string, logger logrus.FieldLogger) *WebhookRunner {
	if logger == nil {
		logger = logrus.New()
	}
	return &WebhookRunner{Base: base, Token: token, Logger: logger.WithField("source", "runner")}
}

func (r *WebhookRunner) Run(ctx context.Context, event *webhook.PullRequestEvent) error {
	workdir, err := os.MkdirTemp("", "coverpilot-*")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(workdir)

	cloneOptions := &gogit.CloneOptions{
		URL:           event.Repository.CloneURL,
		ReferenceName: plumbing.NewBranchReferenceName(event.PullRequest.Head.Ref),
	}
	if r.Token != "" {
		cloneOptions.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: r.Token}
	}

	r.Logger.Infof("cloning %s (%s) into %s", event.Repository.FullName, event.PullRequest.Head.Ref, workdir)
	if _, err := gogit.PlainCloneContext(ctx, workdir, false, cloneOptions); err != nil {
		return fmt.Errorf("clone %s: %w", event.Repository.CloneURL, err)
	}

	option := r.optionFor(event, workdir)
	pilot, err := NewCoverPilot(option)
	if err != nil {
		return err
	}
	return pilot.Run(ctx)
}

// optionFor derives the per-run option from the template and the event.
func (r *WebhookRunner) optionFor(event *webhook.PullRequestEvent, workdir string) *AnalyzeOption {
	option := *r.Base
	option.RepositoryPath = workdir
	option.ReportPath = ""
	option.CompareBranch = "origin/" + event.PullRequest.Base.Ref
	option.Logger = r.Logger

	if owner, repo, ok := splitFullName(event.Repository.FullName); ok && r.Token != "" {
		github := GitHubOption{}
		if r.Base.GitHub != nil {
			github = *r.Base.GitHub
		}
		github.Owner = owner
		github.Repo = repo
		github.PullRequest = event.Number
		github.Token = r.Token
		github.BaseBranch = event.PullRequest.Base.Ref
		option.GitHub = &github
	}
	return &option
}

func splitFullName(fullName string) (owner, repo string, ok bool) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
