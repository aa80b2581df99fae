// Package webhook exposes the analysis pipeline over HTTP: GitHub sends a
// pull request event, the server runs the gap analysis for that repository
// in the background.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	maxPayloadSize = 1 << 20
	runTimeout     = 15 * time.Minute

	signatureHeader = "X-Hub-Signature-256"
	eventHeader     = "X-GitHub-Event"
)

// PullRequestEvent is the subset of the GitHub webhook payload the analysis
// needs.
type PullRequestEvent struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Head struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	} `json:"pull_request"`
	Repository struct {
		FullName string `json:"full_name"`
		CloneURL string `json:"clone_url"`
	} `json:"repository"`
}

// analyzedActions are the PR actions that trigger an analysis run.
var analyzedActions = map[string]bool{
	"opened":      true,
	"synchronize": true,
	"reopened":    true,
}

// Runner executes one analysis for a webhook event.
type Runner interface {
	Run(ctx context.Context, event *PullRequestEvent) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, event *PullRequestEvent) error

func (f RunnerFunc) Run(ctx context.Context, event *PullRequestEvent) error {
	return f(ctx, event)
}

// ServerOptions configures the webhook server.
type ServerOptions struct {
	// ListenAddress is the address the server binds to.
	ListenAddress string
	// Secret verifies the X-Hub-Signature-256 header when non-empty.
	Secret string
	Logger logrus.FieldLogger
}

// Server dispatches pull request webhooks to a Runner.
type Server struct {
	options ServerOptions
	runner  Runner
	logger  logrus.FieldLogger
}

// NewServer builds a webhook server around the given runner.
func NewServer(options ServerOptions, runner Runner) *Server {
	logger := options.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Server{
		options: options,
		runner:  runner,
		logger:  logger.WithField("source", "webhook"),
	}
}

// Handler returns the HTTP handler serving the webhook routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/webhook/pull-request", s.handlePullRequest)
	return mux
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.options.ListenAddress,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Infof("listening on %s", s.options.ListenAddress)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webhook server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok")
}

func (s *Server) handlePullRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize))
	if err != nil {
		http.Error(w, "read payload", http.StatusBadRequest)
		return
	}

	if s.options.Secret != "" && !s.verifySignature(body, r.Header.Get(signatureHeader)) {
		s.logger.Warn("rejected webhook with invalid signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	if event := r.Header.Get(eventHeader); event != "" && event != "pull_request" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var event PullRequestEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if !analyzedActions[event.Action] {
		s.logger.Debugf("ignoring pull request action %q", event.Action)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.logger.Infof("analyzing %s#%d (%s)", event.Repository.FullName, event.Number, event.Action)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if err := s.runner.Run(ctx, &event); err != nil {
			s.logger.WithError(err).Errorf("analysis of %s#%d failed", event.Repository.FullName, event.Number)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	io.WriteString(w, "accepted")
}

func (s *Server) verifySignature(body []byte, header string) bool {
	mac := hmac.New(sha256.New, []byte(s.options.Secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
