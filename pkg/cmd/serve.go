package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/coverpilot/coverpilot/pkg/config"
	"github.com/coverpilot/coverpilot/pkg/coverpilot"
	"github.com/coverpilot/coverpilot/pkg/generator"
	"github.com/coverpilot/coverpilot/pkg/webhook"
	"github.com/spf13/cobra"
)

var serveLong = `Run the webhook server that analyzes pull requests.

GitHub sends pull_request events to POST /webhook/pull-request; each event
clones the repository at the head branch, analyzes its coverage report and,
when generation is configured, opens a pull request with generated tests.
`

func newServeCommand() *cobra.Command {
	var listenAddress string

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "run the pull request webhook server",
		Long:    serveLong,
		Example: "coverpilot serve --listen-address :8080",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := createLogger(cmd)

			configPath, _ := cmd.Flags().GetString(FlagConfig)
			cfg, err := config.Load(configPath, logger)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen-address") {
				cfg.Server.ListenAddress = listenAddress
			}

			base := coverpilot.NewAnalyzeOption()
			base.Threshold = cfg.Analysis.Threshold
			base.MinCoverageIncrease = cfg.Analysis.MinCoverageIncrease
			base.Excludes = cfg.Analysis.ExcludePatterns
			if cfg.Analysis.SourceRoot != "" {
				base.SourceRoot = cfg.Analysis.SourceRoot
			}
			if cfg.Generator.APIKey != "" {
				base.Generator = &generator.Config{
					Provider: generator.ProviderConfig{
						Type:        generator.ProviderType(cfg.Generator.Provider),
						APIKey:      cfg.Generator.APIKey,
						Model:       cfg.Generator.Model,
						BaseURL:     cfg.Generator.BaseURL,
						MaxTokens:   cfg.Generator.MaxTokens,
						Temperature: cfg.Generator.Temperature,
					},
					MaxFunctions: cfg.Generator.MaxFunctions,
				}
			}
			if dboption.DataCollectionEnabled {
				base.DbOption = dboption
			}

			runner := coverpilot.NewWebhookRunner(base, cfg.GitHub.Token, logger)
			server := webhook.NewServer(webhook.ServerOptions{
				ListenAddress: cfg.Server.ListenAddress,
				Secret:        cfg.Server.WebhookSecret,
				Logger:        logger,
			}, runner)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&listenAddress, "listen-address", ":8080", "address the webhook server binds to")
	return cmd
}
