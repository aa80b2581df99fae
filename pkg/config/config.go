// Package config loads the coverpilot configuration from a yaml file and
// the environment. Secrets always come from the environment; a .env file is
// loaded first when present so local runs behave like CI.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	envGitHubToken     = "GITHUB_TOKEN"
	envOpenAIKey       = "OPENAI_API_KEY"
	envAnthropicKey    = "ANTHROPIC_API_KEY"
	envThreshold       = "COVERPILOT_THRESHOLD"
	envProvider        = "COVERPILOT_PROVIDER"
	envListenAddress   = "COVERPILOT_LISTEN_ADDRESS"
	envWebhookSecret   = "COVERPILOT_WEBHOOK_SECRET"
	defaultListenAddr  = ":8080"
	defaultReportName  = "coverage-gaps"
	defaultReportStyle = "colorful"
)

// AnalysisConfig controls coverage analysis.
type AnalysisConfig struct {
	Threshold           int      `yaml:"threshold"`
	SourceRoot          string   `yaml:"sourceRoot"`
	ExcludePatterns     []string `yaml:"excludePatterns"`
	MinCoverageIncrease int      `yaml:"minCoverageIncrease"`
}

// GeneratorConfig controls LLM test generation.
type GeneratorConfig struct {
	Provider     string  `yaml:"provider"`
	Model        string  `yaml:"model"`
	BaseURL      string  `yaml:"baseURL"`
	MaxTokens    int     `yaml:"maxTokens"`
	Temperature  float64 `yaml:"temperature"`
	MaxFunctions int     `yaml:"maxFunctions"`

	// APIKey is environment-only, never read from yaml.
	APIKey string `yaml:"-"`
}

// GitHubConfig controls the GitHub integration.
type GitHubConfig struct {
	BaseURL string `yaml:"baseURL"`

	// Token is environment-only, never read from yaml.
	Token string `yaml:"-"`
}

// ServerConfig controls the webhook server.
type ServerConfig struct {
	ListenAddress string `yaml:"listenAddress"`

	// WebhookSecret is environment-only, never read from yaml.
	WebhookSecret string `yaml:"-"`
}

// ReportConfig controls report rendering.
type ReportConfig struct {
	Name   string `yaml:"name"`
	Style  string `yaml:"style"`
	Output string `yaml:"output"`
}

// Config is the aggregate coverpilot configuration.
type Config struct {
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Generator GeneratorConfig `yaml:"generator"`
	GitHub    GitHubConfig    `yaml:"github"`
	Server    ServerConfig    `yaml:"server"`
	Report    ReportConfig    `yaml:"report"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Threshold:           80,
			SourceRoot:          "src",
			MinCoverageIncrease: 5,
		},
		Generator: GeneratorConfig{
			Provider: "openai",
		},
		Server: ServerConfig{
			ListenAddress: defaultListenAddr,
		},
		Report: ReportConfig{
			Name:  defaultReportName,
			Style: defaultReportStyle,
		},
	}
}

// Load reads the configuration: defaults, then the yaml file at path when
// path is non-empty, then environment overrides. A missing .env file is not
// an error.
func Load(path string, logger logrus.FieldLogger) (*Config, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded environment from .env")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.GitHub.Token = os.Getenv(envGitHubToken)

	if provider := os.Getenv(envProvider); provider != "" {
		c.Generator.Provider = provider
	}
	switch c.Generator.Provider {
	case "anthropic":
		c.Generator.APIKey = os.Getenv(envAnthropicKey)
	default:
		c.Generator.APIKey = os.Getenv(envOpenAIKey)
	}

	if raw := os.Getenv(envThreshold); raw != "" {
		if threshold, err := strconv.Atoi(raw); err == nil {
			c.Analysis.Threshold = threshold
		}
	}
	if addr := os.Getenv(envListenAddress); addr != "" {
		c.Server.ListenAddress = addr
	}
	c.Server.WebhookSecret = os.Getenv(envWebhookSecret)
}
