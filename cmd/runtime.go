package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/classreport-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/classreport-cli/internal/config"
	"github.com/KaramelBytes/classreport-cli/internal/extract"
)

type runtimeOptions struct {
	ProviderFlag string
	ModelFlag    string
	OllamaHost   string
}

// resolveProvider maps flag and config aliases onto a registered provider.
func resolveProvider(cfg *cfgpkg.Global, flag string) string {
	name := strings.ToLower(strings.TrimSpace(flag))
	if name == "" && cfg != nil && cfg.DefaultProvider != "" {
		name = strings.ToLower(cfg.DefaultProvider)
	}
	switch name {
	case "":
		return ai.ProviderOpenRouter
	case "local":
		return ai.ProviderOllama
	case "google":
		return ai.ProviderGemini
	case "openai", "anthropic", "meta", "llama":
		return ai.ProviderOpenRouter
	}
	return name
}

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := resolveProvider(cfg, opts.ProviderFlag)
	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      apiKeyFor(cfg, providerName),
	}

	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" {
			host = os.Getenv("CLASSREPORT_OLLAMA_HOST")
		}
		if host == "" && cfg != nil && cfg.OllamaHost != "" {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = "http://127.0.0.1:11434"
		}
		rc.Host = host
		if v := os.Getenv("CLASSREPORT_OLLAMA_TIMEOUT_SEC"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rc.HTTPTimeout = time.Duration(n) * time.Second
			}
		}
		if cfg != nil && cfg.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s (use %s)", providerName, strings.Join(ai.Providers(), ", "))
	}
	return client, providerName, nil
}

// apiKeyFor prefers the provider's environment variable over the config.
func apiKeyFor(cfg *cfgpkg.Global, provider string) string {
	switch provider {
	case ai.ProviderGemini:
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			return v
		}
		if cfg != nil {
			return cfg.GeminiAPIKey
		}
	case ai.ProviderOpenRouter:
		if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
			return v
		}
		if cfg != nil {
			return cfg.APIKey
		}
	}
	return ""
}

// selectModel picks the --model flag, then the configured default when it
// belongs to the same provider, then the provider's default.
func selectModel(cfg *cfgpkg.Global, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultModel != "" && resolveProvider(cfg, "") == provider {
		return cfg.DefaultModel
	}
	switch provider {
	case ai.ProviderGemini:
		return ai.DefaultGeminiModel
	case ai.ProviderOllama:
		return "llama3.1"
	default:
		return "openai/gpt-4o-mini"
	}
}

// buildExtractor wires the runtime into a text-to-table extractor. A missing
// API key is not an error here; it surfaces per file as a credentials warning.
func buildExtractor(cfg *cfgpkg.Global, opts runtimeOptions, log *slog.Logger) (extract.Extractor, string, error) {
	rt, provider, err := buildRuntime(cfg, opts)
	if err != nil {
		return nil, provider, err
	}
	x := extract.NewAIExtractor(rt, selectModel(cfg, provider, opts.ModelFlag))
	x.Logger = log
	if cfg != nil {
		if cfg.MaxTokens > 0 {
			x.MaxTokens = cfg.MaxTokens
		}
		if cfg.MaxInputTokens > 0 {
			x.MaxInputTokens = cfg.MaxInputTokens
		}
		x.Temperature = cfg.Temperature
	}
	return x, provider, nil
}
