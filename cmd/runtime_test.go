package cmd

import (
	"testing"

	"github.com/KaramelBytes/classreport-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/classreport-cli/internal/config"
	"github.com/KaramelBytes/classreport-cli/internal/extract"
)

func TestResolveProvider(t *testing.T) {
	cases := []struct {
		cfg  *cfgpkg.Global
		flag string
		want string
	}{
		{nil, "", ai.ProviderOpenRouter},
		{nil, "Local", ai.ProviderOllama},
		{nil, "google", ai.ProviderGemini},
		{nil, "anthropic", ai.ProviderOpenRouter},
		{&cfgpkg.Global{DefaultProvider: "gemini"}, "", ai.ProviderGemini},
		{&cfgpkg.Global{DefaultProvider: "gemini"}, "ollama", ai.ProviderOllama},
	}
	for _, c := range cases {
		if got := resolveProvider(c.cfg, c.flag); got != c.want {
			t.Fatalf("resolveProvider(%+v, %q) = %q, want %q", c.cfg, c.flag, got, c.want)
		}
	}
}

func TestSelectModelPrecedence(t *testing.T) {
	cfg := &cfgpkg.Global{DefaultProvider: "openrouter", DefaultModel: "cfg-model"}

	if got := selectModel(cfg, ai.ProviderOpenRouter, "cli-model"); got != "cli-model" {
		t.Fatalf("expected CLI model, got %q", got)
	}
	if got := selectModel(cfg, ai.ProviderOpenRouter, ""); got != "cfg-model" {
		t.Fatalf("expected config model, got %q", got)
	}
	if got := selectModel(cfg, ai.ProviderGemini, ""); got != ai.DefaultGeminiModel {
		t.Fatalf("config model of another provider must not leak, got %q", got)
	}
	cfg.DefaultModel = ""
	if got := selectModel(cfg, ai.ProviderOpenRouter, ""); got != "openai/gpt-4o-mini" {
		t.Fatalf("expected fallback model, got %q", got)
	}
}

func TestAPIKeyPrecedence(t *testing.T) {
	cfg := &cfgpkg.Global{APIKey: "cfg-or", GeminiAPIKey: "cfg-gem"}
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "env-gem")
	if got := apiKeyFor(cfg, ai.ProviderOpenRouter); got != "cfg-or" {
		t.Fatalf("openrouter key = %q", got)
	}
	if got := apiKeyFor(cfg, ai.ProviderGemini); got != "env-gem" {
		t.Fatalf("gemini key = %q", got)
	}
	if got := apiKeyFor(cfg, ai.ProviderOllama); got != "" {
		t.Fatalf("ollama needs no key, got %q", got)
	}
}

func TestBuildExtractor(t *testing.T) {
	t.Setenv("CLASSREPORT_OLLAMA_HOST", "")
	cfg := &cfgpkg.Global{DefaultProvider: "ollama", MaxTokens: 1000, MaxInputTokens: 500, OllamaHost: "http://127.0.0.1:1"}
	x, provider, err := buildExtractor(cfg, runtimeOptions{}, nil)
	if err != nil {
		t.Fatalf("buildExtractor: %v", err)
	}
	if provider != ai.ProviderOllama {
		t.Fatalf("provider = %q", provider)
	}
	ax, ok := x.(*extract.AIExtractor)
	if !ok {
		t.Fatalf("unexpected extractor %T", x)
	}
	if ax.MaxTokens != 1000 || ax.MaxInputTokens != 500 || ax.Model != "llama3.1" {
		t.Fatalf("unexpected extractor settings: %+v", ax)
	}
	if _, ok := ax.Runtime.(*ai.OllamaClient); !ok {
		t.Fatalf("unexpected runtime %T", ax.Runtime)
	}

	if _, _, err := buildExtractor(cfg, runtimeOptions{ProviderFlag: "bogus"}, nil); err == nil {
		t.Fatal("expected unsupported provider error")
	}
}

func TestResolveGrading(t *testing.T) {
	cfg := &cfgpkg.Global{PassThreshold: 6, TierCutoffs: []int{0, 3}, PromoteTiers: []int{0, 1}}
	th, p, err := resolveGrading(cfg, gradingFlags{})
	if err != nil || th != 6 || p.Name != cfgpkg.CustomPolicyName {
		t.Fatalf("got %v %+v %v", th, p, err)
	}
	th, p, err = resolveGrading(cfg, gradingFlags{Policy: "Strict", Threshold: 4.5, ThresholdChanged: true})
	if err != nil || th != 4.5 || p.Name != "strict" {
		t.Fatalf("got %v %+v %v", th, p, err)
	}
	if _, _, err := resolveGrading(cfg, gradingFlags{Policy: "unknown"}); err == nil {
		t.Fatal("expected unknown policy error")
	}
	if _, _, err := resolveGrading(nil, gradingFlags{Threshold: -1, ThresholdChanged: true}); err == nil {
		t.Fatal("expected invalid threshold error")
	}
}
