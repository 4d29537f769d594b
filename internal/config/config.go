package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/classreport-cli/internal/grades"
	"github.com/KaramelBytes/classreport-cli/internal/utils"
)

// EnvPrefix is the prefix of environment overrides, e.g. CLASSREPORT_WORKERS.
const EnvPrefix = "CLASSREPORT"

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	GeminiAPIKey    string  `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	// MaxInputTokens bounds the document text sent for extraction.
	MaxInputTokens int `mapstructure:"max_input_tokens" yaml:"max_input_tokens"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// Grading
	PassThreshold float64 `mapstructure:"pass_threshold" yaml:"pass_threshold"`
	TierPolicy    string  `mapstructure:"tier_policy" yaml:"tier_policy"`
	// TierCutoffs and PromoteTiers define a custom policy; when set they
	// take precedence over TierPolicy.
	TierCutoffs  []int `mapstructure:"tier_cutoffs" yaml:"tier_cutoffs,omitempty"`
	PromoteTiers []int `mapstructure:"promote_tiers" yaml:"promote_tiers,omitempty"`

	Workers    int    `mapstructure:"workers" yaml:"workers"`
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// CustomPolicyName names the policy built from tier_cutoffs.
const CustomPolicyName = "custom"

// Policy resolves the configured tier policy.
func (c *Global) Policy() (grades.TierPolicy, error) {
	if len(c.TierCutoffs) > 0 {
		return grades.NewTierPolicy(CustomPolicyName, c.TierCutoffs, c.PromoteTiers)
	}
	name := c.TierPolicy
	if name == "" {
		name = grades.LenientPolicy.Name
	}
	p, ok := grades.PolicyByName(name)
	if !ok {
		return grades.TierPolicy{}, fmt.Errorf("%w: unknown tier_policy %q", grades.ErrInvalidPolicy, name)
	}
	return p, nil
}

// Policies lists the built-in policies followed by the configured custom
// one, if any.
func (c *Global) Policies() []grades.TierPolicy {
	out := grades.Policies()
	if p, err := c.Policy(); err == nil && p.Name == CustomPolicyName {
		out = append(out, p)
	}
	return out
}

// Dir is the default configuration directory, ~/.classreport.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".classreport"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.classreport/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_key", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("default_provider", "openrouter")
	v.SetDefault("default_model", "openai/gpt-4o-mini")
	v.SetDefault("max_tokens", 4096)
	v.SetDefault("temperature", 0.0)
	v.SetDefault("max_input_tokens", 12000)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 120)
	// Grading defaults
	v.SetDefault("pass_threshold", grades.PassThreshold)
	v.SetDefault("tier_policy", grades.LenientPolicy.Name)
	v.SetDefault("workers", 1)
	v.SetDefault("listen_addr", "127.0.0.1:8080")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return &c, nil
}
