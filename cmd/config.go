package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/classreport-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/classreport-cli/internal/config"
	"github.com/KaramelBytes/classreport-cli/internal/grades"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set classreport configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(out, "gemini_api_key: %s\n", mask(cfg.GeminiAPIKey))
		fmt.Fprintf(out, "default_provider: %s\n", cfg.DefaultProvider)
		fmt.Fprintf(out, "default_model: %s\n", cfg.DefaultModel)
		fmt.Fprintf(out, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(out, "max_input_tokens: %d\n", cfg.MaxInputTokens)
		fmt.Fprintf(out, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		if cfg.DefaultProvider == ai.ProviderOllama {
			fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		}
		fmt.Fprintf(out, "pass_threshold: %g\n", cfg.PassThreshold)
		if p, err := cfg.Policy(); err == nil {
			fmt.Fprintf(out, "tier_policy: %s\n", p.Name)
		} else {
			fmt.Fprintf(out, "tier_policy: %s (invalid: %v)\n", cfg.TierPolicy, err)
		}
		if len(cfg.TierCutoffs) > 0 {
			fmt.Fprintf(out, "tier_cutoffs: %s\n", joinInts(cfg.TierCutoffs))
			fmt.Fprintf(out, "promote_tiers: %s\n", joinInts(cfg.PromoteTiers))
		}
		fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "api_key":
			cfg.APIKey = val
		case "gemini_api_key":
			cfg.GeminiAPIKey = val
		case "default_model":
			cfg.DefaultModel = val
		case "default_provider":
			p := resolveProvider(nil, val)
			if !slices.Contains(ai.Providers(), p) {
				return fmt.Errorf("invalid default_provider: %s (use %s)", val, strings.Join(ai.Providers(), ", "))
			}
			cfg.DefaultProvider = p
		case "ollama_host":
			cfg.OllamaHost = val
		case "max_tokens", "max_input_tokens", "http_timeout_sec", "workers":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid positive int for %s: %v", key, val)
			}
			switch key {
			case "max_tokens":
				cfg.MaxTokens = i
			case "max_input_tokens":
				cfg.MaxInputTokens = i
			case "http_timeout_sec":
				cfg.HTTPTimeoutSec = i
			case "workers":
				cfg.Workers = i
			}
		case "temperature":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for temperature: %w", err)
			}
			cfg.Temperature = f
		case "pass_threshold":
			f, err := strconv.ParseFloat(strings.Replace(val, ",", ".", 1), 64)
			if err != nil || f <= 0 {
				return fmt.Errorf("invalid pass_threshold: %v", val)
			}
			cfg.PassThreshold = f
		case "tier_policy":
			p, ok := grades.PolicyByName(val)
			if !ok {
				return fmt.Errorf("invalid tier_policy: %s (use lenient or strict, or set tier_cutoffs)", val)
			}
			cfg.TierPolicy = p.Name
			cfg.TierCutoffs, cfg.PromoteTiers = nil, nil
		case "tier_cutoffs", "promote_tiers":
			ints, err := parseInts(val)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			next := *cfg
			if key == "tier_cutoffs" {
				next.TierCutoffs = ints
			} else {
				next.PromoteTiers = ints
			}
			if len(next.TierCutoffs) > 0 {
				if _, err := next.Policy(); err != nil {
					return err
				}
			}
			*cfg = next
		case "listen_addr":
			cfg.ListenAddr = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

// parseInts reads "0,1,2" (spaces allowed). An empty value clears the list.
func parseInts(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func joinInts(in []int) string {
	parts := make([]string, len(in))
	for i, n := range in {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
