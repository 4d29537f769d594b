package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/classreport-cli/internal/grades"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", c.DefaultProvider)
	assert.Equal(t, 5.0, c.PassThreshold)
	assert.Equal(t, 1, c.Workers)
	assert.Equal(t, 12000, c.MaxInputTokens)

	p, err := c.Policy()
	require.NoError(t, err)
	assert.Equal(t, grades.LenientPolicy, p)
	assert.Len(t, c.Policies(), 2)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CLASSREPORT_PASS_THRESHOLD", "6")
	t.Setenv("CLASSREPORT_TIER_POLICY", "strict")
	t.Setenv("CLASSREPORT_WORKERS", "4")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6.0, c.PassThreshold)
	assert.Equal(t, 4, c.Workers)
	p, err := c.Policy()
	require.NoError(t, err)
	assert.Equal(t, "strict", p.Name)
}

func TestSaveAndLoad_CustomPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := &Global{
		DefaultProvider: "gemini",
		TierCutoffs:     []int{0, 2, 4},
		PromoteTiers:    []int{0, 1},
		Workers:         2,
	}
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", got.DefaultProvider)
	assert.Equal(t, []int{0, 2, 4}, got.TierCutoffs)

	p, err := got.Policy()
	require.NoError(t, err)
	assert.Equal(t, CustomPolicyName, p.Name)
	assert.Equal(t, "3-4", p.TierLabel(2))
	policies := got.Policies()
	require.Len(t, policies, 3)
	assert.Equal(t, CustomPolicyName, policies[2].Name)
}

func TestPolicy_Invalid(t *testing.T) {
	c := &Global{TierPolicy: "generous"}
	_, err := c.Policy()
	assert.ErrorIs(t, err, grades.ErrInvalidPolicy)

	c = &Global{TierCutoffs: []int{2, 1}}
	_, err = c.Policy()
	assert.ErrorIs(t, err, grades.ErrInvalidPolicy)
	assert.Len(t, c.Policies(), 2)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [unterminated"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", c.ListenAddr)
}
