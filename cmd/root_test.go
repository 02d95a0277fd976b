package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aidiscovery-cli/internal/config"
	"github.com/sells-group/aidiscovery-cli/internal/scoring"
)

// testConfig points cfg at a fresh SQLite file with every credential set.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{
		Store: config.StoreConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(t.TempDir(), "test.db"),
		},
		Google:    config.GoogleConfig{PlacesAPIKey: "places-key", BaseURL: "http://127.0.0.1:1"},
		Anthropic: config.AnthropicConfig{Key: "anthropic-key", Model: "claude-haiku-4-5-20251001", MaxTokens: 1024},
		Audit:     config.AuditConfig{CacheHours: 24, CompetitorLimit: 5, Concurrency: 2},
		Scoring:   scoring.DefaultWeights(),
		Server:    config.ServerConfig{Port: 8080, RateLimitPerMinute: 10},
		Monitoring: config.MonitoringConfig{
			FailureRateThreshold: 0.2,
			CostThresholdUSD:     10,
			LookbackHours:        24,
		},
		Log: config.LogConfig{Level: "info", Format: "json"},
	}
	cfg = c
	return c
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"audit", "score", "audits", "report", "batch", "serve", "monitor", "migrate"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "aidiscovery", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestAuditCommand_Flags(t *testing.T) {
	for _, name := range []string{"name", "city", "phone", "category", "place-id", "claims", "no-whatsapp", "fresh", "json"} {
		assert.NotNil(t, auditCmd.Flags().Lookup(name), "audit should have --%s flag", name)
	}
}

func TestScoreCommand_InputRequired(t *testing.T) {
	flag := scoreCmd.Flags().Lookup("input")
	require.NotNil(t, flag)
	assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"])
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("concurrency")
	require.NotNil(t, flag, "batch command should have --concurrency flag")
	assert.Equal(t, "0", flag.DefValue)

	flag = batchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestReportCommand_Flags(t *testing.T) {
	flag := reportCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "text", flag.DefValue)
	assert.NotNil(t, reportCmd.Flags().Lookup("out"))
}

func TestAuditsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range auditsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show"} {
		assert.True(t, names[name], "audits should have subcommand %q", name)
	}

	flag := auditsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}
