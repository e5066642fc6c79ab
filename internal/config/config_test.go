// File: backend/internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileSavesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg, err := Load(path)
	require.NotNil(t, cfg)
	assert.True(t, os.IsNotExist(err))

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DefaultSystemAPIKeyPlaceholder, cfg.Server.APIKey)
	assert.Equal(t, 15*time.Second, cfg.Verifier.RequestTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.Scheduler.RevalidationMaxAge)
	assert.Equal(t, 3, cfg.Scheduler.MaxFollowUps)
	assert.False(t, cfg.Outreach.AllowBlacklistRecontact)
	assert.NotEmpty(t, cfg.Niches)

	// The defaults were written back for the operator to edit.
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestLoadReadsFileAndAppliesFloors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "server": {"port": "9090", "apiKey": "test-key"},
  "verifier": {"requestTimeoutSeconds": 30, "maxRedirects": 3},
  "scheduler": {"sweepIntervalMinutes": 5, "maxFollowUps": 2},
  "outreach": {"allowBlacklistRecontact": true, "recentEmailsLimit": 10}
}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "test-key", cfg.Server.APIKey)
	assert.Equal(t, 30*time.Second, cfg.Verifier.RequestTimeout)
	assert.Equal(t, 3, cfg.Verifier.MaxRedirects)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.SweepInterval)
	assert.Equal(t, 2, cfg.Scheduler.MaxFollowUps)
	assert.True(t, cfg.Outreach.AllowBlacklistRecontact)
	assert.Equal(t, 10, cfg.Outreach.RecentEmailsLimit)

	// Fields the file left at zero get the floor defaults.
	assert.Equal(t, int64(2*1024*1024), cfg.Verifier.MaxBodyBytes)
	assert.Equal(t, 6*time.Hour, cfg.Scheduler.RevalidationInterval)
	assert.Equal(t, 5, cfg.Scheduler.WorkerCount)
}

func TestLoadNicheSetsFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, nichesConfigFilename), []byte(`[
  {"niche": "travel", "rules": [
    {"pattern": "travel", "type": "string"},
    {"pattern": "\\bvisa\\b", "type": "regex"}
  ]}
]`), 0644))

	sets, err := LoadNicheSets(dir)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, "travel", sets[0].Niche)
	require.NotNil(t, sets[0].Rules[1].CompiledRegex)
	assert.True(t, sets[0].Rules[1].CompiledRegex.MatchString("a VISA is required"))
}

func TestLoadNicheSetsMissingFileUsesDefaults(t *testing.T) {
	sets, err := LoadNicheSets(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "technology", sets[0].Niche)
}

func TestCompileNicheRulesSkipsBadRegex(t *testing.T) {
	sets := []NicheSet{{Niche: "broken", Rules: []NicheRule{
		{Pattern: "([", Type: "regex"},
		{Pattern: "good", Type: "regex"},
	}}}
	CompileNicheRules(sets)

	assert.Nil(t, sets[0].Rules[0].CompiledRegex)
	assert.NotNil(t, sets[0].Rules[1].CompiledRegex)
}
