package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "LAUNCH", cfg.Turn.LaunchRG)
	assert.Equal(t, "FALLBACK", cfg.Turn.FallbackRG)
	assert.Equal(t, 3, cfg.Turn.RecentWindow)
	assert.Len(t, cfg.Turn.SafeUtterances, 2)
}

func TestLoadRemoteServices(t *testing.T) {
	t.Setenv("REMOTE_ENTITYLINKER_URL", "http://linker:5000")
	t.Setenv("REMOTE_ENTITYLINKER_TIMEOUT", "750ms")
	t.Setenv("REMOTE_ENTITYLINKER_REQUIRED_CONTEXT", "utterance, history")
	t.Setenv("REMOTE_DIALOGACT_URL", "http://dialogact:5000")
	t.Setenv("REMOTE_DIALOGACT_TIMEOUT", "300")

	cfg := Load()

	require.Len(t, cfg.Remote.Services, 2)
	byName := map[string]RemoteService{}
	for _, s := range cfg.Remote.Services {
		byName[s.Name] = s
	}
	assert.Equal(t, 750*time.Millisecond, byName["entitylinker"].Timeout)
	assert.Equal(t, []string{"utterance", "history"}, byName["entitylinker"].RequiredContext)
	assert.Equal(t, 300*time.Millisecond, byName["dialogact"].Timeout)
	assert.Equal(t, 1, byName["dialogact"].Retries)
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("PROMPT_CONNECTORS", "Oh,| So, |")
	assert.Equal(t, []string{"Oh,", "So,"}, getEnvAsList("PROMPT_CONNECTORS", "|", nil))
	assert.Equal(t, []string{"x"}, getEnvAsList("UNSET_LIST_KEY", "|", []string{"x"}))
}
