package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-rustlet/rustlet/config"
)

func TestLoadAppliesDefaults(t *testing.T) {
	var cfg config.Config
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 1800, cfg.Session.TimeoutSeconds)
	assert.Equal(t, "./public", cfg.DocumentRoot)
	assert.Equal(t, ".rsp", cfg.TemplateExtension)
	assert.Equal(t, "./certs", cfg.ACME.OutputDir)
	assert.Empty(t, cfg.ACME.Domain)
}

func TestLoadHonorsEnvironmentOverride(t *testing.T) {
	t.Setenv("RUSTLET_DOCUMENT_ROOT", "/srv/pages")
	t.Setenv("RUSTLET_SESSION_TIMEOUT_SECONDS", "60")

	var cfg config.Config
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "/srv/pages", cfg.DocumentRoot)
	assert.Equal(t, 60, cfg.Session.TimeoutSeconds)
}

func TestDefaultConfigMatchesLoadDefaults(t *testing.T) {
	var loaded config.Config
	require.NoError(t, config.Load(&loaded))

	assert.Equal(t, config.DefaultConfig().DocumentRoot, "./public")
	assert.Equal(t, loaded, config.DefaultConfig())
}
