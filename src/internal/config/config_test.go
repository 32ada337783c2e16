package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v, err := New("")
	require.NoError(t, err)

	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, 7*24*time.Hour, c.JWTTTL)
	assert.Equal(t, 5*time.Second, c.RequestTimeout)
	assert.Equal(t, "migrations", c.MigrationsDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("LOG_LEVEL", "debug")

	v, err := New("")
	require.NoError(t, err)
	c, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, 2*time.Hour, c.JWTTTL)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7000\"\nrequest_timeout: 10s\n"), 0o600))

	v, err := New(path)
	require.NoError(t, err)
	c, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "7000", c.Port)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
}

func TestNew_MissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	v, err := New("")
	require.NoError(t, err)
	v.Set("jwt_secret", "")

	_, err = Load(v)
	assert.EqualError(t, err, "config: jwt_secret is empty")
}
