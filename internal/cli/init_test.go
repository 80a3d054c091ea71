package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"fintrack/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FINTRACK_CLI_TEST_VALUE=from-file\n"), 0o600))
	t.Setenv("FINTRACK_CLI_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("FINTRACK_CLI_TEST_VALUE"))

	require.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("FINTRACK_CLI_TEST_VALUE"))
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := SetupLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = SetupLogger(&config.Config{LogLevel: "loud"}, &buf)
	assert.Error(t, err)
}
