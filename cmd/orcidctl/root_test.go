package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestSubmit_RequiresUserID(t *testing.T) {
	_, err := execute(t, "submit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user-id")

	_, err = execute(t, "submit", "--user-id", "0")
	assert.EqualError(t, err, "--user-id must be positive")
}

func TestCommands_RequireConfig(t *testing.T) {
	for _, args := range [][]string{
		{"submit", "--user-id", "5"},
		{"sandbox-code"},
	} {
		_, err := execute(t, args...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config path is empty")
	}
}

func TestCommands_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "sandbox-code", "--config", t.TempDir()+"/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}
