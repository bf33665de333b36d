package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
collisions:
  default-max: 32
  blocks:
    minecraft:hopper: 8
  worlds:
    nether:
      blocks:
        minecraft:hopper: 4
`

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "phase.yml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

func TestCheckCommand(t *testing.T) {
	path := writeTestConfig(t)

	out, err := runCmd(t, "check", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "default-max: 32")
	assert.Contains(t, out, "world nether: 1 blocks, 0 entities")
}

func TestCheckCommandMissingFile(t *testing.T) {
	_, err := runCmd(t, "check", "--config", filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLimitsCommand(t *testing.T) {
	path := writeTestConfig(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"global block", []string{"--block", "minecraft:hopper"}, "block:minecraft:hopper: 8"},
		{"world override", []string{"--world", "nether", "--block", "minecraft:hopper"}, "block:minecraft:hopper: 4"},
		{"default", []string{"--entity", "minecraft:zombie"}, "entity:minecraft:zombie: 32"},
		{"flag override", []string{"--entity", "minecraft:zombie", "--collisions.default-max=-1"}, "entity:minecraft:zombie: unlimited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"limits", "--config", path}, tt.args...)
			out, err := runCmd(t, args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestLimitsCommandNeedsSource(t *testing.T) {
	path := writeTestConfig(t)
	_, err := runCmd(t, "limits", "--config", path)
	assert.Error(t, err)
}
