package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plan = `
nodes:
  - name: alice
    ip: 240.0.0.2
    command: start-app
  - name: seed
    role: bootstrap
    ip: 240.0.0.1
    command: start-seed
`

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := Execute(context.Background())
	return out.String(), err
}

func writePlan(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(plan), 0o644))
	return path
}

func TestShowNodes(t *testing.T) {
	out, err := run(t, "show", "-f", writePlan(t), "--class", "nodes")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "seed "))
	assert.Contains(t, lines[1], "bootstrap")
	assert.True(t, strings.HasPrefix(lines[2], "alice "))
}

func TestShowCommands(t *testing.T) {
	out, err := run(t, "show", "-f", writePlan(t), "--class", "commands")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "docker network create --subnet=240.0.0.0/4 --driver=bridge isolated_network", lines[0])
	assert.Contains(t, lines[1], "--name=seed")
	assert.Contains(t, lines[2], "--name=alice")
}

func TestDryRunShape(t *testing.T) {
	out, err := run(t, "--dry-run", "shape", "bob", "--role", "selfish", "--delay", "30")
	require.NoError(t, err)
	assert.Equal(t, "docker exec bob_proxy bash -c 'tc qdisc replace dev eth0 root netem delay 30ms'\n", out)
}

func TestUnknownBackend(t *testing.T) {
	_, err := run(t, "--dry-run=false", "--backend", "podman", "fix-perms")
	require.Error(t, err)
	backendName = "shell"
}
