package runtime

import (
	"Simnet/api"
	"Simnet/pkg/config"
	"Simnet/pkg/emitter"
	"Simnet/pkg/tc"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// failingRunner fails every command containing failOn.
type failingRunner struct {
	DryRun
	failOn string
}

func (f *failingRunner) Run(ctx context.Context, cmdline string) ([]byte, error) {
	_, _ = f.DryRun.Run(ctx, cmdline)
	if f.failOn != "" && strings.Contains(cmdline, f.failOn) {
		return nil, errors.Wrap(ErrExecFailed, cmdline)
	}
	return nil, nil
}

func newShellBackend(r Runner) *ShellBackend {
	cfg := config.Default()
	cfg.Subnet = "10.0.0.0/24"
	return NewShellBackend(emitter.New(cfg), r, zap.NewNop())
}

func TestShellBackend(t *testing.T) {
	r := &DryRun{}
	b := newShellBackend(r)
	ctx := context.Background()

	require.NoError(t, b.Network(ctx, api.NetworkDirective{Op: api.NetworkCreate, Name: "isolated_network", Driver: "bridge", Subnet: "10.0.0.0/24"}))
	require.NoError(t, b.Launch(ctx, &api.ContainerDirective{
		Image: "img", Network: "isolated_network", IP: "10.0.0.2", Name: "alice", Hostname: "alice",
		Shell: "bash", Command: api.NewCommand("start-app"),
	}))
	_, err := b.Exec(ctx, "alice", "ls /data")
	require.NoError(t, err)
	require.NoError(t, b.Remove(ctx, api.RemovalDirective{Name: "alice"}))
	require.NoError(t, b.FixPermissions(ctx))
	require.NoError(t, b.Network(ctx, api.NetworkDirective{Op: api.NetworkRemove, Name: "isolated_network"}))

	assert.Equal(t, []string{
		"docker network create --subnet=10.0.0.0/24 --driver=bridge isolated_network",
		"docker run --detach=true --net=isolated_network --ip=10.0.0.2 --name=alice --hostname=alice img bash -c start-app",
		"docker exec alice bash -c 'ls /data'",
		"docker rm --force alice",
		"docker run --rm --volume=/tmp/simnet:/mnt simnet/node chmod a+rwx --recursive /mnt",
		"docker network rm isolated_network",
	}, r.Commands())
}

func TestShellBackendExecRunsInContainer(t *testing.T) {
	deps := &fakeDeps{}
	shell := NewShell(zap.NewNop())
	shell.Deps = deps
	b := newShellBackend(shell)

	_, err := b.Exec(context.Background(), "alice", "echo hi > /data/marker; ls")
	require.NoError(t, err)
	// redirection and separator reach the container shell as one argument
	assert.Equal(t, []string{"sh", "-c", "docker exec alice bash -c 'echo hi > /data/marker; ls'"}, deps.args)
}

func TestShellBackendShape(t *testing.T) {
	r := &DryRun{}
	b := newShellBackend(r)

	require.NoError(t, b.Shape(context.Background(), "carol", tc.ExceptIP("eth0", 40, "10.0.0.13", 0, "10.0.0.0/24")))
	cmds := r.Commands()
	require.Len(t, cmds, 5)
	assert.Equal(t, "docker exec carol bash -c 'tc qdisc add dev eth0 root handle 1: prio'", cmds[0])
	assert.Equal(t, "docker exec carol bash -c 'tc qdisc add dev eth0 parent 1:2 handle 20: netem delay 40ms'", cmds[4])
}

func TestShellBackendShapeStopsOnFailure(t *testing.T) {
	r := &failingRunner{failOn: "u32"}
	b := newShellBackend(r)

	err := b.Shape(context.Background(), "carol", tc.ExceptIP("eth0", 40, "10.0.0.13", 0, "10.0.0.0/24"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecFailed))
	assert.Len(t, r.Commands(), 2)
}
