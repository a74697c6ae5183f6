package pkg

import (
	"Simnet/api"
	"Simnet/pkg/config"
	"Simnet/pkg/fabric"
	"Simnet/pkg/node"
	"Simnet/pkg/runtime"
	"Simnet/pkg/tc"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingBackend logs every call as a short string.
type recordingBackend struct {
	calls  []string
	plans  map[string]tc.Plan
	failOn string
}

func (r *recordingBackend) record(call string) error {
	r.calls = append(r.calls, call)
	if r.failOn != "" && strings.Contains(call, r.failOn) {
		return errors.Wrap(runtime.ErrExecFailed, call)
	}
	return nil
}

func (r *recordingBackend) Network(_ context.Context, d api.NetworkDirective) error {
	if d.Op == api.NetworkRemove {
		return r.record("network rm " + d.Name)
	}
	return r.record("network create " + d.Name + " " + d.Subnet)
}

func (r *recordingBackend) Launch(_ context.Context, d *api.ContainerDirective) error {
	return r.record(fmt.Sprintf("launch %s %s", d.Name, d.IP))
}

func (r *recordingBackend) Remove(_ context.Context, rm api.RemovalDirective) error {
	if rm.Stop {
		return r.record("stop " + rm.Name)
	}
	return r.record("rm " + rm.Name)
}

func (r *recordingBackend) Exec(_ context.Context, name, command string) ([]byte, error) {
	return []byte("out"), r.record("exec " + name + " " + command)
}

func (r *recordingBackend) Shape(_ context.Context, name string, plan tc.Plan) error {
	if r.plans == nil {
		r.plans = map[string]tc.Plan{}
	}
	r.plans[name] = plan
	return r.record(fmt.Sprintf("shape %s %d", name, len(plan)))
}

func (r *recordingBackend) FixPermissions(context.Context) error {
	return r.record("fix-perms")
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Subnet = "10.0.0.0/24"
	return cfg
}

func newTestManager() (*Manager, *recordingBackend) {
	b := &recordingBackend{}
	return NewManager(testConfig(), b, zap.NewNop()), b
}

func bob() api.Node {
	return api.Node{Name: "bob", Role: api.RoleSelfish, IP: "10.0.0.3", PrivateIP: "10.0.0.13", PublicIPs: []string{"10.0.0.4"}}
}

func TestManagerLifecycle(t *testing.T) {
	m, b := newTestManager()
	ctx := context.Background()

	require.NoError(t, m.Setup(ctx))
	require.NoError(t, m.AddNode(ctx, node.LaunchSpec{Node: api.Node{Name: "alice", IP: "10.0.0.2"}, Command: "start-app"}))
	require.NoError(t, m.AddNode(ctx, node.LaunchSpec{Node: bob(), Command: "start-app"}))
	assert.Equal(t, []string{"alice", "bob"}, m.NodeNames())

	require.NoError(t, m.Destroy(ctx))
	assert.Equal(t, []string{
		"network create isolated_network 10.0.0.0/24",
		"launch alice 10.0.0.2",
		"launch bob_proxy 10.0.0.3",
		"launch bob 10.0.0.13",
		"rm bob",
		"stop bob_proxy",
		"rm alice",
		"network rm isolated_network",
	}, b.calls)
	assert.Empty(t, m.Nodes)
	assert.Empty(t, m.NodeNames())
}

func TestManagerAddNodeBeforeSetup(t *testing.T) {
	m, b := newTestManager()
	err := m.AddNode(context.Background(), node.LaunchSpec{Node: api.Node{Name: "alice", IP: "10.0.0.2"}})
	assert.True(t, errors.Is(err, fabric.ErrNetworkMissing))
	assert.Empty(t, b.calls)
}

func TestManagerSetupTwice(t *testing.T) {
	m, _ := newTestManager()
	require.NoError(t, m.Setup(context.Background()))
	assert.True(t, errors.Is(m.Setup(context.Background()), fabric.ErrNetworkExists))
}

func TestManagerSetupFailureAllowsRetry(t *testing.T) {
	m, b := newTestManager()
	b.failOn = "network create"
	require.Error(t, m.Setup(context.Background()))
	b.failOn = ""
	require.NoError(t, m.Setup(context.Background()))
}

func TestManagerInvalidNode(t *testing.T) {
	m, b := newTestManager()
	ctx := context.Background()
	require.NoError(t, m.Setup(ctx))

	n := bob()
	n.PrivateIP = ""
	err := m.AddNode(ctx, node.LaunchSpec{Node: n})
	assert.True(t, errors.Is(err, api.ErrInvalidConfig))
	assert.Len(t, b.calls, 1)

	require.NoError(t, m.AddNode(ctx, node.LaunchSpec{Node: api.Node{Name: "alice", IP: "10.0.0.2"}}))
	err = m.AddNode(ctx, node.LaunchSpec{Node: api.Node{Name: "alice", IP: "10.0.0.7"}})
	assert.True(t, errors.Is(err, api.ErrInvalidConfig))
}

func TestManagerPartialPairLaunch(t *testing.T) {
	m, b := newTestManager()
	ctx := context.Background()
	require.NoError(t, m.Setup(ctx))

	b.failOn = "launch bob 10.0.0.13"
	require.Error(t, m.AddNode(ctx, node.LaunchSpec{Node: bob(), Command: "start-app"}))
	// the proxy is running, so the node is tracked for cleanup
	assert.Equal(t, []string{"bob"}, m.NodeNames())

	b.failOn = ""
	require.NoError(t, m.Destroy(ctx))
}

func TestManagerDestroyCollectsErrors(t *testing.T) {
	m, b := newTestManager()
	ctx := context.Background()
	require.NoError(t, m.Setup(ctx))
	require.NoError(t, m.AddNode(ctx, node.LaunchSpec{Node: api.Node{Name: "alice", IP: "10.0.0.2"}}))
	require.NoError(t, m.AddNode(ctx, node.LaunchSpec{Node: api.Node{Name: "carol", IP: "10.0.0.5"}}))

	b.failOn = "rm carol"
	err := m.Destroy(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, runtime.ErrExecFailed))
	// alice and the network were still removed
	assert.Contains(t, b.calls, "rm alice")
	assert.Equal(t, "network rm isolated_network", b.calls[len(b.calls)-1])
}

func TestManagerExec(t *testing.T) {
	m, b := newTestManager()
	ctx := context.Background()
	require.NoError(t, m.Setup(ctx))
	require.NoError(t, m.AddNode(ctx, node.LaunchSpec{Node: bob()}))

	out, err := m.Exec(ctx, "bob", "bitcoin-cli getblockcount")
	require.NoError(t, err)
	assert.Equal(t, "out", string(out))
	assert.Equal(t, "exec bob bitcoin-cli getblockcount", b.calls[len(b.calls)-1])

	_, err = m.Exec(ctx, "nobody", "true")
	require.Error(t, err)
}

func TestManagerShape(t *testing.T) {
	m, b := newTestManager()
	ctx := context.Background()
	require.NoError(t, m.Setup(ctx))
	require.NoError(t, m.AddNode(ctx, node.LaunchSpec{Node: api.Node{Name: "alice", IP: "10.0.0.2"}, Shaping: tc.Uniform("eth0", 20)}))
	require.NoError(t, m.AddNode(ctx, node.LaunchSpec{Node: bob()}))

	// alice already has a root qdisc, it is cleared first
	require.NoError(t, m.Shape(ctx, "alice", api.LatencyProfile{Delay: 50, ExemptIP: "10.0.0.13"}))
	assert.Equal(t, "tc qdisc del dev eth0 root", b.plans["alice"][0].String())
	assert.Len(t, b.plans["alice"], 6)

	// bob was launched unshaped, and is shaped on its proxy
	require.NoError(t, m.Shape(ctx, "bob", api.LatencyProfile{Delay: 50}))
	assert.Equal(t, []string{"tc qdisc replace dev eth0 root netem delay 50ms"}, b.plans["bob_proxy"].Commands())

	require.NoError(t, m.Shape(ctx, "bob", api.LatencyProfile{Delay: 70}))
	assert.Len(t, b.plans["bob_proxy"], 2)

	require.Error(t, m.Shape(ctx, "nobody", api.LatencyProfile{Delay: 1}))
	assert.True(t, errors.Is(m.Shape(ctx, "alice", api.LatencyProfile{Delay: 1, ExemptIP: "x"}), api.ErrInvalidConfig))
}

func TestManagerFixPermissions(t *testing.T) {
	m, b := newTestManager()
	require.NoError(t, m.FixPermissions(context.Background()))
	assert.Equal(t, []string{"fix-perms"}, b.calls)
}

func TestManagerTrack(t *testing.T) {
	m, b := newTestManager()
	ctx := context.Background()
	m.Track(bob(), true)
	m.Track(bob(), true)
	assert.Equal(t, []string{"bob"}, m.NodeNames())

	require.NoError(t, m.Shape(ctx, "bob", api.LatencyProfile{Delay: 10}))
	assert.Equal(t, []string{
		"tc qdisc del dev eth0 root",
		"tc qdisc replace dev eth0 root netem delay 10ms",
	}, b.plans["bob_proxy"].Commands())

	require.NoError(t, m.RemoveNode(ctx, "bob"))
	assert.Equal(t, []string{"shape bob_proxy 2", "rm bob", "stop bob_proxy"}, b.calls)
	assert.Empty(t, m.NodeNames())
}

func TestManagerShapeBootstrapWithoutNetAdmin(t *testing.T) {
	m, b := newTestManager()
	ctx := context.Background()
	require.NoError(t, m.Setup(ctx))
	require.NoError(t, m.AddNode(ctx, node.LaunchSpec{
		Node:    api.Node{Name: "seed", Role: api.RoleBootstrap, IP: "10.0.0.1"},
		Shaping: tc.Uniform("eth0", 20),
	}))
	require.NoError(t, m.AddNode(ctx, node.LaunchSpec{Node: bob(), Shaping: tc.Uniform("eth0", 20)}))

	// the launch prefix could not install a qdisc, so nothing is cleared
	require.NoError(t, m.Shape(ctx, "seed", api.LatencyProfile{Delay: 30}))
	assert.Equal(t, []string{"tc qdisc replace dev eth0 root netem delay 30ms"}, b.plans["seed"].Commands())

	// the proxy has NET_ADMIN, its launch qdisc is replaced
	require.NoError(t, m.Shape(ctx, "bob", api.LatencyProfile{Delay: 30}))
	assert.Equal(t, "tc qdisc del dev eth0 root", b.plans["bob_proxy"][0].String())
}
