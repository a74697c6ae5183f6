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
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"slices"
)

// Manager runs the testbed lifecycle: it creates the isolated network,
// launches and removes node containers, and tears everything down again.
// Directives are built by the planner, builder and fabric packages and
// executed by a runtime.Backend. Manager is not safe for concurrent use.
type Manager struct {
	Nodes  map[string]api.Node // map node name to node
	order  []string            // launch order, for teardown in reverse
	shaped map[string]bool     // nodes with a root qdisc installed by us

	cfg     *config.Config
	builder *node.Builder
	fabric  *fabric.Manager
	backend runtime.Backend
	logger  *zap.Logger
}

func NewManager(cfg *config.Config, backend runtime.Backend, logger *zap.Logger) *Manager {
	return &Manager{
		Nodes:   make(map[string]api.Node),
		shaped:  make(map[string]bool),
		cfg:     cfg,
		builder: node.NewBuilder(cfg),
		fabric:  fabric.NewManager(cfg),
		backend: backend,
		logger:  logger,
	}
}

// Setup creates the isolated network. It must succeed before any AddNode.
func (m *Manager) Setup(ctx context.Context) error {
	d, err := m.fabric.Create()
	if err != nil {
		return err
	}
	if err = m.backend.Network(ctx, d); err != nil {
		// nothing was created, allow another attempt
		_, _ = m.fabric.Remove()
		return err
	}
	return nil
}

// AddNode builds and launches a node. A selfish node launches its proxy
// first, then its private node.
func (m *Manager) AddNode(ctx context.Context, spec node.LaunchSpec) error {
	if !m.fabric.Created() {
		return errors.Wrapf(fabric.ErrNetworkMissing, "cannot launch %s", spec.Node.Name)
	}
	if _, existed := m.Nodes[spec.Node.Name]; existed {
		return errors.Wrapf(api.ErrInvalidConfig, "node %s already exists", spec.Node.Name)
	}

	launch, err := m.builder.Build(spec)
	if err != nil {
		return err
	}

	for i, d := range launch.Directives() {
		if err = m.backend.Launch(ctx, d); err != nil {
			return err
		}
		if i == 0 {
			// from here on Destroy has something to clean up
			m.Nodes[spec.Node.Name] = spec.Node
			m.order = append(m.order, spec.Node.Name)
		}
	}
	// the shaping prefix only takes effect with NET_ADMIN; the shaped
	// container is the first one launched
	m.shaped[spec.Node.Name] = len(spec.Shaping) > 0 && slices.Contains(launch.Directives()[0].CapAdd, node.CapNetAdmin)

	m.logger.Info("node added", zap.String("name", spec.Node.Name), zap.String("role", string(spec.Node.EffectiveRole())))
	return nil
}

// Track registers a node launched by an earlier process, so it can be
// shaped, exec'd into or removed. shaped tells whether it has a root qdisc.
func (m *Manager) Track(n api.Node, shaped bool) {
	if _, existed := m.Nodes[n.Name]; !existed {
		m.order = append(m.order, n.Name)
	}
	m.Nodes[n.Name] = n
	m.shaped[n.Name] = shaped
}

// RemoveNode tears a node down by name. All removals are attempted.
func (m *Manager) RemoveNode(ctx context.Context, name string) error {
	n, existed := m.Nodes[name]
	if !existed {
		return fmt.Errorf("node %s not found", name)
	}

	var errs error
	for _, r := range m.builder.Teardown(n) {
		errs = multierr.Append(errs, m.backend.Remove(ctx, r))
	}

	delete(m.Nodes, name)
	delete(m.shaped, name)
	for i, o := range m.order {
		if o == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return errs
}

// Exec runs command in the node's container. For a selfish node that is
// the private node.
func (m *Manager) Exec(ctx context.Context, name, command string) ([]byte, error) {
	if _, existed := m.Nodes[name]; !existed {
		return nil, fmt.Errorf("node %s not found", name)
	}
	return m.backend.Exec(ctx, name, command)
}

// Shape changes the latency of a running node. An earlier root qdisc is
// deleted first. Selfish nodes are shaped on their proxy.
func (m *Manager) Shape(ctx context.Context, name string, profile api.LatencyProfile) error {
	n, existed := m.Nodes[name]
	if !existed {
		return fmt.Errorf("node %s not found", name)
	}

	plan, err := tc.ForProfile(m.cfg.Device, profile, m.cfg.Subnet)
	if err != nil {
		return err
	}
	if m.shaped[name] {
		plan = append(tc.Clear(m.cfg.Device), plan...)
	}

	target := name
	if n.EffectiveRole() == api.RoleSelfish {
		target = node.ProxyName(name)
	}
	if err = m.backend.Shape(ctx, target, plan); err != nil {
		return err
	}
	m.shaped[name] = true
	return nil
}

// FixPermissions makes every node data directory writable by everyone.
func (m *Manager) FixPermissions(ctx context.Context) error {
	return m.backend.FixPermissions(ctx)
}

// Destroy removes every node, newest first, then the network. It keeps
// going on failure and returns all errors.
func (m *Manager) Destroy(ctx context.Context) error {
	var errs error
	for i := len(m.order) - 1; i >= 0; i-- {
		name := m.order[i]
		if err := m.RemoveNode(ctx, name); err != nil {
			m.logger.Warn("failed to remove node", zap.String("name", name), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}

	if m.fabric.Created() {
		d, err := m.fabric.Remove()
		if err == nil {
			err = m.backend.Network(ctx, d)
		}
		errs = multierr.Append(errs, err)
	}
	return errs
}

// NodeNames returns the nodes in launch order.
func (m *Manager) NodeNames() []string {
	return append([]string(nil), m.order...)
}
