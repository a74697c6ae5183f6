package node

import (
	"Simnet/api"
	"Simnet/pkg/config"
	"Simnet/pkg/tc"
	"github.com/pkg/errors"
	"strings"
)

const (
	// CapNetAdmin lets the container run tc on its own interfaces.
	CapNetAdmin = "NET_ADMIN"
	// ProxySuffix names the public half of a selfish node.
	ProxySuffix = "_proxy"
)

// LaunchSpec is everything needed to launch one node.
type LaunchSpec struct {
	Node    api.Node
	Command string  // startup command of the node application
	Shaping tc.Plan // optional, runs before Command
}

// Launch is the result of a build: a single directive, or a Pair for
// selfish nodes.
type Launch struct {
	Directive *api.ContainerDirective
	Pair      *Pair
}

// Directives returns the directives in launch order.
func (l *Launch) Directives() []*api.ContainerDirective {
	if l.Pair != nil {
		return l.Pair.Directives()
	}
	return []*api.ContainerDirective{l.Directive}
}

// Builder turns node descriptors into container directives.
// It has no side effects.
type Builder struct {
	cfg *config.Config
}

func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Build validates the node and resolves its launch for its role.
func (b *Builder) Build(spec LaunchSpec) (*Launch, error) {
	if err := spec.Node.Validate(); err != nil {
		return nil, err
	}

	switch spec.Node.EffectiveRole() {
	case api.RoleSelfish:
		pair, err := b.BuildPair(spec)
		if err != nil {
			return nil, err
		}
		return &Launch{Pair: pair}, nil
	case api.RoleBootstrap:
		return &Launch{Directive: b.bootstrap(spec)}, nil
	default:
		return &Launch{Directive: b.regular(spec)}, nil
	}
}

// Teardown returns the removals for a node, in order.
func (b *Builder) Teardown(n api.Node) []api.RemovalDirective {
	if n.EffectiveRole() == api.RoleSelfish {
		return pairTeardown(n.Name)
	}
	return []api.RemovalDirective{{Name: n.Name}}
}

// regular: isolated network at node.IP, data volume, NET_ADMIN for tc
func (b *Builder) regular(spec LaunchSpec) *api.ContainerDirective {
	d := b.base(spec.Node.Name, spec.Node.IP, b.cfg.NodeImage, spec.Shaping, appCommand(spec))
	d.CapAdd = []string{CapNetAdmin}
	d.Volumes = []api.Volume{b.dataVolume(spec.Node.Name)}
	return d
}

// bootstrap: a stateless seed peer, no volume and no capability
func (b *Builder) bootstrap(spec LaunchSpec) *api.ContainerDirective {
	return b.base(spec.Node.Name, spec.Node.IP, b.cfg.NodeImage, spec.Shaping, appCommand(spec))
}

// appCommand is the startup command followed by the node's extra args.
func appCommand(spec LaunchSpec) string {
	return strings.TrimSpace(strings.Join(append([]string{spec.Command}, spec.Node.Args...), " "))
}

func (b *Builder) base(name, ip, image string, shaping tc.Plan, cmd string) *api.ContainerDirective {
	command := api.NewCommand(shaping.Commands()...)
	command.Append(cmd)
	return &api.ContainerDirective{
		Image:    image,
		Network:  b.cfg.NetworkName,
		IP:       ip,
		Name:     name,
		Hostname: name,
		Shell:    b.cfg.Shell,
		Command:  command,
	}
}

func (b *Builder) dataVolume(name string) api.Volume {
	return api.Volume{HostPath: b.cfg.HostDir(name), GuestPath: b.cfg.GuestDataDir}
}

func requireAddr(n api.Node, field, value string) error {
	if value == "" {
		return errors.Wrapf(api.ErrInvalidConfig, "node %s: %s is required", n.Name, field)
	}
	return nil
}
