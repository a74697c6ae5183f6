package node

import (
	"Simnet/api"
	"fmt"
	"strings"
)

// Pair is a selfish node: a disposable proxy holding the public identity
// and a private node holding the real state. Both are launched and removed
// together.
type Pair struct {
	Proxy   *api.ContainerDirective
	Private *api.ContainerDirective
}

// Directives returns the proxy first, then the private node. Nothing waits
// for the proxy to be reachable before the private node starts.
func (p *Pair) Directives() []*api.ContainerDirective {
	return []*api.ContainerDirective{p.Proxy, p.Private}
}

// Teardown removes the private node and stops the proxy, which removes itself.
func (p *Pair) Teardown() []api.RemovalDirective {
	return pairTeardown(p.Private.Name)
}

func pairTeardown(name string) []api.RemovalDirective {
	return []api.RemovalDirective{
		{Name: name},
		{Name: ProxyName(name), Stop: true},
	}
}

// ProxyName is the container name of the public half of a selfish node.
func ProxyName(name string) string {
	return name + ProxySuffix
}

// BuildPair resolves both halves of a selfish node. The shaping plan goes
// to the proxy, since it is the half the other peers talk to.
func (b *Builder) BuildPair(spec LaunchSpec) (*Pair, error) {
	n := spec.Node
	if err := requireAddr(n, "ip", n.IP); err != nil {
		return nil, err
	}
	if err := requireAddr(n, "private ip", n.PrivateIP); err != nil {
		return nil, err
	}
	if len(n.PublicIPs) == 0 {
		return nil, requireAddr(n, "public ips", "")
	}

	proxy := b.base(ProxyName(n.Name), n.IP, b.cfg.SelfishProxyImage, spec.Shaping, b.proxyCommand(n))
	proxy.AutoRemove = true
	proxy.CapAdd = []string{CapNetAdmin}

	private := b.base(n.Name, n.PrivateIP, b.cfg.NodeImage, nil, spec.Command)
	private.CapAdd = []string{CapNetAdmin}
	private.Volumes = []api.Volume{b.dataVolume(n.Name)}

	return &Pair{Proxy: proxy, Private: private}, nil
}

// selfish_proxy --private-ip=10.0.0.13 --public-ips=10.0.0.4,10.0.0.5 [args...]
func (b *Builder) proxyCommand(n api.Node) string {
	parts := []string{
		b.cfg.ProxyCommand,
		fmt.Sprintf("--private-ip=%s", n.PrivateIP),
		fmt.Sprintf("--public-ips=%s", strings.Join(n.PublicIPs, ",")),
	}
	parts = append(parts, n.Args...)
	return strings.Join(parts, " ")
}
