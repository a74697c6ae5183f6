package api

import (
	"Simnet/pkg/util"
	"regexp"

	"github.com/pkg/errors"
)

// ErrInvalidConfig is returned when a node descriptor lacks a field its role needs.
var ErrInvalidConfig = errors.New("invalid configuration")

// Role selects which launch variant a node gets.
type Role string

const (
	RoleRegular   Role = "regular"
	RoleBootstrap Role = "bootstrap"
	RoleSelfish   Role = "selfish"
)

// names docker accepts for containers and hostnames
var nameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// Node is one simulated participant.
// PrivateIP and PublicIPs are only set for selfish nodes.
type Node struct {
	Name      string   `yaml:"name"`
	Role      Role     `yaml:"role"`
	IP        string   `yaml:"ip"`
	PrivateIP string   `yaml:"privateIp,omitempty"`
	PublicIPs []string `yaml:"publicIps,omitempty"`
	Args      []string `yaml:"args,omitempty"`
}

// EffectiveRole returns the role, defaulting to regular.
func (n Node) EffectiveRole() Role {
	if n.Role == "" {
		return RoleRegular
	}
	return n.Role
}

// Validate checks the addressing invariant for the node's role.
func (n Node) Validate() error {
	if !nameRe.MatchString(n.Name) {
		return errors.Wrapf(ErrInvalidConfig, "node name %q", n.Name)
	}
	if !util.CheckIpv4(n.IP) {
		return errors.Wrapf(ErrInvalidConfig, "node %s: missing or invalid ip %q", n.Name, n.IP)
	}

	switch n.EffectiveRole() {
	case RoleRegular, RoleBootstrap:
		if n.PrivateIP != "" || len(n.PublicIPs) > 0 {
			return errors.Wrapf(ErrInvalidConfig, "node %s: private/public ips are only valid for selfish nodes", n.Name)
		}
	case RoleSelfish:
		if !util.CheckIpv4(n.PrivateIP) {
			return errors.Wrapf(ErrInvalidConfig, "selfish node %s: missing or invalid private ip %q", n.Name, n.PrivateIP)
		}
		if n.PrivateIP == n.IP {
			return errors.Wrapf(ErrInvalidConfig, "selfish node %s: private ip equals public ip", n.Name)
		}
		if len(n.PublicIPs) == 0 {
			return errors.Wrapf(ErrInvalidConfig, "selfish node %s: no public ips", n.Name)
		}
		for _, ip := range n.PublicIPs {
			if !util.CheckIpv4(ip) {
				return errors.Wrapf(ErrInvalidConfig, "selfish node %s: invalid public ip %q", n.Name, ip)
			}
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "node %s: unknown role %q", n.Name, n.Role)
	}
	return nil
}
