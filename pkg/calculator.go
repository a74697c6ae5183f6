package pkg

import (
	"Simnet/api"
	"Simnet/pkg/config"
	"Simnet/pkg/node"
	"Simnet/pkg/tc"
	"Simnet/pkg/util"
	"context"
	"fmt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
	"os"
	"sort"
)

// LoadPlan reads a YAML plan file.
func LoadPlan(filepath string) (*api.Plan, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("error reading YAML file: %v", err)
	}

	var plan api.Plan
	if err = yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("error unmarshaling YAML file: %v", err)
	}
	return &plan, nil
}

// ValidatePlan checks every node and latency profile, and that names and
// addresses are unique and inside the configured subnet. Nothing is
// launched for a plan that fails it.
func ValidatePlan(cfg *config.Config, plan *api.Plan) error {
	names := map[string]bool{}
	ips := map[string]string{}
	claim := func(name, ip string) error {
		if ip == "" {
			return nil
		}
		if !util.SubnetContains(cfg.Subnet, ip) {
			return errors.Wrapf(api.ErrInvalidConfig, "node %s: %s is outside %s", name, ip, cfg.Subnet)
		}
		if owner, taken := ips[ip]; taken {
			return errors.Wrapf(api.ErrInvalidConfig, "node %s: %s already used by %s", name, ip, owner)
		}
		ips[ip] = name
		return nil
	}

	for _, pn := range plan.Nodes {
		if err := pn.Node.Validate(); err != nil {
			return err
		}
		if names[pn.Name] || names[node.ProxyName(pn.Name)] {
			return errors.Wrapf(api.ErrInvalidConfig, "duplicate node name %s", pn.Name)
		}
		names[pn.Name] = true
		if pn.EffectiveRole() == api.RoleSelfish {
			names[node.ProxyName(pn.Name)] = true
		}
		if err := claim(pn.Name, pn.IP); err != nil {
			return err
		}
		if err := claim(pn.Name, pn.PrivateIP); err != nil {
			return err
		}
		if pn.Latency != nil {
			if _, err := tc.ForProfile(cfg.Device, *pn.Latency, cfg.Subnet); err != nil {
				return errors.Wrapf(err, "node %s", pn.Name)
			}
		}
	}
	return nil
}

// LaunchOrder returns the plan's nodes with bootstrap nodes first, keeping
// the file order otherwise.
func LaunchOrder(plan *api.Plan) []api.PlanNode {
	nodes := append([]api.PlanNode(nil), plan.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].EffectiveRole() == api.RoleBootstrap && nodes[j].EffectiveRole() != api.RoleBootstrap
	})
	return nodes
}

// ApplyPlan creates the network and launches every node of the plan.
func (m *Manager) ApplyPlan(ctx context.Context, plan *api.Plan) error {
	if err := ValidatePlan(m.cfg, plan); err != nil {
		return err
	}

	if !m.fabric.Created() {
		if err := m.Setup(ctx); err != nil {
			return err
		}
	}

	for _, pn := range LaunchOrder(plan) {
		spec := node.LaunchSpec{Node: pn.Node, Command: pn.Command}
		if pn.Latency != nil {
			shaping, err := tc.ForProfile(m.cfg.Device, *pn.Latency, m.cfg.Subnet)
			if err != nil {
				return errors.Wrapf(err, "node %s", pn.Name)
			}
			spec.Shaping = shaping
		}
		if err := m.AddNode(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// TeardownPlan removes what a plan launched, including the network, without
// relying on state from the process that applied it.
func (m *Manager) TeardownPlan(ctx context.Context, plan *api.Plan) error {
	var errs error
	nodes := LaunchOrder(plan)
	for i := len(nodes) - 1; i >= 0; i-- {
		for _, r := range m.builder.Teardown(nodes[i].Node) {
			errs = multierr.Append(errs, m.backend.Remove(ctx, r))
		}
	}
	errs = multierr.Append(errs, m.backend.Network(ctx, m.fabric.RemoveDirective()))
	return errs
}
