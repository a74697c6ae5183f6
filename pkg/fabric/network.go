package fabric

import (
	"Simnet/api"
	"Simnet/pkg/config"
	"github.com/pkg/errors"
)

var (
	ErrNetworkExists  = errors.New("network already created")
	ErrNetworkMissing = errors.New("network not created")
)

// Manager emits the directives for the shared isolated network. There is
// one network per experiment: it is created before any node container and
// removed after all of them are gone.
//
// Manager only tracks what it has emitted itself; whether the network
// really exists is up to the runtime.
type Manager struct {
	cfg     *config.Config
	created bool
}

func NewManager(cfg *config.Config) *Manager {
	return &Manager{cfg: cfg}
}

// Create returns the directive creating the network on cfg.Subnet.
// docker network create --subnet=10.0.0.0/24 --driver=bridge isolated_network
func (m *Manager) Create() (api.NetworkDirective, error) {
	if m.created {
		return api.NetworkDirective{}, errors.Wrap(ErrNetworkExists, m.cfg.NetworkName)
	}
	m.created = true
	return api.NetworkDirective{
		Op:     api.NetworkCreate,
		Name:   m.cfg.NetworkName,
		Driver: m.cfg.Driver,
		Subnet: m.cfg.Subnet,
	}, nil
}

// Remove returns the directive removing the network. The runtime rejects it
// while containers are still attached.
// docker network rm isolated_network
func (m *Manager) Remove() (api.NetworkDirective, error) {
	if !m.created {
		return api.NetworkDirective{}, errors.Wrap(ErrNetworkMissing, m.cfg.NetworkName)
	}
	m.created = false
	return m.RemoveDirective(), nil
}

// RemoveDirective returns the removal directive without checking state,
// for cleaning up a network left by an earlier run.
func (m *Manager) RemoveDirective() api.NetworkDirective {
	return api.NetworkDirective{Op: api.NetworkRemove, Name: m.cfg.NetworkName}
}

// Created reports whether Create was emitted without a matching Remove.
func (m *Manager) Created() bool {
	return m.created
}
