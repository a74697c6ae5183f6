package config

import (
	"Simnet/pkg/util"
	"fmt"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"os"
	"path/filepath"
)

const (
	DefaultNetworkName  = "isolated_network"
	DefaultDriver       = "bridge"
	DefaultDevice       = "eth0"
	DefaultShell        = "bash"
	DefaultGuestDataDir = "/data"
	DefaultSubnet       = "240.0.0.0/4"
	DefaultNodeImage    = "simnet/node"
	DefaultProxyImage   = "simnet/selfish-proxy"
	DefaultProxyCommand = "selfish_proxy"
	DefaultRootDir      = "/tmp/simnet"
)

// Config holds every static value the testbed needs. It is passed
// explicitly to the components that need it.
type Config struct {
	RootDir           string `yaml:"rootDir"`           // host directory holding one data dir per node
	NodeImage         string `yaml:"nodeImage"`         // standard node image
	SelfishProxyImage string `yaml:"selfishProxyImage"` // image of the public half of a selfish node
	ProxyCommand      string `yaml:"proxyCommand"`      // entrypoint of the proxy image
	Subnet            string `yaml:"subnet"`            // CIDR of the isolated network
	NetworkName       string `yaml:"networkName"`
	Driver            string `yaml:"driver"`
	GuestDataDir      string `yaml:"guestDataDir"` // data path of the node application inside the container
	Device            string `yaml:"device"`       // interface shaped by tc inside the container
	Shell             string `yaml:"shell"`        // shell running the inline container command
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RootDir:           DefaultRootDir,
		NodeImage:         DefaultNodeImage,
		SelfishProxyImage: DefaultProxyImage,
		ProxyCommand:      DefaultProxyCommand,
		Subnet:            DefaultSubnet,
		NetworkName:       DefaultNetworkName,
		Driver:            DefaultDriver,
		GuestDataDir:      DefaultGuestDataDir,
		Device:            DefaultDevice,
		Shell:             DefaultShell,
	}
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config file: %v", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that no field is empty and the subnet is a CIDR.
func (c *Config) Validate() error {
	fields := []struct {
		name, value string
	}{
		{"rootDir", c.RootDir},
		{"nodeImage", c.NodeImage},
		{"selfishProxyImage", c.SelfishProxyImage},
		{"proxyCommand", c.ProxyCommand},
		{"networkName", c.NetworkName},
		{"driver", c.Driver},
		{"guestDataDir", c.GuestDataDir},
		{"device", c.Device},
		{"shell", c.Shell},
	}
	for _, f := range fields {
		if f.value == "" {
			return errors.Errorf("config: %s must not be empty", f.name)
		}
	}
	if !util.CheckSubnet(c.Subnet) {
		return errors.Errorf("config: invalid subnet %q", c.Subnet)
	}
	if !filepath.IsAbs(c.GuestDataDir) {
		return errors.Errorf("config: guestDataDir %q is not absolute", c.GuestDataDir)
	}
	return nil
}

// HostDir is the host data directory of the named node.
func (c *Config) HostDir(name string) string {
	return filepath.Join(c.RootDir, name)
}
