package api

import "strings"

// CommandTerminator joins the steps of a Command. Every step runs, in order,
// regardless of the exit status of the previous one.
const CommandTerminator = "; "

// Command is the ordered list of shell steps run at container start.
type Command struct {
	Steps []string
}

// NewCommand drops empty steps.
func NewCommand(steps ...string) Command {
	c := Command{}
	c.Append(steps...)
	return c
}

func (c *Command) Append(steps ...string) {
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			c.Steps = append(c.Steps, s)
		}
	}
}

// String joins the steps with CommandTerminator.
func (c Command) String() string {
	return strings.Join(c.Steps, CommandTerminator)
}

// Volume is a host directory mounted into a container.
type Volume struct {
	HostPath  string
	GuestPath string
}

func (v Volume) String() string {
	return v.HostPath + ":" + v.GuestPath
}

// ContainerDirective is a fully resolved container launch.
// It is built right before a launch and never modified afterwards.
type ContainerDirective struct {
	Image      string
	Network    string
	IP         string
	Name       string
	Hostname   string
	CapAdd     []string
	Volumes    []Volume
	AutoRemove bool // ephemeral, removed by the runtime on stop
	Shell      string
	Command    Command
}

// NetworkOp is the operation of a NetworkDirective.
type NetworkOp int

const (
	NetworkCreate NetworkOp = iota
	NetworkRemove
)

// NetworkDirective creates or removes the shared isolated network.
type NetworkDirective struct {
	Op     NetworkOp
	Name   string
	Driver string
	Subnet string // only for NetworkCreate
}

// RemovalDirective tears down one container by name.
type RemovalDirective struct {
	Name string
	Stop bool // stop only, for ephemeral containers that remove themselves
}
