// Package emitter renders directives into docker CLI invocations.
//
// Flag order is fixed so the same directive always renders to the same
// string. Plain values are written bare; anything a POSIX shell would
// interpret is single-quoted.
package emitter

import (
	"Simnet/api"
	"Simnet/pkg/config"
	"Simnet/pkg/node"
	"regexp"
	"strings"
)

const (
	// SequenceSeparator runs two invocations back to back.
	SequenceSeparator = "; "

	// mount point of RootDir inside the permission repair container
	repairMount = "/mnt"
)

var safeArg = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// Emitter renders directives for the docker CLI.
type Emitter struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Emitter {
	return &Emitter{cfg: cfg}
}

// Run renders a container launch.
// docker run --detach=true --net=isolated_network --ip=10.0.0.2 --name=alice --hostname=alice
// --cap-add=NET_ADMIN --volume=/srv/alice:/data image bash -c '...'
func (e *Emitter) Run(d *api.ContainerDirective) string {
	args := []string{
		"docker", "run",
		"--detach=true",
		"--net=" + d.Network,
		"--ip=" + d.IP,
		"--name=" + d.Name,
		"--hostname=" + d.Hostname,
	}
	if d.AutoRemove {
		args = append(args, "--rm")
	}
	for _, c := range d.CapAdd {
		args = append(args, "--cap-add="+c)
	}
	for _, v := range d.Volumes {
		args = append(args, "--volume="+v.String())
	}
	args = append(args, d.Image)

	line := join(args)
	if len(d.Command.Steps) > 0 {
		line += " " + join([]string{shell(d, e.cfg), "-c"}) + " " + Quote(d.Command.String())
	}
	return line
}

// Launch renders all directives of a build in launch order, joined with
// SequenceSeparator.
func (e *Emitter) Launch(l *node.Launch) string {
	lines := []string{}
	for _, d := range l.Directives() {
		lines = append(lines, e.Run(d))
	}
	return strings.Join(lines, SequenceSeparator)
}

// Pair renders the proxy launch followed by the private node launch.
func (e *Emitter) Pair(p *node.Pair) string {
	return e.Run(p.Proxy) + SequenceSeparator + e.Run(p.Private)
}

// Network renders a network create or remove.
func (e *Emitter) Network(d api.NetworkDirective) string {
	if d.Op == api.NetworkRemove {
		return join([]string{"docker", "network", "rm", d.Name})
	}
	return join([]string{"docker", "network", "create", "--subnet=" + d.Subnet, "--driver=" + d.Driver, d.Name})
}

// Remove renders a removal: stop for ephemeral containers, forced rm otherwise.
func (e *Emitter) Remove(r api.RemovalDirective) string {
	if r.Stop {
		return e.Stop(r.Name)
	}
	return e.ForceRemove(r.Name)
}

// ForceRemove renders: docker rm --force <name>
func (e *Emitter) ForceRemove(name string) string {
	return join([]string{"docker", "rm", "--force", name})
}

// Stop renders: docker stop <name>
func (e *Emitter) Stop(name string) string {
	return join([]string{"docker", "stop", name})
}

// Exec renders a command run by the container's shell, so separators and
// redirections in command apply inside the container.
// docker exec alice bash -c 'tc qdisc del dev eth0 root'
func (e *Emitter) Exec(name, command string) string {
	return join([]string{"docker", "exec", name, e.cfg.Shell, "-c"}) + " " + Quote(command)
}

// FixPermissions renders a one-shot container making the whole RootDir
// tree writable by everyone.
func (e *Emitter) FixPermissions() string {
	return join([]string{
		"docker", "run", "--rm",
		"--volume=" + e.cfg.RootDir + ":" + repairMount,
		e.cfg.NodeImage,
		"chmod", "a+rwx", "--recursive", repairMount,
	})
}

// Quote returns s as a single shell word.
func Quote(s string) string {
	if safeArg.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func join(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, a := range args {
		quoted = append(quoted, Quote(a))
	}
	return strings.Join(quoted, " ")
}

func shell(d *api.ContainerDirective, cfg *config.Config) string {
	if d.Shell != "" {
		return d.Shell
	}
	return cfg.Shell
}
