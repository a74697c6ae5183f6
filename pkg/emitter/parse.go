package emitter

import (
	"Simnet/api"
	"github.com/google/shlex"
	"github.com/pkg/errors"
	"strings"
)

// ErrNotARunCommand is returned by ParseRun for anything but a docker run line.
var ErrNotARunCommand = errors.New("not a docker run command")

// ParseRun recovers a directive from a line rendered by Run. Command steps
// are split on api.CommandTerminator, so a step containing it comes back
// as two steps.
func ParseRun(cmdline string) (*api.ContainerDirective, error) {
	args, err := shlex.Split(cmdline)
	if err != nil {
		return nil, errors.Wrap(err, "split command line")
	}
	if len(args) < 3 || args[0] != "docker" || args[1] != "run" {
		return nil, ErrNotARunCommand
	}

	d := &api.ContainerDirective{}
	rest := args[2:]
	for len(rest) > 0 && strings.HasPrefix(rest[0], "--") {
		flag := rest[0]
		rest = rest[1:]
		key, value, _ := strings.Cut(strings.TrimPrefix(flag, "--"), "=")
		switch key {
		case "detach":
		case "rm":
			d.AutoRemove = true
		case "net":
			d.Network = value
		case "ip":
			d.IP = value
		case "name":
			d.Name = value
		case "hostname":
			d.Hostname = value
		case "cap-add":
			d.CapAdd = append(d.CapAdd, value)
		case "volume":
			host, guest, ok := strings.Cut(value, ":")
			if !ok {
				return nil, errors.Errorf("malformed volume %q", value)
			}
			d.Volumes = append(d.Volumes, api.Volume{HostPath: host, GuestPath: guest})
		default:
			return nil, errors.Errorf("unknown flag %q", flag)
		}
	}

	if len(rest) == 0 {
		return nil, errors.New("missing image")
	}
	d.Image = rest[0]
	rest = rest[1:]

	switch {
	case len(rest) == 0:
	case len(rest) == 3 && rest[1] == "-c":
		d.Shell = rest[0]
		d.Command = api.NewCommand(strings.Split(rest[2], api.CommandTerminator)...)
	default:
		return nil, errors.Errorf("unexpected trailing arguments %q", rest)
	}
	return d, nil
}
