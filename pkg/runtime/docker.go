package runtime

import (
	"Simnet/api"
	"Simnet/pkg/config"
	"Simnet/pkg/tc"
	"bytes"
	"context"
	"fmt"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"strings"
)

const repairMount = "/mnt"

// DockerBackend drives the docker engine API directly instead of the CLI.
// Shaping is applied from the host through netlink in the container's
// network namespace, so it needs root on the host but no tc binary in the
// image.
type DockerBackend struct {
	dClient client.APIClient
	cfg     *config.Config
	logger  *zap.Logger
	applyTc func(nsPath string, plan tc.Plan) error
}

func NewDockerBackend(cfg *config.Config, logger *zap.Logger) (*DockerBackend, error) {
	dClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("error creating docker client: %v", err)
	}
	return newDockerBackend(dClient, cfg, logger), nil
}

func newDockerBackend(c client.APIClient, cfg *config.Config, logger *zap.Logger) *DockerBackend {
	return &DockerBackend{dClient: c, cfg: cfg, logger: logger, applyTc: tc.Apply}
}

func (b *DockerBackend) Network(ctx context.Context, d api.NetworkDirective) error {
	if d.Op == api.NetworkRemove {
		b.logger.Info("removing network", zap.String("network", d.Name))
		return wrapDocker(b.dClient.NetworkRemove(ctx, d.Name), "network rm "+d.Name)
	}

	b.logger.Info("creating network", zap.String("network", d.Name), zap.String("subnet", d.Subnet))
	_, err := b.dClient.NetworkCreate(ctx, d.Name, networkCreateOptions(d))
	return wrapDocker(err, "network create "+d.Name)
}

// Launch creates and starts the container, the equivalent of docker run --detach.
func (b *DockerBackend) Launch(ctx context.Context, d *api.ContainerDirective) error {
	b.logger.Info("launching container", zap.String("name", d.Name), zap.String("ip", d.IP), zap.String("image", d.Image))

	cConfig, hConfig, nConfig := containerConfigs(d)
	resp, err := b.dClient.ContainerCreate(ctx, cConfig, hConfig, nConfig, nil, d.Name)
	if err != nil {
		return wrapDocker(err, "create "+d.Name)
	}
	for _, w := range resp.Warnings {
		b.logger.Warn("docker warning", zap.String("name", d.Name), zap.String("warning", w))
	}

	if err = b.dClient.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return wrapDocker(err, "start "+d.Name)
	}
	return nil
}

func (b *DockerBackend) Remove(ctx context.Context, r api.RemovalDirective) error {
	if r.Stop {
		b.logger.Info("stopping container", zap.String("name", r.Name))
		return wrapDocker(b.dClient.ContainerStop(ctx, r.Name, container.StopOptions{}), "stop "+r.Name)
	}
	b.logger.Info("removing container", zap.String("name", r.Name))
	return wrapDocker(b.dClient.ContainerRemove(ctx, r.Name, container.RemoveOptions{Force: true}), "rm "+r.Name)
}

// Exec runs command with the configured shell in the container and returns its combined output.
func (b *DockerBackend) Exec(ctx context.Context, name, command string) ([]byte, error) {
	b.logger.Info("exec", zap.String("name", name), zap.String("command", command))

	exec, err := b.dClient.ContainerExecCreate(ctx, name, container.ExecOptions{
		Cmd:          []string{b.cfg.Shell, "-c", command},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, wrapDocker(err, "exec "+name)
	}

	attach, err := b.dClient.ContainerExecAttach(ctx, exec.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, wrapDocker(err, "exec attach "+name)
	}
	defer attach.Close()

	var out bytes.Buffer
	if _, err = stdcopy.StdCopy(&out, &out, attach.Reader); err != nil {
		return out.Bytes(), wrapDocker(err, "exec read "+name)
	}

	inspect, err := b.dClient.ContainerExecInspect(ctx, exec.ID)
	if err != nil {
		return out.Bytes(), wrapDocker(err, "exec inspect "+name)
	}
	if inspect.ExitCode != 0 {
		return out.Bytes(), errors.Wrapf(ErrExecFailed, "exec %s %q: exit code %d: %s",
			name, command, inspect.ExitCode, strings.TrimSpace(out.String()))
	}
	return out.Bytes(), nil
}

// Shape looks up the container's init pid and applies plan in its netns.
func (b *DockerBackend) Shape(ctx context.Context, name string, plan tc.Plan) error {
	nsPath, err := b.netNs(ctx, name)
	if err != nil {
		return err
	}
	b.logger.Info("shaping", zap.String("name", name), zap.String("netns", nsPath), zap.Strings("plan", plan.Commands()))
	if err = b.applyTc(nsPath, plan); err != nil {
		return errors.Wrapf(ErrExecFailed, "shape %s: %v", name, err)
	}
	return nil
}

func (b *DockerBackend) netNs(ctx context.Context, name string) (string, error) {
	res, err := b.dClient.ContainerInspect(ctx, name)
	if err != nil {
		return "", wrapDocker(err, "inspect "+name)
	}
	if res.ContainerJSONBase == nil || res.State == nil || res.State.Pid == 0 {
		return "", errors.Wrapf(ErrExecFailed, "container %s is not running", name)
	}
	return fmt.Sprintf("/proc/%d/ns/net", res.State.Pid), nil
}

// FixPermissions runs a throwaway container making RootDir writable by everyone.
func (b *DockerBackend) FixPermissions(ctx context.Context) error {
	b.logger.Info("fixing data dir permissions", zap.String("rootDir", b.cfg.RootDir))

	resp, err := b.dClient.ContainerCreate(ctx, &container.Config{
		Image: b.cfg.NodeImage,
		Cmd:   []string{"chmod", "a+rwx", "--recursive", repairMount},
	}, &container.HostConfig{
		Binds: []string{b.cfg.RootDir + ":" + repairMount},
	}, nil, nil, "")
	if err != nil {
		return wrapDocker(err, "create permission repair container")
	}
	defer func() {
		if err := b.dClient.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true}); err != nil {
			b.logger.Warn("failed to remove permission repair container", zap.Error(err))
		}
	}()

	if err = b.dClient.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return wrapDocker(err, "start permission repair container")
	}

	statusCh, errCh := b.dClient.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return wrapDocker(err, "wait permission repair container")
	case status := <-statusCh:
		if status.StatusCode != 0 {
			return errors.Wrapf(ErrExecFailed, "permission repair exited with code %d", status.StatusCode)
		}
	}
	return nil
}

func containerConfigs(d *api.ContainerDirective) (*container.Config, *container.HostConfig, *network.NetworkingConfig) {
	cConfig := &container.Config{
		Image:    d.Image,
		Hostname: d.Hostname,
	}
	if len(d.Command.Steps) > 0 {
		cConfig.Cmd = []string{d.Shell, "-c", d.Command.String()}
	}

	binds := make([]string, 0, len(d.Volumes))
	for _, v := range d.Volumes {
		binds = append(binds, v.String())
	}
	hConfig := &container.HostConfig{
		NetworkMode: container.NetworkMode(d.Network),
		CapAdd:      d.CapAdd,
		Binds:       binds,
		AutoRemove:  d.AutoRemove,
	}

	nConfig := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			d.Network: {
				IPAMConfig: &network.EndpointIPAMConfig{IPv4Address: d.IP},
			},
		},
	}
	return cConfig, hConfig, nConfig
}

func networkCreateOptions(d api.NetworkDirective) network.CreateOptions {
	return network.CreateOptions{
		Driver: d.Driver,
		IPAM: &network.IPAM{
			Driver: "default",
			Config: []network.IPAMConfig{{Subnet: d.Subnet}},
		},
	}
}

func wrapDocker(err error, what string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(ErrExecFailed, "%s: %v", what, err)
}
