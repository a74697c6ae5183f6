package runtime

import (
	"Simnet/api"
	"Simnet/pkg/emitter"
	"Simnet/pkg/tc"
	"context"
	"go.uber.org/zap"
)

// Backend executes directives against a container runtime. It reports
// failures verbatim and never retries.
type Backend interface {
	Network(ctx context.Context, d api.NetworkDirective) error
	Launch(ctx context.Context, d *api.ContainerDirective) error
	Remove(ctx context.Context, r api.RemovalDirective) error
	Exec(ctx context.Context, name, command string) ([]byte, error)
	// Shape applies plan inside the network namespace of a running container.
	Shape(ctx context.Context, name string, plan tc.Plan) error
	FixPermissions(ctx context.Context) error
}

// ShellBackend renders directives with the emitter and hands the strings
// to a Runner.
type ShellBackend struct {
	emitter *emitter.Emitter
	runner  Runner
	logger  *zap.Logger
}

func NewShellBackend(e *emitter.Emitter, r Runner, logger *zap.Logger) *ShellBackend {
	return &ShellBackend{emitter: e, runner: r, logger: logger}
}

func (b *ShellBackend) Network(ctx context.Context, d api.NetworkDirective) error {
	_, err := b.runner.Run(ctx, b.emitter.Network(d))
	return err
}

func (b *ShellBackend) Launch(ctx context.Context, d *api.ContainerDirective) error {
	b.logger.Info("launching container", zap.String("name", d.Name), zap.String("ip", d.IP), zap.String("image", d.Image))
	_, err := b.runner.Run(ctx, b.emitter.Run(d))
	return err
}

func (b *ShellBackend) Remove(ctx context.Context, r api.RemovalDirective) error {
	_, err := b.runner.Run(ctx, b.emitter.Remove(r))
	return err
}

func (b *ShellBackend) Exec(ctx context.Context, name, command string) ([]byte, error) {
	return b.runner.Run(ctx, b.emitter.Exec(name, command))
}

// Shape runs each tc instruction through docker exec, one at a time, so a
// failing instruction stops the rest.
func (b *ShellBackend) Shape(ctx context.Context, name string, plan tc.Plan) error {
	for _, cmd := range plan.Commands() {
		if _, err := b.Exec(ctx, name, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (b *ShellBackend) FixPermissions(ctx context.Context) error {
	_, err := b.runner.Run(ctx, b.emitter.FixPermissions())
	return err
}
