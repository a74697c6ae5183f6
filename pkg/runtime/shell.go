package runtime

import (
	"context"
	"fmt"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/execabs"
	"io"
	"strings"
	"sync"
)

// ErrExecFailed wraps every failure reported by the runtime. The output of
// the failed command is kept in the message.
var ErrExecFailed = errors.New("runtime: command failed")

// Runner executes one shell invocation string.
type Runner interface {
	Run(ctx context.Context, cmdline string) ([]byte, error)
}

// Dependencies is what Shell needs from os/exec.
type Dependencies interface {
	// CmdCombinedOutput is equivalent to calling c.CombinedOutput.
	CmdCombinedOutput(c *execabs.Cmd) ([]byte, error)
}

// StdlibDependencies implements Dependencies with os/exec.
type StdlibDependencies struct{}

func (*StdlibDependencies) CmdCombinedOutput(c *execabs.Cmd) ([]byte, error) {
	return c.CombinedOutput()
}

// Shell runs invocation strings with `sh -c`, so separators and quoting in
// the string are interpreted by a real shell.
type Shell struct {
	Path   string // defaults to sh
	Deps   Dependencies
	Logger *zap.Logger
}

func NewShell(logger *zap.Logger) *Shell {
	return &Shell{Path: "sh", Deps: &StdlibDependencies{}, Logger: logger}
}

func (s *Shell) Run(ctx context.Context, cmdline string) ([]byte, error) {
	s.Logger.Info("+ " + cmdline)
	cmd := execabs.CommandContext(ctx, s.Path, "-c", cmdline)
	out, err := s.Deps.CmdCombinedOutput(cmd)
	if err != nil {
		return out, errors.Wrapf(ErrExecFailed, "%s: %v: %s", cmdline, err, strings.TrimSpace(string(out)))
	}
	s.Logger.Debug("command done", zap.Int("outputBytes", len(out)))
	return out, nil
}

// DryRun prints invocation strings instead of running them.
type DryRun struct {
	W io.Writer

	mu       sync.Mutex
	commands []string
}

func (d *DryRun) Run(_ context.Context, cmdline string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, cmdline)
	if d.W != nil {
		fmt.Fprintln(d.W, cmdline)
	}
	return nil, nil
}

// Commands returns every string passed to Run so far.
func (d *DryRun) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}
