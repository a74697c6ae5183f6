package cmd

import (
	"Simnet/pkg"
	"Simnet/pkg/config"
	"Simnet/pkg/emitter"
	"Simnet/pkg/runtime"
	"context"
	"fmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath  string
	backendName string
	dryRun      bool
	verbose     bool

	Config  *config.Config
	Logger  *zap.Logger
	Backend runtime.Backend
	Manager *pkg.Manager
)

var rootCmd = &cobra.Command{
	Use:   "simnet",
	Short: "simnet testbed CLI",
	Long: `A command-line tool for provisioning isolated container testbeds:
one private network, node containers with artificial latency, and
selfish nodes hidden behind a proxy.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = Logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the testbed configuration file")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "shell", "Container runtime backend: shell or docker")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print docker commands instead of running them")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose development logging")
}

// setup loads the configuration and wires the logger, backend and manager
// every subcommand works with.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if verbose {
		Logger, err = zap.NewDevelopment()
	} else {
		Logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}

	Config = config.Default()
	if configPath != "" {
		if Config, err = config.Load(configPath); err != nil {
			return err
		}
	}

	if Backend, err = newBackend(cmd); err != nil {
		return err
	}
	Manager = pkg.NewManager(Config, Backend, Logger)
	return nil
}

func newBackend(cmd *cobra.Command) (runtime.Backend, error) {
	if dryRun {
		return runtime.NewShellBackend(emitter.New(Config), &runtime.DryRun{W: cmd.OutOrStdout()}, Logger), nil
	}

	switch backendName {
	case "shell":
		return runtime.NewShellBackend(emitter.New(Config), runtime.NewShell(Logger), Logger), nil
	case "docker":
		b, err := runtime.NewDockerBackend(Config, Logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown backend %q, want shell or docker", backendName)
	}
}
