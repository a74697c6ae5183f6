package cmd

import (
	"Simnet/api"
	"github.com/spf13/cobra"
	"strings"
)

// Nodes launched by an earlier invocation are only known by name; the
// role flag says how they were launched.

var execCmd = &cobra.Command{
	Use:   "exec NODE COMMAND...",
	Short: "Run a command inside a node container",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Manager.Track(api.Node{Name: args[0]}, false)
		out, err := Manager.Exec(cmd.Context(), args[0], strings.Join(args[1:], " "))
		_, _ = cmd.OutOrStdout().Write(out)
		return err
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm NODE",
	Short: "Remove a node container, or both halves of a selfish node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		Manager.Track(api.Node{Name: args[0], Role: api.Role(role)}, false)
		return Manager.RemoveNode(cmd.Context(), args[0])
	},
}

var shapeCmd = &cobra.Command{
	Use:   "shape NODE",
	Short: "Change the latency of a running node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		role, _ := flags.GetString("role")
		clearFirst, _ := flags.GetBool("clear")
		delay, _ := flags.GetUint32("delay")
		except, _ := flags.GetString("except")
		exceptDelay, _ := flags.GetUint32("except-delay")

		Manager.Track(api.Node{Name: args[0], Role: api.Role(role)}, clearFirst)
		return Manager.Shape(cmd.Context(), args[0], api.LatencyProfile{
			Delay:       delay,
			ExemptIP:    except,
			ExemptDelay: exceptDelay,
		})
	},
}

var fixPermsCmd = &cobra.Command{
	Use:   "fix-perms",
	Short: "Make every node data directory writable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Manager.FixPermissions(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(execCmd, rmCmd, shapeCmd, fixPermsCmd)

	rmCmd.Flags().String("role", string(api.RoleRegular), "Role the node was launched with")

	shapeCmd.Flags().String("role", string(api.RoleRegular), "Role the node was launched with")
	shapeCmd.Flags().Bool("clear", false, "Delete the existing root qdisc first")
	shapeCmd.Flags().Uint32("delay", 0, "Delay in ms")
	shapeCmd.Flags().String("except", "", "Peer ip that is not delayed")
	shapeCmd.Flags().Uint32("except-delay", 0, "Delay in ms towards the --except peer")
}
