package cmd

import (
	"Simnet/api"
	"Simnet/pkg"
	"Simnet/pkg/emitter"
	"Simnet/pkg/runtime"
	"fmt"
	"github.com/spf13/cobra"
	"io"
	"strings"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show Plan",
	Long:  `Show the nodes of a plan file, or the docker commands applying it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filepath, _ := cmd.Flags().GetString("from")
		plan, err := pkg.LoadPlan(filepath)
		if err != nil {
			return err
		}

		switch class := cmd.Flag("class").Value.String(); class {
		case "nodes":
			if err = pkg.ValidatePlan(Config, plan); err != nil {
				return err
			}
			showNodes(cmd.OutOrStdout(), plan)
			return nil
		case "commands":
			// always rendered, never run
			dry := &runtime.DryRun{W: cmd.OutOrStdout()}
			m := pkg.NewManager(Config, runtime.NewShellBackend(emitter.New(Config), dry, Logger), Logger)
			return m.ApplyPlan(cmd.Context(), plan)
		default:
			return fmt.Errorf("invalid class %q", class)
		}
	},
}

func showNodes(w io.Writer, plan *api.Plan) {
	fmt.Fprintf(w, "%-16s %-10s %-16s %-16s %s\n", "NAME", "ROLE", "IP", "PRIVATE IP", "PUBLIC IPS")
	for _, n := range pkg.LaunchOrder(plan) {
		fmt.Fprintf(w, "%-16s %-10s %-16s %-16s %s\n",
			n.Name, n.EffectiveRole(), n.IP, orDash(n.PrivateIP), orDash(strings.Join(n.PublicIPs, ",")))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringP("from", "f", "", "Path to the plan file")
	showCmd.Flags().String("class", "nodes", "What to show: nodes or commands")
	_ = showCmd.MarkFlagRequired("from")
}
