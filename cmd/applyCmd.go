package cmd

import (
	"Simnet/pkg"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply Plan",
	Long:  `Create the isolated network and launch every node of a plan file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filepath, _ := cmd.Flags().GetString("from")
		plan, err := pkg.LoadPlan(filepath)
		if err != nil {
			return err
		}
		if err = Manager.ApplyPlan(cmd.Context(), plan); err != nil {
			Logger.Error("apply failed, run destroy with the same plan to clean up", zap.Error(err))
			return err
		}
		Logger.Info("plan applied", zap.Strings("nodes", Manager.NodeNames()))
		return nil
	},
}

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Destroy Plan",
	Long:  `Remove every container of a plan file, then the isolated network.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filepath, _ := cmd.Flags().GetString("from")
		plan, err := pkg.LoadPlan(filepath)
		if err != nil {
			return err
		}
		return Manager.TeardownPlan(cmd.Context(), plan)
	},
}

func init() {
	for _, c := range []*cobra.Command{applyCmd, destroyCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringP("from", "f", "", "Path to the plan file")
		_ = c.MarkFlagRequired("from")
	}
}
