package cmd

import (
	"Simnet/pkg/fabric"
	"github.com/spf13/cobra"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Manage the isolated network",
}

var networkCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the isolated network on the configured subnet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := fabric.NewManager(Config).Create()
		if err != nil {
			return err
		}
		return Backend.Network(cmd.Context(), d)
	},
}

var networkRmCmd = &cobra.Command{
	Use:   "rm",
	Short: "Remove the isolated network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Backend.Network(cmd.Context(), fabric.NewManager(Config).RemoveDirective())
	},
}

func init() {
	rootCmd.AddCommand(networkCmd)
	networkCmd.AddCommand(networkCreateCmd, networkRmCmd)
}
