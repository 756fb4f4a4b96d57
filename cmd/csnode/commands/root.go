package commands

import (
	"github.com/spf13/cobra"

	"github.com/csnode/corenode/config"
)

var cliConfig = config.NewDefaultConfig()

// RootCmd is the root command for csnode.
var RootCmd = &cobra.Command{
	Use:              "csnode",
	Short:            "csnode consensus node",
	TraverseChildren: true,
}

func init() {
	RootCmd.AddCommand(NewRunCmd())
	RootCmd.AddCommand(NewKeygenCmd())
}
