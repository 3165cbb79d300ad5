package cmd

import (
	"github.com/gregLibert/sim-card/internal/output"
	"github.com/gregLibert/sim-card/pkg/ts102221"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the file catalog of the UICC profile",
	Long:  "Prints the files the tool knows about, from the MF down to the USIM application. No card is needed.",
	Args:  cobra.NoArgs,
	RunE:  runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	profile, err := ts102221.Profile()
	if err != nil {
		return err
	}
	return output.PrintTree(cmd.OutOrStdout(), profile, options())
}
