package cmd

import (
	"github.com/gregLibert/sim-card/internal/output"
	"github.com/spf13/cobra"
)

var selectCmd = &cobra.Command{
	Use:   "select <file>...",
	Short: "Select a file and show its control parameters",
	Long:  "Selects a file by name, e.g. 'simcard select ADF.USIM/EF.IMSI' or 'simcard select DF.TELECOM EF.ARR', and prints the FCP returned by the card.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSelect,
}

func init() {
	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	fcp, err := s.ch.SelectPath(parsePath(args)...)
	if err != nil {
		return err
	}
	return output.PrintFCP(cmd.OutOrStdout(), s.ch.Current(), fcp, options())
}
