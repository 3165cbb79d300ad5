package cmd

import (
	"log"

	"github.com/gregLibert/sim-card/internal/output"
	"github.com/spf13/cobra"
)

var readersCmd = &cobra.Command{
	Use:   "readers",
	Short: "List the PC/SC readers",
	Args:  cobra.NoArgs,
	RunE:  runReaders,
}

func init() {
	rootCmd.AddCommand(readersCmd)
}

func runReaders(cmd *cobra.Command, args []string) error {
	driver, err := openDriver(backend)
	if err != nil {
		return err
	}
	defer func() {
		if err := driver.Release(); err != nil {
			log.Printf("Warning: Failed to release context: %v", err)
		}
	}()

	readers, err := driver.ListReaders()
	if err != nil {
		return err
	}
	return output.PrintReaders(cmd.OutOrStdout(), readers, options())
}
