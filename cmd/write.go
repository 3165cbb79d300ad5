package cmd

import (
	"fmt"

	"github.com/gregLibert/sim-card/pkg/sim"
	"github.com/gregLibert/sim-card/pkg/tlv"
	"github.com/spf13/cobra"
)

var (
	writeData   string
	writeRecord uint8
)

var writeCmd = &cobra.Command{
	Use:   "write <file>... --data <hex>",
	Short: "Write raw content to an elementary file",
	Long:  "Selects an EF and overwrites it (or one of its records with --record). The content must decode as the file it targets.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWrite,
}

func init() {
	writeCmd.Flags().StringVar(&writeData, "data", "", "Content in hex, spaces allowed")
	writeCmd.Flags().Uint8Var(&writeRecord, "record", 0, "Record number for record files")
	_ = writeCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(writeCmd)
}

func runWrite(cmd *cobra.Command, args []string) error {
	data, err := tlv.ParseHex(writeData)
	if err != nil {
		return fmt.Errorf("--data: %w", err)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if _, err := s.ch.SelectPath(parsePath(args)...); err != nil {
		return err
	}

	d := s.ch.Current()
	f := sim.NewFile(d, data)
	if _, err := f.Decode(); err != nil {
		return err
	}

	if d.EFType.IsRecord() {
		if writeRecord == 0 {
			return fmt.Errorf("%s is a record file: --record is required", d)
		}
		err = s.ch.WriteRecord(writeRecord, f)
	} else {
		err = s.ch.WriteFile(f)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(data), d)
	return nil
}
