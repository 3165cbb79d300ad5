package cmd

import (
	"github.com/gregLibert/sim-card/internal/output"
	"github.com/gregLibert/sim-card/pkg/sim"
	"github.com/spf13/cobra"
)

var readRecord uint8

var readCmd = &cobra.Command{
	Use:   "read <file>...",
	Short: "Read and decode an elementary file",
	Long:  "Selects an EF and reads it whole: transparent files in one go, record files record by record (or only --record).",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRead,
}

func init() {
	readCmd.Flags().Uint8Var(&readRecord, "record", 0, "Read only this record of a record file")
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if _, err := s.ch.SelectPath(parsePath(args)...); err != nil {
		return err
	}

	files, err := readSelected(s.ch, readRecord)
	if err != nil {
		return err
	}
	return output.PrintFiles(cmd.OutOrStdout(), files, options())
}

func readSelected(ch *sim.Channel, record uint8) ([]*sim.File, error) {
	d := ch.Current()
	if !d.EFType.IsRecord() {
		f, err := ch.ReadFile()
		if err != nil {
			return nil, err
		}
		return []*sim.File{f}, nil
	}

	if record == 0 {
		return ch.ReadRecords()
	}

	data, err := ch.ReadRecord(record)
	if err != nil {
		return nil, err
	}
	f := sim.NewFile(d, data)
	f.Record = record
	return []*sim.File{f}, nil
}
