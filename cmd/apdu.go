package cmd

import (
	"fmt"

	"github.com/gregLibert/sim-card/internal/output"
	"github.com/gregLibert/sim-card/pkg/iso7816"
	"github.com/gregLibert/sim-card/pkg/tlv"
	"github.com/spf13/cobra"
)

var apduCmd = &cobra.Command{
	Use:   "apdu <hex>",
	Short: "Send a raw command APDU and explain the exchange",
	Long:  "Sends a command such as '00 A4 04 04 07 A0000000871002' on the basic channel. GET RESPONSE and re-issued commands are sent as needed and the whole exchange is reported.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAPDU,
}

func init() {
	rootCmd.AddCommand(apduCmd)
}

func parseAPDU(args []string) (*iso7816.CommandAPDU, error) {
	raw, err := tlv.ParseHex(args...)
	if err != nil {
		return nil, fmt.Errorf("apdu: %w", err)
	}
	return iso7816.ParseCommandAPDU(raw)
}

func runAPDU(cmd *cobra.Command, args []string) error {
	apdu, err := parseAPDU(args)
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	trace, err := s.ch.Transceive(apdu)
	if err != nil {
		return err
	}
	report, err := iso7816.NewReport(trace, s.card.Profile.StatusWords)
	if err != nil {
		return err
	}
	return output.PrintReport(cmd.OutOrStdout(), report, options())
}
