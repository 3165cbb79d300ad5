package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gregLibert/sim-card/internal/output"
	"github.com/gregLibert/sim-card/pkg/iso7816"
	"github.com/gregLibert/sim-card/pkg/ts102221"
	"github.com/spf13/cobra"
)

var swCmd = &cobra.Command{
	Use:   "sw <SW1SW2>...",
	Short: "Explain status words",
	Long:  "Classifies status words with the UICC table, e.g. 'simcard sw 6A82 9000'. No card is needed.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSW,
}

func init() {
	rootCmd.AddCommand(swCmd)
}

func parseSW(s string) (iso7816.StatusWord, error) {
	s = strings.ReplaceAll(s, " ", "")
	if len(s) != 4 {
		return 0, fmt.Errorf("status word %q: want 4 hex digits", s)
	}
	raw, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("status word %q: %w", s, err)
	}
	return iso7816.StatusWord(raw), nil
}

func runSW(cmd *cobra.Command, args []string) error {
	profile, err := ts102221.Profile()
	if err != nil {
		return err
	}

	for _, a := range args {
		sw, err := parseSW(a)
		if err != nil {
			return err
		}
		if err := output.PrintClassification(cmd.OutOrStdout(), profile.Classify(sw), options()); err != nil {
			return err
		}
	}
	return nil
}
