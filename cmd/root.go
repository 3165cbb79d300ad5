package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/gregLibert/sim-card/internal/output"
	"github.com/gregLibert/sim-card/internal/pcsc"
	"github.com/spf13/cobra"
)

var (
	readerFlag  string
	classFlag   string
	backend     string
	waitTimeout time.Duration
	jsonOutput  bool
	cborOutput  bool
	noColor     bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "simcard",
	Short: "Explore the file system of UICC / USIM cards through a PC/SC reader",
	Long:  "Lists readers, selects and reads the files of a UICC (ETSI TS 102 221) and its USIM application, decodes the files it knows and explains the status words the card answers with.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&readerFlag, "reader", "r", "", "Reader name or index (default: first reader)")
	rootCmd.PersistentFlags().StringVar(&classFlag, "cla", "", "Class byte of the basic channel in hex, e.g. A0 for GSM SIMs (default 00)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", pcsc.BackendSCard, fmt.Sprintf("PC/SC backend %v", pcsc.Backends()))
	rootCmd.PersistentFlags().DurationVar(&waitTimeout, "wait", 0, "Wait up to this long for a card to be inserted")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&cborOutput, "cbor", false, "Output as CBOR")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output, APDU exchanges included")
}

func options() output.Options {
	return output.Options{
		JSON:    jsonOutput,
		CBOR:    cborOutput,
		NoColor: noColor,
		Verbose: verbose,
	}
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		output.PrintError(os.Stderr, err.Error())
		return err
	}
	return nil
}
