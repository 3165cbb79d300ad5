package cmd

import (
	"bytes"
	"log"

	"github.com/gregLibert/sim-card/internal/output"
	"github.com/gregLibert/sim-card/pkg/sim"
	"github.com/gregLibert/sim-card/pkg/ts102221"
	"github.com/spf13/cobra"
)

var appsSelect bool

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List the applications registered in EF.DIR",
	Long:  "Reads every record of EF.DIR and lists the applications of the card. With --select, each application the tool knows is selected and its FCP printed.",
	Args:  cobra.NoArgs,
	RunE:  runApps,
}

func init() {
	appsCmd.Flags().BoolVar(&appsSelect, "select", false, "Select every known application and show its FCP")
	rootCmd.AddCommand(appsCmd)
}

func runApps(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if _, err := s.ch.Select("EF.DIR"); err != nil {
		return err
	}
	records, err := s.ch.ReadRecords()
	if err != nil {
		return err
	}
	apps, err := ts102221.Applications(records)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if err := output.PrintApplications(w, apps, options()); err != nil {
		return err
	}
	if !appsSelect {
		return nil
	}

	for _, app := range apps {
		adf := findADF(s.card.Profile.Tree, app.AID)
		if adf == nil {
			log.Printf("Skipping AID %X: not in profile %q", app.AID, s.card.Profile.Name)
			continue
		}

		fcp, err := s.ch.SelectFile(adf)
		if err != nil {
			log.Printf("Selection of %s failed: %v", adf, err)
			continue
		}
		if err := output.PrintFCP(w, adf, fcp, options()); err != nil {
			return err
		}
	}
	return nil
}

// findADF returns the application of the MF whose DF name is a prefix of aid.
func findADF(tree *sim.Tree, aid []byte) *sim.FileDescriptor {
	for _, d := range tree.Root().Children() {
		if d.Type == sim.FileTypeADF && bytes.HasPrefix(aid, d.DFName) {
			return d
		}
	}
	return nil
}
