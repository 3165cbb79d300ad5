package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gregLibert/sim-card/internal/pcsc"
	"github.com/gregLibert/sim-card/pkg/iso7816"
	"github.com/gregLibert/sim-card/pkg/sim"
	"github.com/gregLibert/sim-card/pkg/ts102221"
	"github.com/spf13/cobra"
)

// openDriver establishes the PC/SC context. Tests replace it with a scripted driver.
var openDriver = pcsc.Open

// session is an open card with its basic channel.
type session struct {
	reader *sim.Reader
	card   *sim.Card
	ch     *sim.Channel
}

// parseReader turns the --reader flag into an index or a name.
func parseReader(flag string) (int, string) {
	if flag == "" {
		return 0, ""
	}
	if idx, err := strconv.Atoi(flag); err == nil {
		return idx, ""
	}
	return 0, flag
}

func parseClass(flag string) (iso7816.Class, error) {
	raw, err := strconv.ParseUint(flag, 16, 8)
	if err != nil {
		return iso7816.Class{}, fmt.Errorf("class %q: %w", flag, err)
	}
	return iso7816.NewClass(byte(raw))
}

func openSession(cmd *cobra.Command) (*session, error) {
	profile, err := ts102221.Profile()
	if err != nil {
		return nil, err
	}

	driver, err := openDriver(backend)
	if err != nil {
		return nil, err
	}

	idx, name := parseReader(readerFlag)
	reader, err := sim.OpenReader(driver, idx, name)
	if err != nil {
		if relErr := driver.Release(); relErr != nil {
			log.Printf("Warning: Failed to release context during error handling: %v", relErr)
		}
		return nil, err
	}

	if waitTimeout > 0 {
		if err := waitForCard(cmd.Context(), driver, reader.Name); err != nil {
			closeReader(reader)
			return nil, err
		}
	}

	opts := []sim.Option{}
	if classFlag != "" {
		cla, err := parseClass(classFlag)
		if err != nil {
			closeReader(reader)
			return nil, err
		}
		opts = append(opts, sim.WithClass(cla))
	}
	if verbose {
		opts = append(opts, sim.WithLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}

	card, err := reader.OpenCard(profile, opts...)
	if err != nil {
		closeReader(reader)
		return nil, err
	}

	ch, _ := card.Channel(0)
	return &session{reader: reader, card: card, ch: ch}, nil
}

func waitForCard(parent context.Context, driver sim.Driver, reader string) error {
	w, ok := driver.(pcsc.Waiter)
	if !ok {
		log.Printf("Warning: backend %q cannot wait for a card, connecting right away", backend)
		return nil
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, waitTimeout)
	defer cancel()

	if err := w.WaitForCard(ctx, reader); err != nil {
		return fmt.Errorf("no card in %s: %w", reader, err)
	}
	return nil
}

func (s *session) close() {
	if err := s.card.Close(); err != nil {
		log.Printf("Warning: Failed to disconnect card: %v", err)
	}
	closeReader(s.reader)
}

func closeReader(r *sim.Reader) {
	if err := r.Close(); err != nil {
		log.Printf("Warning: Failed to release context: %v", err)
	}
}

// parsePath accepts file names as separate arguments or joined with '/'.
func parsePath(args []string) []string {
	var names []string
	for _, a := range args {
		for _, n := range strings.Split(a, "/") {
			if n != "" {
				names = append(names, n)
			}
		}
	}
	return names
}
