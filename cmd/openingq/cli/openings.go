package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/park285/opening-query/internal/board"
	"github.com/park285/opening-query/internal/opening"
	"github.com/spf13/cobra"
)

func NewOpeningsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "openings",
		Short: "List the preset openings",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIDE\tMOVES")
			for _, e := range opening.All() {
				side := string(e.Side)
				if side == "" {
					side = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, side, e.Moves)
			}
			return w.Flush()
		},
	}
}

func NewRecognizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recognize [SAN moves...]",
		Short: "Replay a line and print the opening it resolves to",
		Example: `  openingq recognize e4 c5
  openingq recognize "d4 Nf6 c4 e6 Nc3 Bb4"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			moves := opening.Split(strings.Join(args, " "))
			t := board.NewTracker()
			if err := t.LoadLine(moves); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "moves:   %s\n", t.Joined())
			fmt.Fprintf(out, "opening: %s\n", opening.Resolve(t.History()))
			if eco, ok := t.ECO(); ok {
				fmt.Fprintf(out, "eco:     %s %s\n", eco.Code, eco.Title)
			}
			fmt.Fprintf(out, "fen:     %s\n", t.FEN())
			return nil
		},
	}
}
