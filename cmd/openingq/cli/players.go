package cli

import (
	"fmt"
	"strings"

	"github.com/park285/opening-query/internal/config"
	"github.com/park285/opening-query/internal/players"
	"github.com/spf13/cobra"
)

func NewPlayersCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "players QUERY",
		Short: "Show player autocomplete suggestions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			dir, err := players.Load(cfg.PlayersFile)
			if err != nil {
				return err
			}
			for _, name := range dir.Suggest(strings.Join(args, " "), limit) {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", players.DefaultLimit, "maximum suggestions")
	return cmd
}
