package cli

import (
	"fmt"

	"github.com/park285/opening-query/internal/config"
	"github.com/spf13/cobra"
)

type VersionInfo struct {
	Version string
	Commit  string
}

func NewRootCommand(info VersionInfo) *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:           "openingq",
		Short:         "Chess opening query form",
		Long:          "Serves the opening query form: build an opening on the board, pick filters, and submit queries to the analytics service.",
		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnv(envFiles...)
			return nil
		},
	}

	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default ./.env)")
	cmd.Version = fmt.Sprintf("%s.%s", info.Version, info.Commit)
	return cmd
}
