package cli

import (
	"fmt"

	"sentinel/internal/platform/config"
	perr "sentinel/internal/platform/errors"
	"sentinel/internal/platform/store"
	"sentinel/internal/platform/store/migrate"

	"github.com/spf13/cobra"
)

// runMigrate is a seam for tests
var runMigrate = migrate.Run

// NewCmdMigrate creates the migrate command
func NewCmdMigrate() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or revert the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(migrate.Up), string(migrate.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := store.TargetLocal
			if remote {
				target = store.TargetRemote
			}
			cfg := store.FromConfig(config.New(), target)
			if !cfg.PG.Enabled {
				return perr.InvalidArgf("no database url configured for the %s store", target)
			}
			st, err := runMigrate(cfg.PG.URL, migrate.Direction(args[0]))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t, changed=%t)\n", st.Version, st.Dirty, st.Changed)
			return err
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "migrate SERVICE_PGSQL_REMOTE_DBURL")
	return cmd
}
