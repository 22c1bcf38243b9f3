package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cppla/practicehub/utils"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)
			utils.Sugar.Infof("schema is up to date (driver=%s)", cfg.StoreDriver)
			return nil
		},
	}
}
