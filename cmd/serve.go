package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cppla/practicehub/routes"
	"github.com/cppla/practicehub/utils"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (graceful restart on SIGUSR2)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}

	engine := newEngine(cfg, db)
	r := routes.SetupRouter(db, engine)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	return utils.GraceServer(":"+cfg.AppPort, r,
		func() { closeDB(db) },
		func() { _ = utils.Logger.Sync() },
	)
}
