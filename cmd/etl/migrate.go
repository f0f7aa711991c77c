package main

import (
	"github.com/spf13/cobra"
	"github.com/vfg2006/trusted-etl/infrastructure/migration"
	"github.com/vfg2006/trusted-etl/infrastructure/repository"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Cria o schema trusted, as dimensões e o log de execuções",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			conn, err := a.pgconn(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			runLog, err := a.runLog(conn)
			if err != nil {
				return err
			}

			return migration.NewBootstrap(repository.NewCatalogRepository(conn), runLog, a.model, a.logger).Run(ctx)
		},
	}
}
