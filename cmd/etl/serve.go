package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vfg2006/trusted-etl/internal/api"
	"github.com/vfg2006/trusted-etl/internal/scheduler"
	"github.com/vfg2006/trusted-etl/internal/usecases/authenticating"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Inicia o agendador de reconciliação e a API de operação",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, err := a.newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			syncService := scheduler.NewReconciliationSyncService(eng.controller, a.cfg, a.logger)
			if err := syncService.Start(ctx); err != nil {
				a.logger.WithError(err).Error("Erro ao iniciar o agendador de reconciliação")
				return err
			}
			a.logger.Info("Agendador de reconciliação iniciado com sucesso")

			authenticator := authenticating.NewService(a.cfg.Auth)
			server := api.New(a.cfg.Server, authenticator, eng.conn, syncService, eng.controller, a.logger)

			if err := server.Run(ctx); err != nil {
				a.logger.WithError(err).Error("Servidor encerrado com erro")
				return err
			}
			return nil
		},
	}
}
