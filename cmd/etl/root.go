package main

import (
	"github.com/spf13/cobra"
	"github.com/vfg2006/trusted-etl/internal/config"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/log"
)

// app guarda o que todos os subcomandos usam; é preenchido no PersistentPreRunE.
type app struct {
	cfg    *config.Config
	model  domain.Model
	logger log.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "etl",
		Short:         "Materializa a camada trusted a partir das tabelas brutas do HubSpot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	cmd.AddCommand(newRunCommand(a))
	cmd.AddCommand(newServeCommand(a))
	cmd.AddCommand(newMigrateCommand(a))
	cmd.AddCommand(newTokenCommand(a))

	return cmd
}

func (a *app) load() error {
	cfg, err := config.NewConfig()
	if err != nil {
		log.L.WithError(err).Error("Erro ao carregar configuração")
		return err
	}

	model, err := domain.NewModel(cfg.ModelNames())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.model = model
	a.logger = log.Setup(cfg.App.LogLevel)
	a.logger.Debugf("Nível de log configurado para: %s", cfg.App.LogLevel)
	return nil
}
