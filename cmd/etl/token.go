package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/internal/usecases/authenticating"
	"github.com/vfg2006/trusted-etl/pkg/log"
)

func newTokenCommand(a *app) *cobra.Command {
	var (
		subject string
		role    string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Gera um token JWT para a API de operação",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := domain.ParseRole(role)
			if err != nil {
				return err
			}

			token, expiresAt, err := authenticating.NewService(a.cfg.Auth).GenerateToken(subject, r)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			a.logger.WithFields(log.Fields{
				"subject":    subject,
				"role":       r.String(),
				"expires_at": expiresAt.Format(time.RFC3339),
			}).Info("Token gerado")
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "identificação do operador")
	cmd.Flags().StringVar(&role, "role", "viewer", "papel do operador (admin|viewer)")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
