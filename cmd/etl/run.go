package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vfg2006/trusted-etl/internal/domain"
)

var errRunFailed = errors.New("reconciliação falhou")

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <alvo|all>",
		Short: "Executa uma reconciliação e sai com código 1 em caso de falha",
		Long: "Alvos aceitos: dimension-stage, dimension-owner, fact (ou dim_stage, dim_owner, fact_deal).\n" +
			"\"all\" roda as dimensões e depois a fato, parando na primeira falha.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := targetsFromArg(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, err := a.newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			return a.runTargets(ctx, eng, targets)
		},
	}
}

func (a *app) runTargets(ctx context.Context, eng *engine, targets []domain.TargetKind) error {
	for _, target := range targets {
		if !eng.controller.RunReconciliation(ctx, target) {
			return fmt.Errorf("%w: %s", errRunFailed, target)
		}
	}
	return nil
}

func targetsFromArg(arg string) ([]domain.TargetKind, error) {
	if strings.EqualFold(strings.TrimSpace(arg), "all") {
		return domain.OrderedTargets(), nil
	}
	kind, err := domain.ParseTargetKind(arg)
	if err != nil {
		return nil, err
	}
	return []domain.TargetKind{kind}, nil
}
