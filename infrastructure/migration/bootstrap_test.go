package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/trusted-etl/infrastructure/repository"
	"github.com/vfg2006/trusted-etl/infrastructure/repository/mocks"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/log"
	"go.uber.org/mock/gomock"
)

func TestBootstrap_Run(t *testing.T) {
	model, err := domain.NewModel(domain.DefaultModelNames())
	require.NoError(t, err)

	tests := []struct {
		name      string
		withLog   bool
		setup     func(catalog *mocks.MockCatalogRepository, runLog *mocks.MockRunLogRepository)
		wantError string
	}{
		{
			name:    "Cria schema, dimensões e log de execuções",
			withLog: true,
			setup: func(catalog *mocks.MockCatalogRepository, runLog *mocks.MockRunLogRepository) {
				gomock.InOrder(
					catalog.EXPECT().EnsureSchema(gomock.Any(), model.TargetSchema).Return(nil),
					catalog.EXPECT().EnsureTable(gomock.Any(), model.Stage).Return(nil),
					catalog.EXPECT().EnsureTable(gomock.Any(), model.Owner).Return(nil),
					runLog.EXPECT().EnsureTable(gomock.Any()).Return(nil),
				)
			},
		},
		{
			name:    "Sem log de execuções",
			withLog: false,
			setup: func(catalog *mocks.MockCatalogRepository, _ *mocks.MockRunLogRepository) {
				catalog.EXPECT().EnsureSchema(gomock.Any(), model.TargetSchema).Return(nil)
				catalog.EXPECT().EnsureTable(gomock.Any(), gomock.Any()).Return(nil).Times(2)
			},
		},
		{
			name:    "Falha ao criar schema interrompe",
			withLog: true,
			setup: func(catalog *mocks.MockCatalogRepository, _ *mocks.MockRunLogRepository) {
				catalog.EXPECT().EnsureSchema(gomock.Any(), model.TargetSchema).Return(errors.New("permission denied"))
			},
			wantError: "erro ao criar schema trusted: permission denied",
		},
		{
			name:    "Falha ao criar dimensão",
			withLog: true,
			setup: func(catalog *mocks.MockCatalogRepository, _ *mocks.MockRunLogRepository) {
				catalog.EXPECT().EnsureSchema(gomock.Any(), model.TargetSchema).Return(nil)
				catalog.EXPECT().EnsureTable(gomock.Any(), model.Stage).Return(errors.New("disk full"))
			},
			wantError: "erro ao criar tabela dim_stage: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			catalog := mocks.NewMockCatalogRepository(ctrl)
			runLog := mocks.NewMockRunLogRepository(ctrl)
			tt.setup(catalog, runLog)

			var journal repository.RunLogRepository
			if tt.withLog {
				journal = runLog
			}

			err := NewBootstrap(catalog, journal, model, log.Discard()).Run(context.Background())
			if tt.wantError != "" {
				assert.EqualError(t, err, tt.wantError)
				return
			}
			assert.NoError(t, err)
		})
	}
}
