package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/julienschmidt/httprouter"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/internal/scheduler"
	"github.com/vfg2006/trusted-etl/pkg/apiErrors"
	"github.com/vfg2006/trusted-etl/pkg/log"
	"github.com/vfg2006/trusted-etl/pkg/middleware"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ReconciliationSync interface {
	TriggerManualSync(target string) error
	GetStatus() map[string]any
}

type RunHistory interface {
	Latest(ctx context.Context) (map[domain.TargetKind]*domain.RunSummary, error)
	History(ctx context.Context, limit int) ([]*domain.RunSummary, error)
}

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// GetReconciliationStatus devolve o estado do agendador e a última execução
// registrada de cada alvo.
func GetReconciliationStatus(sync ReconciliationSync, history RunHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latest, err := history.Latest(r.Context())
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Error("Erro ao buscar histórico de execuções")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao buscar histórico de execuções", nil)
			return
		}

		runs := make(map[string]*domain.RunSummary, len(latest))
		for kind, run := range latest {
			runs[string(kind)] = run
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"scheduler": sync.GetStatus(),
			"latest":    runs,
		})
	}
}

// GetReconciliationRuns lista as execuções registradas, da mais recente para
// a mais antiga. Aceita ?limit=N (padrão 20, máximo 200).
func GetReconciliationRuns(history RunHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultRunsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxRunsLimit {
				apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Parâmetro limit inválido", map[string]any{
					"min": 1,
					"max": maxRunsLimit,
				})
				return
			}
			limit = n
		}

		runs, err := history.History(r.Context(), limit)
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Error("Erro ao listar execuções")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao listar execuções", nil)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"runs":  runs,
			"limit": limit,
		})
	}
}

// RunReconciliation dispara uma execução manual de um alvo ou de todos ("all").
func RunReconciliation(sync ReconciliationSync) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := httprouter.ParamsFromContext(r.Context()).ByName("target")
		if target == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "Alvo não especificado", nil)
			return
		}

		logger := log.ForContext(r.Context()).WithField("target", target)
		if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
			logger = logger.WithField("operator", claims.Subject)
		}

		if err := sync.TriggerManualSync(target); err != nil {
			switch {
			case errors.Is(err, domain.ErrUnknownTarget):
				apiErrors.WriteError(w, apiErrors.ErrUnknownTarget, err.Error(), map[string]any{
					"accepted": acceptedTargets(),
				})
			case errors.Is(err, scheduler.ErrSyncRunning):
				apiErrors.WriteError(w, apiErrors.ErrSyncRunning, "Reconciliação já em andamento", nil)
			default:
				logger.WithError(err).Error("Erro ao iniciar reconciliação manual")
				apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao iniciar reconciliação", nil)
			}
			return
		}

		logger.Info("Reconciliação manual solicitada")
		writeJSON(w, http.StatusAccepted, map[string]any{
			"message": "Reconciliação iniciada",
			"target":  target,
		})
	}
}

func acceptedTargets() []string {
	targets := []string{"all"}
	for _, kind := range domain.OrderedTargets() {
		targets = append(targets, string(kind))
	}
	return targets
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.L.WithError(err).Warn("Erro ao escrever resposta")
	}
}
