package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/vfg2006/trusted-etl/pkg/apiErrors"
	"github.com/vfg2006/trusted-etl/pkg/log"
)

const pingTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthcheckHandler responde 200 quando o banco de destino responde ao ping.
func HealthcheckHandler(db Pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			log.ForContext(r.Context()).WithError(err).Warn("Healthcheck sem acesso ao banco")
			apiErrors.WriteError(w, apiErrors.ErrCommunication, "Banco de dados indisponível", nil)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
}
