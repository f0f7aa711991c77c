package handler

import (
	"net/http"

	"github.com/vfg2006/trusted-etl/internal/api/handler/router"
	"github.com/vfg2006/trusted-etl/pkg/middleware"
)

func Healthcheck(db Pinger) []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(db),
		},
	}
}

func Reconciliation(sync ReconciliationSync, history RunHistory) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/reconciliation/status",
			Method:      http.MethodGet,
			Handler:     GetReconciliationStatus(sync, history),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
		{
			Path:        "/v1/reconciliation/runs",
			Method:      http.MethodGet,
			Handler:     GetReconciliationRuns(history),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
		{
			Path:        "/v1/reconciliation/run/:target",
			Method:      http.MethodPost,
			Handler:     RunReconciliation(sync),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
	}
}
