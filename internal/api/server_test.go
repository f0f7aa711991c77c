package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/trusted-etl/internal/config"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/internal/scheduler"
	"github.com/vfg2006/trusted-etl/internal/usecases/authenticating"
	"github.com/vfg2006/trusted-etl/pkg/log"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeSync struct {
	triggered []string
	err       error
}

func (s *fakeSync) TriggerManualSync(target string) error {
	if s.err != nil {
		return s.err
	}
	s.triggered = append(s.triggered, target)
	return nil
}

func (s *fakeSync) GetStatus() map[string]any {
	return map[string]any{"sync_enabled": true}
}

type fakeHistory struct {
	runs   map[domain.TargetKind]*domain.RunSummary
	list   []*domain.RunSummary
	err    error
	limits *[]int
}

func (h fakeHistory) Latest(context.Context) (map[domain.TargetKind]*domain.RunSummary, error) {
	return h.runs, h.err
}

func (h fakeHistory) History(_ context.Context, limit int) ([]*domain.RunSummary, error) {
	if h.limits != nil {
		*h.limits = append(*h.limits, limit)
	}
	if h.err != nil {
		return nil, h.err
	}
	if limit < len(h.list) {
		return h.list[:limit], nil
	}
	return h.list, nil
}

type testEnv struct {
	handler http.Handler
	sync    *fakeSync
	admin   string
	viewer  string
}

func newTestEnv(t *testing.T, db fakePinger, sync *fakeSync, history fakeHistory) testEnv {
	t.Helper()
	auth := authenticating.NewService(config.Auth{Secret: "segredo", TokenTTL: time.Hour})

	admin, _, err := auth.GenerateToken("ana", domain.RoleAdmin)
	require.NoError(t, err)
	viewer, _, err := auth.GenerateToken("bia", domain.RoleViewer)
	require.NoError(t, err)

	srv := New(config.Server{Host: "127.0.0.1", Port: "0"}, auth, db, sync, history, log.Discard())
	return testEnv{handler: srv.Handler(), sync: sync, admin: admin, viewer: viewer}
}

func (e testEnv) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthcheck(t *testing.T) {
	env := newTestEnv(t, fakePinger{}, &fakeSync{}, fakeHistory{})
	rec := env.do(http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	env = newTestEnv(t, fakePinger{err: errors.New("connection refused")}, &fakeSync{}, fakeHistory{})
	rec = env.do(http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReconciliationStatus(t *testing.T) {
	history := fakeHistory{runs: map[domain.TargetKind]*domain.RunSummary{
		domain.TargetFact: {ID: "abc", Target: domain.TargetFact, Status: domain.RunStatusDegraded, StagedRows: 12},
	}}
	env := newTestEnv(t, fakePinger{}, &fakeSync{}, history)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/v1/reconciliation/status", "").Code)

	rec := env.do(http.MethodGet, "/v1/reconciliation/status", env.viewer)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	latest := body["latest"].(map[string]any)
	fact := latest["fact"].(map[string]any)
	assert.Equal(t, "degraded", fact["status"])
	assert.EqualValues(t, 12, fact["staged_rows"])
	assert.Equal(t, true, body["scheduler"].(map[string]any)["sync_enabled"])

	env = newTestEnv(t, fakePinger{}, &fakeSync{}, fakeHistory{err: errors.New("relation does not exist")})
	assert.Equal(t, http.StatusInternalServerError, env.do(http.MethodGet, "/v1/reconciliation/status", env.viewer).Code)
}

func TestReconciliationRuns(t *testing.T) {
	list := []*domain.RunSummary{
		{ID: "r3", Target: domain.TargetFact, Status: domain.RunStatusFailed, Error: "load_staging: falha de conexão com o banco"},
		{ID: "r2", Target: domain.TargetDimensionOwner, Status: domain.RunStatusSuccess, StagedRows: 4},
		{ID: "r1", Target: domain.TargetDimensionStage, Status: domain.RunStatusDegraded, StagedRows: 2},
	}

	tests := []struct {
		name      string
		query     string
		err       error
		status    int
		wantIDs   []string
		wantLimit int
	}{
		{"Sem limite usa o padrão", "", nil, http.StatusOK, []string{"r3", "r2", "r1"}, 20},
		{"Limite informado", "?limit=2", nil, http.StatusOK, []string{"r3", "r2"}, 2},
		{"Limite não numérico", "?limit=dez", nil, http.StatusBadRequest, nil, 0},
		{"Limite zero", "?limit=0", nil, http.StatusBadRequest, nil, 0},
		{"Limite acima do máximo", "?limit=201", nil, http.StatusBadRequest, nil, 0},
		{"Erro no banco", "", errors.New("relation does not exist"), http.StatusInternalServerError, nil, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := make([]int, 0)
			env := newTestEnv(t, fakePinger{}, &fakeSync{}, fakeHistory{list: list, err: tt.err, limits: &limits})

			rec := env.do(http.MethodGet, "/v1/reconciliation/runs"+tt.query, env.viewer)
			require.Equal(t, tt.status, rec.Code)

			if tt.wantLimit == 0 {
				assert.Empty(t, limits)
			} else {
				assert.Equal(t, []int{tt.wantLimit}, limits)
			}
			if tt.status != http.StatusOK {
				return
			}

			body := decode(t, rec)
			assert.EqualValues(t, tt.wantLimit, body["limit"])
			runs := body["runs"].([]any)
			ids := make([]string, 0, len(runs))
			for _, run := range runs {
				ids = append(ids, run.(map[string]any)["id"].(string))
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	env := newTestEnv(t, fakePinger{}, &fakeSync{}, fakeHistory{list: list})
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/v1/reconciliation/runs", "").Code)
}

func TestRunReconciliation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		token  func(testEnv) string
		err    error
		status int
	}{
		{"Administrador dispara todos os alvos", "all", func(e testEnv) string { return e.admin }, nil, http.StatusAccepted},
		{"Operador sem permissão", "fact", func(e testEnv) string { return e.viewer }, nil, http.StatusForbidden},
		{"Alvo desconhecido", "pipeline", func(e testEnv) string { return e.admin }, domain.ErrUnknownTarget, http.StatusNotFound},
		{"Execução em andamento", "fact", func(e testEnv) string { return e.admin }, scheduler.ErrSyncRunning, http.StatusConflict},
		{"Erro inesperado", "fact", func(e testEnv) string { return e.admin }, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sync := &fakeSync{err: tt.err}
			env := newTestEnv(t, fakePinger{}, sync, fakeHistory{})

			rec := env.do(http.MethodPost, "/v1/reconciliation/run/"+tt.target, tt.token(env))
			assert.Equal(t, tt.status, rec.Code)

			if tt.status == http.StatusAccepted {
				assert.Equal(t, []string{tt.target}, sync.triggered)
			} else {
				assert.Empty(t, sync.triggered)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t, fakePinger{}, &fakeSync{}, fakeHistory{})
	rec := env.do(http.MethodGet, "/v1/nada", env.admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
