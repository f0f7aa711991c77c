// Package metrics define o ponto de extensão de métricas da reconciliação.
// O núcleo depende apenas de Backend; o envio para Datadog fica em metrics/datadog.
package metrics

import "time"

const (
	RunTotal             = "etl_run_total"
	StageTotal           = "etl_stage_total"
	RowsTotal            = "etl_rows_total"
	StageDurationSeconds = "etl_stage_duration_seconds"
)

type Labels map[string]string

type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Nop descarta tudo.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}

// Recorder traduz os eventos da reconciliação para o Backend.
type Recorder struct {
	backend Backend
}

func NewRecorder(b Backend) *Recorder {
	if b == nil {
		b = Nop{}
	}
	return &Recorder{backend: b}
}

func (r *Recorder) Run(target, status string) {
	r.backend.IncCounter(RunTotal, 1, Labels{"target": target, "status": status})
}

func (r *Recorder) Stage(stage, status string, d time.Duration) {
	labels := Labels{"stage": stage, "status": status}
	r.backend.IncCounter(StageTotal, 1, labels)
	r.backend.ObserveHistogram(StageDurationSeconds, d.Seconds(), labels)
}

// Rows soma linhas por tipo: staged, placeholder, nulled.
func (r *Recorder) Rows(kind string, n int64) {
	if n <= 0 {
		return
	}
	r.backend.IncCounter(RowsTotal, float64(n), Labels{"kind": kind})
}
