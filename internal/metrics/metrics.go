package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages timed by StageDuration.
const (
	StageExtract  = "extract"
	StageChunk    = "chunk"
	StageIndex    = "index"
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
)

// Results recorded for uploads and questions.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder holds the application's Prometheus collectors on its own registry.
// A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	// Uploads counts document uploads. Labels: result (ok|error)
	Uploads *prometheus.CounterVec

	// Questions counts answered and failed questions. Labels: result (ok|error)
	Questions *prometheus.CounterVec

	// StageDuration measures each pipeline stage in seconds.
	// Labels: stage (extract|chunk|index|retrieve|generate)
	StageDuration *prometheus.HistogramVec

	// ActiveSessions tracks live sessions.
	ActiveSessions prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docqa_uploads_total",
				Help: "Total number of document uploads by result",
			},
			[]string{"result"},
		),
		Questions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docqa_questions_total",
				Help: "Total number of questions by result",
			},
			[]string{"result"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docqa_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docqa_active_sessions",
			Help: "Number of live sessions",
		}),
	}
	r.registry.MustRegister(r.Uploads, r.Questions, r.StageDuration, r.ActiveSessions)
	return r
}

func (r *Recorder) Upload(err error) {
	if r == nil {
		return
	}
	r.Uploads.WithLabelValues(result(err)).Inc()
}

func (r *Recorder) Question(err error) {
	if r == nil {
		return
	}
	r.Questions.WithLabelValues(result(err)).Inc()
}

// Stage observes the time elapsed since start for stage.
func (r *Recorder) Stage(stage string, start time.Time) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (r *Recorder) SessionStarted() {
	if r == nil {
		return
	}
	r.ActiveSessions.Inc()
}

func (r *Recorder) SessionEnded() {
	if r == nil {
		return
	}
	r.ActiveSessions.Dec()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
