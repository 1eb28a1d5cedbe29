package observability

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/slideforge-backend/internal/platform/envutil"
	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

var (
	apiBuckets  = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	callBuckets = []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 90, 120}
	runBuckets  = []float64{1, 5, 10, 30, 60, 120, 300, 600}
)

// Metrics holds the service's counters. Every method is a no-op on a nil
// receiver, so callers can use Current() without checking Enabled.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	contentRequests *CounterVec
	contentLatency  *HistogramVec

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	slideOutcomes  *CounterVec
	runs           *CounterVec
	runDuration    *HistogramVec
	thumbnailCalls *CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

// Current returns the process-wide metrics, or nil when Init found them
// disabled.
func Current() *Metrics { return instance }

// Init builds the process-wide metrics once when METRICS_ENABLED is set.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("sf_api_requests_total", "API requests by method, route and status.", "method", "route", "status"),
		apiLatency:  NewHistogramVec("sf_api_request_duration_seconds", "API request latency in seconds.", apiBuckets, "method", "route", "status"),
		apiInflight: NewGauge("sf_api_inflight_requests", "In-flight API requests."),

		contentRequests: NewCounterVec("sf_content_api_requests_total", "Slide content API calls by outcome.", "status"),
		contentLatency:  NewHistogramVec("sf_content_api_duration_seconds", "Slide content API latency in seconds.", callBuckets, "status"),

		llmRequests: NewCounterVec("sf_llm_requests_total", "Plan drafting calls by model and outcome.", "model", "status"),
		llmLatency:  NewHistogramVec("sf_llm_request_duration_seconds", "Plan drafting latency in seconds.", callBuckets, "model", "status"),
		llmTokens:   NewCounterVec("sf_llm_tokens_total", "Plan drafting tokens by model and direction.", "model", "kind"),

		slideOutcomes:  NewCounterVec("sf_slides_total", "Generated slides by outcome.", "outcome"),
		runs:           NewCounterVec("sf_generation_runs_total", "Generation runs by final status.", "status"),
		runDuration:    NewHistogramVec("sf_generation_run_duration_seconds", "Generation run wall time in seconds.", runBuckets, "status"),
		thumbnailCalls: NewCounterVec("sf_thumbnails_total", "Thumbnail stage results by outcome.", "outcome"),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []func(io.Writer) error{
		m.apiRequests.write,
		m.apiLatency.write,
		m.apiInflight.write,
		m.contentRequests.write,
		m.contentLatency.write,
		m.llmRequests.write,
		m.llmLatency.write,
		m.llmTokens.write,
		m.slideOutcomes.write,
		m.runs.write,
		m.runDuration.write,
		m.thumbnailCalls.write,
	}
	for _, write := range writers {
		if err := write(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) APIInflight(delta float64) {
	if m == nil {
		return
	}
	m.apiInflight.Add(delta)
}

// ObserveContentRequest records one slide content call. status is the HTTP
// code, or a word such as "timeout" when no response arrived.
func (m *Metrics) ObserveContentRequest(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.contentRequests.Inc(status)
	m.contentLatency.Observe(dur.Seconds(), status)
}

func (m *Metrics) ObserveLLMRequest(model, status string, dur time.Duration, inputTokens, outputTokens int64) {
	if m == nil {
		return
	}
	model = strings.TrimSpace(model)
	m.llmRequests.Inc(model, status)
	m.llmLatency.Observe(dur.Seconds(), model, status)
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

// ObserveGenerationRun records a settled run and its per-slide outcomes.
func (m *Metrics) ObserveGenerationRun(status string, completed, failed int, dur time.Duration) {
	if m == nil {
		return
	}
	m.runs.Inc(status)
	m.runDuration.Observe(dur.Seconds(), status)
	m.slideOutcomes.Add(float64(completed), "completed")
	m.slideOutcomes.Add(float64(failed), "failed")
}

func (m *Metrics) ObserveThumbnail(outcome string) {
	if m == nil {
		return
	}
	m.thumbnailCalls.Inc(outcome)
}

// StatusLabel turns an HTTP status code into a label value; zero means no
// response was received.
func StatusLabel(code int) string {
	if code <= 0 {
		return "error"
	}
	return strconv.Itoa(code)
}
