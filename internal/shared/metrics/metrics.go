package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

var (
	analysisStarted = newCounter("gap_analysis_started_total", "Total analyses started")
	// completed is labeled by report mode: ai, heuristic, fallback or demo.
	analysisCompleted = newCounter("gap_analysis_completed_total", "Total analyses completed with a report", "mode")
	analysisRejected  = newCounter("gap_analysis_rejected_total", "Total analyses rejected before a report was produced", "reason")
	analysisFailed    = newCounter("gap_analysis_failed_total", "Total persisted analyses that failed")
	serviceErrors     = newCounter("gap_analysis_service_errors_total", "Total completion service failures", "provider")
	llmRetries        = newCounter("gap_analysis_llm_retries_total", "Total completion retries", "provider")
	jobs              = newCounter("gap_analysis_jobs_total", "Queue jobs by transport and outcome", "transport", "outcome")

	analysisDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})

	counters = []*counter{analysisStarted, analysisCompleted, analysisRejected, analysisFailed, serviceErrors, llmRetries, jobs}
)

// Job outcomes recorded by IncJob.
const (
	JobReceived  = "received"
	JobCompleted = "completed"
	JobFailed    = "failed"
	JobDropped   = "dropped"
)

func IncAnalysisStarted() { analysisStarted.inc() }

// IncAnalysisCompleted counts a stored report by the mode that produced it.
func IncAnalysisCompleted(mode string) { analysisCompleted.inc(mode) }

// IncAnalysisRejected counts requests refused before a report was produced.
func IncAnalysisRejected(reason string) { analysisRejected.inc(reason) }

// IncAnalysisFailed counts persisted analyses that ended without a report.
func IncAnalysisFailed() { analysisFailed.inc() }

func IncAnalysisServiceErrors(provider string) { serviceErrors.inc(provider) }

func IncLLMRetries(provider string) { llmRetries.inc(provider) }

// IncJob counts a queue delivery outcome for transport.
func IncJob(transport, outcome string) { jobs.inc(transport, outcome) }

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	for _, c := range counters {
		c.write(&buf)
	}
	writeHistogram(&buf, "gap_analysis_duration_ms", "Analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

// counter is a monotonically increasing value per label set. A counter
// without label names holds a single series.
type counter struct {
	name   string
	help   string
	labels []string

	mu     sync.Mutex
	series map[string][]string
	values map[string]uint64
}

func newCounter(name, help string, labels ...string) *counter {
	return &counter{
		name:   name,
		help:   help,
		labels: labels,
		series: map[string][]string{},
		values: map[string]uint64{},
	}
}

func (c *counter) inc(labelValues ...string) {
	vals := make([]string, len(c.labels))
	for i := range vals {
		v := "unknown"
		if i < len(labelValues) && strings.TrimSpace(labelValues[i]) != "" {
			v = labelValues[i]
		}
		vals[i] = v
	}
	key := strings.Join(vals, "\xff")

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.series[key]; !ok {
		c.series[key] = vals
	}
	c.values[key]++
}

func (c *counter) value(labelValues ...string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[strings.Join(labelValues, "\xff")]
}

func (c *counter) write(buf *bytes.Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(buf, "# HELP %s %s\n", c.name, c.help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", c.name)
	if len(c.labels) == 0 {
		fmt.Fprintf(buf, "%s %d\n", c.name, c.values[""])
		return
	}
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs := make([]string, len(c.labels))
		for i, name := range c.labels {
			pairs[i] = name + "=" + strconv.Quote(c.series[k][i])
		}
		fmt.Fprintf(buf, "%s{%s} %d\n", c.name, strings.Join(pairs, ","), c.values[k])
	}
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{buckets: buckets, counts: make([]uint64, len(buckets))}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	// counts are already cumulative.
	for i, bound := range snap.buckets {
		fmt.Fprintf(buf, "%s_bucket{le=%q} %d\n", name, formatFloat(bound), snap.counts[i])
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
