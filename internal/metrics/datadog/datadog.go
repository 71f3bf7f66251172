// Package datadog implements a Datadog backend for the internal/metrics package.
//
// Metrics are buffered in memory and submitted on Flush. A background loop
// flushes on a ticker (default once per minute) and Close performs a final
// flush, so a short merge run still submits exactly once at exit while a
// long supplier download produces a time series.
//
// Counters become COUNT series; histograms are summarised per window as
// p50/p90/p95/p99/max/samples gauges. Series are emitted in a stable order.
//
// IncCounter and ObserveHistogram are safe for concurrent use. Close must be
// called once.
package datadog

import (
	"cmp"
	"context"
	"math"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"upvariants/internal/metrics"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to
	// "upgates_variants".
	JobName string

	// Tags are extra Datadog tags, e.g. "team:eshop".
	Tags []string

	// FlushEvery is the submission interval. Defaults to 60s.
	FlushEvery time.Duration

	// Unexported test seams: production leaves them nil.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the part of *datadogV2.MetricsApi the backend uses.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// key identifies one output series: the Datadog metric name and the
// comma-joined tags that come from the metric's labels.
type key struct {
	metric string
	tags   string
}

// window holds everything observed since the last Flush.
type window struct {
	counts  map[key]float64
	samples map[key][]float64
}

func newWindow() window {
	return window{counts: map[key]float64{}, samples: map[key][]float64{}}
}

func (w window) empty() bool { return len(w.counts) == 0 && len(w.samples) == 0 }

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stop       chan struct{}
	done       chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu  sync.Mutex
	win window
}

var _ metrics.Backend = (*Backend)(nil)

// envTag derives the env tag from ENV, then DD_ENV.
func envTag() string {
	for _, name := range []string{"ENV", "DD_ENV"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return "env:" + v
		}
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend and starts its flush loop.
// Credentials and site come from the standard DD_API_KEY / DD_SITE
// environment variables read by the Datadog client.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	b := &Backend{
		api:        opts.submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: cmp.Or(opts.FlushEvery, 60*time.Second),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		now:        opts.now,
		newTicker:  opts.newTicker,
		win:        newWindow(),
	}
	if b.flushEvery < 0 {
		b.flushEvery = 60 * time.Second
	}
	if b.api == nil {
		b.api = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.newTicker == nil {
		b.newTicker = time.NewTicker
	}
	b.baseTags = append([]string{envTag(), "job:" + cmp.Or(opts.JobName, "upgates_variants")}, opts.Tags...)

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.done)
	tick := b.newTicker(b.flushEvery)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			_ = b.Flush()
		case <-b.stop:
			return
		}
	}
}

// Close stops the flush loop and performs one final Flush.
func (b *Backend) Close() error {
	close(b.stop)
	<-b.done
	return b.Flush()
}

func statusTag(l metrics.Labels) string {
	return "status:" + cmp.Or(l["status"], "unknown")
}

// seriesKey maps a metrics name and its labels onto a Datadog series.
// hist reports whether the name is a histogram; ok is false for names this
// backend does not export.
func seriesKey(name string, l metrics.Labels) (k key, hist, ok bool) {
	switch name {
	case metrics.StepTotal:
		return key{"variants.step.total", "step:" + l["step"] + "," + statusTag(l)}, false, true
	case metrics.StepDurationSeconds:
		return key{"variants.step.duration_seconds", "step:" + l["step"] + "," + statusTag(l)}, true, true
	case metrics.RowsTotal:
		if l["kind"] == "" {
			return key{}, false, false
		}
		return key{"variants.rows.total", "kind:" + l["kind"]}, false, true
	case metrics.PromotedParamsTotal:
		return key{metric: "variants.promoted_params.total"}, false, true
	case metrics.HTTPRequestsTotal:
		return key{"variants.http.requests.total", statusTag(l)}, false, true
	case metrics.HTTPErrorsTotal:
		return key{"variants.http.errors.total", statusTag(l)}, false, true
	case metrics.HTTPRequestDuration:
		return key{"variants.http.request_duration_seconds", statusTag(l)}, true, true
	case metrics.HTTPDownloadBytes:
		return key{"variants.http.download_bytes", statusTag(l)}, true, true
	}
	return key{}, false, false
}

// IncCounter implements metrics.Backend. Unknown names and non-positive
// deltas are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	k, hist, ok := seriesKey(name, labels)
	if !ok || hist || delta <= 0 {
		return
	}
	b.mu.Lock()
	b.win.counts[k] += delta
	b.mu.Unlock()
}

// ObserveHistogram implements metrics.Backend. Unknown names and negative
// values are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	k, hist, ok := seriesKey(name, labels)
	if !ok || !hist || value < 0 {
		return
	}
	b.mu.Lock()
	b.win.samples[k] = append(b.win.samples[k], value)
	b.mu.Unlock()
}

// swap returns the current window and starts a new one.
func (b *Backend) swap() window {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.win
	b.win = newWindow()
	return w
}

// Flush submits buffered metrics and resets the buffers, even when the
// submission fails. It returns nil without submitting when nothing is
// buffered.
func (b *Backend) Flush() error {
	w := b.swap()
	if w.empty() {
		return nil
	}
	payload := datadogV2.MetricPayload{Series: b.buildSeries(w, b.now().Unix())}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries turns a window into Datadog series at one timestamp, counts
// first, each group ordered by metric name and tags.
func (b *Backend) buildSeries(w window, ts int64) []datadogV2.MetricSeries {
	out := make([]datadogV2.MetricSeries, 0, len(w.counts)+len(quantiles)*len(w.samples))
	for _, k := range sortedKeys(w.counts) {
		out = append(out, newSeries(datadogV2.METRICINTAKETYPE_COUNT, k.metric, w.counts[k], b.tagsFor(k), ts))
	}
	for _, k := range sortedKeys(w.samples) {
		addPercentiles(&out, k.metric, w.samples[k], b.tagsFor(k), ts)
	}
	return out
}

func (b *Backend) tagsFor(k key) []string {
	if k.tags == "" {
		return tagged(b.baseTags)
	}
	return tagged(b.baseTags, strings.Split(k.tags, ",")...)
}

func sortedKeys[V any](m map[key]V) []key {
	ks := make([]key, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	slices.SortFunc(ks, func(a, b key) int {
		return cmp.Or(cmp.Compare(a.metric, b.metric), cmp.Compare(a.tags, b.tags))
	})
	return ks
}

var quantiles = []struct {
	suffix string
	q      float64
}{
	{".p50", 0.50},
	{".p90", 0.90},
	{".p95", 0.95},
	{".p99", 0.99},
}

// addPercentiles appends the quantile gauges followed by .max and .samples.
// samples is not modified.
func addPercentiles(series *[]datadogV2.MetricSeries, prefix string, samples []float64, tags []string, ts int64) {
	if len(samples) == 0 {
		return
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	gauge := datadogV2.METRICINTAKETYPE_GAUGE
	for _, q := range quantiles {
		*series = append(*series, newSeries(gauge, prefix+q.suffix, quantile(sorted, q.q), tags, ts))
	}
	*series = append(*series,
		newSeries(gauge, prefix+".max", sorted[len(sorted)-1], tags, ts),
		newSeries(gauge, prefix+".samples", float64(len(sorted)), tags, ts),
	)
}

func newSeries(typ datadogV2.MetricIntakeType, metric string, value float64, tags []string, ts int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{{Timestamp: dd.PtrInt64(ts), Value: dd.PtrFloat64(value)}},
		Tags:   tags,
	}
}

// tagged returns a new slice holding base followed by extra.
func tagged(base []string, extra ...string) []string {
	return slices.Concat(base, extra)
}

// quantile returns the nearest-rank q-quantile of an ascending slice.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[n-1]
	}
	return sorted[int(math.Round(q*float64(n-1)))]
}

// ParseTagsCSV parses comma-separated tags like "env:prod,team:eshop".
// Blank entries are dropped.
func ParseTagsCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
