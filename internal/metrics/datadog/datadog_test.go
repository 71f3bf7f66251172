package datadog

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"upvariants/internal/metrics"
)

// recorder stands in for the Datadog intake API.
type recorder struct {
	mu   sync.Mutex
	sent []datadogV2.MetricPayload
	fail error
}

func (r *recorder) SubmitMetrics(_ context.Context, p datadogV2.MetricPayload, _ ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	r.mu.Lock()
	r.sent = append(r.sent, p)
	r.mu.Unlock()
	return datadogV2.IntakePayloadAccepted{}, nil, r.fail
}

func (r *recorder) payloads() []datadogV2.MetricPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.sent)
}

// idle returns options whose ticker never fires during a test.
func idle(rec *recorder) Options {
	return Options{
		JobName:   "job1",
		submitter: rec,
		now:       func() time.Time { return time.Unix(1000, 0) },
		newTicker: func(time.Duration) *time.Ticker { return time.NewTicker(time.Hour) },
	}
}

func newIdle(t *testing.T, rec *recorder) *Backend {
	t.Helper()
	b, err := NewBackend(context.Background(), idle(rec))
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// valueOf returns the first point of the series named metric carrying tag.
func valueOf(p datadogV2.MetricPayload, metric, tag string) (float64, bool) {
	for _, s := range p.Series {
		if s.Metric == metric && (tag == "" || slices.Contains(s.Tags, tag)) {
			return *s.Points[0].Value, true
		}
	}
	return 0, false
}

func TestEnvTag(t *testing.T) {
	cases := [][3]string{
		// ENV, DD_ENV, want
		{"prod", "stage", "env:prod"},
		{"", "stage", "env:stage"},
		{"  ", "\t", "env:unknown"},
		{"", "", "env:unknown"},
	}
	for _, c := range cases {
		t.Setenv("ENV", c[0])
		t.Setenv("DD_ENV", c[1])
		if got := envTag(); got != c[2] {
			t.Errorf("ENV=%q DD_ENV=%q got=%q want=%q", c[0], c[1], got, c[2])
		}
	}
}

func TestSeriesKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		metric string
		labels metrics.Labels
		want   key
		hist   bool
		ok     bool
	}{
		{"step", metrics.StepTotal, metrics.Labels{"step": "read", "status": "ok"}, key{"variants.step.total", "step:read,status:ok"}, false, true},
		{"step_duration", metrics.StepDurationSeconds, metrics.Labels{"step": "build"}, key{"variants.step.duration_seconds", "step:build,status:unknown"}, true, true},
		{"rows", metrics.RowsTotal, metrics.Labels{"kind": "in"}, key{"variants.rows.total", "kind:in"}, false, true},
		{"rows_without_kind", metrics.RowsTotal, nil, key{}, false, false},
		{"promoted", metrics.PromotedParamsTotal, nil, key{metric: "variants.promoted_params.total"}, false, true},
		{"http_missing_status", metrics.HTTPRequestsTotal, metrics.Labels{}, key{"variants.http.requests.total", "status:unknown"}, false, true},
		{"http_bytes", metrics.HTTPDownloadBytes, metrics.Labels{"status": "200"}, key{"variants.http.download_bytes", "status:200"}, true, true},
		{"unknown", "unknown_total", metrics.Labels{"x": "y"}, key{}, false, false},
	}
	for _, tc := range tests {
		k, hist, ok := seriesKey(tc.metric, tc.labels)
		if k != tc.want || hist != tc.hist || ok != tc.ok {
			t.Errorf("%s: got=(%+v,%v,%v) want=(%+v,%v,%v)", tc.name, k, hist, ok, tc.want, tc.hist, tc.ok)
		}
	}
}

func TestTagged_CopiesBase(t *testing.T) {
	t.Parallel()

	base := make([]string, 2, 8)
	copy(base, []string{"env:test", "job:upgates_variants"})
	got := tagged(base, "step:read")
	if want := []string{"env:test", "job:upgates_variants", "step:read"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("tagged got=%v want=%v", got, want)
	}
	got[0] = "env:mutated"
	if base[0] != "env:test" {
		t.Fatalf("tagged result shares base's array")
	}
}

func TestQuantile(t *testing.T) {
	t.Parallel()

	five := []float64{1, 2, 3, 4, 5}
	cases := []struct {
		s    []float64
		q    float64
		want float64
	}{
		{nil, 0.5, 0},
		{[]float64{7}, 0.95, 7},
		{five, -1, 1},
		{five, 2, 5},
		{five, 0.5, 3},
		{five, 0.9, 5},
		{five, 0.6, 3},
	}
	for _, c := range cases {
		if got := quantile(c.s, c.q); got != c.want {
			t.Errorf("quantile(%v, %v) got=%v want=%v", c.s, c.q, got, c.want)
		}
	}
}

func TestAddPercentiles(t *testing.T) {
	t.Parallel()

	samples := []float64{5, 1, 3, 2, 4}
	var series []datadogV2.MetricSeries
	addPercentiles(&series, "variants.step.duration_seconds", samples, []string{"step:build"}, 99)

	var names []string
	for _, s := range series {
		names = append(names, s.Metric)
		if *s.Type != datadogV2.METRICINTAKETYPE_GAUGE || *s.Points[0].Timestamp != 99 {
			t.Fatalf("%s: type=%v ts=%v", s.Metric, *s.Type, *s.Points[0].Timestamp)
		}
	}
	wantNames := []string{
		"variants.step.duration_seconds.p50",
		"variants.step.duration_seconds.p90",
		"variants.step.duration_seconds.p95",
		"variants.step.duration_seconds.p99",
		"variants.step.duration_seconds.max",
		"variants.step.duration_seconds.samples",
	}
	if !reflect.DeepEqual(names, wantNames) {
		t.Fatalf("names got=%v", names)
	}
	if samples[0] != 5 {
		t.Fatalf("input samples were sorted in place: %v", samples)
	}
	if p50, top := *series[0].Points[0].Value, *series[4].Points[0].Value; p50 != 3 || top != 5 {
		t.Fatalf("p50=%v max=%v", p50, top)
	}

	var none []datadogV2.MetricSeries
	addPercentiles(&none, "x", nil, nil, 1)
	if len(none) != 0 {
		t.Fatalf("empty samples produced %d series", len(none))
	}
}

func TestNewBackend_Defaults(t *testing.T) {
	rec := &recorder{}
	opts := idle(rec)
	opts.JobName = ""
	opts.Tags = []string{"team:eshop"}

	b, err := NewBackend(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	defer b.Close()

	if !slices.Contains(b.baseTags, "job:upgates_variants") || !slices.Contains(b.baseTags, "team:eshop") {
		t.Fatalf("baseTags=%v", b.baseTags)
	}
	if b.flushEvery != time.Minute {
		t.Fatalf("flushEvery got=%s want=1m", b.flushEvery)
	}
}

func TestFlush_ThroughFacade(t *testing.T) {
	rec := &recorder{}
	b := newIdle(t, rec)

	metrics.SetBackend(b)
	t.Cleanup(func() { metrics.SetBackend(nil) })

	metrics.RecordRows("in", 3)
	metrics.RecordRows("out", 4)
	metrics.IncCounter(metrics.PromotedParamsTotal, 2, nil)
	metrics.RecordStep("build", nil, 500*time.Millisecond)
	metrics.RecordHTTP(200, nil, 100*time.Millisecond, 2048)

	if err := metrics.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	sent := rec.payloads()
	if len(sent) != 1 {
		t.Fatalf("submissions got=%d want=1", len(sent))
	}
	if !b.win.empty() {
		t.Fatalf("window not reset after Flush")
	}

	checks := []struct {
		metric, tag string
		want        float64
	}{
		{"variants.rows.total", "kind:in", 3},
		{"variants.rows.total", "kind:out", 4},
		{"variants.promoted_params.total", "", 2},
		{"variants.step.total", "step:build", 1},
		{"variants.step.duration_seconds.p50", "status:ok", 0.5},
		{"variants.http.requests.total", "status:200", 1},
		{"variants.http.request_duration_seconds.samples", "status:200", 1},
		{"variants.http.download_bytes.max", "status:200", 2048},
	}
	for _, c := range checks {
		got, ok := valueOf(sent[0], c.metric, c.tag)
		if !ok || got != c.want {
			t.Errorf("%s{%s} got=%v (found=%v) want=%v", c.metric, c.tag, got, ok, c.want)
		}
	}
	if _, ok := valueOf(sent[0], "variants.http.errors.total", ""); ok {
		t.Errorf("errors series emitted for a 200")
	}
}

func TestFlush_EmptyWindowSkipsSubmit(t *testing.T) {
	rec := &recorder{}
	b := newIdle(t, rec)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n := len(rec.payloads()); n != 0 {
		t.Fatalf("submissions got=%d want=0", n)
	}
}

func TestFlush_SubmitErrorStillResets(t *testing.T) {
	boom := errors.New("intake down")
	rec := &recorder{fail: boom}
	b := newIdle(t, rec)

	b.IncCounter(metrics.PromotedParamsTotal, 1, nil)
	if err := b.Flush(); !errors.Is(err, boom) {
		t.Fatalf("Flush err=%v want %v", err, boom)
	}
	if !b.win.empty() {
		t.Fatal("window kept after a failed submission")
	}
	rec.mu.Lock()
	rec.fail = nil
	rec.mu.Unlock()
}

func TestBuildSeries_StableOrder(t *testing.T) {
	b := newIdle(t, &recorder{})

	b.IncCounter(metrics.RowsTotal, 2, metrics.Labels{"kind": "out"})
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": "in"})
	b.IncCounter(metrics.PromotedParamsTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.2, metrics.Labels{"step": "read", "status": "ok"})

	series := b.buildSeries(b.swap(), 7)
	var got []string
	for _, s := range series[:3] {
		got = append(got, s.Metric+"|"+s.Tags[len(s.Tags)-1])
	}
	want := []string{
		"variants.promoted_params.total|job:job1",
		"variants.rows.total|kind:in",
		"variants.rows.total|kind:out",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("count series order=%v, want %v", got, want)
	}
	if len(series) != 3+len(quantiles)+2 {
		t.Fatalf("series.len=%d", len(series))
	}
	if last := series[len(series)-1]; last.Metric != "variants.step.duration_seconds.samples" || !slices.Contains(last.Tags, "step:read") {
		t.Fatalf("last series=%q tags=%v", last.Metric, last.Tags)
	}
}

func TestIgnoredInputs(t *testing.T) {
	b := newIdle(t, &recorder{})

	b.IncCounter(metrics.PromotedParamsTotal, 0, nil)
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{})
	b.IncCounter("unknown_total", 1, metrics.Labels{"x": "y"})
	b.ObserveHistogram(metrics.StepDurationSeconds, -1, metrics.Labels{"step": "read", "status": "ok"})
	b.IncCounter(metrics.StepDurationSeconds, 1, metrics.Labels{"step": "read"})
	b.ObserveHistogram(metrics.StepTotal, 1, metrics.Labels{"step": "read"})
	if !b.win.empty() {
		t.Fatalf("ignored inputs were buffered: %+v", b.win)
	}
}

func TestBackend_TickerFlushesAndCloseDrains(t *testing.T) {
	rec := &recorder{}
	b, err := NewBackend(context.Background(), Options{
		FlushEvery: 5 * time.Millisecond,
		submitter:  rec,
		now:        func() time.Time { return time.Unix(2000, 0) },
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter(metrics.PromotedParamsTotal, 1, nil)
	for deadline := time.Now().Add(time.Second); len(rec.payloads()) == 0 && time.Now().Before(deadline); {
		time.Sleep(time.Millisecond)
	}
	if len(rec.payloads()) == 0 {
		_ = b.Close()
		t.Fatal("ticker never flushed")
	}

	b.IncCounter(metrics.PromotedParamsTotal, 1, nil)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := len(rec.payloads()); n < 2 {
		t.Fatalf("submissions after Close got=%d want>=2", n)
	}
}

func TestBackend_ConcurrentUse(t *testing.T) {
	rec := &recorder{}
	b := newIdle(t, rec)

	const goroutines, perG = 16, 250
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perG {
				b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": "in"})
				b.ObserveHistogram(metrics.HTTPRequestDuration, 0.02, metrics.Labels{"status": "200"})
			}
		}()
	}
	wg.Wait()

	if got := b.win.counts[key{"variants.rows.total", "kind:in"}]; got != goroutines*perG {
		t.Fatalf("rows in got=%v want=%d", got, goroutines*perG)
	}
	if got := len(b.win.samples[key{"variants.http.request_duration_seconds", "status:200"}]); got != goroutines*perG {
		t.Fatalf("samples got=%d want=%d", got, goroutines*perG)
	}
}

func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{" env:prod , ,team:eshop,  ", []string{"env:prod", "team:eshop"}},
		{"team:eshop", []string{"team:eshop"}},
	}
	for _, c := range cases {
		if got := ParseTagsCSV(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("ParseTagsCSV(%q) got=%v want=%v", c.in, got, c.want)
		}
	}
}
