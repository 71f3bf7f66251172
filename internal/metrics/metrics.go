// Package metrics is a small backend-agnostic facade for counters and
// histograms. Code calls the package functions; main installs a backend with
// SetBackend. Until then every call goes to a nop backend.
package metrics

import (
	"strconv"
	"sync"
	"time"
)

// Metric names emitted by this module.
const (
	RowsTotal           = "variants_rows_total"
	PromotedParamsTotal = "variants_promoted_params_total"
	StepTotal           = "variants_step_total"
	StepDurationSeconds = "variants_step_duration_seconds"
	HTTPRequestsTotal   = "variants_http_requests_total"
	HTTPErrorsTotal     = "variants_http_errors_total"
	HTTPRequestDuration = "variants_http_request_duration_seconds"
	HTTPDownloadBytes   = "variants_http_download_bytes"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric updates.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
	Close() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }
func (nopBackend) Close() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. A nil b restores the nop backend.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush pushes buffered data to the backend.
func Flush() error { return current().Flush() }

// RecordStep counts one execution of a pipeline step and its duration.
// status is "ok" when err is nil, "error" otherwise.
func RecordStep(step string, err error, d time.Duration) {
	l := Labels{"step": step, "status": "ok"}
	if err != nil {
		l["status"] = "error"
	}
	IncCounter(StepTotal, 1, l)
	ObserveHistogram(StepDurationSeconds, d.Seconds(), l)
}

// RecordRows counts rows of a kind ("in" or "out").
func RecordRows(kind string, n int) {
	IncCounter(RowsTotal, float64(n), Labels{"kind": kind})
}

// RecordHTTP records one HTTP fetch. status 0 means no response was
// received; such fetches are labelled "error".
func RecordHTTP(status int, err error, d time.Duration, bytes int64) {
	s := "error"
	if status > 0 {
		s = strconv.Itoa(status)
	}
	l := Labels{"status": s}
	IncCounter(HTTPRequestsTotal, 1, l)
	if err != nil || status >= 400 || status == 0 {
		IncCounter(HTTPErrorsTotal, 1, l)
	}
	ObserveHistogram(HTTPRequestDuration, d.Seconds(), l)
	if bytes > 0 {
		ObserveHistogram(HTTPDownloadBytes, float64(bytes), l)
	}
}
