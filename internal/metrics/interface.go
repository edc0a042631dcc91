// Package metrics exposes operational counters for generation batches and
// the HTTP API in the Prometheus format.
package metrics

import (
	"net/http"
	"time"
)

// Collector records operational events.
type Collector interface {
	ObserveJob(job string, res JobResult)
	ObserveRequest(route string, status int, elapsed time.Duration)
	Handler() http.Handler
}

// JobResult summarizes one generation batch.
type JobResult struct {
	Users          int
	Created        int
	Failures       int
	MissingConfigs int
	Elapsed        time.Duration
	Err            error
}
