package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	ChecksText         uint64
	ChecksURL          uint64
	ChecksImage        uint64
	ChecksFailed       uint64
	UpstreamFailed     uint64
	StartTime          time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

// IncrementRequests increments total request counter
func IncrementRequests() {
	atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
}

func IncrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
}

func DecrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))
}

func IncrementSuccess() {
	atomic.AddUint64(&globalMetrics.RequestsSuccess, 1)
}

func IncrementFailed() {
	atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
}

// IncrementChecks counts a fact-check attempt by input type (text, url, image).
func IncrementChecks(inputType string) {
	switch inputType {
	case "text":
		atomic.AddUint64(&globalMetrics.ChecksText, 1)
	case "url":
		atomic.AddUint64(&globalMetrics.ChecksURL, 1)
	case "image":
		atomic.AddUint64(&globalMetrics.ChecksImage, 1)
	}
}

// IncrementChecksFailed counts a check that ended in an error response
func IncrementChecksFailed() {
	atomic.AddUint64(&globalMetrics.ChecksFailed, 1)
}

// IncrementUpstreamFailed counts LLM call or schema failures
func IncrementUpstreamFailed() {
	atomic.AddUint64(&globalMetrics.UpstreamFailed, 1)
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"checks": map[string]uint64{
			"text":  atomic.LoadUint64(&globalMetrics.ChecksText),
			"url":   atomic.LoadUint64(&globalMetrics.ChecksURL),
			"image": atomic.LoadUint64(&globalMetrics.ChecksImage),
		},
		"checks_failed":   atomic.LoadUint64(&globalMetrics.ChecksFailed),
		"upstream_failed": atomic.LoadUint64(&globalMetrics.UpstreamFailed),
		"uptime_seconds":  time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		IncrementInProgress()
		defer DecrementInProgress()

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			IncrementSuccess()
		} else {
			IncrementFailed()
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
