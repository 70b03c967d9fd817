/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package metrics defines the instruments the gateway records. Providers
// live in the prometheus and disabled subpackages.
package metrics

// Provider creates instruments
type Provider interface {
	NewCounter(CounterOpts) Counter
	NewGauge(GaugeOpts) Gauge
	NewHistogram(HistogramOpts) Histogram
}

// Counter is a monotonically increasing instrument
type Counter interface {
	// With returns the counter for the given label values, in the order of
	// LabelNames
	With(labelValues ...string) Counter
	Add(delta float64)
}

// CounterOpts describes a counter
type CounterOpts struct {
	Namespace  string
	Subsystem  string
	Name       string
	Help       string
	LabelNames []string
}

// Gauge is an instrument that may go up and down
type Gauge interface {
	With(labelValues ...string) Gauge
	Add(delta float64)
	Set(value float64)
}

// GaugeOpts describes a gauge
type GaugeOpts struct {
	Namespace  string
	Subsystem  string
	Name       string
	Help       string
	LabelNames []string
}

// Histogram records observations in buckets
type Histogram interface {
	With(labelValues ...string) Histogram
	Observe(value float64)
}

// HistogramOpts describes a histogram. Prometheus default buckets are used
// when Buckets is empty.
type HistogramOpts struct {
	Namespace  string
	Subsystem  string
	Name       string
	Help       string
	Buckets    []float64
	LabelNames []string
}
