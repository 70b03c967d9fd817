/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package disabled

import (
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/metrics"
)

// Provider creates instruments that record nothing
type Provider struct{}

// NewCounter returns a no-op counter
func (p *Provider) NewCounter(o metrics.CounterOpts) metrics.Counter { return &Counter{} }

// NewGauge returns a no-op gauge
func (p *Provider) NewGauge(o metrics.GaugeOpts) metrics.Gauge { return &Gauge{} }

// NewHistogram returns a no-op histogram
func (p *Provider) NewHistogram(o metrics.HistogramOpts) metrics.Histogram { return &Histogram{} }

// Counter is a no-op counter
type Counter struct{}

// Add does nothing
func (c *Counter) Add(delta float64) {}

// With returns the counter itself
func (c *Counter) With(labelValues ...string) metrics.Counter {
	return c
}

// Gauge is a no-op gauge
type Gauge struct{}

// Add does nothing
func (g *Gauge) Add(delta float64) {}

// Set does nothing
func (g *Gauge) Set(delta float64) {}

// With returns the gauge itself
func (g *Gauge) With(labelValues ...string) metrics.Gauge {
	return g
}

// Histogram is a no-op histogram
type Histogram struct{}

// Observe does nothing
func (h *Histogram) Observe(value float64) {}

// With returns the histogram itself
func (h *Histogram) With(labelValues ...string) metrics.Histogram {
	return h
}
