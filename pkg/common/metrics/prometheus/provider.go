/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package prometheus

import (
	kitmetrics "github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/prometheus"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/metrics"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Provider creates instruments backed by Prometheus collectors
type Provider struct {
	// Registerer receives the collectors; the default registry when nil
	Registerer prom.Registerer
}

// NewCounter creates and registers a counter
func (p *Provider) NewCounter(o metrics.CounterOpts) metrics.Counter {
	cv := prom.NewCounterVec(prom.CounterOpts{
		Namespace: o.Namespace,
		Subsystem: o.Subsystem,
		Name:      o.Name,
		Help:      o.Help,
	}, o.LabelNames)
	cv = p.register(cv).(*prom.CounterVec)
	return &Counter{Counter: prometheus.NewCounter(cv)}
}

// NewGauge creates and registers a gauge
func (p *Provider) NewGauge(o metrics.GaugeOpts) metrics.Gauge {
	gv := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: o.Namespace,
		Subsystem: o.Subsystem,
		Name:      o.Name,
		Help:      o.Help,
	}, o.LabelNames)
	gv = p.register(gv).(*prom.GaugeVec)
	return &Gauge{Gauge: prometheus.NewGauge(gv)}
}

// NewHistogram creates and registers a histogram
func (p *Provider) NewHistogram(o metrics.HistogramOpts) metrics.Histogram {
	hv := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: o.Namespace,
		Subsystem: o.Subsystem,
		Name:      o.Name,
		Help:      o.Help,
		Buckets:   o.Buckets,
	}, o.LabelNames)
	hv = p.register(hv).(*prom.HistogramVec)
	return &Histogram{Histogram: prometheus.NewHistogram(hv)}
}

// register returns the collector already registered under the same
// description, so providers can be created more than once per process
func (p *Provider) register(c prom.Collector) prom.Collector {
	r := p.Registerer
	if r == nil {
		r = prom.DefaultRegisterer
	}
	if err := r.Register(c); err != nil {
		if are, ok := err.(prom.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

// Counter adapts a go-kit counter
type Counter struct{ kitmetrics.Counter }

// With returns the counter for the given label values
func (c *Counter) With(labelValues ...string) metrics.Counter {
	return &Counter{Counter: c.Counter.With(labelValues...)}
}

// Gauge adapts a go-kit gauge
type Gauge struct{ kitmetrics.Gauge }

// With returns the gauge for the given label values
func (g *Gauge) With(labelValues ...string) metrics.Gauge {
	return &Gauge{Gauge: g.Gauge.With(labelValues...)}
}

// Histogram adapts a go-kit histogram
type Histogram struct{ kitmetrics.Histogram }

// With returns the histogram for the given label values
func (h *Histogram) With(labelValues ...string) metrics.Histogram {
	return &Histogram{Histogram: h.Histogram.With(labelValues...)}
}
