package config

import (
	"context"
	"errors"

	"github.com/segmentio/balancectl/pkg/admin"
	"github.com/segmentio/balancectl/pkg/monitor"
)

// NewLoadMonitor creates a load monitor that reads the topology with the argument client
// and samples broker metrics from the configured Prometheus.
func (c ClusterConfig) NewLoadMonitor(
	ctx context.Context,
	adminClient admin.Client,
) (*monitor.LoadMonitor, error) {
	prom := c.Spec.Prometheus
	if prom.Address == "" {
		return nil, errors.New("Prometheus address must be set to sample loads")
	}

	resolver, err := c.NewCapacityResolver(ctx)
	if err != nil {
		return nil, err
	}

	rateWindow, err := c.RateWindow()
	if err != nil {
		return nil, err
	}
	supplier, err := monitor.NewQuerySupplier(prom.Cluster, prom.Namespace, rateWindow)
	if err != nil {
		return nil, err
	}

	promClient, err := monitor.NewPrometheusClient(prom.Address)
	if err != nil {
		return nil, err
	}

	windowDuration, err := c.WindowDuration()
	if err != nil {
		return nil, err
	}
	sampler, err := monitor.NewPrometheusSampler(
		promClient,
		supplier,
		monitor.SamplerConfig{
			NumWindows:     c.NumWindows(),
			WindowDuration: windowDuration,
			Parallelism:    prom.Parallelism,
		},
	)
	if err != nil {
		return nil, err
	}

	return monitor.NewLoadMonitor(
		monitor.LoadMonitorConfig{
			Topology:       adminClient,
			Capacities:     resolver,
			Sampler:        sampler,
			PodMapper:      monitor.OrdinalPodMapper{Offset: prom.PodIDOffset},
			ExcludedTopics: c.Spec.ExcludedTopics,
		},
	), nil
}
