package monitor

import (
	"context"
	"time"

	"github.com/segmentio/balancectl/pkg/admin"
	"github.com/segmentio/balancectl/pkg/model"
	log "github.com/sirupsen/logrus"
)

// TopologyGetter gets the current topology of a cluster.
type TopologyGetter interface {
	GetTopology(ctx context.Context) (admin.ClusterTopology, error)
}

// CapacityResolver resolves the capacity of each argument broker.
type CapacityResolver interface {
	Resolve(ctx context.Context, brokers []admin.BrokerInfo) (map[int]model.BrokerCapacity, error)
}

// Sampler samples windowed metrics that end at a given time.
type Sampler interface {
	Sample(ctx context.Context, end time.Time) (*MetricSnapshot, error)
}

var _ Sampler = (*PrometheusSampler)(nil)

// LoadMonitorConfig contains the configuration for a LoadMonitor.
type LoadMonitorConfig struct {
	Topology       TopologyGetter
	Capacities     CapacityResolver
	Sampler        Sampler
	PodMapper      PodMapper
	ExcludedTopics []string
}

// LoadMonitor combines a cluster's topology, broker capacities, and sampled metrics into a
// cluster model.
type LoadMonitor struct {
	config LoadMonitorConfig
}

// NewLoadMonitor creates a new LoadMonitor instance.
func NewLoadMonitor(config LoadMonitorConfig) *LoadMonitor {
	if config.PodMapper == nil {
		config.PodMapper = OrdinalPodMapper{}
	}
	return &LoadMonitor{config: config}
}

// ClusterModel builds a model of the cluster with loads sampled over the windows that end
// at the argument time.
func (m *LoadMonitor) ClusterModel(
	ctx context.Context,
	end time.Time,
) (*model.ClusterModel, error) {
	topology, err := m.config.Topology.GetTopology(ctx)
	if err != nil {
		return nil, err
	}
	if len(m.config.ExcludedTopics) > 0 {
		topology = topology.WithoutTopics(m.config.ExcludedTopics)
	}

	capacities, err := m.config.Capacities.Resolve(ctx, topology.Brokers)
	if err != nil {
		return nil, err
	}

	cm, err := BuildClusterModel(topology, capacities)
	if err != nil {
		return nil, err
	}

	log.Infof(
		"Built model with %d brokers and %d replicas; sampling metrics",
		len(cm.Brokers()),
		cm.NumReplicas(),
	)
	snapshot, err := m.config.Sampler.Sample(ctx, end)
	if err != nil {
		return nil, err
	}

	if err := EstimateLoads(cm, snapshot, m.config.PodMapper); err != nil {
		return nil, err
	}
	return cm, nil
}
