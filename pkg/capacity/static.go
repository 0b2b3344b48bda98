package capacity

import (
	"context"
	"fmt"

	"github.com/segmentio/balancectl/pkg/admin"
	"github.com/segmentio/balancectl/pkg/model"
)

// Resolver resolves the capacity of each broker in a cluster.
type Resolver interface {
	Resolve(ctx context.Context, brokers []admin.BrokerInfo) (map[int]model.BrokerCapacity, error)
}

// StaticResolverConfig contains the configuration for a StaticResolver.
type StaticResolverConfig struct {
	// Defaults are the capacities used for every broker without an override.
	Defaults map[model.Resource]float64

	// Overrides replace some or all of the default capacities for specific brokers.
	Overrides map[int]map[model.Resource]float64

	// SplitDiskByLogdir divides each broker's disk capacity evenly across the log
	// directories in its config.
	SplitDiskByLogdir bool
}

// StaticResolver is a Resolver that returns configured capacities.
type StaticResolver struct {
	config StaticResolverConfig
}

var _ Resolver = (*StaticResolver)(nil)

// NewStaticResolver creates a new StaticResolver instance.
func NewStaticResolver(config StaticResolverConfig) *StaticResolver {
	return &StaticResolver{config: config}
}

// Resolve returns the configured capacity of each argument broker.
func (r *StaticResolver) Resolve(
	ctx context.Context,
	brokers []admin.BrokerInfo,
) (map[int]model.BrokerCapacity, error) {
	capacities := map[int]model.BrokerCapacity{}

	for _, broker := range brokers {
		capacity, err := r.brokerCapacity(broker, nil)
		if err != nil {
			return nil, err
		}
		capacities[broker.ID] = capacity
	}

	return capacities, nil
}

// brokerCapacity returns the capacity of a broker, with the argument values taking
// precedence over the defaults but not over the broker's overrides.
func (r *StaticResolver) brokerCapacity(
	broker admin.BrokerInfo,
	discovered map[model.Resource]float64,
) (model.BrokerCapacity, error) {
	values := map[model.Resource]float64{}
	for resource, value := range r.config.Defaults {
		values[resource] = value
	}
	for resource, value := range discovered {
		values[resource] = value
	}
	for resource, value := range r.config.Overrides[broker.ID] {
		values[resource] = value
	}

	var diskByLogdir map[string]float64
	logdirs := broker.Logdirs()
	if r.config.SplitDiskByLogdir && len(logdirs) > 0 {
		disk, ok := values[model.ResourceDisk]
		if ok {
			diskByLogdir = map[string]float64{}
			for _, logdir := range logdirs {
				diskByLogdir[logdir] = disk / float64(len(logdirs))
			}
			delete(values, model.ResourceDisk)
		}
	}

	capacity, err := model.NewBrokerCapacity(values, diskByLogdir)
	if err != nil {
		return model.BrokerCapacity{}, fmt.Errorf("Invalid capacity for broker %d: %w", broker.ID, err)
	}
	return capacity, nil
}
