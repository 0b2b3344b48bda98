package config

import (
	"context"

	"github.com/segmentio/balancectl/pkg/capacity"
	"github.com/segmentio/balancectl/pkg/model"
)

// StaticResolverConfig returns the static capacity settings in the config.
func (c ClusterConfig) StaticResolverConfig() (capacity.StaticResolverConfig, error) {
	defaults, err := c.Spec.Capacity.Defaults.ToMap()
	if err != nil {
		return capacity.StaticResolverConfig{}, err
	}

	overrides := map[int]map[model.Resource]float64{}
	for id, values := range c.Spec.Capacity.Overrides {
		overrideMap, err := values.ToMap()
		if err != nil {
			return capacity.StaticResolverConfig{}, err
		}
		overrides[id] = overrideMap
	}

	return capacity.StaticResolverConfig{
		Defaults:          defaults,
		Overrides:         overrides,
		SplitDiskByLogdir: c.Spec.Capacity.SplitDiskByLogdir,
	}, nil
}

// NewCapacityResolver creates the configured capacity resolver.
func (c ClusterConfig) NewCapacityResolver(ctx context.Context) (capacity.Resolver, error) {
	staticConfig, err := c.StaticResolverConfig()
	if err != nil {
		return nil, err
	}
	static := capacity.NewStaticResolver(staticConfig)

	if !c.Spec.Capacity.EC2Lookup {
		return static, nil
	}

	client, err := capacity.NewEC2Client(ctx, c.Meta.Region)
	if err != nil {
		return nil, err
	}
	return capacity.NewEC2Resolver(client, static), nil
}
