package config

import (
	"github.com/segmentio/balancectl/pkg/analyzer"
	"github.com/segmentio/balancectl/pkg/provision"
)

// NewOptimizer creates an optimizer that runs the configured goals. The provisioner can
// be nil.
func (c ClusterConfig) NewOptimizer(
	provisioner provision.Provisioner,
) (*analyzer.Optimizer, error) {
	configGoals, err := c.Goals()
	if err != nil {
		return nil, err
	}

	return analyzer.NewOptimizer(
		analyzer.OptimizerConfig{
			Goals:                         configGoals,
			Provisioner:                   provisioner,
			ExcludedTopics:                c.Spec.ExcludedTopics,
			ExcludedBrokersForReplicaMove: c.Spec.Optimizer.ExcludedBrokersForReplicaMove,
			Parallelism:                   c.Spec.Optimizer.Parallelism,
		},
	)
}
