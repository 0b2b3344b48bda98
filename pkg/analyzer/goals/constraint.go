package goals

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/segmentio/balancectl/pkg/model"
)

// BalancingConstraint holds the tunables shared by the goals.
type BalancingConstraint struct {
	// CapacityThresholds are the fractions of each broker's capacity that capacity goals
	// treat as the limit. Missing resources default to 1.0.
	CapacityThresholds map[model.Resource]float64

	// ReplicaBalancePercentage is the allowed deviation of per-broker replica counts from
	// the average.
	ReplicaBalancePercentage float64

	// LeaderReplicaBalancePercentage is the allowed deviation of per-broker leader counts
	// from the average.
	LeaderReplicaBalancePercentage float64
}

// DefaultBalancingConstraint returns a constraint with full capacity thresholds and 10%
// balance percentages.
func DefaultBalancingConstraint() BalancingConstraint {
	return BalancingConstraint{
		CapacityThresholds:             map[model.Resource]float64{},
		ReplicaBalancePercentage:       0.10,
		LeaderReplicaBalancePercentage: 0.10,
	}
}

// CapacityThreshold returns the threshold for the argument resource.
func (c BalancingConstraint) CapacityThreshold(resource model.Resource) float64 {
	threshold, ok := c.CapacityThresholds[resource]
	if !ok {
		return 1.0
	}
	return threshold
}

// Validate checks that the constraint's values are in range.
func (c BalancingConstraint) Validate() error {
	var err error

	for resource, threshold := range c.CapacityThresholds {
		if threshold <= 0 || threshold > 1 {
			err = multierror.Append(
				err,
				fmt.Errorf("Capacity threshold for %s must be in (0, 1], got %f", resource, threshold),
			)
		}
	}
	if c.ReplicaBalancePercentage < 0 {
		err = multierror.Append(
			err,
			fmt.Errorf("Replica balance percentage must be non-negative"),
		)
	}
	if c.LeaderReplicaBalancePercentage < 0 {
		err = multierror.Append(
			err,
			fmt.Errorf("Leader replica balance percentage must be non-negative"),
		)
	}

	return err
}
