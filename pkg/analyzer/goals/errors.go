package goals

import (
	"errors"
	"fmt"
	"math"

	"github.com/segmentio/balancectl/pkg/model"
)

// ErrCapacityExhausted matches, via errors.Is, any OptimizationFailure caused by a lack of
// capacity rather than by placement constraints.
var ErrCapacityExhausted = errors.New("capacity exhausted")

// OptimizationFailure is returned by Goal.Optimize when the goal couldn't be satisfied.
type OptimizationFailure struct {
	Goal   string
	Reason string

	// CapacityExhausted is set when the goal failed because there isn't enough capacity for
	// Resource. Deficit is the load that couldn't be placed and BrokerLimit is the mean
	// usable capacity of one alive broker, both for Resource.
	CapacityExhausted bool
	Resource          model.Resource
	Deficit           float64
	BrokerLimit       float64
}

func (f *OptimizationFailure) Error() string {
	return fmt.Sprintf("%s failed: %s", f.Goal, f.Reason)
}

// Is makes ErrCapacityExhausted match capacity failures.
func (f *OptimizationFailure) Is(target error) bool {
	return target == ErrCapacityExhausted && f.CapacityExhausted
}

// BrokersNeeded estimates how many brokers of average size would need to be added to absorb
// the deficit. It's always at least 1.
func (f *OptimizationFailure) BrokersNeeded() int {
	if f.BrokerLimit <= 0 || f.Deficit <= 0 {
		return 1
	}
	needed := int(math.Ceil(f.Deficit / f.BrokerLimit))
	if needed < 1 {
		return 1
	}
	return needed
}

func capacityFailure(
	goal string,
	resource model.Resource,
	deficit float64,
	brokerLimit float64,
	reasonFormat string,
	args ...interface{},
) *OptimizationFailure {
	return &OptimizationFailure{
		Goal:              goal,
		Reason:            fmt.Sprintf(reasonFormat, args...),
		CapacityExhausted: true,
		Resource:          resource,
		Deficit:           deficit,
		BrokerLimit:       brokerLimit,
	}
}

func placementFailure(goal string, reasonFormat string, args ...interface{}) *OptimizationFailure {
	return &OptimizationFailure{
		Goal:   goal,
		Reason: fmt.Sprintf(reasonFormat, args...),
	}
}
