package goals

import (
	"testing"

	"github.com/segmentio/balancectl/pkg/analyzer/actions"
	"github.com/segmentio/balancectl/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type acceptanceTestCase struct {
	description string
	windows     []int64
	brokers     []model.TestBroker
	partitions  []model.TestPartition
	action      actions.BalancingAction
	expected    actions.Acceptance
}

func (a acceptanceTestCase) evaluate(t *testing.T, goal Goal) {
	windows := a.windows
	if windows == nil {
		windows = []int64{1}
	}
	cm := model.NewTestClusterModel(t, windows, a.brokers, a.partitions)
	before := cm.ReplicaDistribution()

	acceptance := goal.ActionAcceptance(a.action, cm)
	assert.Equal(t, a.expected, acceptance, a.description)

	// Re-evaluating without mutations gives the same answer and leaves the model alone
	assert.Equal(t, acceptance, goal.ActionAcceptance(a.action, cm), a.description)
	assert.Equal(t, before, cm.ReplicaDistribution(), a.description)
}

type optimizeTestCase struct {
	description    string
	windows        []int64
	brokers        []model.TestBroker
	partitions     []model.TestPartition
	optimizedGoals []Goal
	options        OptimizationOptions

	// expectedErr, if set, is matched with errors.Is. expectFailure only requires some error.
	expectedErr   error
	expectFailure bool

	// expected, if set, is the exact broker ids of each partition after optimizing.
	expected map[model.TopicPartition][]int
}

func (o optimizeTestCase) evaluate(t *testing.T, goal Goal) *model.ClusterModel {
	windows := o.windows
	if windows == nil {
		windows = []int64{1}
	}
	cm := model.NewTestClusterModel(t, windows, o.brokers, o.partitions)

	satisfiedBefore := map[string]bool{}
	for _, optimizedGoal := range o.optimizedGoals {
		satisfiedBefore[optimizedGoal.Name()] = optimizedGoal.IsSatisfied(cm)
	}

	err := goal.Optimize(cm, o.optimizedGoals, o.options)
	require.NoError(t, cm.Validate(), o.description)

	switch {
	case o.expectedErr != nil:
		require.ErrorIs(t, err, o.expectedErr, o.description)
		return cm
	case o.expectFailure:
		require.Error(t, err, o.description)
		return cm
	}

	require.NoError(t, err, o.description)
	assert.True(t, goal.IsSatisfied(cm), o.description)

	for _, optimizedGoal := range o.optimizedGoals {
		if satisfiedBefore[optimizedGoal.Name()] {
			assert.True(
				t,
				optimizedGoal.IsSatisfied(cm),
				"%s: %s regressed",
				o.description,
				optimizedGoal.Name(),
			)
		}
	}

	for tp, brokerIDs := range o.expected {
		assert.Equal(
			t,
			brokerIDs,
			model.BrokerIDs(cm.Placements(tp)),
			"%s: %s",
			o.description,
			tp,
		)
	}

	return cm
}

func testBrokers(numBrokers int, numRacks int, capacity map[model.Resource]float64) []model.TestBroker {
	brokers := []model.TestBroker{}
	for b := 0; b < numBrokers; b++ {
		brokers = append(
			brokers,
			model.TestBroker{
				ID:       b,
				Rack:     rackName(b % numRacks),
				Capacity: capacity,
			},
		)
	}
	return brokers
}

func rackName(index int) string {
	return string(rune('a'+index)) + "-rack"
}

func testCapacity(cpu float64, nwIn float64, nwOut float64, disk float64) map[model.Resource]float64 {
	return map[model.Resource]float64{
		model.ResourceCPU:        cpu,
		model.ResourceNetworkIn:  nwIn,
		model.ResourceNetworkOut: nwOut,
		model.ResourceDisk:       disk,
	}
}

func testLoad(cpu float64, nwIn float64, nwOut float64, disk float64) model.MetricValues {
	return model.MetricValues{
		model.ResourceCPU:        {cpu},
		model.ResourceNetworkIn:  {nwIn},
		model.ResourceNetworkOut: {nwOut},
		model.ResourceDisk:       {disk},
	}
}

func diskLoad(values ...float64) model.MetricValues {
	zeros := make([]float64, len(values))
	return model.MetricValues{
		model.ResourceCPU:        zeros,
		model.ResourceNetworkIn:  zeros,
		model.ResourceNetworkOut: zeros,
		model.ResourceDisk:       values,
	}
}

func testTP(topic string, partition int) model.TopicPartition {
	return model.TopicPartition{Topic: topic, Partition: partition}
}
