package goals

import (
	"errors"
	"testing"

	"github.com/segmentio/balancectl/pkg/analyzer/actions"
	"github.com/segmentio/balancectl/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRackAwareGoalAcceptance(t *testing.T) {
	capacity := testCapacity(100, 1000, 1000, 1000)
	brokers := testBrokers(4, 2, capacity)

	testCases := []acceptanceTestCase{
		{
			description: "move into a rack the partition doesn't use",
			brokers:     testBrokers(4, 3, capacity),
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0, 1}, Load: diskLoad(1)},
			},
			action:   actions.NewMove(testTP("a", 0), 0, 2),
			expected: actions.Accept,
		},
		{
			description: "move into the rack of another replica",
			brokers:     brokers,
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0, 1}, Load: diskLoad(1)},
			},
			action:   actions.NewMove(testTP("a", 0), 0, 3),
			expected: actions.ReplicaReject,
		},
		{
			description: "move within the source's own rack",
			brokers:     brokers,
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0, 1}, Load: diskLoad(1)},
			},
			action:   actions.NewMove(testTP("a", 0), 0, 2),
			expected: actions.Accept,
		},
		{
			description: "swap between racks that would collide",
			brokers:     brokers,
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0, 1}, Load: diskLoad(1)},
				{Topic: "b", Replicas: []int{3}, Load: diskLoad(1)},
			},
			action:   actions.NewSwap(testTP("a", 0), 0, 3, testTP("b", 0)),
			expected: actions.ReplicaReject,
		},
		{
			description: "swap within a rack",
			brokers:     brokers,
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0, 1}, Load: diskLoad(1)},
				{Topic: "b", Replicas: []int{2}, Load: diskLoad(1)},
			},
			action:   actions.NewSwap(testTP("a", 0), 0, 2, testTP("b", 0)),
			expected: actions.Accept,
		},
	}

	for _, testCase := range testCases {
		testCase.evaluate(t, NewRackAwareGoal())
	}
}

func TestRackAwareGoalOptimize(t *testing.T) {
	capacity := testCapacity(100, 1000, 1000, 1000)

	testCases := []optimizeTestCase{
		{
			description: "replicas sharing a rack are spread out",
			brokers:     testBrokers(6, 3, capacity),
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0, 3, 1}, Load: diskLoad(10)},
			},
			expected: map[model.TopicPartition][]int{
				testTP("a", 0): {0, 2, 1},
			},
		},
		{
			description: "replica on a dead broker is moved",
			brokers: []model.TestBroker{
				{ID: 0, Rack: "a", Capacity: capacity},
				{ID: 1, Rack: "b", Capacity: capacity, Dead: true},
				{ID: 2, Rack: "b", Capacity: capacity},
			},
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{1, 0}, Load: diskLoad(10)},
			},
			expected: map[model.TopicPartition][]int{
				testTP("a", 0): {2, 0},
			},
		},
		{
			description: "not enough racks",
			brokers:     testBrokers(4, 2, capacity),
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0, 1, 2}, Load: diskLoad(10)},
			},
			expectFailure: true,
		},
		{
			description: "destination rejected by a previously optimized capacity goal",
			brokers: []model.TestBroker{
				{ID: 0, Rack: "a", Capacity: capacity},
				{ID: 1, Rack: "a", Capacity: capacity},
				{ID: 2, Rack: "b", Capacity: capacity},
			},
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0, 1}, Load: diskLoad(500)},
				{Topic: "b", Replicas: []int{2}, Load: diskLoad(900)},
			},
			optimizedGoals: []Goal{NewDiskCapacityGoal(DefaultBalancingConstraint())},
			expectFailure:  true,
		},
	}

	for _, testCase := range testCases {
		testCase.evaluate(t, NewRackAwareGoal())
	}
}

func TestRackAwareGoalFailureIsNotCapacity(t *testing.T) {
	capacity := testCapacity(100, 1000, 1000, 1000)
	cm := model.NewTestClusterModel(
		t,
		[]int64{1},
		testBrokers(2, 1, capacity),
		[]model.TestPartition{
			{Topic: "a", Replicas: []int{0, 1}, Load: diskLoad(10)},
		},
	)

	err := NewRackAwareGoal().Optimize(cm, nil, OptimizationOptions{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCapacityExhausted))
}
