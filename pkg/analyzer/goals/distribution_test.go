package goals

import (
	"testing"

	"github.com/segmentio/balancectl/pkg/analyzer/actions"
	"github.com/segmentio/balancectl/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplicaDistributionGoal(t *testing.T) {
	capacity := testCapacity(100, 1000, 1000, 1000)
	constraint := DefaultBalancingConstraint()
	constraint.ReplicaBalancePercentage = 0

	acceptanceCases := []acceptanceTestCase{
		{
			description: "move that keeps counts in bounds",
			brokers:     testBrokers(2, 2, capacity),
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0}},
				{Topic: "b", Replicas: []int{0}},
			},
			action:   actions.NewMove(testTP("a", 0), 0, 1),
			expected: actions.Accept,
		},
		{
			description: "move that unbalances counts",
			brokers:     testBrokers(2, 2, capacity),
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0}},
				{Topic: "b", Replicas: []int{1}},
			},
			action:   actions.NewMove(testTP("a", 0), 0, 1),
			expected: actions.ReplicaReject,
		},
	}
	for _, testCase := range acceptanceCases {
		testCase.evaluate(t, NewReplicaDistributionGoal(constraint))
	}

	optimizeCases := []optimizeTestCase{
		{
			description: "replicas spread evenly",
			brokers:     testBrokers(3, 3, capacity),
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0}},
				{Topic: "b", Replicas: []int{0}},
				{Topic: "c", Replicas: []int{0}},
				{Topic: "d", Replicas: []int{1}},
				{Topic: "e", Replicas: []int{0}},
				{Topic: "f", Replicas: []int{1}},
			},
			optimizedGoals: []Goal{
				NewRackAwareGoal(),
				NewDiskCapacityGoal(DefaultBalancingConstraint()),
			},
		},
		{
			description: "excluded topics stay put",
			brokers:     testBrokers(2, 2, capacity),
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0}},
				{Topic: "b", Replicas: []int{0}},
			},
			options: OptimizationOptions{
				ExcludedTopics: map[string]struct{}{"a": {}, "b": {}},
			},
			expectFailure: true,
		},
	}
	for _, testCase := range optimizeCases {
		cm := testCase.evaluate(t, NewReplicaDistributionGoal(constraint))
		if !testCase.expectFailure {
			for _, broker := range cm.Brokers() {
				assert.Equal(t, 2, broker.NumReplicas(), testCase.description)
			}
		}
	}
}

func TestLeaderReplicaDistributionGoal(t *testing.T) {
	capacity := testCapacity(100, 1000, 1000, 1000)
	constraint := DefaultBalancingConstraint()
	constraint.LeaderReplicaBalancePercentage = 0

	acceptanceCases := []acceptanceTestCase{
		{
			description: "leadership moved to a broker with fewer leaders",
			brokers:     testBrokers(2, 2, capacity),
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0, 1}},
				{Topic: "b", Replicas: []int{0, 1}},
			},
			action:   actions.NewLeadershipMove(testTP("a", 0), 0, 1),
			expected: actions.Accept,
		},
		{
			description: "leadership moved away from a balanced broker",
			brokers:     testBrokers(2, 2, capacity),
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0, 1}},
				{Topic: "b", Replicas: []int{1, 0}},
			},
			action:   actions.NewLeadershipMove(testTP("a", 0), 0, 1),
			expected: actions.ReplicaReject,
		},
		{
			description: "follower move doesn't change leader counts",
			brokers:     testBrokers(3, 3, capacity),
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0, 1}},
			},
			action:   actions.NewMove(testTP("a", 0), 1, 2),
			expected: actions.Accept,
		},
	}
	for _, testCase := range acceptanceCases {
		testCase.evaluate(t, NewLeaderReplicaDistributionGoal(constraint))
	}

	optimizeCases := []optimizeTestCase{
		{
			description: "leadership moves before data does",
			brokers:     testBrokers(2, 2, capacity),
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0, 1}},
				{Topic: "b", Replicas: []int{0, 1}},
			},
			optimizedGoals: []Goal{
				NewRackAwareGoal(),
				NewReplicaDistributionGoal(DefaultBalancingConstraint()),
			},
			expected: map[model.TopicPartition][]int{
				testTP("a", 0): {1, 0},
				testTP("b", 0): {0, 1},
			},
		},
		{
			description: "leader replica moves when no follower can lead",
			brokers:     testBrokers(2, 2, capacity),
			partitions: []model.TestPartition{
				{Topic: "a", Replicas: []int{0}},
				{Topic: "b", Replicas: []int{0}},
			},
			expected: map[model.TopicPartition][]int{
				testTP("a", 0): {1},
				testTP("b", 0): {0},
			},
		},
	}
	for _, testCase := range optimizeCases {
		testCase.evaluate(t, NewLeaderReplicaDistributionGoal(constraint))
	}
}

func TestLeaderReplicaDistributionGoalRespectsCapacity(t *testing.T) {
	constraint := DefaultBalancingConstraint()
	constraint.LeaderReplicaBalancePercentage = 0

	leaderLoad := func(networkOut float64) model.MetricValues {
		return model.MetricValues{model.ResourceNetworkOut: {networkOut}}
	}
	followerLoad := model.MetricValues{}

	// Any leadership handed to broker 1 would push its network-out to 110
	testCase := optimizeTestCase{
		description: "leadership isn't moved onto a broker without network-out headroom",
		brokers:     testBrokers(2, 2, testCapacity(100, 1000, 100, 1000)),
		partitions: []model.TestPartition{
			{Topic: "a", Replicas: []int{0, 1}, Load: leaderLoad(30), FollowerLoad: followerLoad},
			{Topic: "b", Replicas: []int{0, 1}, Load: leaderLoad(30), FollowerLoad: followerLoad},
			{Topic: "c", Replicas: []int{0, 1}, Load: leaderLoad(30), FollowerLoad: followerLoad},
			{Topic: "d", Replicas: []int{1, 0}, Load: leaderLoad(80), FollowerLoad: followerLoad},
		},
		optimizedGoals: []Goal{
			NewNetworkOutboundCapacityGoal(DefaultBalancingConstraint()),
		},
		expectFailure: true,
	}
	cm := testCase.evaluate(t, NewLeaderReplicaDistributionGoal(constraint))

	for brokerID, expected := range map[int]float64{0: 90, 1: 80} {
		load, err := cm.BrokerLoad(brokerID)
		require.NoError(t, err)
		assert.Equal(t, expected, load.Value(model.ResourceNetworkOut, 0), "broker %d", brokerID)
	}
	broker0, err := cm.Broker(0)
	require.NoError(t, err)
	assert.Equal(t, 3, broker0.NumLeaders())
}

func TestBalanceBounds(t *testing.T) {
	lower, upper := balanceBounds(10, 1, 0.1)
	assert.Equal(t, 9, lower)
	assert.Equal(t, 11, upper)

	lower, upper = balanceBounds(7, 3, 0.1)
	assert.Equal(t, 2, lower)
	assert.Equal(t, 3, upper)

	lower, upper = balanceBounds(5, 0, 0.1)
	assert.Equal(t, 0, lower)
	assert.Equal(t, 0, upper)
}
