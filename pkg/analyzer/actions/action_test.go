package actions

import (
	"testing"

	"github.com/segmentio/balancectl/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCapacity = map[model.Resource]float64{
		model.ResourceCPU:        2,
		model.ResourceNetworkIn:  100,
		model.ResourceNetworkOut: 100,
		model.ResourceDisk:       600,
	}
	tp0 = model.TopicPartition{Topic: "foobar1", Partition: 0}
	tp1 = model.TopicPartition{Topic: "foobar2", Partition: 0}
	tp2 = model.TopicPartition{Topic: "foobar3", Partition: 0}
)

func testModel(t *testing.T) *model.ClusterModel {
	return model.NewTestClusterModel(
		t,
		[]int64{1},
		[]model.TestBroker{
			{ID: 0, Rack: "r0", Capacity: testCapacity},
			{ID: 1, Rack: "r0", Capacity: testCapacity},
			{ID: 2, Rack: "r1", Capacity: testCapacity},
		},
		[]model.TestPartition{
			{Topic: "foobar1", Partition: 0, Replicas: []int{0, 1}, Load: model.UniformLoad(10, 1)},
			{Topic: "foobar2", Partition: 0, Replicas: []int{1, 0}, Load: model.UniformLoad(10, 1)},
			{Topic: "foobar3", Partition: 0, Replicas: []int{2}, Load: model.UniformLoad(5, 1)},
		},
	)
}

func TestActionApply(t *testing.T) {
	type testCase struct {
		description string
		action      BalancingAction
		expected    map[model.TopicPartition][]int
		expectedErr error
	}

	testCases := []testCase{
		{
			description: "move",
			action:      NewMove(tp0, 0, 2),
			expected: map[model.TopicPartition][]int{
				tp0: {2, 1},
				tp1: {1, 0},
				tp2: {2},
			},
		},
		{
			description: "swap",
			action:      NewSwap(tp0, 1, 2, tp2),
			expected: map[model.TopicPartition][]int{
				tp0: {0, 2},
				tp1: {1, 0},
				tp2: {1},
			},
		},
		{
			description: "leadership",
			action:      NewLeadershipMove(tp1, 1, 0),
			expected: map[model.TopicPartition][]int{
				tp0: {0, 1},
				tp1: {0, 1},
				tp2: {2},
			},
		},
		{
			description: "addition",
			action:      NewReplicaAddition(tp2, 0),
			expected: map[model.TopicPartition][]int{
				tp0: {0, 1},
				tp1: {1, 0},
				tp2: {2, 0},
			},
		},
		{
			description: "deletion",
			action:      NewReplicaDeletion(tp0, 1),
			expected: map[model.TopicPartition][]int{
				tp0: {0},
				tp1: {1, 0},
				tp2: {2},
			},
		},
		{
			description: "swap onto a broker that already has the partition",
			action:      NewSwap(tp0, 0, 1, tp1),
			expectedErr: model.ErrDuplicate,
		},
		{
			description: "move of a replica that doesn't exist",
			action:      NewMove(tp2, 0, 1),
			expectedErr: model.ErrUnknownReplica,
		},
	}

	for _, testCase := range testCases {
		cm := testModel(t)
		err := testCase.action.Apply(cm)
		if testCase.expectedErr != nil {
			assert.ErrorIs(t, err, testCase.expectedErr, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		require.NoError(t, cm.Validate(), testCase.description)

		for tp, brokerIDs := range testCase.expected {
			assert.Equal(
				t,
				brokerIDs,
				model.BrokerIDs(cm.Placements(tp)),
				"%s: %s",
				testCase.description,
				tp,
			)
		}
	}
}

func TestActionReverse(t *testing.T) {
	for _, action := range []BalancingAction{
		NewMove(tp0, 0, 2),
		NewSwap(tp0, 1, 2, tp2),
		NewLeadershipMove(tp1, 1, 0),
	} {
		cm := testModel(t)
		before := cm.ReplicaDistribution()

		require.NoError(t, action.Apply(cm), action.String())
		reversed, ok := action.Reverse()
		require.True(t, ok)
		require.NoError(t, reversed.Apply(cm), reversed.String())

		assert.Equal(t, before, cm.ReplicaDistribution(), action.String())
	}

	_, ok := NewReplicaDeletion(tp0, 1).Reverse()
	assert.False(t, ok)
}

func TestActionStrings(t *testing.T) {
	assert.Equal(
		t,
		"(INTER_BROKER_REPLICA_SWAP: foobar1-0 {Broker: 0} <-> foobar2-0 {Broker: 1})",
		NewSwap(tp0, 0, 1, tp1).String(),
	)
	assert.Equal(
		t,
		"(INTRA_BROKER_REPLICA_MOVEMENT: foobar1-0 {Broker: 0, Logdir: /a} -> {Broker: 0, Logdir: /b})",
		NewLogdirMove(tp0, 0, "/a", "/b").String(),
	)
	assert.Equal(t, "BROKER_REJECT", BrokerReject.String())
	assert.Equal(t, "LEADERSHIP_MOVEMENT", LeadershipMovement.String())
}
