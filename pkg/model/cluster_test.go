package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCapacity = map[Resource]float64{
	ResourceCPU:        2,
	ResourceNetworkIn:  100,
	ResourceNetworkOut: 100,
	ResourceDisk:       600,
}

func testLoad(cpu, nwIn, nwOut, disk float64) MetricValues {
	return MetricValues{
		ResourceCPU:        {cpu},
		ResourceNetworkIn:  {nwIn},
		ResourceNetworkOut: {nwOut},
		ResourceDisk:       {disk},
	}
}

func twoBrokerModel(t *testing.T) *ClusterModel {
	return NewTestClusterModel(
		t,
		[]int64{1},
		[]TestBroker{
			{ID: 0, Rack: "r0", Capacity: testCapacity},
			{ID: 1, Rack: "r0", Capacity: testCapacity},
		},
		[]TestPartition{
			{
				Topic:     "foobar1",
				Partition: 0,
				Replicas:  []int{0, 1},
				Load:      testLoad(10, 10, 10, 235),
			},
			{
				Topic:     "foobar2",
				Partition: 0,
				Replicas:  []int{1, 0},
				Load:      testLoad(10, 10, 10, 235),
			},
		},
	)
}

var (
	tp1 = TopicPartition{Topic: "foobar1", Partition: 0}
	tp2 = TopicPartition{Topic: "foobar2", Partition: 0}
)

func TestClusterModelCreate(t *testing.T) {
	cm := NewClusterModel()

	_, err := cm.CreateBroker("r0", "host0", 0, MustBrokerCapacity(testCapacity), false)
	assert.ErrorIs(t, err, ErrUnknownRack)

	_, err = cm.CreateRack("r0")
	require.NoError(t, err)
	_, err = cm.CreateRack("r0")
	assert.ErrorIs(t, err, ErrDuplicate)

	broker, err := cm.CreateBroker("r0", "host0", 0, MustBrokerCapacity(testCapacity), false)
	require.NoError(t, err)
	assert.True(t, broker.IsAlive())
	assert.Equal(t, "host0", broker.Host())

	_, err = cm.CreateBroker("r0", "host0", 0, MustBrokerCapacity(testCapacity), false)
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = cm.CreateBroker("r0", "host1", 1, BrokerCapacity{}, false)
	assert.ErrorIs(t, err, ErrInvalidMutation)

	_, err = cm.CreateBroker("r0", "host1", 1, MustBrokerCapacity(testCapacity), false)
	require.NoError(t, err)

	_, err = cm.CreateReplica("r0", 0, tp1, 0, true)
	require.NoError(t, err)
	_, err = cm.CreateReplica("r0", 0, tp1, 1, false)
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = cm.CreateReplica("r0", 1, tp1, 1, true)
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = cm.CreateReplica("r1", 1, tp1, 1, false)
	assert.ErrorIs(t, err, ErrUnknownRack)
	_, err = cm.CreateReplica("r0", 5, tp1, 1, false)
	assert.ErrorIs(t, err, ErrUnknownBroker)

	// Insert at the front to check index handling
	_, err = cm.CreateReplica("r0", 1, tp1, 0, false)
	require.NoError(t, err)
	assert.Equal(
		t,
		[]ReplicaPlacementInfo{{BrokerID: 1}, {BrokerID: 0}},
		cm.Placements(tp1),
	)
	assert.NoError(t, cm.Validate())
}

func TestClusterModelLoads(t *testing.T) {
	cm := twoBrokerModel(t)

	brokerLoad, err := cm.BrokerLoad(1)
	require.NoError(t, err)
	assert.Equal(t, 470.0, brokerLoad.Value(ResourceDisk, 0))
	assert.Equal(t, 20.0, brokerLoad.Value(ResourceCPU, 0))

	rackLoad, err := cm.RackLoad("r0")
	require.NoError(t, err)
	assert.Equal(t, 940.0, rackLoad.Value(ResourceDisk, 0))
	assert.Equal(t, 940.0, cm.ClusterLoad().Value(ResourceDisk, 0))

	_, err = cm.BrokerLoad(10)
	assert.ErrorIs(t, err, ErrUnknownBroker)
	_, err = cm.RackLoad("r10")
	assert.ErrorIs(t, err, ErrUnknownRack)

	err = cm.SetReplicaLoad("r0", 0, tp1, testLoad(1, 1, 1, 1), []int64{1, 2})
	assert.ErrorIs(t, err, ErrInvalidLoad)
	err = cm.SetReplicaLoad("r0", 0, TopicPartition{Topic: "missing"}, testLoad(1, 1, 1, 1), []int64{1})
	assert.ErrorIs(t, err, ErrUnknownReplica)
	err = cm.SetReplicaLoad("r0", 0, tp1, MetricValues{ResourceDisk: {-1}}, []int64{1})
	assert.ErrorIs(t, err, ErrInvalidLoad)
}

func TestClusterModelRelocateReplica(t *testing.T) {
	cm := twoBrokerModel(t)
	_, err := cm.CreateRack("r1")
	require.NoError(t, err)
	_, err = cm.CreateBroker("r1", "", 2, MustBrokerCapacity(testCapacity), false)
	require.NoError(t, err)

	require.NoError(t, cm.RelocateReplica(tp1, 0, 2, ""))

	assert.Equal(
		t,
		[]ReplicaPlacementInfo{{BrokerID: 2}, {BrokerID: 1}},
		cm.Placements(tp1),
	)
	leader, err := cm.Leader(tp1)
	require.NoError(t, err)
	assert.Equal(t, 2, leader.BrokerID())

	load0, _ := cm.BrokerLoad(0)
	load2, _ := cm.BrokerLoad(2)
	assert.Equal(t, 235.0, load0.Value(ResourceDisk, 0))
	assert.Equal(t, 235.0, load2.Value(ResourceDisk, 0))
	assert.Equal(t, 940.0, cm.ClusterLoad().Value(ResourceDisk, 0))

	assert.ErrorIs(t, cm.RelocateReplica(tp1, 2, 1, ""), ErrDuplicate)
	assert.ErrorIs(t, cm.RelocateReplica(tp1, 0, 1, ""), ErrUnknownReplica)
	assert.ErrorIs(t, cm.RelocateReplica(tp1, 2, 7, ""), ErrUnknownBroker)
	assert.NoError(t, cm.Validate())
}

func TestClusterModelSwapReplicas(t *testing.T) {
	cm := twoBrokerModel(t)

	// Both brokers host both partitions, so neither swap direction is possible
	err := cm.SwapReplicas(tp1, 0, tp2, 1)
	assert.ErrorIs(t, err, ErrDuplicate)

	// The failed swap must not have moved anything
	assert.Equal(
		t,
		[]ReplicaPlacementInfo{{BrokerID: 0}, {BrokerID: 1}},
		cm.Placements(tp1),
	)
	assert.Equal(
		t,
		[]ReplicaPlacementInfo{{BrokerID: 1}, {BrokerID: 0}},
		cm.Placements(tp2),
	)

	tp3 := TopicPartition{Topic: "other", Partition: 3}
	_, err = cm.CreateRack("r1")
	require.NoError(t, err)
	_, err = cm.CreateBroker("r1", "", 2, MustBrokerCapacity(testCapacity), false)
	require.NoError(t, err)
	_, err = cm.CreateReplica("r1", 2, tp3, 0, true)
	require.NoError(t, err)
	require.NoError(t, cm.SetReplicaLoad("r1", 2, tp3, testLoad(1, 1, 1, 100), []int64{1}))

	require.NoError(t, cm.SwapReplicas(tp1, 0, tp3, 2))
	assert.Equal(t, []int{2, 1}, BrokerIDs(cm.Placements(tp1)))
	assert.Equal(t, []int{0}, BrokerIDs(cm.Placements(tp3)))

	load0, _ := cm.BrokerLoad(0)
	load2, _ := cm.BrokerLoad(2)
	assert.Equal(t, 335.0, load0.Value(ResourceDisk, 0))
	assert.Equal(t, 235.0, load2.Value(ResourceDisk, 0))

	assert.ErrorIs(t, cm.SwapReplicas(tp1, 2, tp1, 1), ErrInvalidMutation)
	assert.NoError(t, cm.Validate())
}

func TestClusterModelRelocateLeadership(t *testing.T) {
	cm := twoBrokerModel(t)
	before, _ := cm.BrokerLoad(1)

	require.NoError(t, cm.RelocateLeadership(tp1, 0, 1))

	leader, err := cm.Leader(tp1)
	require.NoError(t, err)
	assert.Equal(t, 1, leader.BrokerID())
	assert.Equal(t, []int{1, 0}, BrokerIDs(cm.Placements(tp1)))

	after, _ := cm.BrokerLoad(1)
	assert.Equal(t, before.Values(ResourceNetworkOut), after.Values(ResourceNetworkOut))

	assert.ErrorIs(t, cm.RelocateLeadership(tp1, 0, 1), ErrInvalidMutation)
	assert.NoError(t, cm.Validate())
}

func TestClusterModelRelocateLeadershipLoad(t *testing.T) {
	cm := NewTestClusterModel(
		t,
		[]int64{2, 1},
		[]TestBroker{
			{ID: 0, Rack: "r0", Capacity: testCapacity},
			{ID: 1, Rack: "r1", Capacity: testCapacity},
		},
		[]TestPartition{
			{
				Topic:    "p",
				Replicas: []int{0, 1},
				Load: MetricValues{
					ResourceCPU:        {30, 40},
					ResourceNetworkIn:  {20, 20},
					ResourceNetworkOut: {60, 50},
					ResourceDisk:       {100, 90},
				},
				FollowerLoad: MetricValues{
					ResourceCPU:        {10, 10},
					ResourceNetworkIn:  {20, 20},
					ResourceNetworkOut: {0, 0},
					ResourceDisk:       {100, 90},
				},
			},
		},
	)
	tp := TopicPartition{Topic: "p"}

	require.NoError(t, cm.RelocateLeadership(tp, 0, 1))

	type expectedLoad struct {
		brokerID   int
		cpu        []float64
		networkOut []float64
	}
	for _, expected := range []expectedLoad{
		{brokerID: 0, cpu: []float64{10, 10}, networkOut: []float64{0, 0}},
		{brokerID: 1, cpu: []float64{30, 40}, networkOut: []float64{60, 50}},
	} {
		load, err := cm.BrokerLoad(expected.brokerID)
		require.NoError(t, err)
		assert.Equal(t, expected.cpu, load.Values(ResourceCPU), "broker %d", expected.brokerID)
		assert.Equal(
			t,
			expected.networkOut,
			load.Values(ResourceNetworkOut),
			"broker %d",
			expected.brokerID,
		)
		assert.Equal(t, []float64{20, 20}, load.Values(ResourceNetworkIn))
		assert.Equal(t, []float64{100, 90}, load.Values(ResourceDisk))
	}

	// Moving leadership back restores the original loads
	require.NoError(t, cm.RelocateLeadership(tp, 1, 0))
	leader, err := cm.Leader(tp)
	require.NoError(t, err)
	assert.Equal(t, []float64{60, 50}, leader.Load().Values(ResourceNetworkOut))
	assert.Equal(t, []float64{30, 40}, leader.Load().Values(ResourceCPU))
	assert.Equal(t, []float64{60, 50}, cm.ClusterLoad().Values(ResourceNetworkOut))
	assert.NoError(t, cm.Validate())
}

func TestClusterModelAddDeleteReplica(t *testing.T) {
	cm := twoBrokerModel(t)
	_, err := cm.CreateRack("r1")
	require.NoError(t, err)
	_, err = cm.CreateBroker("r1", "", 2, MustBrokerCapacity(testCapacity), false)
	require.NoError(t, err)

	require.NoError(t, cm.AddReplica(tp1, 2, ""))
	assert.Equal(t, []int{0, 1, 2}, BrokerIDs(cm.Placements(tp1)))
	load2, _ := cm.BrokerLoad(2)
	assert.Equal(t, 235.0, load2.Value(ResourceDisk, 0))

	assert.ErrorIs(t, cm.DeleteReplica(tp1, 0), ErrInvalidMutation)
	require.NoError(t, cm.DeleteReplica(tp1, 1))
	assert.Equal(t, []int{0, 2}, BrokerIDs(cm.Placements(tp1)))
	assert.NoError(t, cm.Validate())
}

func TestClusterModelCloneRestore(t *testing.T) {
	cm := twoBrokerModel(t)
	clone := cm.Clone()

	require.NoError(t, cm.RelocateLeadership(tp1, 0, 1))
	require.NoError(t, cm.MarkBrokerDead(0))

	cloneLeader, err := clone.Leader(tp1)
	require.NoError(t, err)
	assert.Equal(t, 0, cloneLeader.BrokerID())
	cloneBroker, err := clone.Broker(0)
	require.NoError(t, err)
	assert.True(t, cloneBroker.IsAlive())

	cm.Restore(clone)
	leader, err := cm.Leader(tp1)
	require.NoError(t, err)
	assert.Equal(t, 0, leader.BrokerID())
	assert.Equal(t, 2, len(cm.AliveBrokers()))

	// Restoring must copy, not alias
	require.NoError(t, cm.RelocateLeadership(tp1, 0, 1))
	cloneLeader, err = clone.Leader(tp1)
	require.NoError(t, err)
	assert.Equal(t, 0, cloneLeader.BrokerID())
}

func TestClusterModelValidate(t *testing.T) {
	cm := NewClusterModel()
	_, err := cm.CreateRack("r0")
	require.NoError(t, err)
	_, err = cm.CreateBroker("r0", "", 0, MustBrokerCapacity(testCapacity), false)
	require.NoError(t, err)
	_, err = cm.CreateReplica("r0", 0, tp1, 0, false)
	require.NoError(t, err)

	assert.Error(t, cm.Validate())
}

func TestClusterModelQueries(t *testing.T) {
	cm := twoBrokerModel(t)
	require.NoError(t, cm.MarkBrokerDead(1))

	assert.Equal(t, []TopicPartition{tp1, tp2}, cm.TopicPartitions())
	assert.Equal(t, 4, cm.NumReplicas())
	assert.Equal(t, []int64{1}, cm.Windows())
	assert.Equal(t, 1, len(cm.AliveBrokers()))
	assert.Equal(t, 1, cm.DeadBrokers()[0].ID())

	broker, err := cm.Broker(0)
	require.NoError(t, err)
	assert.Equal(t, 1, broker.NumLeaders())
	assert.True(t, broker.HasReplica(tp2))
	assert.Equal(t, []int{0, 1}, cm.Racks()[0].BrokerIDs())

	distribution := cm.ReplicaDistribution()
	assert.Equal(
		t,
		[]ReplicaPlacementInfo{{BrokerID: 1}, {BrokerID: 0}},
		distribution[tp2],
	)
}
