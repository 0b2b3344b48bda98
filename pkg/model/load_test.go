package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadArithmetic(t *testing.T) {
	windows := []int64{3, 2, 1}

	load1, err := NewLoad(
		MetricValues{
			ResourceCPU:  {1, 2, 3},
			ResourceDisk: {100, 100, 100},
		},
		windows,
	)
	require.NoError(t, err)

	load2, err := NewLoad(
		MetricValues{
			ResourceCPU:       {0.5, 0.5, 4},
			ResourceNetworkIn: {10, 20, 30},
		},
		windows,
	)
	require.NoError(t, err)

	sum := load1.Plus(load2)
	assert.Equal(t, []float64{1.5, 2.5, 7}, sum.Values(ResourceCPU))
	assert.Equal(t, []float64{10, 20, 30}, sum.Values(ResourceNetworkIn))
	assert.Equal(t, 7.0, sum.Max(ResourceCPU))
	assert.InDelta(t, 11.0/3.0, sum.Expected(ResourceCPU), 1e-9)
	assert.Equal(t, windows, sum.Windows())

	diff := sum.Minus(load2)
	assert.Equal(t, load1.Values(ResourceCPU), diff.Values(ResourceCPU))
	assert.Equal(t, []float64{0, 0, 0}, diff.Values(ResourceNetworkIn))

	// Inputs are untouched
	assert.Equal(t, []float64{1, 2, 3}, load1.Values(ResourceCPU))

	var nilLoad *Load
	assert.Equal(t, 0.0, nilLoad.Value(ResourceCPU, 0))
	assert.Equal(t, 0, nilLoad.NumWindows())
	assert.Equal(t, load1.Values(ResourceDisk), nilLoad.Plus(load1).Values(ResourceDisk))
	assert.Nil(t, nilLoad.Copy())
}

func TestLoadValidation(t *testing.T) {
	_, err := NewLoad(MetricValues{ResourceCPU: {1}}, nil)
	assert.ErrorIs(t, err, ErrInvalidLoad)

	_, err = NewLoad(MetricValues{ResourceCPU: {1, 2}}, []int64{1})
	assert.ErrorIs(t, err, ErrInvalidLoad)

	_, err = NewLoad(MetricValues{Resource(42): {1}}, []int64{1})
	assert.ErrorIs(t, err, ErrInvalidLoad)

	load, err := NewLoad(MetricValues{}, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, load.Max(ResourceDisk))
}

func TestBrokerCapacity(t *testing.T) {
	capacity, err := NewBrokerCapacity(
		map[Resource]float64{
			ResourceCPU:        4,
			ResourceNetworkIn:  1000,
			ResourceNetworkOut: 1000,
		},
		map[string]float64{
			"/data/a": 300,
			"/data/b": 200,
		},
	)
	require.NoError(t, err)
	assert.Equal(t, 500.0, capacity.Get(ResourceDisk))
	assert.Equal(t, []string{"/data/a", "/data/b"}, capacity.Logdirs())
	assert.Equal(t, 4, capacity.NumCPUCores())
	logdirCapacity, ok := capacity.DiskByLogdir("/data/b")
	assert.True(t, ok)
	assert.Equal(t, 200.0, logdirCapacity)
	assert.False(t, capacity.Estimated())

	estimated := capacity.WithEstimation("from instance type")
	assert.True(t, estimated.Estimated())
	assert.Equal(t, "from instance type", estimated.EstimationInfo())
	assert.False(t, capacity.Estimated())

	_, err = NewBrokerCapacity(
		map[Resource]float64{
			ResourceCPU: -1,
		},
		nil,
	)
	assert.Error(t, err)

	_, err = NewBrokerCapacity(
		map[Resource]float64{
			ResourceCPU:        4,
			ResourceNetworkIn:  1000,
			ResourceNetworkOut: 1000,
			ResourceDisk:       1000,
		},
		map[string]float64{
			"/data/a": 300,
		},
	)
	assert.Error(t, err)
}

func TestResources(t *testing.T) {
	for _, name := range []string{"cpu", "nw-in", "network_out", "DISK"} {
		_, err := ParseResource(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseResource("memory")
	assert.Error(t, err)

	encoded, err := json.Marshal(ResourceNetworkIn)
	require.NoError(t, err)
	assert.Equal(t, `"networkInbound"`, string(encoded))

	var decoded Resource
	require.NoError(t, json.Unmarshal([]byte(`"disk"`), &decoded))
	assert.Equal(t, ResourceDisk, decoded)
}

func TestPlacements(t *testing.T) {
	placements := []ReplicaPlacementInfo{
		{BrokerID: 3},
		{BrokerID: 1, Logdir: "/b"},
		{BrokerID: 2},
	}
	SortLeaderFirst(placements, ReplicaPlacementInfo{BrokerID: 2})
	assert.Equal(t, []int{2, 3, 1}, BrokerIDs(placements))

	assert.True(t, ReplicaPlacementInfo{BrokerID: 1}.Less(ReplicaPlacementInfo{BrokerID: 2}))
	assert.True(
		t,
		ReplicaPlacementInfo{BrokerID: 1, Logdir: "/a"}.Less(
			ReplicaPlacementInfo{BrokerID: 1, Logdir: "/b"},
		),
	)
	assert.Equal(t, "{Broker: 1, Logdir: /b}", placements[2].String())
	assert.Equal(t, "{Broker: 2}", placements[0].String())
	assert.False(t, SamePlacements(placements, placements[:2]))
	assert.Equal(t, "foobar-3", TopicPartition{Topic: "foobar", Partition: 3}.String())
}

func TestLeadershipLoadDelta(t *testing.T) {
	windows := []int64{2, 1}
	leader, err := NewLoad(
		MetricValues{
			ResourceCPU:        {30, 5},
			ResourceNetworkIn:  {20, 20},
			ResourceNetworkOut: {60, 50},
			ResourceDisk:       {100, 90},
		},
		windows,
	)
	require.NoError(t, err)
	follower, err := NewLoad(
		MetricValues{
			ResourceCPU:       {10, 10},
			ResourceNetworkIn: {20, 20},
			ResourceDisk:      {100, 90},
		},
		windows,
	)
	require.NoError(t, err)

	delta := LeadershipLoadDelta(leader, follower)
	assert.Equal(t, []float64{20, -5}, delta.Values(ResourceCPU))
	assert.Equal(t, []float64{60, 50}, delta.Values(ResourceNetworkOut))
	assert.Equal(t, []float64{0, 0}, delta.Values(ResourceNetworkIn))
	assert.Equal(t, []float64{0, 0}, delta.Values(ResourceDisk))

	delta = LeadershipLoadDelta(leader, nil)
	assert.Equal(t, []float64{60, 50}, delta.Values(ResourceNetworkOut))
	assert.Nil(t, LeadershipLoadDelta(nil, nil))
}
