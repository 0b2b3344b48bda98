package monitor

import (
	"testing"

	"github.com/segmentio/balancectl/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdinalPodMapper(t *testing.T) {
	id, err := OrdinalPodMapper{}.BrokerID("kafka-12")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	id, err = OrdinalPodMapper{Offset: 1}.BrokerID("kafka-broker-0")
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	_, err = OrdinalPodMapper{}.BrokerID("kafka")
	assert.Error(t, err)
}

func TestEstimateLoads(t *testing.T) {
	capacity := map[model.Resource]float64{
		model.ResourceCPU:        8,
		model.ResourceNetworkIn:  100000,
		model.ResourceNetworkOut: 100000,
		model.ResourceDisk:       100000,
	}
	cm := model.NewTestClusterModel(
		t,
		nil,
		[]model.TestBroker{
			{ID: 0, Rack: "rack1", Capacity: capacity},
			{ID: 1, Rack: "rack2", Capacity: capacity},
			{ID: 2, Rack: "rack3", Capacity: capacity},
		},
		[]model.TestPartition{
			{Topic: "events", Partition: 0, Replicas: []int{0, 1}},
			{Topic: "events", Partition: 1, Replicas: []int{1, 0}},
			{Topic: "logs", Partition: 0, Replicas: []int{0, 1}},
		},
	)

	snapshot := NewMetricSnapshot([]int64{1000, 2000})
	snapshot.BrokerCPU["kafka-0"] = []float64{2.0, 4.0}
	snapshot.TopicBytesIn[PodTopic{Pod: "kafka-0", Topic: "events"}] = []float64{4000, 8000}
	snapshot.TopicBytesOut[PodTopic{Pod: "kafka-0", Topic: "events"}] = []float64{6000, 0}
	snapshot.PartitionSize[PodPartition{
		Pod:            "kafka-0",
		TopicPartition: model.TopicPartition{Topic: "events", Partition: 0},
	}] = []float64{1e6, 2e6}
	snapshot.BrokerCPU["zookeeper"] = []float64{1.0, 1.0}

	require.NoError(t, EstimateLoads(cm, snapshot, OrdinalPodMapper{}))
	assert.Equal(t, []int64{2000, 1000}, cm.Windows())

	events0 := model.TopicPartition{Topic: "events", Partition: 0}
	events1 := model.TopicPartition{Topic: "events", Partition: 1}
	logs0 := model.TopicPartition{Topic: "logs", Partition: 0}

	leader, err := cm.Replica(events0, 0)
	require.NoError(t, err)
	// Most recent window first
	assert.Equal(t, []float64{2.0, 1.0}, leader.Load().Values(model.ResourceDisk))
	assert.Equal(t, []float64{4.0, 2.0}, leader.Load().Values(model.ResourceNetworkIn))
	assert.Equal(t, []float64{0.0, 6.0}, leader.Load().Values(model.ResourceNetworkOut))

	follower, err := cm.Replica(events1, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0, 0.0}, follower.Load().Values(model.ResourceDisk))
	assert.Equal(t, []float64{4.0, 2.0}, follower.Load().Values(model.ResourceNetworkIn))
	assert.Equal(t, []float64{0.0, 0.0}, follower.Load().Values(model.ResourceNetworkOut))

	noTraffic, err := cm.Replica(logs0, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0, 0.0}, noTraffic.Load().Values(model.ResourceNetworkIn))

	// Most recent window: 8 KB/s in on each events replica, nothing out
	assert.InDelta(t, 2.0, leader.Load().Value(model.ResourceCPU, 0), 1e-9)
	assert.InDelta(t, 2.0, follower.Load().Value(model.ResourceCPU, 0), 1e-9)
	assert.InDelta(t, 0.0, noTraffic.Load().Value(model.ResourceCPU, 0), 1e-9)

	// Older window: 8 KB/s total on the leader and 2 KB/s on the follower
	assert.InDelta(t, 1.6, leader.Load().Value(model.ResourceCPU, 1), 1e-9)
	assert.InDelta(t, 0.4, follower.Load().Value(model.ResourceCPU, 1), 1e-9)

	brokerLoad, err := cm.BrokerLoad(0)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, brokerLoad.Value(model.ResourceCPU, 0), 1e-9)

	unsampled, err := cm.Replica(events0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, unsampled.Load().NumWindows())
	assert.Equal(t, 0.0, unsampled.Load().Max(model.ResourceCPU))
}

func TestEstimateLoadsErrors(t *testing.T) {
	cm := model.NewClusterModel()

	err := EstimateLoads(cm, NewMetricSnapshot(nil), OrdinalPodMapper{})
	assert.Error(t, err)

	snapshot := NewMetricSnapshot([]int64{1000})
	snapshot.BrokerCPU["kafka-1"] = []float64{1.0}
	snapshot.BrokerCPU["kafka-broker-1"] = []float64{1.0}
	err = EstimateLoads(cm, snapshot, OrdinalPodMapper{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both map to broker 1")
}
