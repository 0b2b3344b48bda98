package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBroker describes a broker in a test cluster.
type TestBroker struct {
	ID       int
	Rack     string
	Capacity map[Resource]float64
	Dead     bool
}

// TestPartition describes a partition in a test cluster. The first broker in Replicas is the
// leader. Every replica gets Load unless FollowerLoad is set, in which case non-leaders get
// that instead.
type TestPartition struct {
	Topic        string
	Partition    int
	Replicas     []int
	Load         MetricValues
	FollowerLoad MetricValues
}

// TopicPartition returns the identifier of the test partition.
func (p TestPartition) TopicPartition() TopicPartition {
	return TopicPartition{Topic: p.Topic, Partition: p.Partition}
}

// NewTestClusterModel builds a cluster model for unit testing purposes, failing the test
// if any step is rejected.
func NewTestClusterModel(
	t *testing.T,
	windows []int64,
	brokers []TestBroker,
	partitions []TestPartition,
) *ClusterModel {
	cm := NewClusterModel()
	brokerRacks := map[int]string{}

	for _, broker := range brokers {
		if _, err := cm.Rack(broker.Rack); err != nil {
			_, err := cm.CreateRack(broker.Rack)
			require.NoError(t, err)
		}
		_, err := cm.CreateBroker(
			broker.Rack,
			"",
			broker.ID,
			MustBrokerCapacity(broker.Capacity),
			false,
		)
		require.NoError(t, err)
		brokerRacks[broker.ID] = broker.Rack
	}

	for _, partition := range partitions {
		tp := partition.TopicPartition()
		for r, brokerID := range partition.Replicas {
			rack := brokerRacks[brokerID]
			_, err := cm.CreateReplica(rack, brokerID, tp, r, r == 0)
			require.NoError(t, err)

			values := partition.Load
			if r > 0 && partition.FollowerLoad != nil {
				values = partition.FollowerLoad
			}
			if values != nil {
				require.NoError(t, cm.SetReplicaLoad(rack, brokerID, tp, values, windows))
			}
		}
	}

	for _, broker := range brokers {
		if broker.Dead {
			require.NoError(t, cm.MarkBrokerDead(broker.ID))
		}
	}

	return cm
}

// UniformLoad returns metric values that have the same value for every resource in every
// window.
func UniformLoad(value float64, numWindows int) MetricValues {
	values := MetricValues{}
	for _, resource := range AllResources() {
		resourceValues := make([]float64, numWindows)
		for w := range resourceValues {
			resourceValues[w] = value
		}
		values[resource] = resourceValues
	}
	return values
}
