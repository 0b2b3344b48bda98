package monitor

import (
	"fmt"

	"github.com/segmentio/balancectl/pkg/admin"
	"github.com/segmentio/balancectl/pkg/model"
	log "github.com/sirupsen/logrus"
)

// BuildClusterModel creates a cluster model from a topology and the capacity of each
// broker. Replicas get no load; use EstimateLoads to fill them in.
//
// Brokers without a rack are placed in a rack named after their host. Brokers that host
// replicas but are missing from the topology are added as dead brokers in their own rack.
func BuildClusterModel(
	topology admin.ClusterTopology,
	capacities map[int]model.BrokerCapacity,
) (*model.ClusterModel, error) {
	cm := model.NewClusterModel()
	brokerRacks := map[int]string{}

	allCapacities := map[int]model.BrokerCapacity{}
	for id, capacity := range capacities {
		allCapacities[id] = capacity
	}

	addBroker := func(id int, host string, rack string) error {
		if rack == "" {
			rack = host
		}
		if _, err := cm.Rack(rack); err != nil {
			if _, err := cm.CreateRack(rack); err != nil {
				return err
			}
		}

		capacity, ok := allCapacities[id]
		if !ok {
			return fmt.Errorf("No capacity found for broker %d", id)
		}
		if _, err := cm.CreateBroker(rack, host, id, capacity, false); err != nil {
			return err
		}
		brokerRacks[id] = rack
		return nil
	}

	for _, broker := range topology.Brokers {
		if err := addBroker(broker.ID, broker.Host, broker.Rack); err != nil {
			return nil, err
		}
	}

	offlineIDs := topology.OfflineBrokerIDs()
	for _, id := range offlineIDs {
		if _, ok := allCapacities[id]; !ok {
			capacity, err := fallbackCapacity(capacities)
			if err != nil {
				return nil, fmt.Errorf("Cannot add offline broker %d: %w", id, err)
			}
			allCapacities[id] = capacity
		}

		log.Warnf("Broker %d hosts replicas but is offline; marking it dead", id)
		if err := addBroker(id, "", fmt.Sprintf("offline-%d", id)); err != nil {
			return nil, err
		}
		if err := cm.MarkBrokerDead(id); err != nil {
			return nil, err
		}
	}

	for _, topic := range topology.Topics {
		for _, partition := range topic.Partitions {
			if len(partition.Replicas) == 0 {
				continue
			}

			tp := model.TopicPartition{Topic: topic.Name, Partition: partition.ID}
			leader := partition.Replicas[0]
			for _, brokerID := range partition.Replicas {
				if partition.HasLeader() && brokerID == partition.Leader {
					leader = brokerID
				}
			}

			for r, brokerID := range partition.Replicas {
				if _, err := cm.CreateReplica(
					brokerRacks[brokerID],
					brokerID,
					tp,
					r,
					brokerID == leader,
				); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := cm.Validate(); err != nil {
		return nil, err
	}
	return cm, nil
}

// fallbackCapacity returns the capacity of the lowest-id broker with one.
func fallbackCapacity(capacities map[int]model.BrokerCapacity) (model.BrokerCapacity, error) {
	lowestID := -1
	for id := range capacities {
		if lowestID < 0 || id < lowestID {
			lowestID = id
		}
	}
	if lowestID < 0 {
		return model.BrokerCapacity{}, fmt.Errorf("No broker capacities are known")
	}
	return capacities[lowestID].WithEstimation(
		fmt.Sprintf("Copied from broker %d", lowestID),
	), nil
}
