package admin

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// LogDirsKey is the broker config key for the comma-separated list of log directories.
	LogDirsKey = "log.dirs"

	// LogDirKey is the broker config key for the single log directory, used if LogDirsKey
	// isn't set.
	LogDirKey = "log.dir"
)

// BrokerInfo represents the information returned by the cluster about a broker.
type BrokerInfo struct {
	ID     int               `json:"id"`
	Host   string            `json:"host"`
	Port   int32             `json:"port"`
	Rack   string            `json:"rack"`
	Config map[string]string `json:"config"`
}

// TopicInfo represents the information returned by the cluster about a topic.
type TopicInfo struct {
	Name       string          `json:"name"`
	Internal   bool            `json:"internal"`
	Partitions []PartitionInfo `json:"partitions"`
}

// PartitionInfo represents the information returned by the cluster about a topic
// partition.
type PartitionInfo struct {
	Topic           string `json:"topic"`
	ID              int    `json:"ID"`
	Leader          int    `json:"leader"`
	Replicas        []int  `json:"replicas"`
	ISR             []int  `json:"isr"`
	OfflineReplicas []int  `json:"offlineReplicas"`
}

// ClusterTopology is a point-in-time view of the brokers and partition placements of a
// cluster.
type ClusterTopology struct {
	ClusterID    string       `json:"clusterID"`
	ControllerID int          `json:"controllerID"`
	Brokers      []BrokerInfo `json:"brokers"`
	Topics       []TopicInfo  `json:"topics"`
}

// Addr returns the address of the current BrokerInfo.
func (b BrokerInfo) Addr() string {
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}

// Logdirs returns the log directories in the broker's config, if known.
func (b BrokerInfo) Logdirs() []string {
	value, ok := b.Config[LogDirsKey]
	if !ok || value == "" {
		value = b.Config[LogDirKey]
	}

	logdirs := []string{}
	for _, logdir := range strings.Split(value, ",") {
		logdir = strings.TrimSpace(logdir)
		if logdir != "" {
			logdirs = append(logdirs, logdir)
		}
	}
	return logdirs
}

// BrokerIDs returns a slice of the IDs of the argument brokers.
func BrokerIDs(brokers []BrokerInfo) []int {
	brokerIDs := []int{}

	for _, broker := range brokers {
		brokerIDs = append(brokerIDs, broker.ID)
	}

	return brokerIDs
}

// BrokerRacks returns a mapping of broker ID -> rack.
func BrokerRacks(brokers []BrokerInfo) map[int]string {
	brokerRacks := map[int]string{}

	for _, broker := range brokers {
		brokerRacks[broker.ID] = broker.Rack
	}

	return brokerRacks
}

// BrokersPerRack returns a mapping of rack -> broker IDs.
func BrokersPerRack(brokers []BrokerInfo) map[string][]int {
	brokersPerRack := map[string][]int{}

	for _, broker := range brokers {
		rack := broker.Rack
		brokersPerRack[rack] = append(
			brokersPerRack[rack],
			broker.ID,
		)
	}

	return brokersPerRack
}

// DistinctRacks returns a sorted slice of all the distinct racks in the cluster.
func DistinctRacks(brokers []BrokerInfo) []string {
	brokersPerRack := BrokersPerRack(brokers)

	racks := []string{}
	for rack := range brokersPerRack {
		racks = append(racks, rack)
	}

	sort.Slice(racks, func(a, b int) bool {
		return racks[a] < racks[b]
	})

	return racks
}

// PartitionIDs returns the IDs of the partitions in the topic, sorted.
func (t TopicInfo) PartitionIDs() []int {
	partitionIDs := []int{}

	for _, partition := range t.Partitions {
		partitionIDs = append(partitionIDs, partition.ID)
	}

	sort.Ints(partitionIDs)
	return partitionIDs
}

// MaxReplication returns the maximum number of replicas across all partitions in a topic.
func (t TopicInfo) MaxReplication() int {
	maxReplication := 0

	for _, partition := range t.Partitions {
		if len(partition.Replicas) > maxReplication {
			maxReplication = len(partition.Replicas)
		}
	}

	return maxReplication
}

// HasLeader returns whether the partition has an online leader.
func (p PartitionInfo) HasLeader() bool {
	return p.Leader >= 0
}

// NumPartitions returns the total number of partitions across all topics.
func (t ClusterTopology) NumPartitions() int {
	total := 0
	for _, topic := range t.Topics {
		total += len(topic.Partitions)
	}
	return total
}

// NumReplicas returns the total number of replicas across all topics.
func (t ClusterTopology) NumReplicas() int {
	total := 0
	for _, topic := range t.Topics {
		for _, partition := range topic.Partitions {
			total += len(partition.Replicas)
		}
	}
	return total
}

// OfflineBrokerIDs returns the sorted IDs of brokers that host replicas but aren't among
// the live brokers.
func (t ClusterTopology) OfflineBrokerIDs() []int {
	live := map[int]struct{}{}
	for _, broker := range t.Brokers {
		live[broker.ID] = struct{}{}
	}

	offlineMap := map[int]struct{}{}
	for _, topic := range t.Topics {
		for _, partition := range topic.Partitions {
			for _, replica := range partition.Replicas {
				if _, ok := live[replica]; !ok {
					offlineMap[replica] = struct{}{}
				}
			}
		}
	}

	offline := []int{}
	for id := range offlineMap {
		offline = append(offline, id)
	}
	sort.Ints(offline)
	return offline
}

// WithoutTopics returns a copy of the topology without the argument topics.
func (t ClusterTopology) WithoutTopics(names []string) ClusterTopology {
	excluded := map[string]struct{}{}
	for _, name := range names {
		excluded[name] = struct{}{}
	}

	filtered := t
	filtered.Topics = []TopicInfo{}
	for _, topic := range t.Topics {
		if _, ok := excluded[topic.Name]; !ok {
			filtered.Topics = append(filtered.Topics, topic)
		}
	}
	return filtered
}
