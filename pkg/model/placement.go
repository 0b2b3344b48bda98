package model

import (
	"fmt"
	"sort"
)

// TopicPartition identifies a single partition of a topic.
type TopicPartition struct {
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
}

// String returns the conventional topic-partition representation, e.g. "foobar-0".
func (tp TopicPartition) String() string {
	return fmt.Sprintf("%s-%d", tp.Topic, tp.Partition)
}

// Less orders topic partitions by topic, then by partition.
func (tp TopicPartition) Less(other TopicPartition) bool {
	if tp.Topic != other.Topic {
		return tp.Topic < other.Topic
	}
	return tp.Partition < other.Partition
}

// ReplicaPlacementInfo is a value describing where a replica lives: the broker and,
// optionally, the logdir on that broker.
type ReplicaPlacementInfo struct {
	BrokerID int    `json:"brokerID"`
	Logdir   string `json:"logdir,omitempty"`
}

// String returns a readable representation of the placement.
func (p ReplicaPlacementInfo) String() string {
	if p.Logdir == "" {
		return fmt.Sprintf("{Broker: %d}", p.BrokerID)
	}
	return fmt.Sprintf("{Broker: %d, Logdir: %s}", p.BrokerID, p.Logdir)
}

// Equal returns whether both the broker and logdir match.
func (p ReplicaPlacementInfo) Equal(other ReplicaPlacementInfo) bool {
	return p.BrokerID == other.BrokerID && p.Logdir == other.Logdir
}

// Less is the identity order: broker id, then logdir.
func (p ReplicaPlacementInfo) Less(other ReplicaPlacementInfo) bool {
	if p.BrokerID != other.BrokerID {
		return p.BrokerID < other.BrokerID
	}
	return p.Logdir < other.Logdir
}

// LeaderFirst returns a comparison function, suitable for sort.SliceStable, that ranks the
// leader's placement ahead of every other placement and leaves the rest in place.
func LeaderFirst(
	placements []ReplicaPlacementInfo,
	leader ReplicaPlacementInfo,
) func(a, b int) bool {
	return func(a, b int) bool {
		return placements[a].Equal(leader) && !placements[b].Equal(leader)
	}
}

// SortLeaderFirst sorts the argument placements in-place so that the leader comes first.
func SortLeaderFirst(placements []ReplicaPlacementInfo, leader ReplicaPlacementInfo) {
	sort.SliceStable(placements, LeaderFirst(placements, leader))
}

// BrokerIDs returns the broker ids of the argument placements, in order.
func BrokerIDs(placements []ReplicaPlacementInfo) []int {
	ids := []int{}
	for _, placement := range placements {
		ids = append(ids, placement.BrokerID)
	}
	return ids
}

// SamePlacements returns whether the argument slices are identical, including order.
func SamePlacements(a []ReplicaPlacementInfo, b []ReplicaPlacementInfo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
