package actions

import (
	"fmt"

	"github.com/segmentio/balancectl/pkg/model"
)

// ActionType is the kind of mutation a BalancingAction describes.
type ActionType int

const (
	// InterBrokerReplicaMovement moves a replica from one broker to another.
	InterBrokerReplicaMovement ActionType = iota

	// InterBrokerReplicaSwap exchanges the brokers of two replicas of different partitions.
	InterBrokerReplicaSwap

	// LeadershipMovement transfers leadership between two replicas of the same partition.
	LeadershipMovement

	// IntraBrokerReplicaMovement moves a replica between logdirs of the same broker.
	IntraBrokerReplicaMovement

	// ReplicaAddition adds a follower replica to a broker.
	ReplicaAddition

	// ReplicaDeletion removes a follower replica from a broker.
	ReplicaDeletion
)

var actionTypeNames = map[ActionType]string{
	InterBrokerReplicaMovement: "INTER_BROKER_REPLICA_MOVEMENT",
	InterBrokerReplicaSwap:     "INTER_BROKER_REPLICA_SWAP",
	LeadershipMovement:         "LEADERSHIP_MOVEMENT",
	IntraBrokerReplicaMovement: "INTRA_BROKER_REPLICA_MOVEMENT",
	ReplicaAddition:            "REPLICA_ADDITION",
	ReplicaDeletion:            "REPLICA_DELETION",
}

func (a ActionType) String() string {
	name, ok := actionTypeNames[a]
	if !ok {
		return fmt.Sprintf("ACTION_TYPE(%d)", int(a))
	}
	return name
}

// MarshalText encodes the action type as its name.
func (a ActionType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Acceptance is a goal's verdict on a candidate action.
type Acceptance int

const (
	// Accept means the action may be applied.
	Accept Acceptance = iota

	// ReplicaReject means this action is invalid for this replica, but other replicas may
	// still be movable between the same brokers.
	ReplicaReject

	// BrokerReject means no action targeting this destination broker can satisfy the goal
	// under the current load.
	BrokerReject
)

func (a Acceptance) String() string {
	switch a {
	case Accept:
		return "ACCEPT"
	case ReplicaReject:
		return "REPLICA_REJECT"
	case BrokerReject:
		return "BROKER_REJECT"
	default:
		return fmt.Sprintf("ACCEPTANCE(%d)", int(a))
	}
}

// BalancingAction is an immutable description of one mutation to a cluster model. Applying
// it is a separate step; see Apply.
//
// For swaps, the source replica of TopicPartition moves to the destination broker and the
// destination replica of DestinationTopicPartition moves to the source broker. For
// leadership movements, both placements refer to replicas of TopicPartition. For
// intra-broker movements, the placements share a broker and differ in logdir.
type BalancingAction struct {
	tp            model.TopicPartition
	destinationTP model.TopicPartition
	source        model.ReplicaPlacementInfo
	destination   model.ReplicaPlacementInfo
	actionType    ActionType
}

// NewBalancingAction creates an action of the argument type between two brokers. For swaps,
// use NewSwap.
func NewBalancingAction(
	tp model.TopicPartition,
	sourceBrokerID int,
	destinationBrokerID int,
	actionType ActionType,
) BalancingAction {
	return BalancingAction{
		tp:            tp,
		destinationTP: tp,
		source:        model.ReplicaPlacementInfo{BrokerID: sourceBrokerID},
		destination:   model.ReplicaPlacementInfo{BrokerID: destinationBrokerID},
		actionType:    actionType,
	}
}

// NewMove creates an inter-broker replica movement.
func NewMove(tp model.TopicPartition, sourceBrokerID int, destinationBrokerID int) BalancingAction {
	return NewBalancingAction(tp, sourceBrokerID, destinationBrokerID, InterBrokerReplicaMovement)
}

// NewLeadershipMove creates a leadership movement.
func NewLeadershipMove(
	tp model.TopicPartition,
	sourceBrokerID int,
	destinationBrokerID int,
) BalancingAction {
	return NewBalancingAction(tp, sourceBrokerID, destinationBrokerID, LeadershipMovement)
}

// NewSwap creates a swap of the replica of tp on the source broker with the replica of
// destinationTP on the destination broker.
func NewSwap(
	tp model.TopicPartition,
	sourceBrokerID int,
	destinationBrokerID int,
	destinationTP model.TopicPartition,
) BalancingAction {
	return BalancingAction{
		tp:            tp,
		destinationTP: destinationTP,
		source:        model.ReplicaPlacementInfo{BrokerID: sourceBrokerID},
		destination:   model.ReplicaPlacementInfo{BrokerID: destinationBrokerID},
		actionType:    InterBrokerReplicaSwap,
	}
}

// NewLogdirMove creates an intra-broker replica movement between logdirs.
func NewLogdirMove(
	tp model.TopicPartition,
	brokerID int,
	sourceLogdir string,
	destinationLogdir string,
) BalancingAction {
	return BalancingAction{
		tp:            tp,
		destinationTP: tp,
		source:        model.ReplicaPlacementInfo{BrokerID: brokerID, Logdir: sourceLogdir},
		destination:   model.ReplicaPlacementInfo{BrokerID: brokerID, Logdir: destinationLogdir},
		actionType:    IntraBrokerReplicaMovement,
	}
}

// NewReplicaAddition creates an action that adds a follower replica of tp to the argument
// broker.
func NewReplicaAddition(tp model.TopicPartition, brokerID int) BalancingAction {
	return NewBalancingAction(tp, brokerID, brokerID, ReplicaAddition)
}

// NewReplicaDeletion creates an action that deletes the follower replica of tp on the
// argument broker.
func NewReplicaDeletion(tp model.TopicPartition, brokerID int) BalancingAction {
	return NewBalancingAction(tp, brokerID, brokerID, ReplicaDeletion)
}

// TopicPartition returns the (source) partition of the action.
func (a BalancingAction) TopicPartition() model.TopicPartition {
	return a.tp
}

// DestinationTopicPartition returns the partition whose replica is on the destination broker.
// It's only distinct from TopicPartition for swaps.
func (a BalancingAction) DestinationTopicPartition() model.TopicPartition {
	return a.destinationTP
}

// Source returns the source placement.
func (a BalancingAction) Source() model.ReplicaPlacementInfo {
	return a.source
}

// Destination returns the destination placement.
func (a BalancingAction) Destination() model.ReplicaPlacementInfo {
	return a.destination
}

// SourceBrokerID returns the id of the source broker.
func (a BalancingAction) SourceBrokerID() int {
	return a.source.BrokerID
}

// DestinationBrokerID returns the id of the destination broker.
func (a BalancingAction) DestinationBrokerID() int {
	return a.destination.BrokerID
}

// Type returns the type of the action.
func (a BalancingAction) Type() ActionType {
	return a.actionType
}

// String returns a readable representation of the action.
func (a BalancingAction) String() string {
	switch a.actionType {
	case InterBrokerReplicaSwap:
		return fmt.Sprintf(
			"(%s: %s %s <-> %s %s)",
			a.actionType,
			a.tp,
			a.source,
			a.destinationTP,
			a.destination,
		)
	case ReplicaAddition, ReplicaDeletion:
		return fmt.Sprintf("(%s: %s %s)", a.actionType, a.tp, a.source)
	default:
		return fmt.Sprintf("(%s: %s %s -> %s)", a.actionType, a.tp, a.source, a.destination)
	}
}

// Apply performs the action's mutation on the argument cluster model. Swaps are applied
// all-or-nothing.
func (a BalancingAction) Apply(cm *model.ClusterModel) error {
	switch a.actionType {
	case InterBrokerReplicaMovement:
		return cm.RelocateReplica(a.tp, a.source.BrokerID, a.destination.BrokerID, a.destination.Logdir)
	case InterBrokerReplicaSwap:
		return cm.SwapReplicas(a.tp, a.source.BrokerID, a.destinationTP, a.destination.BrokerID)
	case LeadershipMovement:
		return cm.RelocateLeadership(a.tp, a.source.BrokerID, a.destination.BrokerID)
	case IntraBrokerReplicaMovement:
		return cm.MoveReplicaToLogdir(a.tp, a.source.BrokerID, a.destination.Logdir)
	case ReplicaAddition:
		return cm.AddReplica(a.tp, a.destination.BrokerID, a.destination.Logdir)
	case ReplicaDeletion:
		return cm.DeleteReplica(a.tp, a.source.BrokerID)
	default:
		return fmt.Errorf("Unrecognized action type %d", int(a.actionType))
	}
}

// Reverse returns the action that undoes this one, if there is one. Replica additions and
// deletions aren't reversible since the deleted replica's load is lost.
func (a BalancingAction) Reverse() (BalancingAction, bool) {
	switch a.actionType {
	case InterBrokerReplicaMovement, LeadershipMovement, IntraBrokerReplicaMovement:
		reversed := a
		reversed.source, reversed.destination = a.destination, a.source
		return reversed, true
	case InterBrokerReplicaSwap:
		return NewSwap(a.tp, a.destination.BrokerID, a.source.BrokerID, a.destinationTP), true
	default:
		return BalancingAction{}, false
	}
}
