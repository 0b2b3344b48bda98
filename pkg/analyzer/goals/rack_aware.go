package goals

import (
	"sort"

	"github.com/segmentio/balancectl/pkg/analyzer/actions"
	"github.com/segmentio/balancectl/pkg/model"
)

// RackAwareGoal is a hard goal that places the replicas of each partition on alive brokers
// in distinct racks. It moves replicas off dead brokers as part of the same pass.
type RackAwareGoal struct{}

var _ Goal = (*RackAwareGoal)(nil)

// NewRackAwareGoal creates a new RackAwareGoal instance.
func NewRackAwareGoal() *RackAwareGoal {
	return &RackAwareGoal{}
}

// Name returns the name of the goal.
func (g *RackAwareGoal) Name() string {
	return RackAwareGoalName
}

// IsHardGoal returns true.
func (g *RackAwareGoal) IsHardGoal() bool {
	return true
}

// Priority returns the priority of the goal.
func (g *RackAwareGoal) Priority() int {
	return 10
}

// ActionAcceptance rejects actions that would put two replicas of a partition in the same
// rack or put a replica on a dead broker.
func (g *RackAwareGoal) ActionAcceptance(
	action actions.BalancingAction,
	cm *model.ClusterModel,
) actions.Acceptance {
	switch action.Type() {
	case actions.InterBrokerReplicaMovement, actions.ReplicaAddition:
		destination, err := cm.Broker(action.DestinationBrokerID())
		if err != nil || !destination.IsAlive() {
			return actions.BrokerReject
		}
		racks := partitionRacks(cm, action.TopicPartition(), action.SourceBrokerID())
		if action.Type() == actions.ReplicaAddition {
			racks = partitionRacks(cm, action.TopicPartition(), -1)
		}
		if _, ok := racks[destination.Rack()]; ok {
			return actions.ReplicaReject
		}
		return actions.Accept
	case actions.InterBrokerReplicaSwap:
		source, err := cm.Broker(action.SourceBrokerID())
		if err != nil || !source.IsAlive() {
			return actions.ReplicaReject
		}
		destination, err := cm.Broker(action.DestinationBrokerID())
		if err != nil || !destination.IsAlive() {
			return actions.BrokerReject
		}
		if source.Rack() == destination.Rack() {
			return actions.Accept
		}

		sourceRacks := partitionRacks(cm, action.TopicPartition(), source.ID())
		if _, ok := sourceRacks[destination.Rack()]; ok {
			return actions.ReplicaReject
		}
		destinationRacks := partitionRacks(cm, action.DestinationTopicPartition(), destination.ID())
		if _, ok := destinationRacks[source.Rack()]; ok {
			return actions.ReplicaReject
		}
		return actions.Accept
	default:
		return actions.Accept
	}
}

// IsSatisfied returns whether every partition is spread across distinct racks of alive
// brokers.
func (g *RackAwareGoal) IsSatisfied(cm *model.ClusterModel) bool {
	for _, tp := range cm.TopicPartitions() {
		if len(g.violations(cm, tp)) > 0 {
			return false
		}
	}
	return true
}

// Optimize moves every violating replica to an alive broker in a rack that the partition
// doesn't use yet, preferring brokers with fewer replicas.
func (g *RackAwareGoal) Optimize(
	cm *model.ClusterModel,
	optimizedGoals []Goal,
	options OptimizationOptions,
) error {
	numRacks := g.numAliveRacks(cm)

	for _, tp := range cm.TopicPartitions() {
		if replicas := cm.Replicas(tp); len(replicas) > numRacks {
			return placementFailure(
				g.Name(),
				"partition %s has %d replicas but only %d racks have alive brokers",
				tp,
				len(replicas),
				numRacks,
			)
		}
	}

	for _, tp := range cm.TopicPartitions() {
		for _, replica := range g.violations(cm, tp) {
			broker, _ := cm.Broker(replica.BrokerID())
			if !replicaCanMove(broker, replica, options) {
				continue
			}

			racks := partitionRacks(cm, tp, broker.ID())
			candidates := []*model.Broker{}
			for _, candidate := range candidateBrokers(cm, tp, options, nil) {
				if _, ok := racks[candidate.Rack()]; !ok {
					candidates = append(candidates, candidate)
				}
			}
			sort.SliceStable(candidates, func(a, b int) bool {
				return candidates[a].NumReplicas() < candidates[b].NumReplicas()
			})

			moves := []actions.BalancingAction{}
			for _, candidate := range candidates {
				moves = append(moves, actions.NewMove(tp, broker.ID(), candidate.ID()))
			}

			moved, err := firstAccepted(moves, cm, g, optimizedGoals, options, nil)
			if err != nil {
				return err
			}
			if !moved {
				return placementFailure(
					g.Name(),
					"no rack-diverse destination accepted for replica of %s on broker %d",
					tp,
					broker.ID(),
				)
			}
		}
	}

	if !g.IsSatisfied(cm) {
		return placementFailure(g.Name(), "replicas of excluded topics still violate rack awareness")
	}
	return nil
}

// violations returns the replicas of a partition that are on dead brokers or that share a
// rack with an earlier replica in the replica set.
func (g *RackAwareGoal) violations(cm *model.ClusterModel, tp model.TopicPartition) []*model.Replica {
	violating := []*model.Replica{}
	seenRacks := map[string]struct{}{}

	for _, replica := range cm.Replicas(tp) {
		broker, err := cm.Broker(replica.BrokerID())
		if err != nil {
			continue
		}
		if !broker.IsAlive() {
			violating = append(violating, replica)
			continue
		}
		if _, ok := seenRacks[broker.Rack()]; ok {
			violating = append(violating, replica)
			continue
		}
		seenRacks[broker.Rack()] = struct{}{}
	}

	return violating
}

func (g *RackAwareGoal) numAliveRacks(cm *model.ClusterModel) int {
	racks := map[string]struct{}{}
	for _, broker := range cm.AliveBrokers() {
		racks[broker.Rack()] = struct{}{}
	}
	return len(racks)
}
