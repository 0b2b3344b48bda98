package goals

import (
	"sort"

	"github.com/segmentio/balancectl/pkg/analyzer/actions"
	"github.com/segmentio/balancectl/pkg/model"
)

// ReplicaDistributionGoal is a soft goal that keeps the number of replicas on each alive
// broker within a percentage of the average.
type ReplicaDistributionGoal struct {
	constraint BalancingConstraint
}

var _ Goal = (*ReplicaDistributionGoal)(nil)

// NewReplicaDistributionGoal creates a new ReplicaDistributionGoal instance.
func NewReplicaDistributionGoal(constraint BalancingConstraint) *ReplicaDistributionGoal {
	return &ReplicaDistributionGoal{constraint: constraint}
}

// Name returns the name of the goal.
func (g *ReplicaDistributionGoal) Name() string {
	return ReplicaDistributionGoalName
}

// IsHardGoal returns false.
func (g *ReplicaDistributionGoal) IsHardGoal() bool {
	return false
}

// Priority returns the priority of the goal.
func (g *ReplicaDistributionGoal) Priority() int {
	return 30
}

func (g *ReplicaDistributionGoal) bounds(cm *model.ClusterModel) (int, int) {
	return balanceBounds(
		cm.NumReplicas(),
		len(cm.AliveBrokers()),
		g.constraint.ReplicaBalancePercentage,
	)
}

// ActionAcceptance accepts count-changing actions that keep both brokers within bounds, or
// that move a replica from a broker to one with at least two fewer replicas.
func (g *ReplicaDistributionGoal) ActionAcceptance(
	action actions.BalancingAction,
	cm *model.ClusterModel,
) actions.Acceptance {
	lower, upper := g.bounds(cm)

	switch action.Type() {
	case actions.InterBrokerReplicaMovement:
		source, err := cm.Broker(action.SourceBrokerID())
		if err != nil {
			return actions.ReplicaReject
		}
		destination, err := cm.Broker(action.DestinationBrokerID())
		if err != nil || !destination.IsAlive() {
			return actions.BrokerReject
		}
		return countMoveAcceptance(
			source.IsAlive(),
			source.NumReplicas(),
			destination.NumReplicas(),
			lower,
			upper,
		)
	case actions.ReplicaAddition:
		destination, err := cm.Broker(action.DestinationBrokerID())
		if err != nil || !destination.IsAlive() {
			return actions.BrokerReject
		}
		if destination.NumReplicas()+1 > upper {
			return actions.ReplicaReject
		}
		return actions.Accept
	case actions.ReplicaDeletion:
		source, err := cm.Broker(action.SourceBrokerID())
		if err != nil {
			return actions.ReplicaReject
		}
		if source.IsAlive() && source.NumReplicas()-1 < lower {
			return actions.ReplicaReject
		}
		return actions.Accept
	default:
		return actions.Accept
	}
}

// countMoveAcceptance is the acceptance rule shared by the distribution goals for an action
// that decrements the source broker's count and increments the destination's.
func countMoveAcceptance(
	sourceAlive bool,
	sourceCount int,
	destinationCount int,
	lower int,
	upper int,
) actions.Acceptance {
	if !sourceAlive {
		return actions.Accept
	}
	if destinationCount+1 <= upper && sourceCount-1 >= lower {
		return actions.Accept
	}
	if destinationCount+1 < sourceCount {
		return actions.Accept
	}
	return actions.ReplicaReject
}

// IsSatisfied returns whether every alive broker's replica count is within bounds and dead
// brokers are empty.
func (g *ReplicaDistributionGoal) IsSatisfied(cm *model.ClusterModel) bool {
	lower, upper := g.bounds(cm)
	for _, broker := range cm.Brokers() {
		if !broker.IsAlive() {
			if broker.NumReplicas() > 0 {
				return false
			}
			continue
		}
		if broker.NumReplicas() < lower || broker.NumReplicas() > upper {
			return false
		}
	}
	return true
}

// Optimize moves replicas from the most loaded brokers to the least loaded ones until every
// broker is within bounds or no accepted move is left.
func (g *ReplicaDistributionGoal) Optimize(
	cm *model.ClusterModel,
	optimizedGoals []Goal,
	options OptimizationOptions,
) error {
	for !g.IsSatisfied(cm) {
		moved, err := g.rebalanceStep(cm, optimizedGoals, options)
		if err != nil {
			return err
		}
		if !moved {
			break
		}
	}

	if !g.IsSatisfied(cm) {
		lower, upper := g.bounds(cm)
		return placementFailure(
			g.Name(),
			"could not bring all replica counts into [%d, %d]",
			lower,
			upper,
		)
	}
	return nil
}

// rebalanceStep applies one move from a broker with more replicas to a broker with at least
// two fewer. Each step strictly reduces the spread of replica counts, so the loop in
// Optimize terminates.
func (g *ReplicaDistributionGoal) rebalanceStep(
	cm *model.ClusterModel,
	optimizedGoals []Goal,
	options OptimizationOptions,
) (bool, error) {
	sources := cm.Brokers()
	sort.SliceStable(sources, func(a, b int) bool {
		if sources[a].IsAlive() != sources[b].IsAlive() {
			return !sources[a].IsAlive()
		}
		return sources[a].NumReplicas() > sources[b].NumReplicas()
	})

	for _, source := range sources {
		for _, replica := range source.Replicas() {
			if !replicaCanMove(source, replica, options) {
				continue
			}
			tp := replica.TopicPartition()

			candidates := []*model.Broker{}
			for _, candidate := range candidateBrokers(cm, tp, options, nil) {
				if !source.IsAlive() || candidate.NumReplicas()+1 < source.NumReplicas() {
					candidates = append(candidates, candidate)
				}
			}
			sort.SliceStable(candidates, func(a, b int) bool {
				return candidates[a].NumReplicas() < candidates[b].NumReplicas()
			})

			moves := []actions.BalancingAction{}
			for _, candidate := range candidates {
				moves = append(moves, actions.NewMove(tp, source.ID(), candidate.ID()))
			}

			moved, err := firstAccepted(moves, cm, g, optimizedGoals, options, nil)
			if err != nil || moved {
				return moved, err
			}
		}
	}

	return false, nil
}
