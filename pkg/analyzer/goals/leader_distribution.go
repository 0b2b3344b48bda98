package goals

import (
	"sort"

	"github.com/segmentio/balancectl/pkg/analyzer/actions"
	"github.com/segmentio/balancectl/pkg/model"
)

// LeaderReplicaDistributionGoal is a soft goal that keeps the number of leaders on each
// alive broker within a percentage of the average. It prefers leadership movements, which
// don't move data, and falls back to moving leader replicas.
type LeaderReplicaDistributionGoal struct {
	constraint BalancingConstraint
}

var _ Goal = (*LeaderReplicaDistributionGoal)(nil)

// NewLeaderReplicaDistributionGoal creates a new LeaderReplicaDistributionGoal instance.
func NewLeaderReplicaDistributionGoal(constraint BalancingConstraint) *LeaderReplicaDistributionGoal {
	return &LeaderReplicaDistributionGoal{constraint: constraint}
}

// Name returns the name of the goal.
func (g *LeaderReplicaDistributionGoal) Name() string {
	return LeaderReplicaDistributionGoalName
}

// IsHardGoal returns false.
func (g *LeaderReplicaDistributionGoal) IsHardGoal() bool {
	return false
}

// Priority returns the priority of the goal.
func (g *LeaderReplicaDistributionGoal) Priority() int {
	return 40
}

func (g *LeaderReplicaDistributionGoal) bounds(cm *model.ClusterModel) (int, int) {
	return balanceBounds(
		len(cm.TopicPartitions()),
		len(cm.AliveBrokers()),
		g.constraint.LeaderReplicaBalancePercentage,
	)
}

// ActionAcceptance judges actions that change leader counts: leadership movements, moves of
// leader replicas, and swaps involving exactly one leader.
func (g *LeaderReplicaDistributionGoal) ActionAcceptance(
	action actions.BalancingAction,
	cm *model.ClusterModel,
) actions.Acceptance {
	source, err := cm.Broker(action.SourceBrokerID())
	if err != nil {
		return actions.ReplicaReject
	}
	destination, err := cm.Broker(action.DestinationBrokerID())
	if err != nil {
		return actions.BrokerReject
	}
	lower, upper := g.bounds(cm)

	switch action.Type() {
	case actions.LeadershipMovement:
		if !destination.IsAlive() {
			return actions.BrokerReject
		}
		return countMoveAcceptance(
			source.IsAlive(),
			source.NumLeaders(),
			destination.NumLeaders(),
			lower,
			upper,
		)
	case actions.InterBrokerReplicaMovement:
		replica, err := cm.Replica(action.TopicPartition(), source.ID())
		if err != nil {
			return actions.ReplicaReject
		}
		if !replica.IsLeader() {
			return actions.Accept
		}
		if !destination.IsAlive() {
			return actions.BrokerReject
		}
		return countMoveAcceptance(
			source.IsAlive(),
			source.NumLeaders(),
			destination.NumLeaders(),
			lower,
			upper,
		)
	case actions.InterBrokerReplicaSwap:
		outgoing, err := cm.Replica(action.TopicPartition(), source.ID())
		if err != nil {
			return actions.ReplicaReject
		}
		incoming, err := cm.Replica(action.DestinationTopicPartition(), destination.ID())
		if err != nil {
			return actions.ReplicaReject
		}
		switch {
		case outgoing.IsLeader() == incoming.IsLeader():
			return actions.Accept
		case outgoing.IsLeader():
			return countMoveAcceptance(
				source.IsAlive(),
				source.NumLeaders(),
				destination.NumLeaders(),
				lower,
				upper,
			)
		default:
			return countMoveAcceptance(
				destination.IsAlive(),
				destination.NumLeaders(),
				source.NumLeaders(),
				lower,
				upper,
			)
		}
	default:
		return actions.Accept
	}
}

// IsSatisfied returns whether every alive broker's leader count is within bounds and dead
// brokers lead nothing.
func (g *LeaderReplicaDistributionGoal) IsSatisfied(cm *model.ClusterModel) bool {
	lower, upper := g.bounds(cm)
	for _, broker := range cm.Brokers() {
		if !broker.IsAlive() {
			if broker.NumLeaders() > 0 {
				return false
			}
			continue
		}
		if broker.NumLeaders() < lower || broker.NumLeaders() > upper {
			return false
		}
	}
	return true
}

// Optimize shifts leadership from the brokers with the most leaders to brokers with at
// least two fewer until every broker is within bounds or nothing else is accepted.
func (g *LeaderReplicaDistributionGoal) Optimize(
	cm *model.ClusterModel,
	optimizedGoals []Goal,
	options OptimizationOptions,
) error {
	for !g.IsSatisfied(cm) {
		moved, err := g.leadershipStep(cm, optimizedGoals, options)
		if err != nil {
			return err
		}
		if moved {
			continue
		}

		moved, err = g.leaderReplicaStep(cm, optimizedGoals, options)
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
			"could not bring all leader counts into [%d, %d]",
			lower,
			upper,
		)
	}
	return nil
}

func (g *LeaderReplicaDistributionGoal) sortedSources(cm *model.ClusterModel) []*model.Broker {
	sources := cm.Brokers()
	sort.SliceStable(sources, func(a, b int) bool {
		if sources[a].IsAlive() != sources[b].IsAlive() {
			return !sources[a].IsAlive()
		}
		return sources[a].NumLeaders() > sources[b].NumLeaders()
	})
	return sources
}

func (g *LeaderReplicaDistributionGoal) leadershipStep(
	cm *model.ClusterModel,
	optimizedGoals []Goal,
	options OptimizationOptions,
) (bool, error) {
	for _, source := range g.sortedSources(cm) {
		for _, replica := range source.Replicas() {
			if !replica.IsLeader() || !replicaCanMove(source, replica, options) {
				continue
			}
			tp := replica.TopicPartition()

			followers := []*model.Broker{}
			for _, follower := range cm.Replicas(tp) {
				broker, err := cm.Broker(follower.BrokerID())
				if err != nil || follower.IsLeader() || !broker.IsAlive() {
					continue
				}
				if !source.IsAlive() || broker.NumLeaders()+1 < source.NumLeaders() {
					followers = append(followers, broker)
				}
			}
			sort.SliceStable(followers, func(a, b int) bool {
				return followers[a].NumLeaders() < followers[b].NumLeaders()
			})

			moves := []actions.BalancingAction{}
			for _, follower := range followers {
				moves = append(moves, actions.NewLeadershipMove(tp, source.ID(), follower.ID()))
			}

			moved, err := firstAccepted(moves, cm, g, optimizedGoals, options, nil)
			if err != nil || moved {
				return moved, err
			}
		}
	}
	return false, nil
}

func (g *LeaderReplicaDistributionGoal) leaderReplicaStep(
	cm *model.ClusterModel,
	optimizedGoals []Goal,
	options OptimizationOptions,
) (bool, error) {
	for _, source := range g.sortedSources(cm) {
		for _, replica := range source.Replicas() {
			if !replica.IsLeader() || !replicaCanMove(source, replica, options) {
				continue
			}
			tp := replica.TopicPartition()

			candidates := []*model.Broker{}
			for _, candidate := range candidateBrokers(cm, tp, options, nil) {
				if !source.IsAlive() || candidate.NumLeaders()+1 < source.NumLeaders() {
					candidates = append(candidates, candidate)
				}
			}
			sort.SliceStable(candidates, func(a, b int) bool {
				return candidates[a].NumLeaders() < candidates[b].NumLeaders()
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
