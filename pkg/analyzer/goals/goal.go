package goals

import (
	"fmt"
	"sort"

	"github.com/segmentio/balancectl/pkg/analyzer/actions"
	"github.com/segmentio/balancectl/pkg/model"
)

// Goal is an optimization objective over a cluster model. Each goal can judge candidate
// actions and run an optimization pass that proposes and applies actions to improve its own
// objective without violating the goals that were optimized before it.
type Goal interface {
	// Name returns the unique name of the goal.
	Name() string

	// IsHardGoal returns whether the goal's constraint must hold in the final proposal.
	IsHardGoal() bool

	// Priority orders goals within the hard and soft groups; lower values run first.
	Priority() int

	// ActionAcceptance decides whether applying the argument action to the model would keep
	// this goal's constraint. It must not mutate the model.
	ActionAcceptance(action actions.BalancingAction, cm *model.ClusterModel) actions.Acceptance

	// Optimize runs an optimization pass on the model. Every applied action must be accepted
	// by each of the optimizedGoals. A non-nil error means the goal could not be satisfied.
	Optimize(
		cm *model.ClusterModel,
		optimizedGoals []Goal,
		options OptimizationOptions,
	) error

	// IsSatisfied returns whether the goal's constraint currently holds.
	IsSatisfied(cm *model.ClusterModel) bool
}

// OptimizationOptions are the caller-supplied settings for one optimization pass.
type OptimizationOptions struct {
	// ExcludedTopics are topics whose replicas shouldn't be moved, unless they're on a dead
	// broker.
	ExcludedTopics map[string]struct{}

	// ExcludedBrokersForReplicaMove are brokers that can't be destinations of replica moves.
	ExcludedBrokersForReplicaMove map[int]struct{}

	// OnAction, if set, is called after each action is applied to the model.
	OnAction func(action actions.BalancingAction)

	// Parallelism bounds the number of concurrent acceptance evaluations. Zero means the
	// number of CPUs.
	Parallelism int
}

func (o OptimizationOptions) topicExcluded(topic string) bool {
	_, ok := o.ExcludedTopics[topic]
	return ok
}

func (o OptimizationOptions) brokerExcluded(brokerID int) bool {
	_, ok := o.ExcludedBrokersForReplicaMove[brokerID]
	return ok
}

// SortGoals sorts goals so that hard goals come first, each group ordered by priority. The
// sort is stable, so goals with equal priority keep their relative order.
func SortGoals(goals []Goal) {
	sort.SliceStable(goals, func(a, b int) bool {
		if goals[a].IsHardGoal() != goals[b].IsHardGoal() {
			return goals[a].IsHardGoal()
		}
		return goals[a].Priority() < goals[b].Priority()
	})
}

// Goal names, as used in configs.
const (
	RackAwareGoalName                 = "RackAwareGoal"
	DiskCapacityGoalName              = "DiskCapacityGoal"
	NetworkInboundCapacityGoalName    = "NetworkInboundCapacityGoal"
	NetworkOutboundCapacityGoalName   = "NetworkOutboundCapacityGoal"
	CPUCapacityGoalName               = "CpuCapacityGoal"
	ReplicaDistributionGoalName       = "ReplicaDistributionGoal"
	LeaderReplicaDistributionGoalName = "LeaderReplicaDistributionGoal"
)

// DefaultGoalNames returns the names of all goals in their default priority order.
func DefaultGoalNames() []string {
	return []string{
		RackAwareGoalName,
		DiskCapacityGoalName,
		NetworkInboundCapacityGoalName,
		NetworkOutboundCapacityGoalName,
		CPUCapacityGoalName,
		ReplicaDistributionGoalName,
		LeaderReplicaDistributionGoalName,
	}
}

// GoalsByName creates goals from their names.
func GoalsByName(names []string, constraint BalancingConstraint) ([]Goal, error) {
	goals := []Goal{}
	seen := map[string]struct{}{}

	for _, name := range names {
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("Goal %s is listed more than once", name)
		}
		seen[name] = struct{}{}

		var goal Goal
		switch name {
		case RackAwareGoalName:
			goal = NewRackAwareGoal()
		case DiskCapacityGoalName:
			goal = NewDiskCapacityGoal(constraint)
		case NetworkInboundCapacityGoalName:
			goal = NewNetworkInboundCapacityGoal(constraint)
		case NetworkOutboundCapacityGoalName:
			goal = NewNetworkOutboundCapacityGoal(constraint)
		case CPUCapacityGoalName:
			goal = NewCPUCapacityGoal(constraint)
		case ReplicaDistributionGoalName:
			goal = NewReplicaDistributionGoal(constraint)
		case LeaderReplicaDistributionGoalName:
			goal = NewLeaderReplicaDistributionGoal(constraint)
		default:
			return nil, fmt.Errorf(
				"Unrecognized goal '%s'; choices are %v",
				name,
				DefaultGoalNames(),
			)
		}
		goals = append(goals, goal)
	}

	return goals, nil
}
