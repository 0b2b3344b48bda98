package analyzer

import (
	"fmt"
	"time"

	"github.com/segmentio/balancectl/pkg/analyzer/actions"
	"github.com/segmentio/balancectl/pkg/model"
	"github.com/segmentio/balancectl/pkg/provision"
	"github.com/segmentio/balancectl/pkg/util"
)

// Status is the terminal status of an optimization run.
type Status int

const (
	// StatusCompleted means every hard goal was satisfied.
	StatusCompleted Status = iota

	// StatusCompletedWithError means a hard goal failed and no proposal was made.
	StatusCompletedWithError
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "COMPLETED"
	case StatusCompletedWithError:
		return "COMPLETED_WITH_ERROR"
	default:
		return fmt.Sprintf("STATUS(%d)", int(s))
	}
}

// MarshalText encodes the status as its name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// GoalState is the state of a single goal within a run.
type GoalState int

const (
	GoalPending GoalState = iota
	GoalSatisfied
	GoalFailed
)

func (s GoalState) String() string {
	switch s {
	case GoalPending:
		return "pending"
	case GoalSatisfied:
		return "satisfied"
	case GoalFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state as its name.
func (s GoalState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// GoalResult is the outcome of one goal in a run.
type GoalResult struct {
	Name       string        `json:"name"`
	Hard       bool          `json:"hard"`
	State      GoalState     `json:"state"`
	NumActions int           `json:"numActions"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// Result is the outcome of an optimization run.
type Result struct {
	Status      Status       `json:"status"`
	Message     string       `json:"message"`
	GoalResults []GoalResult `json:"goalResults"`

	// Actions are the actions that were applied to the model, in order.
	Actions []actions.BalancingAction `json:"actions"`

	// Proposals are the per-partition differences between the initial and final models.
	Proposals []ExecutionProposal `json:"proposals"`

	// Failure is the hard goal failure, if any.
	Failure error `json:"-"`

	// SoftFailures aggregates the soft goal failures, if any.
	SoftFailures error `json:"-"`

	Recommendation  *provision.Recommendation `json:"recommendation,omitempty"`
	ProvisionResult *provision.Result         `json:"provisionResult,omitempty"`

	Duration time.Duration `json:"duration"`
}

// GoalResult returns the result for the goal with the argument name.
func (r *Result) GoalResult(name string) (GoalResult, bool) {
	for _, goalResult := range r.GoalResults {
		if goalResult.Name == name {
			return goalResult, true
		}
	}
	return GoalResult{}, false
}

// ExecutionProposal is the change to a single partition that an execution engine would need
// to carry out.
type ExecutionProposal struct {
	TopicPartition model.TopicPartition         `json:"topicPartition"`
	OldReplicas    []model.ReplicaPlacementInfo `json:"oldReplicas"`
	NewReplicas    []model.ReplicaPlacementInfo `json:"newReplicas"`
	OldLeader      model.ReplicaPlacementInfo   `json:"oldLeader"`
	NewLeader      model.ReplicaPlacementInfo   `json:"newLeader"`
}

// HasReplicaAction returns whether the set of replica brokers changes.
func (p ExecutionProposal) HasReplicaAction() bool {
	return !sameBrokerSet(p.OldReplicas, p.NewReplicas)
}

// HasLeaderAction returns whether the leader changes.
func (p ExecutionProposal) HasLeaderAction() bool {
	return p.OldLeader.BrokerID != p.NewLeader.BrokerID
}

// ReplicasToAdd returns the placements in the new replicas that aren't in the old ones.
func (p ExecutionProposal) ReplicasToAdd() []model.ReplicaPlacementInfo {
	return placementsMinus(p.NewReplicas, p.OldReplicas)
}

// ReplicasToRemove returns the placements in the old replicas that aren't in the new ones.
func (p ExecutionProposal) ReplicasToRemove() []model.ReplicaPlacementInfo {
	return placementsMinus(p.OldReplicas, p.NewReplicas)
}

// DiffProposals compares two models of the same cluster and returns a proposal for each
// partition whose replicas, order, or logdirs differ, sorted by topic partition.
func DiffProposals(initial *model.ClusterModel, final *model.ClusterModel) []ExecutionProposal {
	proposals := []ExecutionProposal{}

	for _, tp := range final.TopicPartitions() {
		oldReplicas := initial.Placements(tp)
		newReplicas := final.Placements(tp)
		if model.SamePlacements(oldReplicas, newReplicas) {
			continue
		}

		proposal := ExecutionProposal{
			TopicPartition: tp,
			OldReplicas:    oldReplicas,
			NewReplicas:    newReplicas,
		}
		if leader, err := initial.Leader(tp); err == nil {
			proposal.OldLeader = leader.Placement()
		}
		if leader, err := final.Leader(tp); err == nil {
			proposal.NewLeader = leader.Placement()
		}
		proposals = append(proposals, proposal)
	}

	return proposals
}

func sameBrokerSet(a []model.ReplicaPlacementInfo, b []model.ReplicaPlacementInfo) bool {
	return util.SameElements(model.BrokerIDs(a), model.BrokerIDs(b))
}

func placementsMinus(
	a []model.ReplicaPlacementInfo,
	b []model.ReplicaPlacementInfo,
) []model.ReplicaPlacementInfo {
	inB := map[int]struct{}{}
	for _, placement := range b {
		inB[placement.BrokerID] = struct{}{}
	}

	diff := []model.ReplicaPlacementInfo{}
	for _, placement := range a {
		if _, ok := inB[placement.BrokerID]; !ok {
			diff = append(diff, placement)
		}
	}
	return diff
}
