package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/segmentio/balancectl/pkg/analyzer/actions"
	"github.com/segmentio/balancectl/pkg/analyzer/goals"
	"github.com/segmentio/balancectl/pkg/model"
	"github.com/segmentio/balancectl/pkg/provision"
	log "github.com/sirupsen/logrus"
)

// OptimizerConfig contains the configuration for an Optimizer.
type OptimizerConfig struct {
	// Goals are the goals to optimize. They're sorted with hard goals first, then by
	// priority, regardless of the order they're passed in.
	Goals []goals.Goal

	// Provisioner, if set, receives the recommendation made when a hard goal fails for lack
	// of capacity.
	Provisioner provision.Provisioner

	ExcludedTopics                []string
	ExcludedBrokersForReplicaMove []int
	Parallelism                   int
}

// Optimizer runs a list of goals, in order, against a cluster model. Each goal must keep the
// goals optimized before it satisfied, so the guarantees of earlier goals carry through to
// the final proposal.
type Optimizer struct {
	mu sync.Mutex

	goals       []goals.Goal
	provisioner provision.Provisioner
	options     goals.OptimizationOptions
}

// NewOptimizer creates and returns a new Optimizer instance.
func NewOptimizer(config OptimizerConfig) (*Optimizer, error) {
	if len(config.Goals) == 0 {
		return nil, errors.New("At least one goal is required")
	}

	sorted := make([]goals.Goal, len(config.Goals))
	copy(sorted, config.Goals)
	goals.SortGoals(sorted)

	seen := map[string]struct{}{}
	for _, goal := range sorted {
		if _, ok := seen[goal.Name()]; ok {
			return nil, fmt.Errorf("Goal %s is listed more than once", goal.Name())
		}
		seen[goal.Name()] = struct{}{}
	}

	options := goals.OptimizationOptions{
		ExcludedTopics:                map[string]struct{}{},
		ExcludedBrokersForReplicaMove: map[int]struct{}{},
		Parallelism:                   config.Parallelism,
	}
	for _, topic := range config.ExcludedTopics {
		options.ExcludedTopics[topic] = struct{}{}
	}
	for _, brokerID := range config.ExcludedBrokersForReplicaMove {
		options.ExcludedBrokersForReplicaMove[brokerID] = struct{}{}
	}

	return &Optimizer{
		goals:       sorted,
		provisioner: config.Provisioner,
		options:     options,
	}, nil
}

// Goals returns the optimizer's goals in the order they're run.
func (o *Optimizer) Goals() []goals.Goal {
	return o.goals
}

// Optimize runs every goal against the argument model, mutating it into the proposed
// state. Runs are serialized; the model must not be mutated elsewhere while a run is in
// progress.
//
// Goal failures are reported in the result rather than as errors. If a hard goal fails, the
// run stops, the model is restored to its initial state, and the result holds no actions. If it failed for
// lack of capacity, an UnderProvisioned recommendation is made and passed to the
// provisioner. A soft goal failure keeps the best state the goal reached and the run goes
// on.
//
// The returned error is non-nil only if the model is invalid, the context is cancelled
// between goals (in which case the model is restored to its initial state), or the
// provisioner fails. In the last case the result is returned too.
func (o *Optimizer) Optimize(ctx context.Context, cm *model.ClusterModel) (*Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	startTime := time.Now()

	if err := cm.Validate(); err != nil {
		return nil, err
	}
	initial := cm.Clone()

	result := &Result{
		Status:      StatusCompleted,
		GoalResults: []GoalResult{},
	}
	for _, goal := range o.goals {
		result.GoalResults = append(
			result.GoalResults,
			GoalResult{
				Name:  goal.Name(),
				Hard:  goal.IsHardGoal(),
				State: GoalPending,
			},
		)
	}

	appliedActions := []actions.BalancingAction{}
	options := o.options
	options.OnAction = func(action actions.BalancingAction) {
		appliedActions = append(appliedActions, action)
	}

	optimized := []goals.Goal{}
	var softErrors *multierror.Error
	var hardFailure error

	for g, goal := range o.goals {
		if err := ctx.Err(); err != nil {
			log.Warnf("Optimization cancelled before %s; restoring initial state", goal.Name())
			cm.Restore(initial)
			return nil, err
		}

		goalResult := &result.GoalResults[g]
		checkpoint := cm.Clone()
		numActionsBefore := len(appliedActions)
		goalStart := time.Now()

		log.Infof("Optimizing %s", goal.Name())
		err := goal.Optimize(cm, optimized, options)
		if err == nil {
			err = o.checkSatisfied(cm, goal, optimized, result.GoalResults[:g])
		}

		goalResult.Duration = time.Since(goalStart)
		goalResult.NumActions = len(appliedActions) - numActionsBefore

		switch {
		case err == nil:
			log.Infof(
				"Finished %s with %d actions in %s",
				goal.Name(),
				goalResult.NumActions,
				goalResult.Duration,
			)
			goalResult.State = GoalSatisfied
		case goal.IsHardGoal():
			log.Warnf("Hard goal %s failed: %+v", goal.Name(), err)
			appliedActions = appliedActions[:numActionsBefore]
			goalResult.State = GoalFailed
			goalResult.Err = err
			goalResult.NumActions = 0
			hardFailure = err
		case errors.Is(err, errMonotonicity):
			log.Warnf("Soft goal %s failed and was rolled back: %+v", goal.Name(), err)
			cm.Restore(checkpoint)
			appliedActions = appliedActions[:numActionsBefore]
			goalResult.State = GoalFailed
			goalResult.Err = err
			goalResult.NumActions = 0
			softErrors = multierror.Append(softErrors, err)
		default:
			log.Warnf("Soft goal %s failed: %+v", goal.Name(), err)
			goalResult.State = GoalFailed
			goalResult.Err = err
			softErrors = multierror.Append(softErrors, err)
		}

		if hardFailure != nil {
			break
		}
		optimized = append(optimized, goal)
	}

	if hardFailure == nil {
		hardFailure = checkDeadBrokers(cm)
	}

	if hardFailure != nil {
		cm.Restore(initial)
		result.Status = StatusCompletedWithError
		result.Failure = hardFailure
		result.Message = fmt.Sprintf("Optimization failed: %s", hardFailure.Error())

		var failure *goals.OptimizationFailure
		if errors.As(hardFailure, &failure) && failure.CapacityExhausted {
			recommendation := underProvisioned(failure)
			result.Recommendation = &recommendation
		}
	} else {
		result.Actions = appliedActions
		result.Proposals = DiffProposals(initial, cm)
		result.SoftFailures = softErrors.ErrorOrNil()

		if softErrors != nil {
			result.Message = fmt.Sprintf(
				"Optimization completed with %d proposals; %d soft goal(s) not satisfied",
				len(result.Proposals),
				len(softErrors.Errors),
			)
		} else {
			result.Message = fmt.Sprintf(
				"Optimization completed with %d proposals",
				len(result.Proposals),
			)
		}
	}
	result.Duration = time.Since(startTime)

	if result.Recommendation != nil && o.provisioner != nil {
		log.Infof("Passing recommendation to provisioner: %s", result.Recommendation)
		provisionResult, err := o.provisioner.Provision(ctx, *result.Recommendation)
		if err != nil {
			return result, err
		}
		result.ProvisionResult = &provisionResult
	}

	return result, nil
}

var errMonotonicity = errors.New("previously satisfied goal violated")

// checkSatisfied verifies that the goal that was just optimized holds, and that every goal
// satisfied before it still does.
func (o *Optimizer) checkSatisfied(
	cm *model.ClusterModel,
	goal goals.Goal,
	optimized []goals.Goal,
	previousResults []GoalResult,
) error {
	if !goal.IsSatisfied(cm) {
		return fmt.Errorf("%s reported success but isn't satisfied", goal.Name())
	}

	for p, previous := range optimized {
		if previousResults[p].State != GoalSatisfied {
			continue
		}
		if !previous.IsSatisfied(cm) {
			return fmt.Errorf(
				"%w: optimizing %s broke %s",
				errMonotonicity,
				goal.Name(),
				previous.Name(),
			)
		}
	}

	return nil
}

// checkDeadBrokers returns an error if any dead broker still hosts replicas.
func checkDeadBrokers(cm *model.ClusterModel) error {
	deadIDs := []int{}
	for _, broker := range cm.DeadBrokers() {
		if broker.NumReplicas() > 0 {
			deadIDs = append(deadIDs, broker.ID())
		}
	}
	if len(deadIDs) > 0 {
		return fmt.Errorf("Dead brokers %v still host replicas", deadIDs)
	}
	return nil
}

func underProvisioned(failure *goals.OptimizationFailure) provision.Recommendation {
	return provision.Recommendation{
		Status:     provision.UnderProvisioned,
		NumBrokers: failure.BrokersNeeded(),
		Resource:   failure.Resource.String(),
		Rationale:  failure.Error(),
	}
}
