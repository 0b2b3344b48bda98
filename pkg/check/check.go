package check

import (
	"fmt"
	"strings"

	"github.com/segmentio/balancectl/pkg/analyzer/goals"
	"github.com/segmentio/balancectl/pkg/model"
)

// CheckConfig contains all of the context necessary to check a cluster model.
type CheckConfig struct {
	ClusterModel *model.ClusterModel
	Goals        []goals.Goal
	Constraint   goals.BalancingConstraint
}

// CheckCluster runs read-only checks against the argument model. Goals are checked in the
// order the optimizer would run them. The model isn't mutated.
func CheckCluster(config CheckConfig) ClusterCheckResults {
	results := ClusterCheckResults{
		Results: []ClusterCheckResult{},
	}
	cm := config.ClusterModel

	results.AppendResult(
		ClusterCheckResult{
			Name: CheckNameModelValid,
			OK:   true,
		},
	)
	if err := cm.Validate(); err != nil {
		results.UpdateLastResult(false, err.Error())
		return results
	}

	results.AppendResult(
		ClusterCheckResult{
			Name: CheckNameBrokersAlive,
			OK:   true,
		},
	)
	deadDescriptions := []string{}
	for _, broker := range cm.DeadBrokers() {
		if broker.NumReplicas() > 0 {
			deadDescriptions = append(
				deadDescriptions,
				fmt.Sprintf("Broker %d is dead and hosts %d replicas", broker.ID(), broker.NumReplicas()),
			)
		}
	}
	if len(deadDescriptions) > 0 {
		results.UpdateLastResult(false, strings.Join(deadDescriptions, "; "))
	}

	for _, resource := range model.AllResources() {
		results.AppendResult(
			ClusterCheckResult{
				Name:    CheckNameCapacityTotals,
				Subject: resource.String(),
				OK:      true,
			},
		)
		ok, description := checkClusterCapacity(cm, resource, config.Constraint)
		results.UpdateLastResult(ok, description)
	}

	sorted := make([]goals.Goal, len(config.Goals))
	copy(sorted, config.Goals)
	goals.SortGoals(sorted)

	for _, goal := range sorted {
		results.AppendResult(
			ClusterCheckResult{
				Name:    CheckNameGoalSatisfied,
				Subject: goal.Name(),
				OK:      true,
			},
		)
		if !goal.IsSatisfied(cm) {
			kind := "Soft"
			if goal.IsHardGoal() {
				kind = "Hard"
			}
			results.UpdateLastResult(
				false,
				fmt.Sprintf("%s goal is not satisfied by the current placements", kind),
			)
		}
	}

	return results
}

// checkClusterCapacity compares the cluster's load to the thresholded capacity of its alive
// brokers in every window.
func checkClusterCapacity(
	cm *model.ClusterModel,
	resource model.Resource,
	constraint goals.BalancingConstraint,
) (bool, string) {
	var limit float64
	for _, broker := range cm.AliveBrokers() {
		limit += broker.Capacity().Get(resource) * constraint.CapacityThreshold(resource)
	}

	load := cm.ClusterLoad()
	for w, window := range cm.Windows() {
		value := load.Value(resource, w)
		if value > limit {
			return false, fmt.Sprintf(
				"Load of %s in window %d exceeds the limit of %s",
				model.FormatResourceValue(resource, value),
				window,
				model.FormatResourceValue(resource, limit),
			)
		}
	}

	if limit == 0 {
		return true, ""
	}
	return true, fmt.Sprintf("Peak usage is %.1f%% of the limit", 100*load.Max(resource)/limit)
}
