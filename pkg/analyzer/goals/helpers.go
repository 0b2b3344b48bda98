package goals

import (
	"math"
	"runtime"

	"github.com/segmentio/balancectl/pkg/analyzer/actions"
	"github.com/segmentio/balancectl/pkg/model"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// combinedAcceptance checks an action against a goal and then against every goal optimized
// before it. The first non-accepting verdict wins.
func combinedAcceptance(
	action actions.BalancingAction,
	cm *model.ClusterModel,
	goal Goal,
	optimizedGoals []Goal,
) actions.Acceptance {
	if acceptance := goal.ActionAcceptance(action, cm); acceptance != actions.Accept {
		return acceptance
	}
	for _, optimizedGoal := range optimizedGoals {
		if acceptance := optimizedGoal.ActionAcceptance(action, cm); acceptance != actions.Accept {
			log.Debugf(
				"Action %s rejected by previously optimized goal %s: %s",
				action,
				optimizedGoal.Name(),
				acceptance,
			)
			return acceptance
		}
	}
	return actions.Accept
}

// evaluateActions computes the combined acceptance of each candidate action. The model is
// only read, so the evaluations run concurrently.
func evaluateActions(
	candidates []actions.BalancingAction,
	cm *model.ClusterModel,
	goal Goal,
	optimizedGoals []Goal,
	parallelism int,
) []actions.Acceptance {
	results := make([]actions.Acceptance, len(candidates))
	if len(candidates) == 0 {
		return results
	}
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	var group errgroup.Group
	group.SetLimit(parallelism)

	for c, candidate := range candidates {
		c, candidate := c, candidate
		group.Go(func() error {
			results[c] = combinedAcceptance(candidate, cm, goal, optimizedGoals)
			return nil
		})
	}

	// Evaluations never fail
	_ = group.Wait()
	return results
}

// firstAccepted applies the first candidate, in order, that's accepted by the goal and all
// optimized goals. Destination brokers that reject with BrokerReject are added to
// rejectedBrokers so later searches in the same pass can skip them.
func firstAccepted(
	candidates []actions.BalancingAction,
	cm *model.ClusterModel,
	goal Goal,
	optimizedGoals []Goal,
	options OptimizationOptions,
	rejectedBrokers map[int]struct{},
) (bool, error) {
	results := evaluateActions(candidates, cm, goal, optimizedGoals, options.Parallelism)

	for c, candidate := range candidates {
		switch results[c] {
		case actions.Accept:
			if err := applyAction(cm, candidate, goal, options); err != nil {
				return false, err
			}
			return true, nil
		case actions.BrokerReject:
			if rejectedBrokers != nil {
				rejectedBrokers[candidate.DestinationBrokerID()] = struct{}{}
			}
		}
	}

	return false, nil
}

func applyAction(
	cm *model.ClusterModel,
	action actions.BalancingAction,
	goal Goal,
	options OptimizationOptions,
) error {
	if err := action.Apply(cm); err != nil {
		return err
	}
	log.Debugf("%s applied action %s", goal.Name(), action)
	if options.OnAction != nil {
		options.OnAction(action)
	}
	return nil
}

// partitionRacks returns the racks of the brokers hosting the argument partition, skipping
// the replica on skipBrokerID.
func partitionRacks(
	cm *model.ClusterModel,
	tp model.TopicPartition,
	skipBrokerID int,
) map[string]struct{} {
	racks := map[string]struct{}{}
	for _, replica := range cm.Replicas(tp) {
		if replica.BrokerID() == skipBrokerID {
			continue
		}
		broker, err := cm.Broker(replica.BrokerID())
		if err != nil {
			continue
		}
		racks[broker.Rack()] = struct{}{}
	}
	return racks
}

// candidateBrokers returns the alive brokers that could receive a replica of the argument
// partition: not excluded, not previously rejected, and not already hosting it.
func candidateBrokers(
	cm *model.ClusterModel,
	tp model.TopicPartition,
	options OptimizationOptions,
	rejectedBrokers map[int]struct{},
) []*model.Broker {
	candidates := []*model.Broker{}
	for _, broker := range cm.AliveBrokers() {
		if options.brokerExcluded(broker.ID()) || broker.HasReplica(tp) {
			continue
		}
		if _, ok := rejectedBrokers[broker.ID()]; ok {
			continue
		}
		candidates = append(candidates, broker)
	}
	return candidates
}

// replicaCanMove returns whether the optimizer may move the argument replica. Replicas of
// excluded topics only move off dead brokers.
func replicaCanMove(broker *model.Broker, replica *model.Replica, options OptimizationOptions) bool {
	return !broker.IsAlive() || !options.topicExcluded(replica.TopicPartition().Topic)
}

const epsilon = 1e-9

// balanceBounds returns the inclusive count bounds around the average for the argument
// balance percentage.
func balanceBounds(total int, numBrokers int, percentage float64) (int, int) {
	if numBrokers == 0 {
		return 0, 0
	}
	avg := float64(total) / float64(numBrokers)
	lower := int(math.Floor(avg*(1-percentage) + epsilon))
	upper := int(math.Ceil(avg*(1+percentage) - epsilon))
	return lower, upper
}
