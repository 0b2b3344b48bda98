package goals

import (
	"math"
	"sort"

	"github.com/segmentio/balancectl/pkg/analyzer/actions"
	"github.com/segmentio/balancectl/pkg/model"
	log "github.com/sirupsen/logrus"
)

// CapacityGoal is a hard goal that keeps every alive broker's load for one resource at or
// below its limit (capacity times the configured threshold) in every window, including the
// transient states of swaps. Dead brokers have a limit of zero, so the goal also evacuates
// them.
//
// The optimization pass visits brokers in order of decreasing excess. For each one, it
// first tries to move replicas (heaviest first) to the least-utilized alive brokers,
// preferring brokers in racks that don't already hold the partition. If no move is
// possible, it tries to swap a heavy replica with a lighter one from another broker.
// Destinations that return BrokerReject are skipped for the rest of the pass.
type CapacityGoal struct {
	name       string
	resource   model.Resource
	priority   int
	constraint BalancingConstraint
}

var _ Goal = (*CapacityGoal)(nil)

// NewCapacityGoal creates a new CapacityGoal instance for the argument resource.
func NewCapacityGoal(
	name string,
	resource model.Resource,
	priority int,
	constraint BalancingConstraint,
) *CapacityGoal {
	return &CapacityGoal{
		name:       name,
		resource:   resource,
		priority:   priority,
		constraint: constraint,
	}
}

// NewDiskCapacityGoal creates the disk capacity goal.
func NewDiskCapacityGoal(constraint BalancingConstraint) *CapacityGoal {
	return NewCapacityGoal(DiskCapacityGoalName, model.ResourceDisk, 20, constraint)
}

// NewNetworkInboundCapacityGoal creates the inbound network capacity goal.
func NewNetworkInboundCapacityGoal(constraint BalancingConstraint) *CapacityGoal {
	return NewCapacityGoal(NetworkInboundCapacityGoalName, model.ResourceNetworkIn, 21, constraint)
}

// NewNetworkOutboundCapacityGoal creates the outbound network capacity goal.
func NewNetworkOutboundCapacityGoal(constraint BalancingConstraint) *CapacityGoal {
	return NewCapacityGoal(NetworkOutboundCapacityGoalName, model.ResourceNetworkOut, 22, constraint)
}

// NewCPUCapacityGoal creates the CPU capacity goal.
func NewCPUCapacityGoal(constraint BalancingConstraint) *CapacityGoal {
	return NewCapacityGoal(CPUCapacityGoalName, model.ResourceCPU, 23, constraint)
}

// Name returns the name of the goal.
func (g *CapacityGoal) Name() string {
	return g.name
}

// IsHardGoal returns true; capacity goals are always hard.
func (g *CapacityGoal) IsHardGoal() bool {
	return true
}

// Priority returns the priority of the goal.
func (g *CapacityGoal) Priority() int {
	return g.priority
}

// Resource returns the resource this goal enforces.
func (g *CapacityGoal) Resource() model.Resource {
	return g.resource
}

// ActionAcceptance judges the argument action against the capacity limits.
func (g *CapacityGoal) ActionAcceptance(
	action actions.BalancingAction,
	cm *model.ClusterModel,
) actions.Acceptance {
	switch action.Type() {
	case actions.InterBrokerReplicaMovement:
		replica, err := cm.Replica(action.TopicPartition(), action.SourceBrokerID())
		if err != nil {
			return actions.ReplicaReject
		}
		return g.moveAcceptance(cm, action.DestinationBrokerID(), replica.Load())
	case actions.ReplicaAddition:
		load := additionLoad(cm, action.TopicPartition())
		return g.moveAcceptance(cm, action.DestinationBrokerID(), load)
	case actions.InterBrokerReplicaSwap:
		return g.swapAcceptance(cm, action)
	case actions.IntraBrokerReplicaMovement:
		return g.logdirAcceptance(cm, action)
	case actions.LeadershipMovement:
		return g.leadershipAcceptance(cm, action)
	default:
		// Deletions don't add load anywhere
		return actions.Accept
	}
}

// leadershipAcceptance checks the destination of a leadership movement against the leader
// load it would take over, in every window.
func (g *CapacityGoal) leadershipAcceptance(
	cm *model.ClusterModel,
	action actions.BalancingAction,
) actions.Acceptance {
	leader, err := cm.Replica(action.TopicPartition(), action.SourceBrokerID())
	if err != nil {
		return actions.ReplicaReject
	}
	follower, err := cm.Replica(action.TopicPartition(), action.DestinationBrokerID())
	if err != nil {
		return actions.ReplicaReject
	}
	destination, err := cm.Broker(action.DestinationBrokerID())
	if err != nil {
		return actions.BrokerReject
	}

	delta := model.LeadershipLoadDelta(leader.Load(), follower.Load())
	destinationLoad, _ := cm.BrokerLoad(destination.ID())
	limit := g.limit(destination)

	for w := 0; w < len(cm.Windows()); w++ {
		added := delta.Value(g.resource, w)
		if added <= 0 {
			continue
		}
		if exceeds(destinationLoad.Value(g.resource, w)+added, limit) {
			return actions.ReplicaReject
		}
	}
	return actions.Accept
}

func (g *CapacityGoal) moveAcceptance(
	cm *model.ClusterModel,
	destinationID int,
	load *model.Load,
) actions.Acceptance {
	destination, err := cm.Broker(destinationID)
	if err != nil || !destination.IsAlive() {
		return actions.BrokerReject
	}
	destinationLoad, _ := cm.BrokerLoad(destinationID)
	limit := g.limit(destination)

	for w := 0; w < len(cm.Windows()); w++ {
		current := destinationLoad.Value(g.resource, w)
		if exceeds(current, limit) {
			return actions.BrokerReject
		}
		if exceeds(current+load.Value(g.resource, w), limit) {
			return actions.ReplicaReject
		}
	}

	return actions.Accept
}

// swapAcceptance checks both brokers of a swap in every window. The two relocations of a
// swap happen one after the other, in either order, so each broker may transiently hold
// both its outgoing and its incoming replica. A broker within its limit must stay within it
// through that transient state.
//
// The transient check is relaxed only for a broker that's already above its limit and
// loses load in the swap: it's accepted if it ends within its limit or lower than it
// started. The receiving side gets no relaxation and is still rejected if its transient
// state overshoots.
func (g *CapacityGoal) swapAcceptance(
	cm *model.ClusterModel,
	action actions.BalancingAction,
) actions.Acceptance {
	source, err := cm.Broker(action.SourceBrokerID())
	if err != nil {
		return actions.ReplicaReject
	}
	destination, err := cm.Broker(action.DestinationBrokerID())
	if err != nil || !destination.IsAlive() {
		return actions.BrokerReject
	}
	if !source.IsAlive() {
		return actions.ReplicaReject
	}

	outgoing, err := cm.Replica(action.TopicPartition(), source.ID())
	if err != nil {
		return actions.ReplicaReject
	}
	incoming, err := cm.Replica(action.DestinationTopicPartition(), destination.ID())
	if err != nil {
		return actions.ReplicaReject
	}

	sourceLoad, _ := cm.BrokerLoad(source.ID())
	destinationLoad, _ := cm.BrokerLoad(destination.ID())
	sourceLimit := g.limit(source)
	destinationLimit := g.limit(destination)

	for w := 0; w < len(cm.Windows()); w++ {
		outgoingValue := outgoing.Load().Value(g.resource, w)
		incomingValue := incoming.Load().Value(g.resource, w)

		if !swapSideFits(
			sourceLoad.Value(g.resource, w),
			outgoingValue,
			incomingValue,
			sourceLimit,
		) {
			return actions.ReplicaReject
		}
		if !swapSideFits(
			destinationLoad.Value(g.resource, w),
			incomingValue,
			outgoingValue,
			destinationLimit,
		) {
			return actions.ReplicaReject
		}
	}

	return actions.Accept
}

func swapSideFits(current float64, outgoing float64, incoming float64, limit float64) bool {
	final := current - outgoing + incoming
	if exceeds(current, limit) {
		return !exceeds(final, limit) || final < current
	}
	return !exceeds(current+incoming, limit)
}

func (g *CapacityGoal) logdirAcceptance(
	cm *model.ClusterModel,
	action actions.BalancingAction,
) actions.Acceptance {
	if g.resource != model.ResourceDisk {
		return actions.Accept
	}
	broker, err := cm.Broker(action.SourceBrokerID())
	if err != nil {
		return actions.BrokerReject
	}
	logdirCapacity, ok := broker.Capacity().DiskByLogdir(action.Destination().Logdir)
	if !ok {
		return actions.Accept
	}
	replica, err := cm.Replica(action.TopicPartition(), broker.ID())
	if err != nil {
		return actions.ReplicaReject
	}

	logdirLoad, _ := cm.LogdirLoad(broker.ID(), action.Destination().Logdir)
	limit := logdirCapacity * g.constraint.CapacityThreshold(g.resource)

	for w := 0; w < len(cm.Windows()); w++ {
		if exceeds(
			logdirLoad.Value(g.resource, w)+replica.Load().Value(g.resource, w),
			limit,
		) {
			return actions.ReplicaReject
		}
	}
	return actions.Accept
}

// IsSatisfied returns whether every alive broker is within its limit in every window and
// every dead broker is empty.
func (g *CapacityGoal) IsSatisfied(cm *model.ClusterModel) bool {
	for _, broker := range cm.Brokers() {
		if g.needsFix(cm, broker) {
			return false
		}
	}
	return true
}

// Optimize runs the capacity optimization pass described in the type comment.
func (g *CapacityGoal) Optimize(
	cm *model.ClusterModel,
	optimizedGoals []Goal,
	options OptimizationOptions,
) error {
	if err := g.checkClusterCapacity(cm); err != nil {
		return err
	}

	rejectedBrokers := map[int]struct{}{}

	for _, broker := range g.brokersToFix(cm) {
		for g.needsFix(cm, broker) {
			moved, err := g.moveOff(cm, broker, optimizedGoals, options, rejectedBrokers)
			if err != nil {
				return err
			}
			if moved {
				continue
			}

			swapped, err := g.swapOff(cm, broker, optimizedGoals, options, rejectedBrokers)
			if err != nil {
				return err
			}
			if !swapped {
				log.Debugf(
					"%s: no feasible move or swap left for broker %d",
					g.name,
					broker.ID(),
				)
				break
			}
		}
	}

	return g.verify(cm)
}

// checkClusterCapacity fails early if the cluster's total load exceeds the total limit of
// the alive brokers in any window, since no rebalancing could fix that.
func (g *CapacityGoal) checkClusterCapacity(cm *model.ClusterModel) error {
	aliveBrokers := cm.AliveBrokers()
	var totalLimit float64
	for _, broker := range aliveBrokers {
		totalLimit += g.limit(broker)
	}

	clusterLoad := cm.ClusterLoad()
	var deficit float64
	var deficitWindow int
	for w := 0; w < len(cm.Windows()); w++ {
		if excess := clusterLoad.Value(g.resource, w) - totalLimit; excess > deficit {
			deficit = excess
			deficitWindow = w
		}
	}

	if deficit > epsilon {
		return capacityFailure(
			g.name,
			g.resource,
			deficit,
			g.meanBrokerLimit(cm),
			"cluster %s load %.2f exceeds the total limit %.2f of %d alive brokers in window %d",
			g.resource,
			clusterLoad.Value(g.resource, deficitWindow),
			totalLimit,
			len(aliveBrokers),
			cm.Windows()[deficitWindow],
		)
	}
	return nil
}

func (g *CapacityGoal) verify(cm *model.ClusterModel) error {
	var deficit float64
	var violating []int

	for _, broker := range cm.Brokers() {
		if !g.needsFix(cm, broker) {
			continue
		}
		violating = append(violating, broker.ID())
		deficit += g.excess(cm, broker)
	}

	if len(violating) == 0 {
		return nil
	}
	return capacityFailure(
		g.name,
		g.resource,
		deficit,
		g.meanBrokerLimit(cm),
		"brokers %v remain above their %s limit",
		violating,
		g.resource,
	)
}

func (g *CapacityGoal) moveOff(
	cm *model.ClusterModel,
	broker *model.Broker,
	optimizedGoals []Goal,
	options OptimizationOptions,
	rejectedBrokers map[int]struct{},
) (bool, error) {
	for _, replica := range g.sortedReplicas(broker, options, false) {
		tp := replica.TopicPartition()
		racks := partitionRacks(cm, tp, broker.ID())
		candidates := g.sortedCandidates(
			cm,
			candidateBrokers(cm, tp, options, rejectedBrokers),
			racks,
		)

		moves := []actions.BalancingAction{}
		for _, candidate := range candidates {
			moves = append(moves, actions.NewMove(tp, broker.ID(), candidate.ID()))
		}

		moved, err := firstAccepted(moves, cm, g, optimizedGoals, options, rejectedBrokers)
		if err != nil || moved {
			return moved, err
		}
	}
	return false, nil
}

func (g *CapacityGoal) swapOff(
	cm *model.ClusterModel,
	broker *model.Broker,
	optimizedGoals []Goal,
	options OptimizationOptions,
	rejectedBrokers map[int]struct{},
) (bool, error) {
	if !broker.IsAlive() {
		return false, nil
	}

	for _, replica := range g.sortedReplicas(broker, options, false) {
		tp := replica.TopicPartition()
		replicaValue := replica.Load().Max(g.resource)
		candidates := g.sortedCandidates(
			cm,
			candidateBrokers(cm, tp, options, rejectedBrokers),
			partitionRacks(cm, tp, broker.ID()),
		)

		swaps := []actions.BalancingAction{}
		for _, candidate := range candidates {
			candidateReplicas := g.sortedReplicas(candidate, options, true)
			for c := len(candidateReplicas) - 1; c >= 0; c-- {
				other := candidateReplicas[c]
				if other.Load().Max(g.resource) >= replicaValue ||
					broker.HasReplica(other.TopicPartition()) {
					continue
				}
				swaps = append(
					swaps,
					actions.NewSwap(tp, broker.ID(), candidate.ID(), other.TopicPartition()),
				)
			}
		}

		swapped, err := firstAccepted(swaps, cm, g, optimizedGoals, options, rejectedBrokers)
		if err != nil || swapped {
			return swapped, err
		}
	}
	return false, nil
}

// sortedReplicas returns the movable replicas of a broker, heaviest first for this goal's
// resource. Unless includeIdle is set, replicas on alive brokers without load for the
// resource are skipped since moving them off can't help.
func (g *CapacityGoal) sortedReplicas(
	broker *model.Broker,
	options OptimizationOptions,
	includeIdle bool,
) []*model.Replica {
	replicas := []*model.Replica{}
	for _, replica := range broker.Replicas() {
		if !replicaCanMove(broker, replica, options) {
			continue
		}
		if !includeIdle && broker.IsAlive() && replica.Load().Max(g.resource) <= 0 {
			continue
		}
		replicas = append(replicas, replica)
	}
	sort.SliceStable(replicas, func(a, b int) bool {
		return replicas[a].Load().Max(g.resource) > replicas[b].Load().Max(g.resource)
	})
	return replicas
}

// sortedCandidates orders destination brokers so that brokers in racks not yet used by the
// partition come first, then by increasing utilization of this goal's resource.
func (g *CapacityGoal) sortedCandidates(
	cm *model.ClusterModel,
	brokers []*model.Broker,
	partitionRacks map[string]struct{},
) []*model.Broker {
	utilizations := map[int]float64{}
	for _, broker := range brokers {
		utilizations[broker.ID()] = g.utilization(cm, broker)
	}

	sort.SliceStable(brokers, func(a, b int) bool {
		_, aConflict := partitionRacks[brokers[a].Rack()]
		_, bConflict := partitionRacks[brokers[b].Rack()]
		if aConflict != bConflict {
			return !aConflict
		}
		return utilizations[brokers[a].ID()] < utilizations[brokers[b].ID()]
	})
	return brokers
}

// brokersToFix returns the brokers that violate the goal, dead brokers first and then alive
// ones by decreasing excess.
func (g *CapacityGoal) brokersToFix(cm *model.ClusterModel) []*model.Broker {
	brokers := []*model.Broker{}
	excesses := map[int]float64{}
	for _, broker := range cm.Brokers() {
		if g.needsFix(cm, broker) {
			brokers = append(brokers, broker)
			excesses[broker.ID()] = g.excess(cm, broker)
		}
	}

	sort.SliceStable(brokers, func(a, b int) bool {
		if brokers[a].IsAlive() != brokers[b].IsAlive() {
			return !brokers[a].IsAlive()
		}
		return excesses[brokers[a].ID()] > excesses[brokers[b].ID()]
	})
	return brokers
}

func (g *CapacityGoal) needsFix(cm *model.ClusterModel, broker *model.Broker) bool {
	if !broker.IsAlive() {
		return broker.NumReplicas() > 0
	}
	load, _ := cm.BrokerLoad(broker.ID())
	limit := g.limit(broker)
	for w := 0; w < len(cm.Windows()); w++ {
		if exceeds(load.Value(g.resource, w), limit) {
			return true
		}
	}
	return false
}

// excess returns the largest amount by which the broker's load exceeds its limit across
// all windows.
func (g *CapacityGoal) excess(cm *model.ClusterModel, broker *model.Broker) float64 {
	load, _ := cm.BrokerLoad(broker.ID())
	return math.Max(load.Max(g.resource)-g.limit(broker), 0)
}

func (g *CapacityGoal) utilization(cm *model.ClusterModel, broker *model.Broker) float64 {
	load, _ := cm.BrokerLoad(broker.ID())
	limit := g.limit(broker)
	if limit <= 0 {
		return math.Inf(1)
	}
	return load.Max(g.resource) / limit
}

// limit returns the usable capacity of a broker for this goal's resource. Dead brokers
// can't hold anything.
func (g *CapacityGoal) limit(broker *model.Broker) float64 {
	if !broker.IsAlive() {
		return 0
	}
	return g.nominalLimit(broker)
}

func (g *CapacityGoal) nominalLimit(broker *model.Broker) float64 {
	return broker.Capacity().Get(g.resource) * g.constraint.CapacityThreshold(g.resource)
}

// meanBrokerLimit is the average limit of the alive brokers, or of all brokers if none are
// alive.
func (g *CapacityGoal) meanBrokerLimit(cm *model.ClusterModel) float64 {
	brokers := cm.AliveBrokers()
	if len(brokers) == 0 {
		brokers = cm.Brokers()
	}
	if len(brokers) == 0 {
		return 0
	}
	var total float64
	for _, broker := range brokers {
		total += g.nominalLimit(broker)
	}
	return total / float64(len(brokers))
}

// additionLoad returns the load a new replica of the partition would carry, matching
// ClusterModel.AddReplica.
func additionLoad(cm *model.ClusterModel, tp model.TopicPartition) *model.Load {
	var template *model.Replica
	for _, replica := range cm.Replicas(tp) {
		if template == nil || (template.IsLeader() && !replica.IsLeader()) {
			template = replica
		}
	}
	if template == nil {
		return nil
	}
	return template.Load()
}

func exceeds(value float64, limit float64) bool {
	return value-limit > epsilon
}
