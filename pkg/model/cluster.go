package model

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrUnknownRack is returned when a referenced rack doesn't exist in the model.
	ErrUnknownRack = errors.New("unknown rack")

	// ErrUnknownBroker is returned when a referenced broker doesn't exist in the model.
	ErrUnknownBroker = errors.New("unknown broker")

	// ErrUnknownReplica is returned when a referenced (topic-partition, broker) pair doesn't
	// exist in the model.
	ErrUnknownReplica = errors.New("unknown replica")

	// ErrDuplicate is returned when creating or moving an entity would duplicate an existing
	// one.
	ErrDuplicate = errors.New("duplicate entity")

	// ErrInvalidLoad is returned when a load doesn't match the model's windows or contains
	// invalid values.
	ErrInvalidLoad = errors.New("invalid load")

	// ErrInvalidMutation is returned for structurally invalid mutations that aren't covered
	// by the errors above (e.g., deleting a partition's leader).
	ErrInvalidMutation = errors.New("invalid mutation")
)

// Rack is a placement-diversity grouping of brokers.
type Rack struct {
	name      string
	brokerIDs map[int]struct{}
}

// Name returns the name of the rack.
func (r *Rack) Name() string {
	return r.name
}

// BrokerIDs returns the sorted ids of the brokers in this rack.
func (r *Rack) BrokerIDs() []int {
	ids := []int{}
	for id := range r.brokerIDs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Broker is a node that hosts replicas and has a fixed resource capacity.
type Broker struct {
	id       int
	host     string
	rack     string
	capacity BrokerCapacity
	alive    bool
	diskless bool
	replicas map[TopicPartition]*Replica
}

// ID returns the id of the broker.
func (b *Broker) ID() int {
	return b.id
}

// Host returns the host of the broker.
func (b *Broker) Host() string {
	return b.host
}

// Rack returns the name of the rack this broker belongs to.
func (b *Broker) Rack() string {
	return b.rack
}

// Capacity returns the broker's capacity.
func (b *Broker) Capacity() BrokerCapacity {
	return b.capacity
}

// IsAlive returns whether the broker is alive.
func (b *Broker) IsAlive() bool {
	return b.alive
}

// IsDiskless returns whether the broker was created without local storage.
func (b *Broker) IsDiskless() bool {
	return b.diskless
}

// NumReplicas returns the number of replicas hosted on this broker.
func (b *Broker) NumReplicas() int {
	return len(b.replicas)
}

// NumLeaders returns the number of leader replicas hosted on this broker.
func (b *Broker) NumLeaders() int {
	var count int
	for _, replica := range b.replicas {
		if replica.leader {
			count++
		}
	}
	return count
}

// HasReplica returns whether the broker hosts a replica of the argument partition.
func (b *Broker) HasReplica(tp TopicPartition) bool {
	_, ok := b.replicas[tp]
	return ok
}

// Replicas returns the replicas on this broker, sorted by topic partition.
func (b *Broker) Replicas() []*Replica {
	replicas := []*Replica{}
	for _, replica := range b.replicas {
		replicas = append(replicas, replica)
	}
	sort.Slice(replicas, func(a, c int) bool {
		return replicas[a].tp.Less(replicas[c].tp)
	})
	return replicas
}

// Replica is one copy of a topic partition hosted on a broker.
type Replica struct {
	tp       TopicPartition
	brokerID int
	logdir   string
	leader   bool
	load     *Load
}

// TopicPartition returns the partition this replica belongs to.
func (r *Replica) TopicPartition() TopicPartition {
	return r.tp
}

// BrokerID returns the id of the broker that currently hosts the replica.
func (r *Replica) BrokerID() int {
	return r.brokerID
}

// Logdir returns the logdir the replica is placed on, if any.
func (r *Replica) Logdir() string {
	return r.logdir
}

// IsLeader returns whether this replica is the partition leader.
func (r *Replica) IsLeader() bool {
	return r.leader
}

// Load returns the replica's load. It may be nil if no load has been set.
func (r *Replica) Load() *Load {
	return r.load
}

// Placement returns the placement of the replica.
func (r *Replica) Placement() ReplicaPlacementInfo {
	return ReplicaPlacementInfo{BrokerID: r.brokerID, Logdir: r.logdir}
}

// String returns a readable representation of the replica.
func (r *Replica) String() string {
	return fmt.Sprintf("%s@%d(leader=%v)", r.tp, r.brokerID, r.leader)
}

type partition struct {
	tp       TopicPartition
	replicas []*Replica
}

// ClusterModel is the mutable topology of a cluster (racks -> brokers -> replicas) along
// with the windowed load of every replica. It owns all of its entities; callers get
// read-only views and mutate only through the model's methods.
//
// The model isn't safe for concurrent mutation. Concurrent reads are fine as long as no
// mutation is in flight.
type ClusterModel struct {
	racks      map[string]*Rack
	brokers    map[int]*Broker
	partitions map[TopicPartition]*partition
	windows    []int64
}

// NewClusterModel returns an empty cluster model.
func NewClusterModel() *ClusterModel {
	return &ClusterModel{
		racks:      map[string]*Rack{},
		brokers:    map[int]*Broker{},
		partitions: map[TopicPartition]*partition{},
	}
}

// CreateRack adds a new, empty rack.
func (cm *ClusterModel) CreateRack(name string) (*Rack, error) {
	if _, ok := cm.racks[name]; ok {
		return nil, fmt.Errorf("%w: rack %s already exists", ErrDuplicate, name)
	}
	rack := &Rack{
		name:      name,
		brokerIDs: map[int]struct{}{},
	}
	cm.racks[name] = rack
	return rack, nil
}

// CreateBroker adds a new, alive broker to an existing rack.
func (cm *ClusterModel) CreateBroker(
	rackName string,
	host string,
	id int,
	capacity BrokerCapacity,
	diskless bool,
) (*Broker, error) {
	rack, ok := cm.racks[rackName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRack, rackName)
	}
	if _, ok := cm.brokers[id]; ok {
		return nil, fmt.Errorf("%w: broker %d already exists", ErrDuplicate, id)
	}
	if capacity.IsZero() {
		return nil, fmt.Errorf("%w: broker %d has no capacity", ErrInvalidMutation, id)
	}

	broker := &Broker{
		id:       id,
		host:     host,
		rack:     rackName,
		capacity: capacity,
		alive:    true,
		diskless: diskless,
		replicas: map[TopicPartition]*Replica{},
	}
	cm.brokers[id] = broker
	rack.brokerIDs[id] = struct{}{}
	return broker, nil
}

// CreateReplica adds a replica of the argument partition to a broker. The index is the
// position of the replica in the partition's replica set; indices past the end append.
func (cm *ClusterModel) CreateReplica(
	rackName string,
	brokerID int,
	tp TopicPartition,
	index int,
	isLeader bool,
) (*Replica, error) {
	broker, err := cm.brokerInRack(rackName, brokerID)
	if err != nil {
		return nil, err
	}
	if broker.HasReplica(tp) {
		return nil, fmt.Errorf(
			"%w: broker %d already hosts a replica of %s",
			ErrDuplicate,
			brokerID,
			tp,
		)
	}

	part, ok := cm.partitions[tp]
	if !ok {
		part = &partition{tp: tp}
		cm.partitions[tp] = part
	}
	if isLeader {
		for _, existing := range part.replicas {
			if existing.leader {
				return nil, fmt.Errorf(
					"%w: %s already has a leader on broker %d",
					ErrDuplicate,
					tp,
					existing.brokerID,
				)
			}
		}
	}

	replica := &Replica{
		tp:       tp,
		brokerID: brokerID,
		leader:   isLeader,
	}
	broker.replicas[tp] = replica
	part.replicas = insertReplica(part.replicas, replica, index)

	return replica, nil
}

// SetReplicaLoad sets the windowed load of an existing replica. All loads in the model must
// share the same windows; the first call fixes them.
func (cm *ClusterModel) SetReplicaLoad(
	rackName string,
	brokerID int,
	tp TopicPartition,
	values MetricValues,
	windows []int64,
) error {
	broker, err := cm.brokerInRack(rackName, brokerID)
	if err != nil {
		return err
	}
	replica, ok := broker.replicas[tp]
	if !ok {
		return fmt.Errorf("%w: %s on broker %d", ErrUnknownReplica, tp, brokerID)
	}
	if cm.windows != nil && !sameWindows(cm.windows, windows) {
		return fmt.Errorf(
			"%w: windows %v do not match model windows %v",
			ErrInvalidLoad,
			windows,
			cm.windows,
		)
	}

	load, err := NewLoad(values, windows)
	if err != nil {
		return err
	}
	if cm.windows == nil {
		cm.windows = copyInt64s(windows)
	}
	replica.load = load
	return nil
}

// MarkBrokerDead flags a broker as dead. Dead brokers keep their replicas until something
// moves them off.
func (cm *ClusterModel) MarkBrokerDead(id int) error {
	broker, ok := cm.brokers[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBroker, id)
	}
	broker.alive = false
	return nil
}

// RelocateReplica moves a replica between brokers. The replica keeps its load, its position
// in the replica set, and its leadership.
func (cm *ClusterModel) RelocateReplica(
	tp TopicPartition,
	fromBrokerID int,
	toBrokerID int,
	logdir string,
) error {
	replica, err := cm.Replica(tp, fromBrokerID)
	if err != nil {
		return err
	}
	if err := cm.checkDestination(tp, fromBrokerID, toBrokerID); err != nil {
		return err
	}

	cm.relocate(replica, toBrokerID, logdir)
	return nil
}

// SwapReplicas exchanges the brokers of two replicas. Either both relocations happen or
// neither does.
func (cm *ClusterModel) SwapReplicas(
	tp1 TopicPartition,
	brokerID1 int,
	tp2 TopicPartition,
	brokerID2 int,
) error {
	if tp1 == tp2 {
		return fmt.Errorf("%w: cannot swap two replicas of %s", ErrInvalidMutation, tp1)
	}
	replica1, err := cm.Replica(tp1, brokerID1)
	if err != nil {
		return err
	}
	replica2, err := cm.Replica(tp2, brokerID2)
	if err != nil {
		return err
	}
	if err := cm.checkDestination(tp1, brokerID1, brokerID2); err != nil {
		return err
	}
	if err := cm.checkDestination(tp2, brokerID2, brokerID1); err != nil {
		return err
	}

	cm.relocate(replica1, brokerID2, "")
	cm.relocate(replica2, brokerID1, "")
	return nil
}

// RelocateLeadership transfers leadership of a partition from one replica to another. The
// new leader is moved to the front of the replica set and the LeaderResources loads of the
// two replicas are exchanged, so the new leader carries the serving load.
func (cm *ClusterModel) RelocateLeadership(
	tp TopicPartition,
	fromBrokerID int,
	toBrokerID int,
) error {
	from, err := cm.Replica(tp, fromBrokerID)
	if err != nil {
		return err
	}
	to, err := cm.Replica(tp, toBrokerID)
	if err != nil {
		return err
	}
	if !from.leader {
		return fmt.Errorf(
			"%w: replica of %s on broker %d is not the leader",
			ErrInvalidMutation,
			tp,
			fromBrokerID,
		)
	}
	if fromBrokerID == toBrokerID {
		return fmt.Errorf("%w: leadership source and destination are the same", ErrInvalidMutation)
	}

	from.leader = false
	to.leader = true
	from.load, to.load = swapLeaderResources(from.load, to.load)

	part := cm.partitions[tp]
	sort.SliceStable(part.replicas, func(a, b int) bool {
		return part.replicas[a].leader && !part.replicas[b].leader
	})
	return nil
}

// MoveReplicaToLogdir changes the logdir of a replica within its broker.
func (cm *ClusterModel) MoveReplicaToLogdir(
	tp TopicPartition,
	brokerID int,
	logdir string,
) error {
	replica, err := cm.Replica(tp, brokerID)
	if err != nil {
		return err
	}
	broker := cm.brokers[brokerID]
	if len(broker.capacity.diskByLogdir) > 0 {
		if _, ok := broker.capacity.diskByLogdir[logdir]; !ok {
			return fmt.Errorf(
				"%w: broker %d has no logdir %s",
				ErrInvalidMutation,
				brokerID,
				logdir,
			)
		}
	}
	replica.logdir = logdir
	return nil
}

// AddReplica creates a new follower replica of an existing partition on the argument broker.
// The new replica takes on the load of an existing follower (or the leader, if there are
// no followers), since it will serve the same workload once caught up.
func (cm *ClusterModel) AddReplica(tp TopicPartition, brokerID int, logdir string) error {
	part, ok := cm.partitions[tp]
	if !ok || len(part.replicas) == 0 {
		return fmt.Errorf("%w: no replicas of %s", ErrUnknownReplica, tp)
	}
	broker, ok := cm.brokers[brokerID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBroker, brokerID)
	}

	var template *Replica
	for _, existing := range part.replicas {
		if template == nil || (template.leader && !existing.leader) {
			template = existing
		}
	}

	replica, err := cm.CreateReplica(broker.rack, brokerID, tp, len(part.replicas), false)
	if err != nil {
		return err
	}
	replica.logdir = logdir
	replica.load = template.load.Copy()
	return nil
}

// DeleteReplica removes a follower replica from the model.
func (cm *ClusterModel) DeleteReplica(tp TopicPartition, brokerID int) error {
	replica, err := cm.Replica(tp, brokerID)
	if err != nil {
		return err
	}
	if replica.leader {
		return fmt.Errorf(
			"%w: cannot delete the leader of %s; move leadership first",
			ErrInvalidMutation,
			tp,
		)
	}

	delete(cm.brokers[brokerID].replicas, tp)
	part := cm.partitions[tp]
	for r, existing := range part.replicas {
		if existing == replica {
			part.replicas = append(part.replicas[:r], part.replicas[r+1:]...)
			break
		}
	}
	return nil
}

// Windows returns the windows shared by every load in the model.
func (cm *ClusterModel) Windows() []int64 {
	return copyInt64s(cm.windows)
}

// Rack returns the rack with the argument name.
func (cm *ClusterModel) Rack(name string) (*Rack, error) {
	rack, ok := cm.racks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRack, name)
	}
	return rack, nil
}

// Racks returns all racks, sorted by name.
func (cm *ClusterModel) Racks() []*Rack {
	names := []string{}
	for name := range cm.racks {
		names = append(names, name)
	}
	racks := []*Rack{}
	for _, name := range sortedStrings(names) {
		racks = append(racks, cm.racks[name])
	}
	return racks
}

// Broker returns the broker with the argument id.
func (cm *ClusterModel) Broker(id int) (*Broker, error) {
	broker, ok := cm.brokers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBroker, id)
	}
	return broker, nil
}

// Brokers returns all brokers, sorted by id.
func (cm *ClusterModel) Brokers() []*Broker {
	return cm.filterBrokers(func(b *Broker) bool { return true })
}

// AliveBrokers returns the alive brokers, sorted by id.
func (cm *ClusterModel) AliveBrokers() []*Broker {
	return cm.filterBrokers(func(b *Broker) bool { return b.alive })
}

// DeadBrokers returns the dead brokers, sorted by id.
func (cm *ClusterModel) DeadBrokers() []*Broker {
	return cm.filterBrokers(func(b *Broker) bool { return !b.alive })
}

func (cm *ClusterModel) filterBrokers(filter func(b *Broker) bool) []*Broker {
	brokers := []*Broker{}
	for _, broker := range cm.brokers {
		if filter(broker) {
			brokers = append(brokers, broker)
		}
	}
	sort.Slice(brokers, func(a, b int) bool {
		return brokers[a].id < brokers[b].id
	})
	return brokers
}

// Replica returns the replica of the argument partition on the argument broker.
func (cm *ClusterModel) Replica(tp TopicPartition, brokerID int) (*Replica, error) {
	broker, ok := cm.brokers[brokerID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBroker, brokerID)
	}
	replica, ok := broker.replicas[tp]
	if !ok {
		return nil, fmt.Errorf("%w: %s on broker %d", ErrUnknownReplica, tp, brokerID)
	}
	return replica, nil
}

// Replicas returns the replica set of a partition in preferred order.
func (cm *ClusterModel) Replicas(tp TopicPartition) []*Replica {
	part, ok := cm.partitions[tp]
	if !ok {
		return nil
	}
	replicas := make([]*Replica, len(part.replicas))
	copy(replicas, part.replicas)
	return replicas
}

// Placements returns the placements of a partition's replicas in preferred order.
func (cm *ClusterModel) Placements(tp TopicPartition) []ReplicaPlacementInfo {
	placements := []ReplicaPlacementInfo{}
	for _, replica := range cm.Replicas(tp) {
		placements = append(placements, replica.Placement())
	}
	return placements
}

// Leader returns the leader replica of a partition.
func (cm *ClusterModel) Leader(tp TopicPartition) (*Replica, error) {
	for _, replica := range cm.Replicas(tp) {
		if replica.leader {
			return replica, nil
		}
	}
	return nil, fmt.Errorf("%w: no leader for %s", ErrUnknownReplica, tp)
}

// TopicPartitions returns all partitions in the model, sorted.
func (cm *ClusterModel) TopicPartitions() []TopicPartition {
	tps := []TopicPartition{}
	for tp := range cm.partitions {
		tps = append(tps, tp)
	}
	sort.Slice(tps, func(a, b int) bool {
		return tps[a].Less(tps[b])
	})
	return tps
}

// NumReplicas returns the total number of replicas in the model.
func (cm *ClusterModel) NumReplicas() int {
	var count int
	for _, broker := range cm.brokers {
		count += len(broker.replicas)
	}
	return count
}

// BrokerLoad returns the aggregate load of a broker, computed from its current replicas.
func (cm *ClusterModel) BrokerLoad(id int) (*Load, error) {
	broker, ok := cm.brokers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBroker, id)
	}
	return cm.sumReplicas(func(r *Replica) bool { return r.brokerID == broker.id }, broker), nil
}

// LogdirLoad returns the aggregate load of the replicas on one logdir of a broker.
func (cm *ClusterModel) LogdirLoad(id int, logdir string) (*Load, error) {
	broker, ok := cm.brokers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBroker, id)
	}
	return cm.sumReplicas(func(r *Replica) bool { return r.logdir == logdir }, broker), nil
}

// RackLoad returns the aggregate load of all brokers in a rack.
func (cm *ClusterModel) RackLoad(name string) (*Load, error) {
	rack, ok := cm.racks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRack, name)
	}
	brokers := []*Broker{}
	for _, id := range rack.BrokerIDs() {
		brokers = append(brokers, cm.brokers[id])
	}
	return cm.sumReplicas(func(r *Replica) bool { return true }, brokers...), nil
}

// ClusterLoad returns the aggregate load of the whole cluster.
func (cm *ClusterModel) ClusterLoad() *Load {
	return cm.sumReplicas(func(r *Replica) bool { return true }, cm.Brokers()...)
}

func (cm *ClusterModel) sumReplicas(filter func(r *Replica) bool, brokers ...*Broker) *Load {
	if cm.windows == nil {
		return nil
	}
	total := newZeroLoad(cm.windows)
	for _, broker := range brokers {
		for _, replica := range broker.replicas {
			if filter(replica) {
				total.add(replica.load, 1.0)
			}
		}
	}
	return total
}

// ReplicaDistribution returns the placements of every partition, in preferred order.
func (cm *ClusterModel) ReplicaDistribution() map[TopicPartition][]ReplicaPlacementInfo {
	distribution := map[TopicPartition][]ReplicaPlacementInfo{}
	for tp := range cm.partitions {
		distribution[tp] = cm.Placements(tp)
	}
	return distribution
}

// Validate checks the structural invariants of the model: each partition has exactly one
// leader and every replica is indexed consistently by its broker and its partition.
func (cm *ClusterModel) Validate() error {
	var err error

	for _, tp := range cm.TopicPartitions() {
		part := cm.partitions[tp]
		var leaders int
		for _, replica := range part.replicas {
			if replica.leader {
				leaders++
			}
			broker, ok := cm.brokers[replica.brokerID]
			if !ok || broker.replicas[tp] != replica {
				err = multierror.Append(
					err,
					fmt.Errorf("Replica %s is not indexed by broker %d", replica, replica.brokerID),
				)
			}
		}
		if leaders != 1 {
			err = multierror.Append(
				err,
				fmt.Errorf("Partition %s has %d leaders, expected exactly 1", tp, leaders),
			)
		}
	}

	for _, broker := range cm.brokers {
		if _, ok := cm.racks[broker.rack].brokerIDs[broker.id]; !ok {
			err = multierror.Append(
				err,
				fmt.Errorf("Broker %d is not indexed by rack %s", broker.id, broker.rack),
			)
		}
	}

	return err
}

// Clone returns a deep copy of the model that shares no mutable state with the original.
func (cm *ClusterModel) Clone() *ClusterModel {
	clone := NewClusterModel()
	clone.windows = copyInt64s(cm.windows)

	for name, rack := range cm.racks {
		clonedRack := &Rack{name: name, brokerIDs: map[int]struct{}{}}
		for id := range rack.brokerIDs {
			clonedRack.brokerIDs[id] = struct{}{}
		}
		clone.racks[name] = clonedRack
	}

	for id, broker := range cm.brokers {
		clone.brokers[id] = &Broker{
			id:       broker.id,
			host:     broker.host,
			rack:     broker.rack,
			capacity: broker.capacity,
			alive:    broker.alive,
			diskless: broker.diskless,
			replicas: map[TopicPartition]*Replica{},
		}
	}

	for tp, part := range cm.partitions {
		clonedPart := &partition{tp: tp}
		for _, replica := range part.replicas {
			clonedReplica := &Replica{
				tp:       replica.tp,
				brokerID: replica.brokerID,
				logdir:   replica.logdir,
				leader:   replica.leader,
				load:     replica.load.Copy(),
			}
			clonedPart.replicas = append(clonedPart.replicas, clonedReplica)
			clone.brokers[replica.brokerID].replicas[tp] = clonedReplica
		}
		clone.partitions[tp] = clonedPart
	}

	return clone
}

// Restore replaces the state of this model with a deep copy of the argument one.
func (cm *ClusterModel) Restore(from *ClusterModel) {
	restored := from.Clone()
	cm.racks = restored.racks
	cm.brokers = restored.brokers
	cm.partitions = restored.partitions
	cm.windows = restored.windows
}

func (cm *ClusterModel) brokerInRack(rackName string, brokerID int) (*Broker, error) {
	if _, ok := cm.racks[rackName]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRack, rackName)
	}
	broker, ok := cm.brokers[brokerID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBroker, brokerID)
	}
	if broker.rack != rackName {
		return nil, fmt.Errorf(
			"%w: broker %d is in rack %s, not %s",
			ErrUnknownBroker,
			brokerID,
			broker.rack,
			rackName,
		)
	}
	return broker, nil
}

func (cm *ClusterModel) checkDestination(tp TopicPartition, fromBrokerID int, toBrokerID int) error {
	if fromBrokerID == toBrokerID {
		return fmt.Errorf(
			"%w: source and destination broker are both %d",
			ErrInvalidMutation,
			fromBrokerID,
		)
	}
	to, ok := cm.brokers[toBrokerID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBroker, toBrokerID)
	}
	if to.HasReplica(tp) {
		return fmt.Errorf(
			"%w: broker %d already hosts a replica of %s",
			ErrDuplicate,
			toBrokerID,
			tp,
		)
	}
	return nil
}

func (cm *ClusterModel) relocate(replica *Replica, toBrokerID int, logdir string) {
	delete(cm.brokers[replica.brokerID].replicas, replica.tp)
	replica.brokerID = toBrokerID
	replica.logdir = logdir
	cm.brokers[toBrokerID].replicas[replica.tp] = replica
}

func insertReplica(replicas []*Replica, replica *Replica, index int) []*Replica {
	if index < 0 || index >= len(replicas) {
		return append(replicas, replica)
	}
	replicas = append(replicas, nil)
	copy(replicas[index+1:], replicas[index:])
	replicas[index] = replica
	return replicas
}

func sortedStrings(input []string) []string {
	sort.Strings(input)
	return input
}
