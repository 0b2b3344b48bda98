package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/segmentio/balancectl/pkg/model"
)

// ClusterSnapshot is a point-in-time description of a cluster's brokers, partition
// placements, and loads. It can be optimized offline without access to the cluster.
type ClusterSnapshot struct {
	Meta ClusterMeta  `json:"meta"`
	Spec SnapshotSpec `json:"spec"`
}

// SnapshotSpec contains the contents of a ClusterSnapshot.
type SnapshotSpec struct {
	// Windows are the ids of the load windows, most recent first.
	Windows    []int64             `json:"windows"`
	Brokers    []SnapshotBroker    `json:"brokers"`
	Partitions []SnapshotPartition `json:"partitions"`
}

// SnapshotBroker describes a broker in a snapshot.
type SnapshotBroker struct {
	ID       int            `json:"id"`
	Rack     string         `json:"rack"`
	Host     string         `json:"host,omitempty"`
	Dead     bool           `json:"dead,omitempty"`
	Diskless bool           `json:"diskless,omitempty"`
	Capacity ResourceValues `json:"capacity"`

	// LogdirCapacities are the disk capacities of each log directory, in MB.
	LogdirCapacities map[string]float64 `json:"logdirCapacities,omitempty"`
}

// SnapshotPartition describes the replicas of a partition in a snapshot. The first replica
// leads unless Leader is set.
type SnapshotPartition struct {
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
	Replicas  []int  `json:"replicas"`
	Leader    *int   `json:"leader,omitempty"`

	// Logdirs are the log directories of each replica, in the same order as Replicas.
	Logdirs []string `json:"logdirs,omitempty"`

	// Load is the per-window load of the leader, and of followers unless FollowerLoad is set.
	Load         SnapshotLoad  `json:"load"`
	FollowerLoad *SnapshotLoad `json:"followerLoad,omitempty"`
}

// SnapshotLoad holds the per-window values of each resource.
type SnapshotLoad struct {
	CPU        []float64 `json:"cpu,omitempty"`
	NetworkIn  []float64 `json:"networkIn,omitempty"`
	NetworkOut []float64 `json:"networkOut,omitempty"`
	Disk       []float64 `json:"disk,omitempty"`
}

// Validate evaluates whether the snapshot is well-formed. It doesn't check the model-level
// invariants; those are checked by ToClusterModel.
func (s ClusterSnapshot) Validate() error {
	var err error

	if s.Meta.Name == "" {
		err = multierror.Append(err, errors.New("Name must be set"))
	}
	if len(s.Spec.Windows) == 0 {
		err = multierror.Append(err, errors.New("At least one window must be set"))
	}
	if len(s.Spec.Brokers) == 0 {
		err = multierror.Append(err, errors.New("At least one broker must be set"))
	}

	for _, partition := range s.Spec.Partitions {
		if len(partition.Replicas) == 0 {
			err = multierror.Append(
				err,
				fmt.Errorf("Partition %s-%d has no replicas", partition.Topic, partition.Partition),
			)
		}
		if len(partition.Logdirs) > 0 && len(partition.Logdirs) != len(partition.Replicas) {
			err = multierror.Append(
				err,
				fmt.Errorf(
					"Partition %s-%d has %d logdirs for %d replicas",
					partition.Topic,
					partition.Partition,
					len(partition.Logdirs),
					len(partition.Replicas),
				),
			)
		}
	}

	return err
}

// ToClusterModel builds a cluster model from the snapshot.
func (s ClusterSnapshot) ToClusterModel() (*model.ClusterModel, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	cm := model.NewClusterModel()
	brokerRacks := map[int]string{}

	for _, broker := range s.Spec.Brokers {
		if _, err := cm.Rack(broker.Rack); err != nil {
			if _, err := cm.CreateRack(broker.Rack); err != nil {
				return nil, err
			}
		}

		capacityMap, err := broker.Capacity.ToMap()
		if err != nil {
			return nil, fmt.Errorf("Invalid capacity for broker %d: %w", broker.ID, err)
		}
		capacity, err := model.NewBrokerCapacity(capacityMap, broker.LogdirCapacities)
		if err != nil {
			return nil, fmt.Errorf("Invalid capacity for broker %d: %w", broker.ID, err)
		}

		if _, err := cm.CreateBroker(
			broker.Rack,
			broker.Host,
			broker.ID,
			capacity,
			broker.Diskless,
		); err != nil {
			return nil, err
		}
		brokerRacks[broker.ID] = broker.Rack
	}

	for _, partition := range s.Spec.Partitions {
		tp := model.TopicPartition{Topic: partition.Topic, Partition: partition.Partition}
		leader := partition.Replicas[0]
		if partition.Leader != nil {
			leader = *partition.Leader
		}

		for r, brokerID := range partition.Replicas {
			rack, ok := brokerRacks[brokerID]
			if !ok {
				return nil, fmt.Errorf("%w: %d hosts %s", model.ErrUnknownBroker, brokerID, tp)
			}
			if _, err := cm.CreateReplica(rack, brokerID, tp, r, brokerID == leader); err != nil {
				return nil, err
			}

			load := partition.Load
			if brokerID != leader && partition.FollowerLoad != nil {
				load = *partition.FollowerLoad
			}
			if err := cm.SetReplicaLoad(
				rack,
				brokerID,
				tp,
				load.metricValues(),
				s.Spec.Windows,
			); err != nil {
				return nil, fmt.Errorf("Invalid load for %s on broker %d: %w", tp, brokerID, err)
			}

			if len(partition.Logdirs) > 0 && partition.Logdirs[r] != "" {
				if err := cm.MoveReplicaToLogdir(tp, brokerID, partition.Logdirs[r]); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, broker := range s.Spec.Brokers {
		if broker.Dead {
			if err := cm.MarkBrokerDead(broker.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := cm.Validate(); err != nil {
		return nil, err
	}
	return cm, nil
}

// SnapshotFromModel creates a snapshot of the argument model. All followers of a partition
// must have the same load.
func SnapshotFromModel(meta ClusterMeta, cm *model.ClusterModel) (ClusterSnapshot, error) {
	snapshot := ClusterSnapshot{
		Meta: meta,
		Spec: SnapshotSpec{
			Windows:    cm.Windows(),
			Brokers:    []SnapshotBroker{},
			Partitions: []SnapshotPartition{},
		},
	}

	for _, broker := range cm.Brokers() {
		capacity := broker.Capacity()
		snapshotBroker := SnapshotBroker{
			ID:       broker.ID(),
			Rack:     broker.Rack(),
			Host:     broker.Host(),
			Dead:     !broker.IsAlive(),
			Diskless: broker.IsDiskless(),
			Capacity: resourceValuesFromCapacity(capacity),
		}
		if logdirs := capacity.Logdirs(); len(logdirs) > 0 {
			snapshotBroker.LogdirCapacities = map[string]float64{}
			for _, logdir := range logdirs {
				snapshotBroker.LogdirCapacities[logdir], _ = capacity.DiskByLogdir(logdir)
			}
			snapshotBroker.Capacity.Disk = nil
		}
		snapshot.Spec.Brokers = append(snapshot.Spec.Brokers, snapshotBroker)
	}
	sort.Slice(snapshot.Spec.Brokers, func(a, b int) bool {
		return snapshot.Spec.Brokers[a].ID < snapshot.Spec.Brokers[b].ID
	})

	for _, tp := range cm.TopicPartitions() {
		partition := SnapshotPartition{
			Topic:     tp.Topic,
			Partition: tp.Partition,
			Replicas:  []int{},
		}

		var hasLogdirs bool
		logdirs := []string{}
		var leaderLoad *model.Load
		followerLoads := []*model.Load{}

		for r, replica := range cm.Replicas(tp) {
			partition.Replicas = append(partition.Replicas, replica.BrokerID())
			logdirs = append(logdirs, replica.Logdir())
			if replica.Logdir() != "" {
				hasLogdirs = true
			}

			if replica.IsLeader() {
				leaderLoad = replica.Load()
				if r > 0 {
					leaderID := replica.BrokerID()
					partition.Leader = &leaderID
				}
			} else {
				followerLoads = append(followerLoads, replica.Load())
			}
		}
		if hasLogdirs {
			partition.Logdirs = logdirs
		}

		partition.Load = snapshotLoad(leaderLoad, cm.Windows())
		if len(followerLoads) > 0 {
			followerLoad := snapshotLoad(followerLoads[0], cm.Windows())
			for _, load := range followerLoads[1:] {
				if !sameSnapshotLoad(snapshotLoad(load, cm.Windows()), followerLoad) {
					return ClusterSnapshot{}, fmt.Errorf(
						"Followers of %s have different loads and can't be snapshotted",
						tp,
					)
				}
			}
			if !sameSnapshotLoad(followerLoad, partition.Load) {
				partition.FollowerLoad = &followerLoad
			}
		}

		snapshot.Spec.Partitions = append(snapshot.Spec.Partitions, partition)
	}

	return snapshot, nil
}

func (l SnapshotLoad) metricValues() model.MetricValues {
	values := model.MetricValues{}
	if l.CPU != nil {
		values[model.ResourceCPU] = l.CPU
	}
	if l.NetworkIn != nil {
		values[model.ResourceNetworkIn] = l.NetworkIn
	}
	if l.NetworkOut != nil {
		values[model.ResourceNetworkOut] = l.NetworkOut
	}
	if l.Disk != nil {
		values[model.ResourceDisk] = l.Disk
	}
	return values
}

func snapshotLoad(load *model.Load, windows []int64) SnapshotLoad {
	if load == nil {
		zero := make([]float64, len(windows))
		return SnapshotLoad{CPU: zero, NetworkIn: zero, NetworkOut: zero, Disk: zero}
	}
	return SnapshotLoad{
		CPU:        load.Values(model.ResourceCPU),
		NetworkIn:  load.Values(model.ResourceNetworkIn),
		NetworkOut: load.Values(model.ResourceNetworkOut),
		Disk:       load.Values(model.ResourceDisk),
	}
}

func sameSnapshotLoad(a SnapshotLoad, b SnapshotLoad) bool {
	return sameFloats(a.CPU, b.CPU) &&
		sameFloats(a.NetworkIn, b.NetworkIn) &&
		sameFloats(a.NetworkOut, b.NetworkOut) &&
		sameFloats(a.Disk, b.Disk)
}

func sameFloats(a []float64, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func resourceValuesFromCapacity(capacity model.BrokerCapacity) ResourceValues {
	cpu := capacity.Get(model.ResourceCPU)
	networkIn := capacity.Get(model.ResourceNetworkIn)
	networkOut := capacity.Get(model.ResourceNetworkOut)
	disk := capacity.Get(model.ResourceDisk)

	return ResourceValues{
		CPU:        &cpu,
		NetworkIn:  &networkIn,
		NetworkOut: &networkOut,
		Disk:       &disk,
	}
}
