package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/segmentio/balancectl/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCluster(t *testing.T) {
	os.Setenv("BALANCECTL_TEST_REGION", "test-region")
	defer os.Unsetenv("BALANCECTL_TEST_REGION")

	clusterConfig, err := LoadClusterFile("testdata/cluster.yaml", true)
	require.NoError(t, err)

	absDir, err := filepath.Abs("testdata")
	require.NoError(t, err)
	assert.Equal(t, absDir, clusterConfig.RootDir)

	// Empty RootDir since this will vary based on where test is run.
	clusterConfig.RootDir = ""

	assert.Equal(
		t,
		ClusterConfig{
			Meta: ClusterMeta{
				Name:        "test-cluster",
				Region:      "test-region",
				Environment: "test-env",
				Description: "Test cluster\n",
			},
			Spec: ClusterSpec{
				BootstrapAddrs: []string{
					"bootstrap-addr:9092",
				},
				ConnTimeoutStr: "5s",
				ExcludedTopics: []string{"ignored-topic"},
				TLS: TLSConfig{
					Enabled:    true,
					CACertPath: "certs/ca.pem",
				},
				SASL: SASLConfig{
					Enabled:           true,
					Mechanism:         "SCRAM-SHA-512",
					SecretsManagerARN: "arn:aws:secretsmanager:us-west-2:123456789012:secret:kafka-creds",
				},
				Prometheus: PrometheusConfig{
					Address:           "http://prometheus:9090",
					Cluster:           "test-cluster",
					Namespace:         "kafka",
					NumWindows:        3,
					WindowDurationStr: "10m",
				},
				Capacity: CapacityConfig{
					Defaults: ResourceValues{
						CPU:        floatPtr(8),
						NetworkIn:  floatPtr(125000),
						NetworkOut: floatPtr(125000),
						Disk:       floatPtr(1000000),
					},
					Overrides: map[int]ResourceValues{
						3: {CPU: floatPtr(16)},
					},
					EC2Lookup: true,
				},
				Optimizer: OptimizerConfig{
					Goals: []string{"RackAwareGoal", "DiskCapacityGoal"},
					CapacityThresholds: ResourceValues{
						Disk: floatPtr(0.8),
					},
					ReplicaBalancePercentage: floatPtr(0.2),
				},
				Provisioner: ProvisionerConfig{
					Kind:            ProvisionerKindStatefulSet,
					Namespace:       "kafka",
					StatefulSetName: "kafka-brokers",
				},
			},
		},
		clusterConfig,
	)
	assert.NoError(t, clusterConfig.Validate())
	assert.Equal(t, 3, clusterConfig.NumWindows())

	clusterConfig, err = LoadClusterFile("testdata/cluster-invalid.yaml", true)
	require.NoError(t, err)
	assert.Error(t, clusterConfig.Validate())

	_, err = LoadClusterFile("testdata/cluster-extra-fields.yaml", true)
	assert.Error(t, err)

	_, err = LoadClusterFile("testdata/non-existent.yaml", true)
	assert.Error(t, err)
}

func TestLoadSnapshot(t *testing.T) {
	snapshot, err := LoadSnapshotFile("testdata/snapshot.yaml")
	require.NoError(t, err)
	require.NoError(t, snapshot.Validate())

	assert.Equal(t, []int64{3000, 2000, 1000}, snapshot.Spec.Windows)
	assert.Equal(t, 3, len(snapshot.Spec.Brokers))
	assert.Equal(t, 2, len(snapshot.Spec.Partitions))

	cm, err := snapshot.ToClusterModel()
	require.NoError(t, err)
	assert.Equal(t, []int64{3000, 2000, 1000}, cm.Windows())
	assert.Equal(t, 2, len(cm.AliveBrokers()))
	assert.Equal(t, []int{3}, brokerIDs(cm.DeadBrokers()))

	broker2, err := cm.Broker(2)
	require.NoError(t, err)
	assert.Equal(t, 500.0, broker2.Capacity().Get(model.ResourceDisk))
	assert.Equal(t, []string{"/data/a", "/data/b"}, broker2.Capacity().Logdirs())

	events0 := model.TopicPartition{Topic: "events", Partition: 0}
	leader, err := cm.Leader(events0)
	require.NoError(t, err)
	assert.Equal(t, 1, leader.BrokerID())
	assert.Equal(t, []float64{200, 150, 100}, leader.Load().Values(model.ResourceNetworkOut))

	follower, err := cm.Replica(events0, 2)
	require.NoError(t, err)
	assert.Equal(t, "/data/b", follower.Logdir())
	assert.Equal(t, 0.0, follower.Load().Max(model.ResourceNetworkOut))
	assert.Equal(t, 0.2, follower.Load().Max(model.ResourceCPU))

	events1 := model.TopicPartition{Topic: "events", Partition: 1}
	leader, err = cm.Leader(events1)
	require.NoError(t, err)
	assert.Equal(t, 3, leader.BrokerID())
	assert.Equal(t, []int{2, 3}, model.BrokerIDs(cm.Placements(events1)))
}

func TestLoadSnapshotInvalid(t *testing.T) {
	_, err := LoadSnapshotBytes([]byte("meta:\n  name: test\nspec:\n  zkAddrs: []\n"))
	assert.Error(t, err)

	snapshot, err := LoadSnapshotBytes(
		[]byte(`
meta:
  name: test
spec:
  windows: [1000]
  brokers:
    - id: 1
      rack: zone1
      capacity: {cpu: 1, networkIn: 1, networkOut: 1, disk: 1}
  partitions:
    - topic: events
      partition: 0
      replicas: [1, 2]
`),
	)
	require.NoError(t, err)
	require.NoError(t, snapshot.Validate())

	_, err = snapshot.ToClusterModel()
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnknownBroker)

	snapshot.Spec.Partitions[0].Replicas = []int{}
	assert.Error(t, snapshot.Validate())

	snapshot.Spec.Partitions[0].Replicas = []int{1}
	snapshot.Spec.Partitions[0].Logdirs = []string{"/a", "/b"}
	assert.Error(t, snapshot.Validate())

	snapshot.Spec.Partitions[0].Logdirs = nil
	snapshot.Spec.Brokers[0].Capacity.Disk = nil
	_, err = snapshot.ToClusterModel()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid capacity for broker 1")
}

func TestSnapshotRoundTrip(t *testing.T) {
	snapshot, err := LoadSnapshotFile("testdata/snapshot.yaml")
	require.NoError(t, err)
	cm, err := snapshot.ToClusterModel()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	written, err := SnapshotFromModel(snapshot.Meta, cm)
	require.NoError(t, err)
	require.NoError(t, WriteSnapshotFile(path, written))

	reloaded, err := LoadSnapshotFile(path)
	require.NoError(t, err)
	reloadedModel, err := reloaded.ToClusterModel()
	require.NoError(t, err)

	assert.Equal(t, cm.ReplicaDistribution(), reloadedModel.ReplicaDistribution())
	assert.Equal(t, cm.Windows(), reloadedModel.Windows())
	for _, broker := range cm.Brokers() {
		load, err := cm.BrokerLoad(broker.ID())
		require.NoError(t, err)
		reloadedLoad, err := reloadedModel.BrokerLoad(broker.ID())
		require.NoError(t, err)
		assert.Equal(t, load, reloadedLoad, "broker %d", broker.ID())

		reloadedBroker, err := reloadedModel.Broker(broker.ID())
		require.NoError(t, err)
		assert.Equal(t, broker.IsAlive(), reloadedBroker.IsAlive())
		assert.Equal(t, broker.Capacity(), reloadedBroker.Capacity())
	}

	leader, err := reloadedModel.Leader(model.TopicPartition{Topic: "events", Partition: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, leader.BrokerID())
}

func TestSnapshotFromModelMismatchedFollowers(t *testing.T) {
	cm := model.NewTestClusterModel(
		t,
		[]int64{1000},
		[]model.TestBroker{
			{ID: 1, Rack: "zone1", Capacity: testCapacity()},
			{ID: 2, Rack: "zone2", Capacity: testCapacity()},
			{ID: 3, Rack: "zone3", Capacity: testCapacity()},
		},
		[]model.TestPartition{
			{Topic: "events", Partition: 0, Replicas: []int{1, 2, 3}},
		},
	)

	tp := model.TopicPartition{Topic: "events", Partition: 0}
	require.NoError(
		t,
		cm.SetReplicaLoad("zone3", 3, tp, model.UniformLoad(5, 1), []int64{1000}),
	)

	_, err := SnapshotFromModel(ClusterMeta{Name: "test"}, cm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different loads")
}

func testCapacity() map[model.Resource]float64 {
	return map[model.Resource]float64{
		model.ResourceCPU:        4,
		model.ResourceNetworkIn:  1000,
		model.ResourceNetworkOut: 1000,
		model.ResourceDisk:       1000,
	}
}

func brokerIDs(brokers []*model.Broker) []int {
	ids := []int{}
	for _, broker := range brokers {
		ids = append(ids, broker.ID())
	}
	return ids
}
