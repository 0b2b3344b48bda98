package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/segmentio/balancectl/pkg/admin"
	"github.com/segmentio/balancectl/pkg/analyzer/goals"
	"github.com/segmentio/balancectl/pkg/model"
)

// ClusterConfig stores information about a cluster and how it should be balanced.
type ClusterConfig struct {
	Meta ClusterMeta `json:"meta"`
	Spec ClusterSpec `json:"spec"`

	// RootDir is the directory of the config file, used to resolve relative paths.
	RootDir string `json:"-"`
}

// ClusterMeta contains (mostly immutable) metadata about the cluster. Inspired
// by the meta fields in Kubernetes objects.
type ClusterMeta struct {
	Name        string `json:"name"`
	Region      string `json:"region"`
	Environment string `json:"environment"`
	Description string `json:"description"`
}

// ClusterSpec contains the details necessary to communicate with and balance a kafka
// cluster.
type ClusterSpec struct {
	// BootstrapAddrs is a list of one or more broker bootstrap addresses. These can use IPs
	// or DNS names.
	BootstrapAddrs []string `json:"bootstrapAddrs"`

	// ClusterID is the ID reported by the cluster's metadata. If set, it's used to validate
	// that the cluster we're communicating with is the right one.
	ClusterID string `json:"clusterID"`

	// ConnTimeoutStr is the timeout for connections to the brokers, e.g. "10s".
	ConnTimeoutStr string `json:"connTimeout"`

	// ExcludedTopics are left out of the cluster model entirely.
	ExcludedTopics []string `json:"excludedTopics"`

	// IncludeInternalTopics controls whether topics like __consumer_offsets are modeled.
	IncludeInternalTopics bool `json:"includeInternalTopics"`

	TLS         TLSConfig         `json:"tls"`
	SASL        SASLConfig        `json:"sasl"`
	Prometheus  PrometheusConfig  `json:"prometheus"`
	Capacity    CapacityConfig    `json:"capacity"`
	Optimizer   OptimizerConfig   `json:"optimizer"`
	Provisioner ProvisionerConfig `json:"provisioner"`
}

// TLSConfig stores the TLS-related configuration for connecting to a cluster.
type TLSConfig struct {
	Enabled    bool   `json:"enabled"`
	CACertPath string `json:"caCertPath"`
	CertPath   string `json:"certPath"`
	KeyPath    string `json:"keyPath"`
	ServerName string `json:"serverName"`
	SkipVerify bool   `json:"skipVerify"`
}

// PrometheusConfig stores where and how broker metrics are sampled.
type PrometheusConfig struct {
	Address string `json:"address"`

	// Cluster and Namespace select the broker pods' series.
	Cluster   string `json:"cluster"`
	Namespace string `json:"namespace"`

	NumWindows        int    `json:"numWindows"`
	WindowDurationStr string `json:"windowDuration"`
	RateWindowStr     string `json:"rateWindow"`
	Parallelism       int    `json:"parallelism"`

	// PodIDOffset is added to each pod's ordinal to get its broker id.
	PodIDOffset int `json:"podIDOffset"`
}

// ResourceValues holds an optional value per resource.
type ResourceValues struct {
	CPU        *float64 `json:"cpu,omitempty"`
	NetworkIn  *float64 `json:"networkIn,omitempty"`
	NetworkOut *float64 `json:"networkOut,omitempty"`
	Disk       *float64 `json:"disk,omitempty"`
}

// CapacityConfig stores how broker capacities are resolved.
type CapacityConfig struct {
	// Defaults are used for every broker. CPU is in cores, network in KB/sec, and disk in MB.
	Defaults ResourceValues `json:"defaults"`

	// Overrides replace the defaults for specific broker ids.
	Overrides map[int]ResourceValues `json:"overrides"`

	// SplitDiskByLogdir divides each broker's disk evenly across its log directories.
	SplitDiskByLogdir bool `json:"splitDiskByLogdir"`

	// EC2Lookup derives CPU and network capacities from each broker's EC2 instance type.
	EC2Lookup bool `json:"ec2Lookup"`
}

// OptimizerConfig stores which goals to run and their tunables.
type OptimizerConfig struct {
	// Goals are the names of the goals to run. If empty, all goals are run.
	Goals []string `json:"goals"`

	// CapacityThresholds are the fractions of capacity that capacity goals treat as the limit.
	CapacityThresholds ResourceValues `json:"capacityThresholds"`

	ReplicaBalancePercentage       *float64 `json:"replicaBalancePercentage"`
	LeaderReplicaBalancePercentage *float64 `json:"leaderReplicaBalancePercentage"`

	// ExcludedBrokersForReplicaMove can't receive replicas.
	ExcludedBrokersForReplicaMove []int `json:"excludedBrokersForReplicaMove"`

	Parallelism int `json:"parallelism"`
}

// Validate evaluates whether the cluster config is valid.
func (c ClusterConfig) Validate() error {
	var err error

	if c.Meta.Name == "" {
		err = multierror.Append(err, errors.New("Name must be set"))
	}
	if c.Meta.Region == "" {
		err = multierror.Append(err, errors.New("Region must be set"))
	}
	if c.Meta.Environment == "" {
		err = multierror.Append(err, errors.New("Environment must be set"))
	}

	if len(c.Spec.BootstrapAddrs) == 0 {
		err = multierror.Append(
			err,
			errors.New("At least one bootstrap broker address must be set"),
		)
	}

	if _, parseErr := c.ConnTimeout(); parseErr != nil {
		err = multierror.Append(
			err,
			fmt.Errorf("Error parsing connection timeout: %+v", parseErr),
		)
	}

	if c.Spec.SASL.Enabled {
		if _, mechanismErr := admin.SASLNameToMechanism(c.Spec.SASL.Mechanism); mechanismErr != nil {
			err = multierror.Append(err, mechanismErr)
		}
		if c.Spec.SASL.SecretsManagerARN != "" &&
			(c.Spec.SASL.Username != "" || c.Spec.SASL.Password != "") {
			err = multierror.Append(
				err,
				errors.New("SASL username and password cannot be set with a secrets manager ARN"),
			)
		}
	}

	if promErr := c.validatePrometheus(); promErr != nil {
		err = multierror.Append(err, promErr)
	}

	if _, capacityErr := c.Spec.Capacity.Defaults.ToMap(); capacityErr != nil {
		err = multierror.Append(err, capacityErr)
	}
	for id, values := range c.Spec.Capacity.Overrides {
		if _, capacityErr := values.ToMap(); capacityErr != nil {
			err = multierror.Append(
				err,
				fmt.Errorf("Invalid capacity override for broker %d: %w", id, capacityErr),
			)
		}
	}

	if _, goalsErr := c.Goals(); goalsErr != nil {
		err = multierror.Append(err, goalsErr)
	}

	if provisionerErr := c.Spec.Provisioner.Validate(); provisionerErr != nil {
		err = multierror.Append(err, provisionerErr)
	}

	return err
}

func (c ClusterConfig) validatePrometheus() error {
	var err error
	prom := c.Spec.Prometheus

	if prom.Address == "" {
		return nil
	}
	if prom.Cluster == "" || prom.Namespace == "" {
		err = multierror.Append(
			err,
			errors.New("Prometheus cluster and namespace must be set with an address"),
		)
	}
	if prom.NumWindows < 0 {
		err = multierror.Append(err, errors.New("Number of windows cannot be negative"))
	}
	if _, parseErr := c.WindowDuration(); parseErr != nil {
		err = multierror.Append(
			err,
			fmt.Errorf("Error parsing window duration: %+v", parseErr),
		)
	}
	if _, parseErr := c.RateWindow(); parseErr != nil {
		err = multierror.Append(
			err,
			fmt.Errorf("Error parsing rate window: %+v", parseErr),
		)
	}
	return err
}

// ConnTimeout returns the connection timeout, or zero if unset.
func (c ClusterConfig) ConnTimeout() (time.Duration, error) {
	return parseOptionalDuration(c.Spec.ConnTimeoutStr)
}

// WindowDuration returns the duration of each load window, defaulting to 5 minutes.
func (c ClusterConfig) WindowDuration() (time.Duration, error) {
	if c.Spec.Prometheus.WindowDurationStr == "" {
		return 5 * time.Minute, nil
	}
	return time.ParseDuration(c.Spec.Prometheus.WindowDurationStr)
}

// NumWindows returns the number of load windows, defaulting to 5.
func (c ClusterConfig) NumWindows() int {
	if c.Spec.Prometheus.NumWindows == 0 {
		return 5
	}
	return c.Spec.Prometheus.NumWindows
}

// RateWindow returns the range of rate queries, or zero if unset.
func (c ClusterConfig) RateWindow() (time.Duration, error) {
	return parseOptionalDuration(c.Spec.Prometheus.RateWindowStr)
}

// BalancingConstraint returns the goal tunables in the config.
func (c ClusterConfig) BalancingConstraint() (goals.BalancingConstraint, error) {
	constraint := goals.DefaultBalancingConstraint()
	optimizer := c.Spec.Optimizer

	thresholds, err := optimizer.CapacityThresholds.ToMap()
	if err != nil {
		return constraint, err
	}
	constraint.CapacityThresholds = thresholds

	if optimizer.ReplicaBalancePercentage != nil {
		constraint.ReplicaBalancePercentage = *optimizer.ReplicaBalancePercentage
	}
	if optimizer.LeaderReplicaBalancePercentage != nil {
		constraint.LeaderReplicaBalancePercentage = *optimizer.LeaderReplicaBalancePercentage
	}

	return constraint, constraint.Validate()
}

// Goals creates the goals named in the config, or all goals if none are named.
func (c ClusterConfig) Goals() ([]goals.Goal, error) {
	constraint, err := c.BalancingConstraint()
	if err != nil {
		return nil, err
	}

	names := c.Spec.Optimizer.Goals
	if len(names) == 0 {
		names = goals.DefaultGoalNames()
	}
	return goals.GoalsByName(names, constraint)
}

// ToMap converts the set values to a resource map. Values must be non-negative.
func (v ResourceValues) ToMap() (map[model.Resource]float64, error) {
	values := map[model.Resource]float64{}
	var err error

	for resource, value := range map[model.Resource]*float64{
		model.ResourceCPU:        v.CPU,
		model.ResourceNetworkIn:  v.NetworkIn,
		model.ResourceNetworkOut: v.NetworkOut,
		model.ResourceDisk:       v.Disk,
	} {
		if value == nil {
			continue
		}
		if *value < 0 {
			err = multierror.Append(
				err,
				fmt.Errorf("Value for %s cannot be negative", resource),
			)
			continue
		}
		values[resource] = *value
	}

	return values, err
}

// NewAdminClient returns a new admin client using the parameters in the current cluster
// config. SASL credentials in Secrets Manager are fetched with the argument client if
// it's non-nil, or a default client otherwise.
func (c ClusterConfig) NewAdminClient(
	ctx context.Context,
	secretsClient SecretsManagerAPI,
) (admin.Client, error) {
	connTimeout, err := c.ConnTimeout()
	if err != nil {
		return nil, err
	}

	saslConfig, err := c.Spec.SASL.ToAdminConfig(ctx, secretsClient)
	if err != nil {
		return nil, err
	}

	client, err := admin.NewBrokerAdminClient(
		admin.BrokerAdminClientConfig{
			ConnectorConfig: admin.ConnectorConfig{
				BrokerAddr:  c.Spec.BootstrapAddrs[0],
				ConnTimeout: connTimeout,
				TLS: admin.TLSConfig{
					Enabled:    c.Spec.TLS.Enabled,
					CACertPath: c.absPath(c.Spec.TLS.CACertPath),
					CertPath:   c.absPath(c.Spec.TLS.CertPath),
					KeyPath:    c.absPath(c.Spec.TLS.KeyPath),
					ServerName: c.Spec.TLS.ServerName,
					SkipVerify: c.Spec.TLS.SkipVerify,
				},
				SASL: saslConfig,
			},
			IncludeInternal: c.Spec.IncludeInternalTopics,
		},
	)
	if err != nil {
		return nil, err
	}

	if c.Spec.ClusterID != "" {
		clusterID, err := client.GetClusterID(ctx)
		if err != nil {
			client.Close()
			return nil, err
		}
		if clusterID != c.Spec.ClusterID {
			client.Close()
			return nil, fmt.Errorf(
				"Cluster ID %s does not match the expected value %s",
				clusterID,
				c.Spec.ClusterID,
			)
		}
	}

	return client, nil
}

func (c ClusterConfig) absPath(path string) string {
	if path == "" || c.RootDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.RootDir, path)
}

func parseOptionalDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}
