package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/segmentio/balancectl/pkg/admin"
	"github.com/segmentio/balancectl/pkg/analyzer"
	"github.com/segmentio/balancectl/pkg/check"
	"github.com/segmentio/balancectl/pkg/config"
	"github.com/segmentio/balancectl/pkg/model"
	log "github.com/sirupsen/logrus"
)

const (
	spinnerCharSet  = 36
	spinnerDuration = 200 * time.Millisecond
)

// ModelLoader produces the cluster model that a command operates on, either from the live
// cluster or from a snapshot.
type ModelLoader func(ctx context.Context) (*model.ClusterModel, error)

// CLIRunner runs the balancectl commands and prints their output.
type CLIRunner struct {
	adminClient admin.Client
	printer     func(f string, a ...interface{})
	spinnerObj  *spinner.Spinner
}

// NewCLIRunner creates a new CLIRunner. The admin client can be nil if the commands that
// need it aren't run.
func NewCLIRunner(
	adminClient admin.Client,
	printer func(f string, a ...interface{}),
	showSpinner bool,
) *CLIRunner {
	var spinnerObj *spinner.Spinner

	if showSpinner {
		spinnerObj = spinner.New(
			spinner.CharSets[spinnerCharSet],
			spinnerDuration,
			spinner.WithWriter(os.Stderr),
			spinner.WithHiddenCursor(true),
		)
		spinnerObj.Prefix = "Loading: "
	}

	return &CLIRunner{
		adminClient: adminClient,
		printer:     printer,
		spinnerObj:  spinnerObj,
	}
}

// GetBrokers prints the brokers in the cluster.
func (c *CLIRunner) GetBrokers(ctx context.Context) error {
	if c.adminClient == nil {
		return errors.New("Getting brokers requires a cluster connection")
	}

	c.startSpinner()
	topology, err := c.adminClient.GetTopology(ctx)
	c.stopSpinner()
	if err != nil {
		return err
	}

	c.printer("Brokers:\n%s", admin.FormatBrokers(topology.Brokers, topology.ControllerID))
	c.printer("Brokers per rack:\n%s", admin.FormatBrokersPerRack(topology.Brokers))

	return nil
}

// GetTopology prints the replica and leader counts of each broker.
func (c *CLIRunner) GetTopology(ctx context.Context, excludedTopics []string) error {
	if c.adminClient == nil {
		return errors.New("Getting the topology requires a cluster connection")
	}

	c.startSpinner()
	topology, err := c.adminClient.GetTopology(ctx)
	c.stopSpinner()
	if err != nil {
		return err
	}

	topology = topology.WithoutTopics(excludedTopics)
	c.printer(
		"Topology (%d topics, %d partitions, %d replicas):\n%s",
		len(topology.Topics),
		topology.NumPartitions(),
		topology.NumReplicas(),
		admin.FormatTopology(topology),
	)
	if offline := topology.OfflineBrokerIDs(); len(offline) > 0 {
		log.Warnf("Brokers %v host replicas but are not in the cluster metadata", offline)
	}

	return nil
}

// GetLoads prints the peak load of each broker in the model.
func (c *CLIRunner) GetLoads(ctx context.Context, loader ModelLoader) error {
	cm, err := c.loadModel(ctx, loader)
	if err != nil {
		return err
	}

	c.printer(
		"Broker loads over %d windows:\n%s",
		len(cm.Windows()),
		model.FormatBrokerLoads(cm),
	)
	return nil
}

// CheckCluster runs the cluster checks and prints the results. It returns an error if any
// check fails.
func (c *CLIRunner) CheckCluster(
	ctx context.Context,
	loader ModelLoader,
	clusterConfig config.ClusterConfig,
) error {
	cm, err := c.loadModel(ctx, loader)
	if err != nil {
		return err
	}

	checkGoals, err := clusterConfig.Goals()
	if err != nil {
		return err
	}
	constraint, err := clusterConfig.BalancingConstraint()
	if err != nil {
		return err
	}

	results := check.CheckCluster(
		check.CheckConfig{
			ClusterModel: cm,
			Goals:        checkGoals,
			Constraint:   constraint,
		},
	)
	c.printer("Check results:\n%s", check.FormatResults(results))

	if !results.AllOK() {
		return errors.New("Cluster check failed")
	}
	return nil
}

// Optimize runs the optimizer against the model and prints the result. The broker loads
// before and after the run are printed too.
func (c *CLIRunner) Optimize(
	ctx context.Context,
	loader ModelLoader,
	optimizer *analyzer.Optimizer,
) (*analyzer.Result, error) {
	cm, err := c.loadModel(ctx, loader)
	if err != nil {
		return nil, err
	}

	c.printer("Initial broker loads:\n%s", model.FormatBrokerLoads(cm))

	result, err := optimizer.Optimize(ctx, cm)
	if result != nil {
		c.printer("Optimization result:\n%s", analyzer.FormatResult(result))
	}
	if err != nil {
		return result, err
	}

	if len(result.Proposals) > 0 {
		c.printer("Proposed broker loads:\n%s", model.FormatBrokerLoads(cm))
	}
	if result.Status != analyzer.StatusCompleted {
		return result, fmt.Errorf("Optimization did not complete cleanly: %s", result.Message)
	}
	return result, nil
}

// Snapshot writes the model to the argument path so it can be optimized offline.
func (c *CLIRunner) Snapshot(
	ctx context.Context,
	loader ModelLoader,
	meta config.ClusterMeta,
	path string,
) error {
	cm, err := c.loadModel(ctx, loader)
	if err != nil {
		return err
	}

	snapshot, err := config.SnapshotFromModel(meta, cm)
	if err != nil {
		return err
	}
	if err := config.WriteSnapshotFile(path, snapshot); err != nil {
		return err
	}

	c.printer(
		"Wrote snapshot of %d brokers and %d partitions to %s",
		len(snapshot.Spec.Brokers),
		len(snapshot.Spec.Partitions),
		path,
	)
	return nil
}

func (c *CLIRunner) loadModel(ctx context.Context, loader ModelLoader) (*model.ClusterModel, error) {
	c.startSpinner()
	cm, err := loader(ctx)
	c.stopSpinner()
	if err != nil {
		return nil, err
	}

	log.Debugf(
		"Loaded model with %d brokers, %d partitions, and %d windows",
		len(cm.Brokers()),
		len(cm.TopicPartitions()),
		len(cm.Windows()),
	)
	return cm, nil
}

func (c *CLIRunner) startSpinner() {
	if c.spinnerObj != nil {
		c.spinnerObj.Start()
	}
}

func (c *CLIRunner) stopSpinner() {
	if c.spinnerObj != nil {
		c.spinnerObj.Stop()
	}
}
