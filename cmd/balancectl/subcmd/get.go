package subcmd

import (
	"context"
	"errors"
	"strings"

	"github.com/segmentio/balancectl/pkg/admin"
	"github.com/segmentio/balancectl/pkg/cli"
	"github.com/segmentio/balancectl/pkg/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get [resource type]",
	Short: "get instances of a particular type",
	Long: strings.Join(
		[]string{
			"Get instances of a particular type.",
		},
		"\n",
	),
	PersistentPreRunE: getPreRun,
}

type getCmdConfig struct {
	shared sharedOptions
}

var getConfig getCmdConfig

func init() {
	addSharedFlags(getCmd, &getConfig.shared, true)
	getCmd.AddCommand(
		brokersCmd(),
		loadsCmd(),
		topologyCmd(),
	)
	RootCmd.AddCommand(getCmd)
}

func getPreRun(cmd *cobra.Command, args []string) error {
	if err := preRun(cmd, args); err != nil {
		return err
	}
	return getConfig.shared.validate(true)
}

type getRunner struct {
	adminClient   admin.Client
	cliRunner     *cli.CLIRunner
	clusterConfig config.ClusterConfig
	close         func()
}

func getCliRunnerAndCtx() (context.Context, getRunner, error) {
	ctx := context.Background()

	clusterConfig, err := getConfig.shared.loadClusterConfig()
	if err != nil {
		return nil, getRunner{}, err
	}

	adminClient, err := getConfig.shared.getAdminClient(ctx, clusterConfig)
	if err != nil {
		return nil, getRunner{}, err
	}

	runner := getRunner{
		adminClient:   adminClient,
		cliRunner:     cli.NewCLIRunner(adminClient, log.Infof, !noSpinner),
		clusterConfig: clusterConfig,
		close:         func() {},
	}
	if adminClient != nil {
		runner.close = func() { adminClient.Close() }
	}
	return ctx, runner, nil
}

func brokersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "brokers",
		Short: "Displays descriptions of each broker in the cluster.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if getConfig.shared.snapshot != "" {
				return errors.New("Brokers can't be listed from a snapshot; use get loads instead")
			}

			ctx, runner, err := getCliRunnerAndCtx()
			if err != nil {
				return err
			}
			defer runner.close()

			return runner.cliRunner.GetBrokers(ctx)
		},
	}
}

func topologyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topology",
		Short: "Displays the number of replicas and leaders on each broker.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if getConfig.shared.snapshot != "" {
				return errors.New("The topology can't be read from a snapshot; use get loads instead")
			}

			ctx, runner, err := getCliRunnerAndCtx()
			if err != nil {
				return err
			}
			defer runner.close()

			return runner.cliRunner.GetTopology(ctx, runner.clusterConfig.Spec.ExcludedTopics)
		},
	}
}

func loadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loads",
		Short: "Displays the peak load of each broker relative to its capacity.",
		Long: strings.Join(
			[]string{
				"Displays the peak load of each broker relative to its capacity.",
				"Loads are sampled from Prometheus unless a snapshot is set.",
			},
			"\n",
		),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, runner, err := getCliRunnerAndCtx()
			if err != nil {
				return err
			}
			defer runner.close()

			loader, err := getConfig.shared.getModelLoader(
				ctx,
				runner.clusterConfig,
				runner.adminClient,
			)
			if err != nil {
				return err
			}
			return runner.cliRunner.GetLoads(ctx, loader)
		},
	}
}
