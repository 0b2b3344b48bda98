package subcmd

import (
	"context"

	"github.com/segmentio/balancectl/pkg/cli"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:     "check",
	Short:   "check that the cluster satisfies the configured goals",
	PreRunE: checkPreRun,
	RunE:    checkRun,
}

type checkCmdConfig struct {
	shared sharedOptions
}

var checkConfig checkCmdConfig

func init() {
	addSharedFlags(checkCmd, &checkConfig.shared, true)
	RootCmd.AddCommand(checkCmd)
}

func checkPreRun(cmd *cobra.Command, args []string) error {
	return checkConfig.shared.validate(true)
}

func checkRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	clusterConfig, err := checkConfig.shared.loadClusterConfig()
	if err != nil {
		return err
	}

	adminClient, err := checkConfig.shared.getAdminClient(ctx, clusterConfig)
	if err != nil {
		return err
	}
	if adminClient != nil {
		defer adminClient.Close()
	}

	loader, err := checkConfig.shared.getModelLoader(ctx, clusterConfig, adminClient)
	if err != nil {
		return err
	}

	cliRunner := cli.NewCLIRunner(adminClient, log.Infof, !noSpinner)
	return cliRunner.CheckCluster(ctx, loader, clusterConfig)
}
