package subcmd

import (
	"context"
	"errors"

	"github.com/segmentio/balancectl/pkg/cli"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:     "snapshot [output path]",
	Short:   "write the sampled cluster model to a snapshot file",
	Args:    cobra.ExactArgs(1),
	PreRunE: snapshotPreRun,
	RunE:    snapshotRun,
}

type snapshotCmdConfig struct {
	shared sharedOptions
}

var snapshotConfig snapshotCmdConfig

func init() {
	addSharedFlags(snapshotCmd, &snapshotConfig.shared, false)
	RootCmd.AddCommand(snapshotCmd)
}

func snapshotPreRun(cmd *cobra.Command, args []string) error {
	return snapshotConfig.shared.validate(false)
}

func snapshotRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	clusterConfig, err := snapshotConfig.shared.loadClusterConfig()
	if err != nil {
		return err
	}

	adminClient, err := snapshotConfig.shared.getAdminClient(ctx, clusterConfig)
	if err != nil {
		return err
	}
	if adminClient == nil {
		return errors.New("Snapshots require a cluster connection")
	}
	defer adminClient.Close()

	loader, err := snapshotConfig.shared.getModelLoader(ctx, clusterConfig, adminClient)
	if err != nil {
		return err
	}

	cliRunner := cli.NewCLIRunner(adminClient, log.Infof, !noSpinner)
	return cliRunner.Snapshot(ctx, loader, clusterConfig.Meta, args[0])
}
