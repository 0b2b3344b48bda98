package subcmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/balancectl/pkg/cli"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:     "optimize",
	Short:   "propose replica placements that satisfy the configured goals",
	PreRunE: optimizePreRun,
	RunE:    optimizeRun,
}

type optimizeCmdConfig struct {
	dryRun bool

	shared sharedOptions
}

var optimizeConfig optimizeCmdConfig

func init() {
	optimizeCmd.Flags().BoolVar(
		&optimizeConfig.dryRun,
		"dry-run",
		false,
		"Log provisioning recommendations instead of acting on them",
	)

	addSharedFlags(optimizeCmd, &optimizeConfig.shared, true)
	RootCmd.AddCommand(optimizeCmd)
}

func optimizePreRun(cmd *cobra.Command, args []string) error {
	return optimizeConfig.shared.validate(true)
}

func optimizeRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		// The optimizer restores the model and returns at the next goal boundary
		<-sigChan
		log.Warn("Interrupted; stopping optimization")
		cancel()
	}()

	clusterConfig, err := optimizeConfig.shared.loadClusterConfig()
	if err != nil {
		return err
	}

	adminClient, err := optimizeConfig.shared.getAdminClient(ctx, clusterConfig)
	if err != nil {
		return err
	}
	if adminClient != nil {
		defer adminClient.Close()
	}

	loader, err := optimizeConfig.shared.getModelLoader(ctx, clusterConfig, adminClient)
	if err != nil {
		return err
	}

	provisioner, err := clusterConfig.NewProvisioner(optimizeConfig.dryRun)
	if err != nil {
		return err
	}
	optimizer, err := clusterConfig.NewOptimizer(provisioner)
	if err != nil {
		return err
	}

	log.Infof(
		"Optimizing cluster %s in environment %s with %d goals",
		clusterConfig.Meta.Name,
		clusterConfig.Meta.Environment,
		len(optimizer.Goals()),
	)

	cliRunner := cli.NewCLIRunner(adminClient, log.Infof, !noSpinner)
	_, err = cliRunner.Optimize(ctx, loader, optimizer)
	return err
}
