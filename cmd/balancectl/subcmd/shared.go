package subcmd

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/segmentio/balancectl/pkg/admin"
	"github.com/segmentio/balancectl/pkg/cli"
	"github.com/segmentio/balancectl/pkg/config"
	"github.com/segmentio/balancectl/pkg/model"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type sharedOptions struct {
	clusterConfig string
	expandEnv     bool
	saslPassword  string
	saslUsername  string
	snapshot      string
}

func (s sharedOptions) validate(snapshotAllowed bool) error {
	var err error

	if s.clusterConfig == "" && s.snapshot == "" {
		if snapshotAllowed {
			err = multierror.Append(err, errors.New("Must set either cluster-config or snapshot"))
		} else {
			err = multierror.Append(err, errors.New("Must set cluster-config"))
		}
	}
	if s.snapshot != "" && !snapshotAllowed {
		err = multierror.Append(err, errors.New("A snapshot can't be used with this command"))
	}

	if s.clusterConfig != "" {
		clusterConfig, clusterConfigErr := config.LoadClusterFile(s.clusterConfig, s.expandEnv)
		if clusterConfigErr != nil {
			err = multierror.Append(
				err,
				clusterConfigErr,
			)
		} else {
			clusterConfigValidateErr := clusterConfig.Validate()

			if clusterConfigValidateErr != nil {
				err = multierror.Append(
					err,
					clusterConfigValidateErr,
				)
			}
		}
	}

	if s.snapshot != "" && (s.saslUsername != "" || s.saslPassword != "") {
		log.Warn("SASL flags are ignored when using a snapshot")
	}

	return err
}

// loadClusterConfig loads the cluster config, applying the flag overrides. If only a
// snapshot is set, a config with default goals and the snapshot's metadata is returned.
func (s sharedOptions) loadClusterConfig() (config.ClusterConfig, error) {
	if s.clusterConfig == "" {
		snapshot, err := config.LoadSnapshotFile(s.snapshot)
		if err != nil {
			return config.ClusterConfig{}, err
		}
		return config.ClusterConfig{Meta: snapshot.Meta}, nil
	}

	clusterConfig, err := config.LoadClusterFile(s.clusterConfig, s.expandEnv)
	if err != nil {
		return config.ClusterConfig{}, err
	}
	if s.saslUsername != "" {
		clusterConfig.Spec.SASL.Username = s.saslUsername
	}
	if s.saslPassword != "" {
		clusterConfig.Spec.SASL.Password = s.saslPassword
	}
	return clusterConfig, nil
}

// getAdminClient returns nil if a snapshot is used instead of a live cluster.
func (s sharedOptions) getAdminClient(
	ctx context.Context,
	clusterConfig config.ClusterConfig,
) (admin.Client, error) {
	if s.snapshot != "" {
		return nil, nil
	}
	return clusterConfig.NewAdminClient(ctx, nil)
}

// getModelLoader returns a loader that reads the snapshot if one is set, or that samples
// the live cluster otherwise.
func (s sharedOptions) getModelLoader(
	ctx context.Context,
	clusterConfig config.ClusterConfig,
	adminClient admin.Client,
) (cli.ModelLoader, error) {
	if s.snapshot != "" {
		snapshotPath := s.snapshot
		return func(ctx context.Context) (*model.ClusterModel, error) {
			snapshot, err := config.LoadSnapshotFile(snapshotPath)
			if err != nil {
				return nil, err
			}
			return snapshot.ToClusterModel()
		}, nil
	}

	loadMonitor, err := clusterConfig.NewLoadMonitor(ctx, adminClient)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (*model.ClusterModel, error) {
		return loadMonitor.ClusterModel(ctx, time.Now())
	}, nil
}

func addSharedFlags(cmd *cobra.Command, options *sharedOptions, snapshotAllowed bool) {
	cmd.PersistentFlags().StringVar(
		&options.clusterConfig,
		"cluster-config",
		os.Getenv("BALANCECTL_CLUSTER_CONFIG"),
		"Cluster config",
	)
	cmd.PersistentFlags().BoolVarP(
		&options.expandEnv,
		"expand-env",
		"",
		false,
		"Expand environment in cluster config",
	)
	cmd.PersistentFlags().StringVar(
		&options.saslPassword,
		"sasl-password",
		os.Getenv("BALANCECTL_SASL_PASSWORD"),
		"SASL password if using SASL; will override value set in cluster config",
	)
	cmd.PersistentFlags().StringVar(
		&options.saslUsername,
		"sasl-username",
		os.Getenv("BALANCECTL_SASL_USERNAME"),
		"SASL username if using SASL; will override value set in cluster config",
	)
	if snapshotAllowed {
		cmd.PersistentFlags().StringVar(
			&options.snapshot,
			"snapshot",
			"",
			"Cluster snapshot to use instead of sampling the live cluster",
		)
	}
}
