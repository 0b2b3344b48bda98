package admin

import (
	"context"
)

// Client is an interface for reading the state of a cluster.
type Client interface {
	// GetClusterID gets the ID of the cluster.
	GetClusterID(ctx context.Context) (string, error)

	// GetBrokers gets information about all brokers in the cluster, or just the argument ones
	// if ids is non-empty.
	GetBrokers(ctx context.Context, ids []int) ([]BrokerInfo, error)

	// GetBrokerIDs get the IDs of all brokers in the cluster.
	GetBrokerIDs(ctx context.Context) ([]int, error)

	// GetTopics gets the partition placements of each topic in the cluster, or just the
	// argument ones if names is non-empty.
	GetTopics(ctx context.Context, names []string) ([]TopicInfo, error)

	// GetTopicNames gets just the names of each topic in the cluster.
	GetTopicNames(ctx context.Context) ([]string, error)

	// GetTopology gets the brokers and partition placements of the cluster in a single
	// consistent read.
	GetTopology(ctx context.Context) (ClusterTopology, error)

	// GetConnector gets the Connector instance for this cluster.
	GetConnector() *Connector

	// GetBootstrapAddrs gets the addresses used to connect to the cluster.
	GetBootstrapAddrs() []string

	// Close closes the client.
	Close() error
}
