package admin

import (
	"context"
	"sort"
	"strconv"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// BrokerAdminClientConfig contains the configuration for a BrokerAdminClient.
type BrokerAdminClientConfig struct {
	ConnectorConfig

	// IncludeInternal controls whether internal topics (e.g., __consumer_offsets) are
	// returned.
	IncludeInternal bool
}

// BrokerAdminClient is a Client implementation that uses the Kafka metadata and config
// APIs.
type BrokerAdminClient struct {
	config    BrokerAdminClientConfig
	connector *Connector
	client    *kafka.Client
}

var _ Client = (*BrokerAdminClient)(nil)

// NewBrokerAdminClient constructs a new BrokerAdminClient instance.
func NewBrokerAdminClient(config BrokerAdminClientConfig) (*BrokerAdminClient, error) {
	connector, err := NewConnector(config.ConnectorConfig)
	if err != nil {
		return nil, err
	}

	return &BrokerAdminClient{
		config:    config,
		connector: connector,
		client:    connector.KafkaClient,
	}, nil
}

// GetClusterID gets the ID of the cluster.
func (c *BrokerAdminClient) GetClusterID(ctx context.Context) (string, error) {
	resp, err := c.client.Metadata(ctx, &kafka.MetadataRequest{Topics: []string{}})
	if err != nil {
		return "", err
	}
	return resp.ClusterID, nil
}

// GetBrokers gets information about the brokers in the cluster, including their configs.
func (c *BrokerAdminClient) GetBrokers(ctx context.Context, ids []int) ([]BrokerInfo, error) {
	resp, err := c.client.Metadata(ctx, &kafka.MetadataRequest{Topics: []string{}})
	if err != nil {
		return nil, err
	}

	brokers := filterBrokers(metadataBrokers(resp), ids)
	if err := c.addBrokerConfigs(ctx, brokers); err != nil {
		return nil, err
	}
	return brokers, nil
}

// GetBrokerIDs get the IDs of all brokers in the cluster.
func (c *BrokerAdminClient) GetBrokerIDs(ctx context.Context) ([]int, error) {
	resp, err := c.client.Metadata(ctx, &kafka.MetadataRequest{Topics: []string{}})
	if err != nil {
		return nil, err
	}
	return BrokerIDs(metadataBrokers(resp)), nil
}

// GetTopics gets the partition placements of topics in the cluster.
func (c *BrokerAdminClient) GetTopics(ctx context.Context, names []string) ([]TopicInfo, error) {
	var topicNames []string
	if len(names) > 0 {
		topicNames = names
	}

	resp, err := c.client.Metadata(ctx, &kafka.MetadataRequest{Topics: topicNames})
	if err != nil {
		return nil, err
	}
	return metadataTopics(resp, c.config.IncludeInternal), nil
}

// GetTopicNames gets just the names of each topic in the cluster.
func (c *BrokerAdminClient) GetTopicNames(ctx context.Context) ([]string, error) {
	topics, err := c.GetTopics(ctx, nil)
	if err != nil {
		return nil, err
	}

	topicNames := []string{}
	for _, topic := range topics {
		topicNames = append(topicNames, topic.Name)
	}
	return topicNames, nil
}

// GetTopology gets the brokers and partition placements of the cluster from a single
// metadata response.
func (c *BrokerAdminClient) GetTopology(ctx context.Context) (ClusterTopology, error) {
	resp, err := c.client.Metadata(ctx, &kafka.MetadataRequest{})
	if err != nil {
		return ClusterTopology{}, err
	}

	topology := metadataToTopology(resp, c.config.IncludeInternal)
	if err := c.addBrokerConfigs(ctx, topology.Brokers); err != nil {
		return ClusterTopology{}, err
	}

	log.Debugf(
		"Got topology with %d brokers, %d topics, and %d partitions",
		len(topology.Brokers),
		len(topology.Topics),
		topology.NumPartitions(),
	)
	return topology, nil
}

// GetConnector gets the Connector instance for this cluster.
func (c *BrokerAdminClient) GetConnector() *Connector {
	return c.connector
}

// GetBootstrapAddrs gets the addresses used to connect to the cluster.
func (c *BrokerAdminClient) GetBootstrapAddrs() []string {
	return []string{c.config.BrokerAddr}
}

// Close closes the client.
func (c *BrokerAdminClient) Close() error {
	if transport, ok := c.client.Transport.(*kafka.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}

// addBrokerConfigs fills in the log directory configs of the argument brokers. Per-broker
// errors are logged and skipped.
func (c *BrokerAdminClient) addBrokerConfigs(ctx context.Context, brokers []BrokerInfo) error {
	if len(brokers) == 0 {
		return nil
	}

	resources := []kafka.DescribeConfigRequestResource{}
	for _, broker := range brokers {
		resources = append(
			resources,
			kafka.DescribeConfigRequestResource{
				ResourceType: kafka.ResourceTypeBroker,
				ResourceName: strconv.Itoa(broker.ID),
				ConfigNames:  []string{LogDirsKey, LogDirKey},
			},
		)
	}

	resp, err := c.client.DescribeConfigs(
		ctx,
		&kafka.DescribeConfigsRequest{
			Resources: resources,
		},
	)
	if err != nil {
		return err
	}

	configs := map[string]map[string]string{}
	for _, resource := range resp.Resources {
		if resource.Error != nil {
			log.Warnf(
				"Error getting configs for broker %s: %+v",
				resource.ResourceName,
				resource.Error,
			)
			continue
		}
		brokerConfig := map[string]string{}
		for _, entry := range resource.ConfigEntries {
			brokerConfig[entry.ConfigName] = entry.ConfigValue
		}
		configs[resource.ResourceName] = brokerConfig
	}

	for b := range brokers {
		if brokerConfig, ok := configs[strconv.Itoa(brokers[b].ID)]; ok {
			brokers[b].Config = brokerConfig
		}
	}
	return nil
}

func metadataToTopology(resp *kafka.MetadataResponse, includeInternal bool) ClusterTopology {
	return ClusterTopology{
		ClusterID:    resp.ClusterID,
		ControllerID: resp.Controller.ID,
		Brokers:      metadataBrokers(resp),
		Topics:       metadataTopics(resp, includeInternal),
	}
}

func metadataBrokers(resp *kafka.MetadataResponse) []BrokerInfo {
	brokers := []BrokerInfo{}
	for _, broker := range resp.Brokers {
		brokers = append(
			brokers,
			BrokerInfo{
				ID:   broker.ID,
				Host: broker.Host,
				Port: int32(broker.Port),
				Rack: broker.Rack,
			},
		)
	}

	sort.Slice(brokers, func(a, b int) bool {
		return brokers[a].ID < brokers[b].ID
	})
	return brokers
}

func metadataTopics(resp *kafka.MetadataResponse, includeInternal bool) []TopicInfo {
	topics := []TopicInfo{}

	for _, topic := range resp.Topics {
		if topic.Error != nil {
			log.Warnf("Skipping topic %s: %+v", topic.Name, topic.Error)
			continue
		}
		if topic.Internal && !includeInternal {
			continue
		}

		partitions := []PartitionInfo{}
		for _, partition := range topic.Partitions {
			leader := -1
			if partition.Leader.Host != "" || partition.Leader.ID > 0 {
				leader = partition.Leader.ID
			}
			partitions = append(
				partitions,
				PartitionInfo{
					Topic:           topic.Name,
					ID:              partition.ID,
					Leader:          leader,
					Replicas:        brokerIDs(partition.Replicas),
					ISR:             brokerIDs(partition.Isr),
					OfflineReplicas: brokerIDs(partition.OfflineReplicas),
				},
			)
		}
		sort.Slice(partitions, func(a, b int) bool {
			return partitions[a].ID < partitions[b].ID
		})

		topics = append(
			topics,
			TopicInfo{
				Name:       topic.Name,
				Internal:   topic.Internal,
				Partitions: partitions,
			},
		)
	}

	sort.Slice(topics, func(a, b int) bool {
		return topics[a].Name < topics[b].Name
	})
	return topics
}

func filterBrokers(brokers []BrokerInfo, ids []int) []BrokerInfo {
	if len(ids) == 0 {
		return brokers
	}

	idsMap := map[int]struct{}{}
	for _, id := range ids {
		idsMap[id] = struct{}{}
	}

	filtered := []BrokerInfo{}
	for _, broker := range brokers {
		if _, ok := idsMap[broker.ID]; ok {
			filtered = append(filtered, broker)
		}
	}
	return filtered
}

func brokerIDs(brokers []kafka.Broker) []int {
	ids := []int{}
	for _, broker := range brokers {
		ids = append(ids, broker.ID)
	}
	return ids
}
