package monitor

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// MetricType is a raw metric that's sampled from Prometheus.
type MetricType int

const (
	// BrokerCPU is the CPU used by a broker container, in cores.
	BrokerCPU MetricType = iota

	// AllTopicBytesIn is the bytes per second produced to a broker across all topics.
	AllTopicBytesIn

	// AllTopicBytesOut is the bytes per second fetched from a broker across all topics.
	AllTopicBytesOut

	// TopicBytesIn is the bytes per second produced to each topic on a broker.
	TopicBytesIn

	// TopicBytesOut is the bytes per second fetched from each topic on a broker.
	TopicBytesOut

	// PartitionSize is the size of each partition log on a broker, in bytes.
	PartitionSize
)

var metricTypeNames = map[MetricType]string{
	BrokerCPU:        "BROKER_CPU_UTIL",
	AllTopicBytesIn:  "ALL_TOPIC_BYTES_IN",
	AllTopicBytesOut: "ALL_TOPIC_BYTES_OUT",
	TopicBytesIn:     "TOPIC_BYTES_IN",
	TopicBytesOut:    "TOPIC_BYTES_OUT",
	PartitionSize:    "PARTITION_SIZE",
}

func (m MetricType) String() string {
	name, ok := metricTypeNames[m]
	if !ok {
		return fmt.Sprintf("METRIC(%d)", int(m))
	}
	return name
}

// AllMetricTypes returns every metric type in a stable order.
func AllMetricTypes() []MetricType {
	return []MetricType{
		BrokerCPU,
		AllTopicBytesIn,
		AllTopicBytesOut,
		TopicBytesIn,
		TopicBytesOut,
		PartitionSize,
	}
}

const (
	// DefaultRateWindow is the range used in rate queries if none is configured.
	DefaultRateWindow = time.Minute

	kafkaContainer = "kafka"
	podLabel       = "pod"
)

type label struct {
	key   string
	op    string
	value string
}

func labelOf(key string, value string) label {
	return label{key: key, op: "=", value: value}
}

func labelExists(key string) label {
	return label{key: key, op: "!=", value: ""}
}

func labelMissing(key string) label {
	return label{key: key, op: "=", value: ""}
}

func (l label) build() string {
	return fmt.Sprintf(`%s%s"%s"`, l.key, l.op, l.value)
}

// QuerySupplier builds PromQL queries for brokers running as pods of a Kubernetes
// StatefulSet. Each query is summed by pod and relabeled with the broker's headless service
// address as its instance.
type QuerySupplier struct {
	cluster    string
	namespace  string
	rateWindow time.Duration
}

// NewQuerySupplier creates a new QuerySupplier instance. The cluster and namespace are used
// to select series and to build broker addresses.
func NewQuerySupplier(
	cluster string,
	namespace string,
	rateWindow time.Duration,
) (*QuerySupplier, error) {
	if cluster == "" {
		return nil, errors.New("Missing required query setting: cluster")
	}
	if namespace == "" {
		return nil, errors.New("Missing required query setting: namespace")
	}
	if rateWindow <= 0 {
		rateWindow = DefaultRateWindow
	}

	return &QuerySupplier{
		cluster:    cluster,
		namespace:  namespace,
		rateWindow: rateWindow,
	}, nil
}

// Query returns the PromQL query for the argument metric type.
func (q *QuerySupplier) Query(metricType MetricType) (string, error) {
	var query string

	switch metricType {
	case BrokerCPU:
		query = q.rateQuery("container_cpu_usage_seconds_total", nil, nil)
	case AllTopicBytesIn:
		query = q.rateQuery(
			"kafka_server_brokertopicmetrics_bytesinpersec",
			[]label{labelMissing("topic")},
			nil,
		)
	case AllTopicBytesOut:
		query = q.rateQuery(
			"kafka_server_brokertopicmetrics_bytesoutpersec",
			[]label{labelMissing("topic")},
			nil,
		)
	case TopicBytesIn:
		query = q.rateQuery(
			"kafka_server_brokertopicmetrics_bytesinpersec",
			[]label{labelExists("topic")},
			[]string{"topic"},
		)
	case TopicBytesOut:
		query = q.rateQuery(
			"kafka_server_brokertopicmetrics_bytesoutpersec",
			[]label{labelExists("topic")},
			[]string{"topic"},
		)
	case PartitionSize:
		query = q.gaugeQuery(
			"kafka_log_log_size",
			[]label{labelExists("topic"), labelExists("partition")},
			[]string{"topic", "partition"},
		)
	default:
		return "", fmt.Errorf("Unrecognized metric type %s", metricType)
	}

	return q.withInstance(query), nil
}

// Queries returns the queries for all metric types.
func (q *QuerySupplier) Queries() map[MetricType]string {
	queries := map[MetricType]string{}
	for _, metricType := range AllMetricTypes() {
		query, _ := q.Query(metricType)
		queries[metricType] = query
	}
	return queries
}

// BrokerAddr returns the headless-service address of the broker running in the argument
// pod.
func (q *QuerySupplier) BrokerAddr(pod string) string {
	return fmt.Sprintf("%s.kafka-headless.%s.%s.local:9092", pod, q.namespace, q.cluster)
}

func (q *QuerySupplier) gaugeQuery(metric string, labels []label, groupBys []string) string {
	return fmt.Sprintf(
		"sum(%s{%s}) by (%s)",
		metric,
		q.labels(labels),
		groupBy(groupBys),
	)
}

func (q *QuerySupplier) rateQuery(metric string, labels []label, groupBys []string) string {
	return fmt.Sprintf(
		"sum(rate(%s{%s}[%dm])) by (%s)",
		metric,
		q.labels(labels),
		rateMinutes(q.rateWindow),
		groupBy(groupBys),
	)
}

func (q *QuerySupplier) labels(additional []label) string {
	labels := []label{
		labelOf("namespace", q.namespace),
		labelOf("container", kafkaContainer),
	}
	labels = append(labels, additional...)

	built := []string{}
	for _, l := range labels {
		built = append(built, l.build())
	}
	return strings.Join(built, ",")
}

func (q *QuerySupplier) withInstance(query string) string {
	return fmt.Sprintf(
		`label_replace(%s, "instance", "$1.kafka-headless.%s.%s.local:9092", "%s", "(.+)")`,
		query,
		q.namespace,
		q.cluster,
		podLabel,
	)
}

func groupBy(additional []string) string {
	return strings.Join(append([]string{podLabel}, additional...), ",")
}

func rateMinutes(window time.Duration) int {
	minutes := int(math.Ceil(window.Minutes()))
	if minutes < 1 {
		return 1
	}
	return minutes
}
