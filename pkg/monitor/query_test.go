package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuerySupplier(t *testing.T) {
	supplier, err := NewQuerySupplier("prod", "streaming", 5*time.Minute)
	require.NoError(t, err)

	type testCase struct {
		metricType MetricType
		expected   string
	}

	testCases := []testCase{
		{
			metricType: BrokerCPU,
			expected: `label_replace(sum(rate(container_cpu_usage_seconds_total{namespace="streaming",container="kafka"}[5m])) by (pod), ` +
				`"instance", "$1.kafka-headless.streaming.prod.local:9092", "pod", "(.+)")`,
		},
		{
			metricType: AllTopicBytesIn,
			expected: `label_replace(sum(rate(kafka_server_brokertopicmetrics_bytesinpersec{namespace="streaming",container="kafka",topic=""}[5m])) by (pod), ` +
				`"instance", "$1.kafka-headless.streaming.prod.local:9092", "pod", "(.+)")`,
		},
		{
			metricType: TopicBytesOut,
			expected: `label_replace(sum(rate(kafka_server_brokertopicmetrics_bytesoutpersec{namespace="streaming",container="kafka",topic!=""}[5m])) by (pod,topic), ` +
				`"instance", "$1.kafka-headless.streaming.prod.local:9092", "pod", "(.+)")`,
		},
		{
			metricType: PartitionSize,
			expected: `label_replace(sum(kafka_log_log_size{namespace="streaming",container="kafka",topic!="",partition!=""}) by (pod,topic,partition), ` +
				`"instance", "$1.kafka-headless.streaming.prod.local:9092", "pod", "(.+)")`,
		},
	}

	for _, testCase := range testCases {
		query, err := supplier.Query(testCase.metricType)
		require.NoError(t, err)
		assert.Equal(t, testCase.expected, query, testCase.metricType.String())
	}

	assert.Equal(t, len(AllMetricTypes()), len(supplier.Queries()))
	assert.Equal(
		t,
		"kafka-2.kafka-headless.streaming.prod.local:9092",
		supplier.BrokerAddr("kafka-2"),
	)

	_, err = supplier.Query(MetricType(100))
	assert.Error(t, err)
}

func TestQuerySupplierConfig(t *testing.T) {
	_, err := NewQuerySupplier("", "streaming", time.Minute)
	assert.Error(t, err)
	_, err = NewQuerySupplier("prod", "", time.Minute)
	assert.Error(t, err)

	// Rate windows are rounded up to whole minutes
	supplier, err := NewQuerySupplier("prod", "streaming", 90*time.Second)
	require.NoError(t, err)
	query, err := supplier.Query(BrokerCPU)
	require.NoError(t, err)
	assert.Contains(t, query, "[2m]")

	supplier, err = NewQuerySupplier("prod", "streaming", 0)
	require.NoError(t, err)
	query, err = supplier.Query(BrokerCPU)
	require.NoError(t, err)
	assert.Contains(t, query, "[1m]")
}
