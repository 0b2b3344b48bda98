package util

import (
	"os"
)

// TestKafkaAddr returns a kafka bootstrap address for integration testing purposes.
func TestKafkaAddr() string {
	// Inside docker-compose (i.e., in CI), we need to use a different
	// address
	testKafkaAddr, ok := os.LookupEnv("BALANCECTL_TEST_KAFKA_ADDR")
	if !ok {
		return "localhost:9092"
	}

	return testKafkaAddr
}

// CanTestBrokerAdmin returns whether we can run tests against a live broker.
func CanTestBrokerAdmin() bool {
	value, ok := os.LookupEnv("BALANCECTL_TEST_BROKER_ADMIN")
	if ok && value != "" {
		return true
	}

	return false
}

// TestPrometheusAddr returns a Prometheus address for integration testing purposes.
func TestPrometheusAddr() string {
	testPrometheusAddr, ok := os.LookupEnv("BALANCECTL_TEST_PROMETHEUS_ADDR")
	if !ok {
		return "http://localhost:9090"
	}

	return testPrometheusAddr
}

// CanTestPrometheus returns whether we can run tests against a live Prometheus server.
func CanTestPrometheus() bool {
	value, ok := os.LookupEnv("BALANCECTL_TEST_PROMETHEUS")
	if ok && value != "" {
		return true
	}

	return false
}
