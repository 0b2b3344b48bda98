package monitor

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/segmentio/balancectl/pkg/model"
	log "github.com/sirupsen/logrus"
)

const (
	bytesPerKB = 1000.0
	bytesPerMB = 1000.0 * 1000.0
)

// PodMapper maps the name of a broker pod to its broker id.
type PodMapper interface {
	BrokerID(pod string) (int, error)
}

// OrdinalPodMapper maps statefulset pods (e.g., kafka-3) to broker ids by their ordinal
// plus an offset.
type OrdinalPodMapper struct {
	Offset int
}

var _ PodMapper = OrdinalPodMapper{}

var ordinalRegexp = regexp.MustCompile(`-([0-9]+)$`)

// BrokerID returns the broker id for the argument pod.
func (m OrdinalPodMapper) BrokerID(pod string) (int, error) {
	matches := ordinalRegexp.FindStringSubmatch(pod)
	if matches == nil {
		return 0, fmt.Errorf("Pod name %s does not end with an ordinal", pod)
	}
	ordinal, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, err
	}
	return ordinal + m.Offset, nil
}

// EstimateLoads sets the load of every replica in the model from the argument snapshot.
//
// Disk is the size of the partition on the broker. Network in is the topic's bytes in on
// the broker split evenly across the topic's replicas there, and network out is the
// topic's bytes out split across the topic's leaders there (followers serve no
// consumers). CPU is the broker's CPU split by each replica's share of the broker's
// network traffic, or evenly if the broker has no traffic.
//
// Replicas on brokers without samples get zero load.
func EstimateLoads(
	cm *model.ClusterModel,
	snapshot *MetricSnapshot,
	mapper PodMapper,
) error {
	if len(snapshot.Windows) == 0 {
		return fmt.Errorf("Snapshot has no windows")
	}
	numWindows := len(snapshot.Windows)

	brokerPods := map[int]string{}
	for _, pod := range snapshot.Pods() {
		brokerID, err := mapper.BrokerID(pod)
		if err != nil {
			log.Debugf("Ignoring samples from pod %s: %+v", pod, err)
			continue
		}
		if existing, ok := brokerPods[brokerID]; ok {
			return fmt.Errorf(
				"Pods %s and %s both map to broker %d",
				existing,
				pod,
				brokerID,
			)
		}
		brokerPods[brokerID] = pod
	}

	// The model orders windows most recent first
	windows := reversedInt64s(snapshot.Windows)

	for _, broker := range cm.Brokers() {
		pod, sampled := brokerPods[broker.ID()]
		if !sampled {
			log.Debugf("No samples for broker %d; using zero loads", broker.ID())
		}

		replicas := broker.Replicas()
		topicReplicas := map[string]int{}
		topicLeaders := map[string]int{}
		for _, replica := range replicas {
			topic := replica.TopicPartition().Topic
			topicReplicas[topic]++
			if replica.IsLeader() {
				topicLeaders[topic]++
			}
		}

		replicaValues := make([]model.MetricValues, len(replicas))
		trafficTotals := make([]float64, numWindows)

		for r, replica := range replicas {
			tp := replica.TopicPartition()
			values := model.MetricValues{
				model.ResourceCPU:        make([]float64, numWindows),
				model.ResourceNetworkIn:  make([]float64, numWindows),
				model.ResourceNetworkOut: make([]float64, numWindows),
				model.ResourceDisk:       make([]float64, numWindows),
			}

			if sampled {
				podTopic := PodTopic{Pod: pod, Topic: tp.Topic}
				size := snapshot.PartitionSize[PodPartition{Pod: pod, TopicPartition: tp}]
				bytesIn := snapshot.TopicBytesIn[podTopic]
				bytesOut := snapshot.TopicBytesOut[podTopic]

				for w := 0; w < numWindows; w++ {
					values[model.ResourceDisk][w] = sampleAt(size, w) / bytesPerMB
					values[model.ResourceNetworkIn][w] = sampleAt(bytesIn, w) /
						bytesPerKB / float64(topicReplicas[tp.Topic])
					if replica.IsLeader() {
						values[model.ResourceNetworkOut][w] = sampleAt(bytesOut, w) /
							bytesPerKB / float64(topicLeaders[tp.Topic])
					}
					trafficTotals[w] += values[model.ResourceNetworkIn][w] +
						values[model.ResourceNetworkOut][w]
				}
			}
			replicaValues[r] = values
		}

		if sampled {
			cpu := snapshot.BrokerCPU[pod]
			for r := range replicas {
				values := replicaValues[r]
				for w := 0; w < numWindows; w++ {
					share := 1.0 / float64(len(replicas))
					if trafficTotals[w] > 0 {
						share = (values[model.ResourceNetworkIn][w] +
							values[model.ResourceNetworkOut][w]) / trafficTotals[w]
					}
					values[model.ResourceCPU][w] = sampleAt(cpu, w) * share
				}
			}
		}

		for r, replica := range replicas {
			if err := cm.SetReplicaLoad(
				broker.Rack(),
				broker.ID(),
				replica.TopicPartition(),
				reversedValues(replicaValues[r]),
				windows,
			); err != nil {
				return err
			}
		}
	}

	return nil
}

func sampleAt(values []float64, index int) float64 {
	if index >= len(values) || values[index] < 0 {
		return 0
	}
	return values[index]
}

func reversedInt64s(input []int64) []int64 {
	reversed := make([]int64, len(input))
	for i, value := range input {
		reversed[len(input)-1-i] = value
	}
	return reversed
}

func reversedValues(values model.MetricValues) model.MetricValues {
	reversed := model.MetricValues{}
	for resource, resourceValues := range values {
		reversedResource := make([]float64, len(resourceValues))
		for i, value := range resourceValues {
			reversedResource[len(resourceValues)-1-i] = value
		}
		reversed[resource] = reversedResource
	}
	return reversed
}
