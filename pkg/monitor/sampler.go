package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	promapi "github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	prommodel "github.com/prometheus/common/model"
	"github.com/segmentio/balancectl/pkg/model"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// RangeQuerier is the subset of the Prometheus API used for sampling.
type RangeQuerier interface {
	QueryRange(
		ctx context.Context,
		query string,
		r promv1.Range,
		opts ...promv1.Option,
	) (prommodel.Value, promv1.Warnings, error)
}

var _ RangeQuerier = (promv1.API)(nil)

// NewPrometheusClient creates a Prometheus API client for the argument address.
func NewPrometheusClient(address string) (promv1.API, error) {
	client, err := promapi.NewClient(promapi.Config{Address: address})
	if err != nil {
		return nil, err
	}
	return promv1.NewAPI(client), nil
}

// PodTopic identifies a topic on the broker running in a pod.
type PodTopic struct {
	Pod   string
	Topic string
}

// PodPartition identifies a partition replica on the broker running in a pod.
type PodPartition struct {
	Pod            string
	TopicPartition model.TopicPartition
}

// MetricSnapshot holds the sampled value of each metric, per window. Windows are identified
// by their start time in unix milliseconds, oldest first.
type MetricSnapshot struct {
	Windows []int64

	BrokerCPU      map[string][]float64
	BrokerBytesIn  map[string][]float64
	BrokerBytesOut map[string][]float64
	TopicBytesIn   map[PodTopic][]float64
	TopicBytesOut  map[PodTopic][]float64
	PartitionSize  map[PodPartition][]float64
}

// NewMetricSnapshot returns an empty snapshot for the argument windows.
func NewMetricSnapshot(windows []int64) *MetricSnapshot {
	return &MetricSnapshot{
		Windows:        windows,
		BrokerCPU:      map[string][]float64{},
		BrokerBytesIn:  map[string][]float64{},
		BrokerBytesOut: map[string][]float64{},
		TopicBytesIn:   map[PodTopic][]float64{},
		TopicBytesOut:  map[PodTopic][]float64{},
		PartitionSize:  map[PodPartition][]float64{},
	}
}

// Pods returns the distinct pods that have at least one sample.
func (s *MetricSnapshot) Pods() []string {
	podsMap := map[string]struct{}{}
	for pod := range s.BrokerCPU {
		podsMap[pod] = struct{}{}
	}
	for pod := range s.BrokerBytesIn {
		podsMap[pod] = struct{}{}
	}
	for pod := range s.BrokerBytesOut {
		podsMap[pod] = struct{}{}
	}
	for key := range s.TopicBytesIn {
		podsMap[key.Pod] = struct{}{}
	}
	for key := range s.TopicBytesOut {
		podsMap[key.Pod] = struct{}{}
	}
	for key := range s.PartitionSize {
		podsMap[key.Pod] = struct{}{}
	}

	pods := []string{}
	for pod := range podsMap {
		pods = append(pods, pod)
	}
	sort.Strings(pods)
	return pods
}

// SamplerConfig contains the configuration for a PrometheusSampler.
type SamplerConfig struct {
	NumWindows     int
	WindowDuration time.Duration

	// Step is the resolution of the range queries. It defaults to a quarter of the window.
	Step time.Duration

	// Parallelism bounds the number of concurrent queries. Zero means one per metric type.
	Parallelism int
}

// PrometheusSampler samples broker metrics from Prometheus with range queries and buckets
// them into windows.
type PrometheusSampler struct {
	config   SamplerConfig
	querier  RangeQuerier
	supplier *QuerySupplier
}

// NewPrometheusSampler creates a new PrometheusSampler instance.
func NewPrometheusSampler(
	querier RangeQuerier,
	supplier *QuerySupplier,
	config SamplerConfig,
) (*PrometheusSampler, error) {
	if config.NumWindows <= 0 {
		return nil, errors.New("Number of windows must be positive")
	}
	if config.WindowDuration <= 0 {
		return nil, errors.New("Window duration must be positive")
	}
	if config.Step <= 0 {
		config.Step = config.WindowDuration / 4
		if config.Step < time.Second {
			config.Step = time.Second
		}
	}
	if config.Parallelism <= 0 {
		config.Parallelism = len(AllMetricTypes())
	}

	return &PrometheusSampler{
		config:   config,
		querier:  querier,
		supplier: supplier,
	}, nil
}

// Windows returns the window ids that a sample ending at the argument time covers.
func (s *PrometheusSampler) Windows(end time.Time) []int64 {
	start := s.start(end)
	windows := []int64{}
	for w := 0; w < s.config.NumWindows; w++ {
		windows = append(
			windows,
			start.Add(time.Duration(w)*s.config.WindowDuration).UnixMilli(),
		)
	}
	return windows
}

// Sample queries every metric type over the windows that end at the argument time. Query
// errors are returned unmodified.
func (s *PrometheusSampler) Sample(ctx context.Context, end time.Time) (*MetricSnapshot, error) {
	end = end.Truncate(s.config.WindowDuration)
	start := s.start(end)

	metricTypes := AllMetricTypes()
	matrices := make([]prommodel.Matrix, len(metricTypes))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.config.Parallelism)

	for m, metricType := range metricTypes {
		m := m
		metricType := metricType

		eg.Go(func() error {
			query, err := s.supplier.Query(metricType)
			if err != nil {
				return err
			}

			log.Debugf("Querying %s: %s", metricType, query)
			value, warnings, err := s.querier.QueryRange(
				ctx,
				query,
				promv1.Range{
					Start: start,
					End:   end,
					Step:  s.config.Step,
				},
			)
			if err != nil {
				return err
			}
			for _, warning := range warnings {
				log.Warnf("Warning querying %s: %s", metricType, warning)
			}

			matrix, ok := value.(prommodel.Matrix)
			if !ok {
				return fmt.Errorf(
					"Unexpected result type %s for %s",
					value.Type(),
					metricType,
				)
			}
			matrices[m] = matrix
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	snapshot := NewMetricSnapshot(s.Windows(end))
	for m, metricType := range metricTypes {
		for _, stream := range matrices[m] {
			if err := s.addStream(snapshot, metricType, stream, start); err != nil {
				log.Debugf("Skipping %s series %s: %+v", metricType, stream.Metric, err)
			}
		}
	}

	return snapshot, nil
}

func (s *PrometheusSampler) start(end time.Time) time.Time {
	return end.Add(-time.Duration(s.config.NumWindows) * s.config.WindowDuration)
}

func (s *PrometheusSampler) addStream(
	snapshot *MetricSnapshot,
	metricType MetricType,
	stream *prommodel.SampleStream,
	start time.Time,
) error {
	pod := string(stream.Metric[podLabel])
	if pod == "" {
		return errors.New("Missing pod label")
	}
	values := s.windowValues(stream.Values, start)

	switch metricType {
	case BrokerCPU:
		snapshot.BrokerCPU[pod] = values
	case AllTopicBytesIn:
		snapshot.BrokerBytesIn[pod] = values
	case AllTopicBytesOut:
		snapshot.BrokerBytesOut[pod] = values
	case TopicBytesIn, TopicBytesOut:
		topic := string(stream.Metric["topic"])
		if topic == "" {
			return errors.New("Missing topic label")
		}
		key := PodTopic{Pod: pod, Topic: topic}
		if metricType == TopicBytesIn {
			snapshot.TopicBytesIn[key] = values
		} else {
			snapshot.TopicBytesOut[key] = values
		}
	case PartitionSize:
		topic := string(stream.Metric["topic"])
		partition, err := strconv.Atoi(string(stream.Metric["partition"]))
		if topic == "" || err != nil {
			return errors.New("Missing or invalid topic and partition labels")
		}
		key := PodPartition{
			Pod:            pod,
			TopicPartition: model.TopicPartition{Topic: topic, Partition: partition},
		}
		snapshot.PartitionSize[key] = values
	}

	return nil
}

// windowValues averages the points that fall in each window. A point at time t describes
// the period just before it, so it belongs to the window that ends at or after t.
func (s *PrometheusSampler) windowValues(
	pairs []prommodel.SamplePair,
	start time.Time,
) []float64 {
	sums := make([]float64, s.config.NumWindows)
	counts := make([]int, s.config.NumWindows)
	windowMillis := s.config.WindowDuration.Milliseconds()
	startMillis := start.UnixMilli()

	for _, pair := range pairs {
		offset := int64(pair.Timestamp) - startMillis
		if offset <= 0 || math.IsNaN(float64(pair.Value)) {
			continue
		}
		w := int((offset - 1) / windowMillis)
		if w >= s.config.NumWindows {
			w = s.config.NumWindows - 1
		}
		sums[w] += float64(pair.Value)
		counts[w]++
	}

	for w := range sums {
		if counts[w] > 0 {
			sums[w] /= float64(counts[w])
		}
	}
	return sums
}
