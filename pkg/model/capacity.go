package model

import (
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"
)

// BrokerCapacity stores the resource ceilings of a single broker. It's immutable once
// constructed; the accessors never expose the underlying maps.
type BrokerCapacity struct {
	capacity       map[Resource]float64
	diskByLogdir   map[string]float64
	numCPUCores    int
	estimated      bool
	estimationInfo string
}

// NewBrokerCapacity creates a BrokerCapacity from a resource -> ceiling mapping and optional
// per-logdir disk capacities. If logdir capacities are set, the disk ceiling is their sum.
func NewBrokerCapacity(
	capacity map[Resource]float64,
	diskByLogdir map[string]float64,
) (BrokerCapacity, error) {
	var err error

	copied := map[Resource]float64{}
	for _, resource := range AllResources() {
		value, ok := capacity[resource]
		if !ok && !(resource == ResourceDisk && len(diskByLogdir) > 0) {
			err = multierror.Append(
				err,
				fmt.Errorf("Capacity for %s must be set", resource),
			)
			continue
		}
		if value < 0 || math.IsNaN(value) {
			err = multierror.Append(
				err,
				fmt.Errorf("Capacity for %s must be non-negative, got %f", resource, value),
			)
		}
		copied[resource] = value
	}

	logdirs := map[string]float64{}
	var logdirTotal float64
	for logdir, value := range diskByLogdir {
		if value < 0 {
			err = multierror.Append(
				err,
				fmt.Errorf("Capacity for logdir %s must be non-negative, got %f", logdir, value),
			)
		}
		logdirs[logdir] = value
		logdirTotal += value
	}

	if len(logdirs) > 0 {
		if diskValue, ok := capacity[ResourceDisk]; ok && math.Abs(diskValue-logdirTotal) > 1e-6 {
			err = multierror.Append(
				err,
				fmt.Errorf(
					"Disk capacity %f does not match sum of logdir capacities %f",
					diskValue,
					logdirTotal,
				),
			)
		}
		copied[ResourceDisk] = logdirTotal
	}

	if err != nil {
		return BrokerCapacity{}, err
	}

	return BrokerCapacity{
		capacity:     copied,
		diskByLogdir: logdirs,
		numCPUCores:  int(math.Ceil(copied[ResourceCPU])),
	}, nil
}

// MustBrokerCapacity is like NewBrokerCapacity, but panics on error. Used for static
// capacities in tests.
func MustBrokerCapacity(capacity map[Resource]float64) BrokerCapacity {
	brokerCapacity, err := NewBrokerCapacity(capacity, nil)
	if err != nil {
		panic(err)
	}
	return brokerCapacity
}

// WithEstimation returns a copy of the capacity flagged as estimated, along with a
// description of how the estimate was derived.
func (c BrokerCapacity) WithEstimation(info string) BrokerCapacity {
	c.estimated = true
	c.estimationInfo = info
	return c
}

// Get returns the ceiling for the argument resource.
func (c BrokerCapacity) Get(resource Resource) float64 {
	return c.capacity[resource]
}

// DiskByLogdir returns the capacity of the argument logdir and whether it's declared.
func (c BrokerCapacity) DiskByLogdir(logdir string) (float64, bool) {
	value, ok := c.diskByLogdir[logdir]
	return value, ok
}

// Logdirs returns the names of the logdirs with declared capacities.
func (c BrokerCapacity) Logdirs() []string {
	logdirs := []string{}
	for logdir := range c.diskByLogdir {
		logdirs = append(logdirs, logdir)
	}
	return sortedStrings(logdirs)
}

// NumCPUCores returns the number of cores implied by the CPU capacity.
func (c BrokerCapacity) NumCPUCores() int {
	return c.numCPUCores
}

// Estimated returns whether the capacity was estimated rather than declared.
func (c BrokerCapacity) Estimated() bool {
	return c.estimated
}

// EstimationInfo describes how an estimated capacity was derived.
func (c BrokerCapacity) EstimationInfo() string {
	return c.estimationInfo
}

// IsZero returns whether this is the zero value (i.e., never initialized).
func (c BrokerCapacity) IsZero() bool {
	return c.capacity == nil
}
