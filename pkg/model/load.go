package model

import (
	"fmt"
	"math"
)

// MetricValues maps each resource to its aggregated values, one per window. It's the
// input format used when setting replica loads.
type MetricValues map[Resource][]float64

// Load is a windowed snapshot of resource consumption. The windows are ordered (most recent
// first) and every resource has exactly one value per window.
//
// A nil *Load is valid and reads as zero everywhere.
type Load struct {
	windows []int64
	values  map[Resource][]float64
}

// NewLoad creates a Load from the argument values. Each provided resource must have one
// value per window; resources that are omitted are treated as zero.
func NewLoad(values MetricValues, windows []int64) (*Load, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: at least one window is required", ErrInvalidLoad)
	}

	load := newZeroLoad(windows)

	for resource, resourceValues := range values {
		if _, ok := resourceNames[resource]; !ok {
			return nil, fmt.Errorf("%w: unknown resource %d", ErrInvalidLoad, resource)
		}
		if len(resourceValues) != len(windows) {
			return nil, fmt.Errorf(
				"%w: resource %s has %d values for %d windows",
				ErrInvalidLoad,
				resource,
				len(resourceValues),
				len(windows),
			)
		}
		for w, value := range resourceValues {
			if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
				return nil, fmt.Errorf(
					"%w: resource %s has invalid value %f in window %d",
					ErrInvalidLoad,
					resource,
					value,
					windows[w],
				)
			}
			load.values[resource][w] = value
		}
	}

	return load, nil
}

func newZeroLoad(windows []int64) *Load {
	load := &Load{
		windows: copyInt64s(windows),
		values:  map[Resource][]float64{},
	}
	for _, resource := range AllResources() {
		load.values[resource] = make([]float64, len(windows))
	}
	return load
}

// Windows returns the window identifiers of this load.
func (l *Load) Windows() []int64 {
	if l == nil {
		return nil
	}
	return copyInt64s(l.windows)
}

// NumWindows returns the number of windows in this load.
func (l *Load) NumWindows() int {
	if l == nil {
		return 0
	}
	return len(l.windows)
}

// Value returns the value of the argument resource in the window at the argument index.
func (l *Load) Value(resource Resource, windowIndex int) float64 {
	if l == nil {
		return 0
	}
	values := l.values[resource]
	if windowIndex < 0 || windowIndex >= len(values) {
		return 0
	}
	return values[windowIndex]
}

// Values returns a copy of all of the window values for the argument resource.
func (l *Load) Values(resource Resource) []float64 {
	if l == nil {
		return nil
	}
	values := make([]float64, len(l.values[resource]))
	copy(values, l.values[resource])
	return values
}

// Max returns the peak value of the argument resource across all windows.
func (l *Load) Max(resource Resource) float64 {
	var max float64
	if l == nil {
		return max
	}
	for _, value := range l.values[resource] {
		if value > max {
			max = value
		}
	}
	return max
}

// Expected returns the mean value of the argument resource across all windows.
func (l *Load) Expected(resource Resource) float64 {
	if l == nil || len(l.windows) == 0 {
		return 0
	}
	var total float64
	for _, value := range l.values[resource] {
		total += value
	}
	return total / float64(len(l.windows))
}

// Copy returns a deep copy of the load.
func (l *Load) Copy() *Load {
	if l == nil {
		return nil
	}
	copied := &Load{
		windows: copyInt64s(l.windows),
		values:  map[Resource][]float64{},
	}
	for resource, values := range l.values {
		copiedValues := make([]float64, len(values))
		copy(copiedValues, values)
		copied.values[resource] = copiedValues
	}
	return copied
}

// Plus returns a new load that's the per-window sum of this load and the argument ones.
// All non-nil loads must share the same window count.
func (l *Load) Plus(others ...*Load) *Load {
	return combine(l, others, 1.0)
}

// Minus returns a new load that's this load with the argument ones subtracted per window.
func (l *Load) Minus(others ...*Load) *Load {
	return combine(l, others, -1.0)
}

func combine(base *Load, others []*Load, sign float64) *Load {
	var windows []int64
	for _, load := range append([]*Load{base}, others...) {
		if load != nil {
			windows = load.windows
			break
		}
	}
	if windows == nil {
		return nil
	}

	result := newZeroLoad(windows)
	result.add(base, 1.0)
	for _, other := range others {
		result.add(other, sign)
	}
	return result
}

func (l *Load) add(other *Load, sign float64) {
	if other == nil {
		return
	}
	if len(other.windows) != len(l.windows) {
		panic(
			fmt.Sprintf(
				"cannot combine loads with %d and %d windows",
				len(l.windows),
				len(other.windows),
			),
		)
	}
	for resource, values := range other.values {
		for w, value := range values {
			l.values[resource][w] += sign * value
		}
	}
}

// MetricValues returns the load in the same format accepted by NewLoad.
func (l *Load) MetricValues() MetricValues {
	values := MetricValues{}
	if l == nil {
		return values
	}
	for _, resource := range AllResources() {
		values[resource] = l.Values(resource)
	}
	return values
}

func sameWindows(a []int64, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func copyInt64s(input []int64) []int64 {
	if input == nil {
		return nil
	}
	results := make([]int64, len(input))
	copy(results, input)
	return results
}

// LeaderResources are the resources whose load follows partition leadership. Leaders serve
// consumers, so network-out and the CPU spent on it belong to whichever replica leads.
var LeaderResources = []Resource{ResourceNetworkOut, ResourceCPU}

// LeadershipLoadDelta returns the load a broker gains when its follower replica takes over
// leadership from the argument leader replica. Only LeaderResources are non-zero and values
// can be negative. The result is nil if both loads are nil.
func LeadershipLoadDelta(leader *Load, follower *Load) *Load {
	delta := combine(leader, []*Load{follower}, -1.0)
	if delta == nil {
		return nil
	}
	for resource, values := range delta.values {
		if !isLeaderResource(resource) {
			delta.values[resource] = make([]float64, len(values))
		}
	}
	return delta
}

// swapLeaderResources exchanges the LeaderResources values of two loads and returns the new
// loads. The argument loads aren't modified.
func swapLeaderResources(a *Load, b *Load) (*Load, *Load) {
	windows := a.Windows()
	if windows == nil {
		windows = b.Windows()
	}
	if windows == nil {
		return nil, nil
	}

	swappedA := newZeroLoad(windows)
	swappedA.add(a, 1.0)
	swappedB := newZeroLoad(windows)
	swappedB.add(b, 1.0)

	for _, resource := range LeaderResources {
		swappedA.values[resource], swappedB.values[resource] =
			swappedB.values[resource], swappedA.values[resource]
	}
	return swappedA, swappedB
}

func isLeaderResource(resource Resource) bool {
	for _, leaderResource := range LeaderResources {
		if resource == leaderResource {
			return true
		}
	}
	return false
}
