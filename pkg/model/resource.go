package model

import (
	"fmt"
	"strings"
)

// Resource is a dimension along which broker load and capacity are measured. Values
// are only comparable within the same resource.
type Resource int

const (
	// ResourceCPU is the compute used by a replica, in cores.
	ResourceCPU Resource = iota

	// ResourceNetworkIn is the inbound network rate, in KB/sec.
	ResourceNetworkIn

	// ResourceNetworkOut is the outbound network rate, in KB/sec.
	ResourceNetworkOut

	// ResourceDisk is the storage used, in MB.
	ResourceDisk
)

// resourceNames contains a mapping of each resource to its human-readable name.
var resourceNames = map[Resource]string{
	ResourceCPU:        "cpu",
	ResourceNetworkIn:  "networkInbound",
	ResourceNetworkOut: "networkOutbound",
	ResourceDisk:       "disk",
}

// AllResources returns all of the known resources in a stable order.
func AllResources() []Resource {
	return []Resource{
		ResourceCPU,
		ResourceNetworkIn,
		ResourceNetworkOut,
		ResourceDisk,
	}
}

// String returns the name of the resource.
func (r Resource) String() string {
	name, ok := resourceNames[r]
	if !ok {
		return fmt.Sprintf("resource(%d)", int(r))
	}
	return name
}

// ParseResource converts a resource name (e.g., "disk", "nw-in") to a Resource.
func ParseResource(name string) (Resource, error) {
	switch strings.ReplaceAll(strings.ToLower(name), "_", "-") {
	case "cpu":
		return ResourceCPU, nil
	case "networkinbound", "network-in", "nw-in":
		return ResourceNetworkIn, nil
	case "networkoutbound", "network-out", "nw-out":
		return ResourceNetworkOut, nil
	case "disk", "storage":
		return ResourceDisk, nil
	default:
		return 0, fmt.Errorf(
			"Unrecognized resource '%s'; choices are cpu, nw-in, nw-out, and disk",
			name,
		)
	}
}

// MarshalJSON encodes the resource as its name.
func (r Resource) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", r.String())), nil
}

// UnmarshalJSON decodes a resource from its name.
func (r *Resource) UnmarshalJSON(data []byte) error {
	name := strings.Trim(string(data), "\"")
	resource, err := ParseResource(name)
	if err != nil {
		return err
	}
	*r = resource
	return nil
}
