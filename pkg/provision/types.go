package provision

import (
	"context"
	"fmt"
	"strings"
)

// Status is the provisioning verdict for a cluster.
type Status int

const (
	// Undecided means there isn't enough information to recommend anything.
	Undecided Status = iota

	// RightSized means the cluster has the right number of brokers.
	RightSized

	// OverProvisioned means brokers could be removed.
	OverProvisioned

	// UnderProvisioned means brokers need to be added.
	UnderProvisioned
)

var statusNames = map[Status]string{
	Undecided:        "UNDECIDED",
	RightSized:       "RIGHT_SIZED",
	OverProvisioned:  "OVER_PROVISIONED",
	UnderProvisioned: "UNDER_PROVISIONED",
}

func (s Status) String() string {
	name, ok := statusNames[s]
	if !ok {
		return fmt.Sprintf("STATUS(%d)", int(s))
	}
	return name
}

// MarshalText encodes the status as its name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status from its name.
func (s *Status) UnmarshalText(data []byte) error {
	for status, name := range statusNames {
		if strings.EqualFold(name, string(data)) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("Unrecognized provision status '%s'", string(data))
}

// Recommendation is an advisory request to change the size of a cluster.
type Recommendation struct {
	Status Status `json:"status"`

	// NumBrokers is the signed change in broker count: positive to add brokers, negative
	// to remove them.
	NumBrokers int `json:"numBrokers"`

	// Resource is the resource that drove the recommendation, if any.
	Resource string `json:"resource,omitempty"`

	Rationale string `json:"rationale"`
}

func (r Recommendation) String() string {
	return fmt.Sprintf("%s (%+d brokers): %s", r.Status, r.NumBrokers, r.Rationale)
}

// State is the terminal state of a provisioning attempt.
type State int

const (
	// Completed means the provisioner finished, whether or not it changed anything.
	Completed State = iota

	// CompletedWithError means the provisioner gave up on the recommendation.
	CompletedWithError
)

func (s State) String() string {
	switch s {
	case Completed:
		return "COMPLETED"
	case CompletedWithError:
		return "COMPLETED_WITH_ERROR"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of a provisioning attempt.
type Result struct {
	State   State  `json:"state"`
	Message string `json:"message"`
}

// Provisioner applies recommendations to the system that manages the brokers. Errors from
// that system are returned unmodified; a Result with CompletedWithError describes
// recommendations the provisioner declined to apply.
type Provisioner interface {
	Provision(ctx context.Context, recommendation Recommendation) (Result, error)
}
