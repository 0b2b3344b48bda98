package config

import (
	"fmt"

	"github.com/segmentio/balancectl/pkg/provision"
)

// ProvisionerKind is the type of provisioner that acts on recommendations.
type ProvisionerKind string

const (
	// ProvisionerKindNone ignores recommendations.
	ProvisionerKindNone ProvisionerKind = ""

	// ProvisionerKindDryRun logs recommendations without acting on them.
	ProvisionerKindDryRun ProvisionerKind = "dryRun"

	// ProvisionerKindStatefulSet scales the Kubernetes statefulset that runs the brokers.
	ProvisionerKindStatefulSet ProvisionerKind = "statefulSet"
)

// ProvisionerConfig stores how provisioning recommendations are acted on.
type ProvisionerConfig struct {
	Kind ProvisionerKind `json:"kind"`

	Namespace       string `json:"namespace"`
	StatefulSetName string `json:"statefulSetName"`

	// Kubeconfig is the path to a kubeconfig file. If blank, the in-cluster config is used.
	Kubeconfig string `json:"kubeconfig"`
}

// Validate evaluates whether the provisioner config is valid.
func (p ProvisionerConfig) Validate() error {
	switch p.Kind {
	case ProvisionerKindNone, ProvisionerKindDryRun:
		return nil
	case ProvisionerKindStatefulSet:
		if p.Namespace == "" {
			return fmt.Errorf("Namespace must be set for the %s provisioner", p.Kind)
		}
		return nil
	default:
		return fmt.Errorf(
			"Unrecognized provisioner kind '%s'; choices are %s and %s",
			p.Kind,
			ProvisionerKindDryRun,
			ProvisionerKindStatefulSet,
		)
	}
}

// NewProvisioner creates the configured provisioner. It returns nil if the kind is unset.
// The dryRun argument replaces any configured provisioner with a dry-run one.
func (c ClusterConfig) NewProvisioner(dryRun bool) (provision.Provisioner, error) {
	p := c.Spec.Provisioner
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if p.Kind == ProvisionerKindNone {
		return nil, nil
	}
	if dryRun || p.Kind == ProvisionerKindDryRun {
		return provision.NewDryRunProvisioner(), nil
	}

	client, err := provision.NewKubernetesClient(c.absPath(p.Kubeconfig))
	if err != nil {
		return nil, err
	}
	return provision.NewStatefulSetProvisioner(client, p.Namespace, p.StatefulSetName), nil
}
