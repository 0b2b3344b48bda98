package provision

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	// DefaultStatefulSetName is the name of the broker StatefulSet if none is configured.
	DefaultStatefulSetName = "kafka"

	skippedMessage = "Skipped; no right-sizing action recommended."
)

// StatefulSetProvisioner is a Provisioner that scales a Kubernetes StatefulSet of brokers.
// Only UnderProvisioned recommendations are applied; shrinking is left to operators.
type StatefulSetProvisioner struct {
	client    kubernetes.Interface
	namespace string
	name      string
}

var _ Provisioner = (*StatefulSetProvisioner)(nil)

// NewStatefulSetProvisioner creates a new StatefulSetProvisioner instance.
func NewStatefulSetProvisioner(
	client kubernetes.Interface,
	namespace string,
	name string,
) *StatefulSetProvisioner {
	if name == "" {
		name = DefaultStatefulSetName
	}
	return &StatefulSetProvisioner{
		client:    client,
		namespace: namespace,
		name:      name,
	}
}

// NewKubernetesClient creates a Kubernetes client from the argument kubeconfig path, or from
// the in-cluster service account if the path is empty.
func NewKubernetesClient(kubeconfig string) (kubernetes.Interface, error) {
	var restConfig *rest.Config
	var err error

	if kubeconfig == "" {
		log.Debug("Using in-cluster Kubernetes config")
		restConfig, err = rest.InClusterConfig()
	} else {
		log.Debugf("Using Kubernetes config from %s", kubeconfig)
		restConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, err
	}

	return kubernetes.NewForConfig(restConfig)
}

type jsonPatchOperation struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

// Provision applies the argument recommendation to the StatefulSet.
func (s *StatefulSetProvisioner) Provision(
	ctx context.Context,
	recommendation Recommendation,
) (Result, error) {
	switch recommendation.Status {
	case Undecided, RightSized:
		return Result{State: Completed, Message: skippedMessage}, nil
	case OverProvisioned:
		numBrokers := recommendation.NumBrokers
		if numBrokers < 0 {
			numBrokers = -numBrokers
		}
		return Result{
			State:   Completed,
			Message: fmt.Sprintf("Skipped recommendation to remove %d brokers.", numBrokers),
		}, nil
	case UnderProvisioned:
	default:
		return Result{
			State:   CompletedWithError,
			Message: fmt.Sprintf("Unrecognized recommendation status %s", recommendation.Status),
		}, nil
	}

	if recommendation.NumBrokers <= 0 {
		return Result{
			State: CompletedWithError,
			Message: fmt.Sprintf(
				"Recommendation to add %d brokers is not actionable",
				recommendation.NumBrokers,
			),
		}, nil
	}

	statefulSet, err := s.client.AppsV1().StatefulSets(s.namespace).Get(
		ctx,
		s.name,
		metav1.GetOptions{},
	)
	if err != nil {
		return Result{}, err
	}
	if statefulSet.Spec.Replicas == nil {
		return Result{
			State:   CompletedWithError,
			Message: "Error verifying existing replica count",
		}, nil
	}

	existing := int(*statefulSet.Spec.Replicas)
	desired := existing + recommendation.NumBrokers

	patch, err := json.Marshal(
		[]jsonPatchOperation{
			{
				Op:    "replace",
				Path:  "/spec/replicas",
				Value: desired,
			},
		},
	)
	if err != nil {
		return Result{}, err
	}

	log.Infof(
		"Scaling statefulset %s/%s from %d to %d replicas",
		s.namespace,
		s.name,
		existing,
		desired,
	)
	_, err = s.client.AppsV1().StatefulSets(s.namespace).Patch(
		ctx,
		s.name,
		types.JSONPatchType,
		patch,
		metav1.PatchOptions{},
	)
	if err != nil {
		return Result{}, err
	}

	return Result{
		State: Completed,
		Message: fmt.Sprintf(
			"Recommendation applied; broker count changed from %d to %d",
			existing,
			desired,
		),
	}, nil
}

// DryRunProvisioner is a Provisioner that only logs recommendations.
type DryRunProvisioner struct{}

var _ Provisioner = (*DryRunProvisioner)(nil)

// NewDryRunProvisioner creates a new DryRunProvisioner instance.
func NewDryRunProvisioner() *DryRunProvisioner {
	return &DryRunProvisioner{}
}

// Provision logs the recommendation and reports it as skipped.
func (d *DryRunProvisioner) Provision(
	ctx context.Context,
	recommendation Recommendation,
) (Result, error) {
	log.Infof("Dry run; not applying recommendation %s", recommendation)
	return Result{
		State:   Completed,
		Message: fmt.Sprintf("Dry run; recommendation %s not applied", recommendation.Status),
	}, nil
}
