package capacity

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/segmentio/balancectl/pkg/admin"
	"github.com/segmentio/balancectl/pkg/model"
	log "github.com/sirupsen/logrus"
)

// kbPerSecPerGbit converts a network bandwidth in gigabits per second to KB/s.
const kbPerSecPerGbit = 1000.0 * 1000.0 * 1000.0 / 8.0 / 1000.0

// EC2API is the subset of the EC2 API used to look up instance types.
type EC2API interface {
	ec2.DescribeInstancesAPIClient

	DescribeInstanceTypes(
		ctx context.Context,
		params *ec2.DescribeInstanceTypesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeInstanceTypesOutput, error)
}

var _ EC2API = (*ec2.Client)(nil)

// EC2Resolver is a Resolver that derives CPU and network capacities from the EC2 instance
// type of each broker. Disk capacities, and the capacities of brokers that can't be found
// in EC2, come from a static fallback.
type EC2Resolver struct {
	client   EC2API
	fallback *StaticResolver
}

var _ Resolver = (*EC2Resolver)(nil)

// NewEC2Resolver creates a new EC2Resolver instance.
func NewEC2Resolver(client EC2API, fallback *StaticResolver) *EC2Resolver {
	return &EC2Resolver{
		client:   client,
		fallback: fallback,
	}
}

// NewEC2Client creates an EC2 client from the default AWS config chain.
func NewEC2Client(ctx context.Context, region string) (*ec2.Client, error) {
	optFns := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, err
	}
	return ec2.NewFromConfig(cfg), nil
}

// Resolve returns the capacity of each argument broker. Brokers are matched to instances by
// the private IP in their advertised host.
func (r *EC2Resolver) Resolve(
	ctx context.Context,
	brokers []admin.BrokerInfo,
) (map[int]model.BrokerCapacity, error) {
	ips := []string{}
	for _, broker := range brokers {
		ips = append(ips, broker.Host)
	}

	instances, err := r.getInstances(ctx, ips)
	if err != nil {
		return nil, err
	}

	instanceTypes := []ec2types.InstanceType{}
	seenTypes := map[ec2types.InstanceType]struct{}{}
	for _, instance := range instances {
		if _, ok := seenTypes[instance.InstanceType]; !ok {
			instanceTypes = append(instanceTypes, instance.InstanceType)
			seenTypes[instance.InstanceType] = struct{}{}
		}
	}

	typeCapacities, err := r.getTypeCapacities(ctx, instanceTypes)
	if err != nil {
		return nil, err
	}

	capacities := map[int]model.BrokerCapacity{}
	for _, broker := range brokers {
		var discovered map[model.Resource]float64
		var info string

		instance, ok := instances[broker.Host]
		if ok {
			discovered, ok = typeCapacities[instance.InstanceType]
			info = fmt.Sprintf(
				"CPU and network from instance %s (%s)",
				aws.ToString(instance.InstanceId),
				instance.InstanceType,
			)
		}
		if !ok {
			log.Warnf(
				"Could not find instance type of broker %d (%s); using configured capacity",
				broker.ID,
				broker.Host,
			)
		}

		capacity, err := r.fallback.brokerCapacity(broker, discovered)
		if err != nil {
			return nil, err
		}
		if discovered != nil {
			capacity = capacity.WithEstimation(info)
		}
		capacities[broker.ID] = capacity
	}

	return capacities, nil
}

func (r *EC2Resolver) getInstances(
	ctx context.Context,
	ips []string,
) (map[string]ec2types.Instance, error) {
	instancesMap := map[string]ec2types.Instance{}
	if len(ips) == 0 {
		return instancesMap, nil
	}

	ipsMap := map[string]struct{}{}
	for _, ip := range ips {
		ipsMap[ip] = struct{}{}
	}

	paginator := ec2.NewDescribeInstancesPaginator(
		r.client,
		&ec2.DescribeInstancesInput{
			Filters: []ec2types.Filter{
				{
					Name:   aws.String("private-ip-address"),
					Values: ips,
				},
			},
		},
	)

	for paginator.HasMorePages() {
		resp, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, reservation := range resp.Reservations {
			for _, instance := range reservation.Instances {
				for _, networkInterface := range instance.NetworkInterfaces {
					privateIP := aws.ToString(networkInterface.PrivateIpAddress)

					if _, ok := ipsMap[privateIP]; ok {
						instancesMap[privateIP] = instance
					}
				}
			}
		}
	}

	return instancesMap, nil
}

func (r *EC2Resolver) getTypeCapacities(
	ctx context.Context,
	instanceTypes []ec2types.InstanceType,
) (map[ec2types.InstanceType]map[model.Resource]float64, error) {
	typeCapacities := map[ec2types.InstanceType]map[model.Resource]float64{}
	if len(instanceTypes) == 0 {
		return typeCapacities, nil
	}

	resp, err := r.client.DescribeInstanceTypes(
		ctx,
		&ec2.DescribeInstanceTypesInput{
			InstanceTypes: instanceTypes,
		},
	)
	if err != nil {
		return nil, err
	}

	for _, typeInfo := range resp.InstanceTypes {
		if typeInfo.VCpuInfo == nil || typeInfo.NetworkInfo == nil {
			continue
		}
		bandwidth, err := parseNetworkPerformance(
			aws.ToString(typeInfo.NetworkInfo.NetworkPerformance),
		)
		if err != nil {
			log.Warnf("Ignoring network performance of %s: %+v", typeInfo.InstanceType, err)
			continue
		}

		typeCapacities[typeInfo.InstanceType] = map[model.Resource]float64{
			model.ResourceCPU:        float64(aws.ToInt32(typeInfo.VCpuInfo.DefaultVCpus)),
			model.ResourceNetworkIn:  bandwidth,
			model.ResourceNetworkOut: bandwidth,
		}
	}

	return typeCapacities, nil
}

var networkPerformanceRegexp = regexp.MustCompile(`([0-9.]+)\s*Gigabit`)

// parseNetworkPerformance converts an EC2 network performance description (e.g., "Up to 10
// Gigabit") to KB/s.
func parseNetworkPerformance(performance string) (float64, error) {
	matches := networkPerformanceRegexp.FindStringSubmatch(performance)
	if matches == nil {
		return 0, fmt.Errorf("Unrecognized network performance: %s", performance)
	}

	gbits, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}
	return gbits * kbPerSecPerGbit, nil
}
