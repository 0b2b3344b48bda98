package capacity

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/segmentio/balancectl/pkg/admin"
	"github.com/segmentio/balancectl/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefaults() map[model.Resource]float64 {
	return map[model.Resource]float64{
		model.ResourceCPU:        4,
		model.ResourceNetworkIn:  50000,
		model.ResourceNetworkOut: 50000,
		model.ResourceDisk:       1000000,
	}
}

func TestStaticResolver(t *testing.T) {
	resolver := NewStaticResolver(
		StaticResolverConfig{
			Defaults: testDefaults(),
			Overrides: map[int]map[model.Resource]float64{
				2: {model.ResourceCPU: 16},
			},
			SplitDiskByLogdir: true,
		},
	)

	capacities, err := resolver.Resolve(
		context.Background(),
		[]admin.BrokerInfo{
			{ID: 1},
			{ID: 2},
			{
				ID: 3,
				Config: map[string]string{
					admin.LogDirsKey: "/data/a,/data/b",
				},
			},
		},
	)
	require.NoError(t, err)
	require.Equal(t, 3, len(capacities))

	assert.Equal(t, 4.0, capacities[1].Get(model.ResourceCPU))
	assert.Equal(t, 16.0, capacities[2].Get(model.ResourceCPU))
	assert.Equal(t, 50000.0, capacities[2].Get(model.ResourceNetworkIn))
	assert.Empty(t, capacities[1].Logdirs())

	assert.Equal(t, []string{"/data/a", "/data/b"}, capacities[3].Logdirs())
	assert.Equal(t, 1000000.0, capacities[3].Get(model.ResourceDisk))
	logdirCapacity, ok := capacities[3].DiskByLogdir("/data/b")
	assert.True(t, ok)
	assert.Equal(t, 500000.0, logdirCapacity)
}

func TestStaticResolverMissingResource(t *testing.T) {
	resolver := NewStaticResolver(
		StaticResolverConfig{
			Defaults: map[model.Resource]float64{
				model.ResourceCPU: 4,
			},
		},
	)

	_, err := resolver.Resolve(context.Background(), []admin.BrokerInfo{{ID: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid capacity for broker 1")
}

type fakeEC2 struct {
	instances     []ec2types.Instance
	instanceTypes []ec2types.InstanceTypeInfo
	err           error

	requestedTypes []ec2types.InstanceType
}

func (f *fakeEC2) DescribeInstances(
	ctx context.Context,
	params *ec2.DescribeInstancesInput,
	optFns ...func(*ec2.Options),
) (*ec2.DescribeInstancesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{
			{Instances: f.instances},
		},
	}, nil
}

func (f *fakeEC2) DescribeInstanceTypes(
	ctx context.Context,
	params *ec2.DescribeInstanceTypesInput,
	optFns ...func(*ec2.Options),
) (*ec2.DescribeInstanceTypesOutput, error) {
	f.requestedTypes = params.InstanceTypes
	return &ec2.DescribeInstanceTypesOutput{
		InstanceTypes: f.instanceTypes,
	}, nil
}

func testInstance(id string, ip string, instanceType ec2types.InstanceType) ec2types.Instance {
	return ec2types.Instance{
		InstanceId:   aws.String(id),
		InstanceType: instanceType,
		NetworkInterfaces: []ec2types.InstanceNetworkInterface{
			{PrivateIpAddress: aws.String(ip)},
		},
	}
}

func testInstanceType(
	instanceType ec2types.InstanceType,
	vcpus int32,
	performance string,
) ec2types.InstanceTypeInfo {
	return ec2types.InstanceTypeInfo{
		InstanceType: instanceType,
		VCpuInfo:     &ec2types.VCpuInfo{DefaultVCpus: aws.Int32(vcpus)},
		NetworkInfo:  &ec2types.NetworkInfo{NetworkPerformance: aws.String(performance)},
	}
}

func TestEC2Resolver(t *testing.T) {
	client := &fakeEC2{
		instances: []ec2types.Instance{
			testInstance("i-1", "10.0.0.1", ec2types.InstanceTypeM5Xlarge),
			testInstance("i-2", "10.0.0.2", ec2types.InstanceTypeM5Xlarge),
			testInstance("i-3", "10.0.0.3", ec2types.InstanceTypeT3Micro),
			testInstance("i-4", "10.0.0.99", ec2types.InstanceTypeR5Large),
		},
		instanceTypes: []ec2types.InstanceTypeInfo{
			testInstanceType(ec2types.InstanceTypeM5Xlarge, 4, "Up to 10 Gigabit"),
			testInstanceType(ec2types.InstanceTypeT3Micro, 2, "Low to Moderate"),
		},
	}
	resolver := NewEC2Resolver(
		client,
		NewStaticResolver(
			StaticResolverConfig{
				Defaults: testDefaults(),
				Overrides: map[int]map[model.Resource]float64{
					2: {model.ResourceCPU: 3},
				},
			},
		),
	)

	capacities, err := resolver.Resolve(
		context.Background(),
		[]admin.BrokerInfo{
			{ID: 1, Host: "10.0.0.1"},
			{ID: 2, Host: "10.0.0.2"},
			{ID: 3, Host: "10.0.0.3"},
			{ID: 4, Host: "10.0.0.4"},
		},
	)
	require.NoError(t, err)
	require.Equal(t, 4, len(capacities))
	assert.ElementsMatch(
		t,
		[]ec2types.InstanceType{ec2types.InstanceTypeM5Xlarge, ec2types.InstanceTypeT3Micro},
		client.requestedTypes,
	)

	assert.Equal(t, 4.0, capacities[1].Get(model.ResourceCPU))
	assert.Equal(t, 1250000.0, capacities[1].Get(model.ResourceNetworkIn))
	assert.Equal(t, 1000000.0, capacities[1].Get(model.ResourceDisk))
	assert.True(t, capacities[1].Estimated())
	assert.Contains(t, capacities[1].EstimationInfo(), "i-1")

	// Overrides win over the instance type
	assert.Equal(t, 3.0, capacities[2].Get(model.ResourceCPU))

	// Unparseable network performance falls back to the defaults
	assert.Equal(t, 4.0, capacities[3].Get(model.ResourceCPU))
	assert.False(t, capacities[3].Estimated())

	assert.Equal(t, 50000.0, capacities[4].Get(model.ResourceNetworkOut))
	assert.False(t, capacities[4].Estimated())
}

func TestEC2ResolverError(t *testing.T) {
	ec2Err := errors.New("UnauthorizedOperation")
	resolver := NewEC2Resolver(
		&fakeEC2{err: ec2Err},
		NewStaticResolver(StaticResolverConfig{Defaults: testDefaults()}),
	)

	_, err := resolver.Resolve(context.Background(), []admin.BrokerInfo{{ID: 1, Host: "10.0.0.1"}})
	assert.Equal(t, ec2Err, err)
}

func TestParseNetworkPerformance(t *testing.T) {
	value, err := parseNetworkPerformance("25 Gigabit")
	require.NoError(t, err)
	assert.Equal(t, 3125000.0, value)

	value, err = parseNetworkPerformance("Up to 12.5 Gigabit")
	require.NoError(t, err)
	assert.Equal(t, 1562500.0, value)

	_, err = parseNetworkPerformance("Moderate")
	assert.Error(t, err)
}
