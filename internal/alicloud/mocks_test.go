package alicloud_test

import (
	ecsclient "github.com/alibabacloud-go/ecs-20140526/v4/client"
	stsclient "github.com/alibabacloud-go/sts-20150401/v2/client"
	vpcclient "github.com/alibabacloud-go/vpc-20160428/v6/client"

	"github.com/hwuu/pftp/internal/alicloud"
)

type MockSTSAPI struct {
	GetCallerIdentityFunc func() (*stsclient.GetCallerIdentityResponse, error)
}

func (m *MockSTSAPI) GetCallerIdentity() (*stsclient.GetCallerIdentityResponse, error) {
	return m.GetCallerIdentityFunc()
}

type MockVPCAPI struct {
	DescribeVpcsFunc func(req *vpcclient.DescribeVpcsRequest) (*vpcclient.DescribeVpcsResponse, error)
}

func (m *MockVPCAPI) DescribeVpcs(req *vpcclient.DescribeVpcsRequest) (*vpcclient.DescribeVpcsResponse, error) {
	return m.DescribeVpcsFunc(req)
}

type MockECSAPI struct {
	DescribeInstancesFunc func(req *ecsclient.DescribeInstancesRequest) (*ecsclient.DescribeInstancesResponse, error)
}

func (m *MockECSAPI) DescribeInstances(req *ecsclient.DescribeInstancesRequest) (*ecsclient.DescribeInstancesResponse, error) {
	return m.DescribeInstancesFunc(req)
}

type mockClients struct {
	sts *MockSTSAPI
	ecs *MockECSAPI
	vpc *MockVPCAPI

	region string
}

func (m *mockClients) STSClient() alicloud.STSAPI { return m.sts }
func (m *mockClients) ECSClient() alicloud.ECSAPI { return m.ecs }
func (m *mockClients) VPCClient() alicloud.VPCAPI { return m.vpc }
func (m *mockClients) Region() string             { return m.region }

func okSTS() *MockSTSAPI {
	return &MockSTSAPI{
		GetCallerIdentityFunc: func() (*stsclient.GetCallerIdentityResponse, error) {
			id := "123456789"
			return &stsclient.GetCallerIdentityResponse{
				Body: &stsclient.GetCallerIdentityResponseBody{AccountId: &id},
			}, nil
		},
	}
}

func str(s string) *string { return &s }

func int32p(i int32) *int32 { return &i }

// instance 构造 DescribeInstances 返回的一条实例记录
func instance(id, name, publicIP, eip, privateIP string) *ecsclient.DescribeInstancesResponseBodyInstancesInstance {
	inst := &ecsclient.DescribeInstancesResponseBodyInstancesInstance{
		InstanceId:   str(id),
		InstanceName: str(name),
		Status:       str("Running"),
	}
	if publicIP != "" {
		inst.PublicIpAddress = &ecsclient.DescribeInstancesResponseBodyInstancesInstancePublicIpAddress{
			IpAddress: []*string{str(publicIP)},
		}
	}
	if eip != "" {
		inst.EipAddress = &ecsclient.DescribeInstancesResponseBodyInstancesInstanceEipAddress{
			IpAddress: str(eip),
		}
	}
	if privateIP != "" {
		inst.VpcAttributes = &ecsclient.DescribeInstancesResponseBodyInstancesInstanceVpcAttributes{
			PrivateIpAddress: &ecsclient.DescribeInstancesResponseBodyInstancesInstanceVpcAttributesPrivateIpAddress{
				IpAddress: []*string{str(privateIP)},
			},
		}
	}
	return inst
}

func instancesResponse(total int32, insts ...*ecsclient.DescribeInstancesResponseBodyInstancesInstance) *ecsclient.DescribeInstancesResponse {
	return &ecsclient.DescribeInstancesResponse{
		Body: &ecsclient.DescribeInstancesResponseBody{
			TotalCount: int32p(total),
			Instances: &ecsclient.DescribeInstancesResponseBodyInstances{
				Instance: insts,
			},
		},
	}
}
