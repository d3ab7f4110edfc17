package alicloud

import (
	ecsclient "github.com/alibabacloud-go/ecs-20140526/v4/client"
	stsclient "github.com/alibabacloud-go/sts-20150401/v2/client"
	vpcclient "github.com/alibabacloud-go/vpc-20160428/v6/client"
)

type STSAPI interface {
	GetCallerIdentity() (*stsclient.GetCallerIdentityResponse, error)
}

type VPCAPI interface {
	DescribeVpcs(req *vpcclient.DescribeVpcsRequest) (*vpcclient.DescribeVpcsResponse, error)
}

type ECSAPI interface {
	DescribeInstances(req *ecsclient.DescribeInstancesRequest) (*ecsclient.DescribeInstancesResponse, error)
}
