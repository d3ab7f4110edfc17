package alicloud

import (
	"fmt"

	vpcclient "github.com/alibabacloud-go/vpc-20160428/v6/client"
)

// FindVPCByName 按名称查找 VPC，返回 VPC ID。名称必须唯一匹配。
func FindVPCByName(vpcCli VPCAPI, regionID, vpcName string) (string, error) {
	req := &vpcclient.DescribeVpcsRequest{
		RegionId: &regionID,
		VpcName:  &vpcName,
	}
	resp, err := vpcCli.DescribeVpcs(req)
	if err != nil {
		return "", fmt.Errorf("failed to describe VPC %s: %w", vpcName, err)
	}

	if resp == nil || resp.Body == nil || resp.Body.Vpcs == nil || len(resp.Body.Vpcs.Vpc) == 0 {
		return "", fmt.Errorf("%w: VPC %s in %s", ErrResourceNotFound, vpcName, regionID)
	}

	// DescribeVpcs 按名称是模糊匹配，这里再精确过滤一次
	var ids []string
	for _, vpc := range resp.Body.Vpcs.Vpc {
		if vpc.VpcId != nil && deref(vpc.VpcName) == vpcName {
			ids = append(ids, *vpc.VpcId)
		}
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: VPC %s in %s", ErrResourceNotFound, vpcName, regionID)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("VPC name %s is ambiguous in %s: %v", vpcName, regionID, ids)
	}
}
