package alicloud

import (
	"fmt"
	"net"
	"sort"
	"strconv"

	ecsclient "github.com/alibabacloud-go/ecs-20140526/v4/client"

	"github.com/hwuu/pftp/internal/config"
	"github.com/hwuu/pftp/internal/remote"
)

const (
	InstanceStatusRunning = "Running"
	describePageSize      = 100
)

// Instance 云组解析需要的 ECS 实例信息
type Instance struct {
	ID        string
	Name      string
	PublicIP  string // 公网 IP 或 EIP
	PrivateIP string
}

// ListRunningInstances 分页列出带指定标签的运行中实例，vpcID 为空时不限 VPC。
// 结果按实例名排序，保证每次解析出的主机顺序稳定。
func ListRunningInstances(ecsCli ECSAPI, regionID, tagKey, tagValue, vpcID string) ([]Instance, error) {
	var instances []Instance
	for page := int32(1); ; page++ {
		req := &ecsclient.DescribeInstancesRequest{
			RegionId:   &regionID,
			Status:     teaString(InstanceStatusRunning),
			PageNumber: teaInt32(page),
			PageSize:   teaInt32(describePageSize),
			Tag: []*ecsclient.DescribeInstancesRequestTag{
				{Key: &tagKey, Value: &tagValue},
			},
		}
		if vpcID != "" {
			req.VpcId = &vpcID
		}

		resp, err := ecsCli.DescribeInstances(req)
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}
		if resp == nil || resp.Body == nil || resp.Body.Instances == nil {
			break
		}

		batch := resp.Body.Instances.Instance
		for _, inst := range batch {
			if inst == nil || inst.InstanceId == nil {
				continue
			}
			instances = append(instances, toInstance(inst))
		}

		total := 0
		if resp.Body.TotalCount != nil {
			total = int(*resp.Body.TotalCount)
		}
		if len(batch) < describePageSize || len(instances) >= total {
			break
		}
	}

	sort.Slice(instances, func(i, j int) bool {
		if instances[i].Name != instances[j].Name {
			return instances[i].Name < instances[j].Name
		}
		return instances[i].ID < instances[j].ID
	})
	return instances, nil
}

func toInstance(inst *ecsclient.DescribeInstancesResponseBodyInstancesInstance) Instance {
	out := Instance{
		ID:   *inst.InstanceId,
		Name: deref(inst.InstanceName),
	}
	if inst.PublicIpAddress != nil && len(inst.PublicIpAddress.IpAddress) > 0 {
		out.PublicIP = deref(inst.PublicIpAddress.IpAddress[0])
	}
	if out.PublicIP == "" && inst.EipAddress != nil {
		out.PublicIP = deref(inst.EipAddress.IpAddress)
	}
	if inst.VpcAttributes != nil && inst.VpcAttributes.PrivateIpAddress != nil && len(inst.VpcAttributes.PrivateIpAddress.IpAddress) > 0 {
		out.PrivateIP = deref(inst.VpcAttributes.PrivateIpAddress.IpAddress[0])
	} else if inst.InnerIpAddress != nil && len(inst.InnerIpAddress.IpAddress) > 0 {
		out.PrivateIP = deref(inst.InnerIpAddress.IpAddress[0])
	}
	if out.Name == "" {
		out.Name = out.ID
	}
	return out
}

// ResolveCloudGroup 把云组解析为目标主机列表：
// STS 校验凭证 → （可选）按名称找 VPC → 按标签列出运行中实例 → HostTarget。
// 没有可用实例时返回 ErrNoInstances。
func ResolveCloudGroup(clients ClientInterface, cfg *config.Config, name string, group config.CloudGroup, cred *config.Credential) ([]config.HostTarget, error) {
	if _, err := GetCallerIdentity(clients.STSClient()); err != nil {
		return nil, err
	}

	// 组未指定区域时沿用客户端的区域（环境变量或凭证文件），两者必须一致
	region := pickRegion(group.Region, clients.Region())
	var vpcID string
	if group.VPCName != "" {
		id, err := FindVPCByName(clients.VPCClient(), region, group.VPCName)
		if err != nil {
			return nil, err
		}
		vpcID = id
	}

	instances, err := ListRunningInstances(clients.ECSClient(), region, group.TagKey, group.TagValue, vpcID)
	if err != nil {
		return nil, err
	}

	port := group.Port
	if port == 0 {
		port = remote.DefaultPort
	}

	var targets []config.HostTarget
	for _, inst := range instances {
		ip := inst.PublicIP
		if group.UsePrivateIP || ip == "" {
			ip = inst.PrivateIP
		}
		if ip == "" {
			continue
		}

		target := config.HostTarget{
			Name:     inst.Name,
			Group:    name,
			Address:  net.JoinHostPort(ip, strconv.Itoa(port)),
			Username: group.Username,
		}
		target.OutputDir, err = cfg.RenderOutputDir(group.OutputDir, target)
		if err != nil {
			return nil, err
		}
		cred.Apply(&target)
		targets = append(targets, target)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s (tag %s=%s in %s)", ErrNoInstances, name, group.TagKey, group.TagValue, region)
	}
	return targets, nil
}

func teaString(s string) *string {
	return &s
}

func teaInt32(i int32) *int32 {
	return &i
}
