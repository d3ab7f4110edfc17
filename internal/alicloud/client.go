// Package alicloud 通过阿里云 ECS 实例标签动态解析服务器组。
// 所有函数通过接口（ECSAPI/VPCAPI/STSAPI）接收 SDK 客户端，支持 mock 测试。
package alicloud

import (
	"fmt"
	"os"

	"github.com/alibabacloud-go/darabonba-openapi/v2/client"
	ecsclient "github.com/alibabacloud-go/ecs-20140526/v4/client"
	stsclient "github.com/alibabacloud-go/sts-20150401/v2/client"
	vpcclient "github.com/alibabacloud-go/vpc-20160428/v6/client"

	"github.com/hwuu/pftp/internal/config"
)

const (
	DefaultRegion   = "ap-southeast-1" // 默认区域：新加坡
	EnvAccessKeyID  = "ALICLOUD_ACCESS_KEY_ID"
	EnvAccessSecret = "ALICLOUD_ACCESS_KEY_SECRET"
	EnvRegion       = "ALICLOUD_REGION"
)

// Config 阿里云 SDK 认证配置
type Config struct {
	AccessKeyID     string
	AccessKeySecret string
	RegionID        string
}

// LoadConfig 加载阿里云配置。
// 优先级：环境变量 → ~/.pftp/alicloud → 报错。
// region 非空时覆盖凭证中的区域（云组配置里指定的区域优先）。
func LoadConfig(region string) (*Config, error) {
	accessKeyID := os.Getenv(EnvAccessKeyID)
	accessKeySecret := os.Getenv(EnvAccessSecret)

	if accessKeyID != "" && accessKeySecret != "" {
		return &Config{
			AccessKeyID:     accessKeyID,
			AccessKeySecret: accessKeySecret,
			RegionID:        pickRegion(region, os.Getenv(EnvRegion)),
		}, nil
	}

	cred, err := config.LoadCloudCredentials()
	if err != nil {
		// 环境变量部分设置但不完整时，给出具体提示
		if accessKeyID != "" || accessKeySecret != "" {
			if accessKeyID == "" {
				return nil, ErrMissingAccessKeyID
			}
			return nil, ErrMissingAccessKeySecret
		}
		return nil, ErrMissingConfig
	}

	return &Config{
		AccessKeyID:     cred.AccessKeyID,
		AccessKeySecret: cred.AccessKeySecret,
		RegionID:        pickRegion(region, cred.Region),
	}, nil
}

func pickRegion(candidates ...string) string {
	for _, r := range candidates {
		if r != "" {
			return r
		}
	}
	return DefaultRegion
}

// ClientInterface 云组解析用到的客户端集合，用于依赖注入
type ClientInterface interface {
	STSClient() STSAPI
	ECSClient() ECSAPI
	VPCClient() VPCAPI
	// Region 客户端 endpoint 所在区域，请求里的 RegionId 必须与之一致
	Region() string
}

// Clients 真实 SDK 客户端，创建时绑定到一个区域
type Clients struct {
	region string
	sts    *stsclient.Client
	ecs    *ecsclient.Client
	vpc    *vpcclient.Client
}

// NewClients 按 cfg 中的凭证和区域创建 STS/ECS/VPC 客户端
func NewClients(cfg *Config) (*Clients, error) {
	openAPIConfig := &client.Config{
		AccessKeyId:     &cfg.AccessKeyID,
		AccessKeySecret: &cfg.AccessKeySecret,
		RegionId:        &cfg.RegionID,
	}

	c := &Clients{region: cfg.RegionID}
	var err error
	if c.sts, err = stsclient.NewClient(openAPIConfig); err != nil {
		return nil, fmt.Errorf("sts client: %w", err)
	}
	if c.ecs, err = ecsclient.NewClient(openAPIConfig); err != nil {
		return nil, fmt.Errorf("ecs client: %w", err)
	}
	if c.vpc, err = vpcclient.NewClient(openAPIConfig); err != nil {
		return nil, fmt.Errorf("vpc client: %w", err)
	}
	return c, nil
}

func (c *Clients) STSClient() STSAPI { return c.sts }
func (c *Clients) ECSClient() ECSAPI { return c.ecs }
func (c *Clients) VPCClient() VPCAPI { return c.vpc }
func (c *Clients) Region() string    { return c.region }
