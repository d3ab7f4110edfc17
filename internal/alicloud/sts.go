package alicloud

import (
	"fmt"
)

// CallerIdentity 阿里云账号身份信息，由 STS GetCallerIdentity 返回
type CallerIdentity struct {
	AccountID string
	UserID    string
	ARN       string
}

// GetCallerIdentity 调用 STS 验证当前凭证。
// 查询实例前先做一次，AccessKey 无效时给出比 DescribeInstances 更清楚的错误。
func GetCallerIdentity(stsCli STSAPI) (*CallerIdentity, error) {
	resp, err := stsCli.GetCallerIdentity()
	if err != nil {
		return nil, fmt.Errorf("failed to verify alicloud credentials: %w", err)
	}

	if resp == nil || resp.Body == nil {
		return nil, fmt.Errorf("empty response from GetCallerIdentity")
	}

	return &CallerIdentity{
		AccountID: deref(resp.Body.AccountId),
		UserID:    deref(resp.Body.UserId),
		ARN:       deref(resp.Body.Arn),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
