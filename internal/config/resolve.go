package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/hwuu/pftp/internal/remote"
	"github.com/hwuu/pftp/internal/template"
)

var (
	ErrGroupNotFound  = errors.New("server group not found")
	ErrGroupEmpty     = errors.New("server group is empty")
	ErrServerNotFound = errors.New("server not found")
	ErrHostNotFound   = errors.New("host not found")
)

// HostTarget 一台目标主机的完整连接参数，每次运行解析一次，之后只读
type HostTarget struct {
	Name        string
	Group       string
	Address     string // host:port
	Username    string
	Password    string
	PrivateKey  []byte
	Passphrase  string
	Fingerprint string // 为空时按 known_hosts 校验
	OutputDir   string
}

// Resolve 把静态服务器组解析为目标主机列表：
// server_groups[group] → servers[id] → hosts[别名] → host:port。
// 任何一环缺失都直接返回错误，不会部分解析。
func (c *Config) Resolve(group string, cred *Credential) ([]HostTarget, error) {
	ids, ok := c.ServerGroups[strings.ToLower(group)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, group)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrGroupEmpty, group)
	}

	targets := make([]HostTarget, 0, len(ids))
	for _, id := range ids {
		server, ok := c.Servers[fmt.Sprint(id)]
		if !ok {
			return nil, fmt.Errorf("%w: ID: %d", ErrServerNotFound, id)
		}

		raw, ok := c.lookupHost(server.Host)
		if !ok {
			return nil, fmt.Errorf("%w: Host: %s ID: %s", ErrHostNotFound, server.Host, server.Name)
		}
		addr, err := remote.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("server %s: %w", server.Name, err)
		}

		target := HostTarget{
			Name:        server.Name,
			Group:       group,
			Address:     addr,
			Username:    server.Username,
			Fingerprint: server.Fingerprint,
		}
		if target.Name == "" {
			target.Name = fmt.Sprint(id)
		}
		target.OutputDir, err = c.RenderOutputDir(server.OutputDir, target)
		if err != nil {
			return nil, err
		}
		cred.Apply(&target)
		targets = append(targets, target)
	}
	return targets, nil
}

// lookupHost 查找主机别名（配置加载后 map key 已被转为小写）
func (c *Config) lookupHost(alias string) (string, bool) {
	if raw, ok := c.Hosts[alias]; ok {
		return raw, true
	}
	raw, ok := c.Hosts[strings.ToLower(alias)]
	return raw, ok
}

// RenderOutputDir 计算目标主机的远端根目录：
// 服务器自己的 output_dir 优先，否则使用 input.default_output_dir，两者都支持模板。
func (c *Config) RenderOutputDir(tmpl string, target HostTarget) (string, error) {
	if tmpl == "" {
		tmpl = c.Input.DefaultOutputDir
	}
	host := target.Address
	if h, _, err := net.SplitHostPort(target.Address); err == nil {
		host = h
	}
	dir, err := template.RenderOutputDir(tmpl, template.OutputDirData{
		Name:     target.Name,
		Host:     host,
		Username: target.Username,
		Group:    target.Group,
	})
	if err != nil {
		return "", fmt.Errorf("server %s: %w", target.Name, err)
	}
	return dir, nil
}
