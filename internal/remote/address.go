package remote

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

const DefaultPort = 22

// ParseAddress 规范化主机地址：去掉 sftp:// 前缀，缺省端口补 22，返回 host:port。
func ParseAddress(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	addr = strings.TrimPrefix(addr, "sftp://")
	addr = strings.TrimSuffix(addr, "/")
	if addr == "" {
		return "", fmt.Errorf("empty host address")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		// 没有端口：裸 IPv6 或普通主机名
		if strings.HasPrefix(addr, "[") && strings.HasSuffix(addr, "]") {
			addr = strings.Trim(addr, "[]")
		}
		if strings.Contains(err.Error(), "missing port") || strings.Count(addr, ":") > 1 {
			return net.JoinHostPort(addr, strconv.Itoa(DefaultPort)), nil
		}
		return "", fmt.Errorf("invalid host address %q: %w", raw, err)
	}
	if host == "" {
		return "", fmt.Errorf("invalid host address %q: missing host", raw)
	}

	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("invalid port in host address %q", raw)
	}
	return net.JoinHostPort(host, port), nil
}
