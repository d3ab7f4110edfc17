package remote

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

var (
	ErrHostKeyMismatch   = errors.New("host key fingerprint mismatch")
	ErrKnownHostsMissing = errors.New("known_hosts file not found")
)

// HostKeyOptions 主机公钥校验策略，优先级：Insecure → Fingerprint → KnownHostsPath
type HostKeyOptions struct {
	Insecure       bool   // 显式放弃校验，接受任何主机公钥
	Fingerprint    string // 固定的 SHA256 指纹，例如 SHA256:abc...
	KnownHostsPath string
}

// HostKeyCallback 根据策略构造 ssh.HostKeyCallback。
// 未开启 Insecure 且没有指纹时必须存在 known_hosts 文件，否则拒绝连接。
func HostKeyCallback(opts HostKeyOptions) (ssh.HostKeyCallback, error) {
	switch {
	case opts.Insecure:
		return ssh.InsecureIgnoreHostKey(), nil
	case opts.Fingerprint != "":
		return FingerprintCallback(opts.Fingerprint), nil
	}

	if opts.KnownHostsPath == "" {
		return nil, ErrKnownHostsMissing
	}
	if _, err := os.Stat(opts.KnownHostsPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrKnownHostsMissing, opts.KnownHostsPath)
	}
	cb, err := knownhosts.New(opts.KnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("known_hosts: %w", err)
	}
	return cb, nil
}

// FingerprintCallback 只接受 SHA256 指纹与 want 一致的主机公钥
func FingerprintCallback(want string) ssh.HostKeyCallback {
	want = normalizeFingerprint(want)
	return func(hostname string, _ net.Addr, key ssh.PublicKey) error {
		got := ssh.FingerprintSHA256(key)
		if got != want {
			return fmt.Errorf("%w for %s: got %s", ErrHostKeyMismatch, hostname, got)
		}
		return nil
	}
}

func normalizeFingerprint(fp string) string {
	fp = strings.TrimSpace(fp)
	if !strings.HasPrefix(fp, "SHA256:") {
		fp = "SHA256:" + fp
	}
	return fp
}
