package transfer

import (
	"time"

	"github.com/hwuu/pftp/internal/config"
	"github.com/hwuu/pftp/internal/remote"
)

// DialerOptions 所有主机共用的连接参数；主机自己配置的指纹优先于 known_hosts
type DialerOptions struct {
	HostKey remote.HostKeyOptions
	Timeout time.Duration
}

// SFTPDialer 返回基于真实 SSH/SFTP 连接的 DialFactory
func SFTPDialer(opts DialerOptions) DialFactory {
	return func(target config.HostTarget) (remote.DialFunc, error) {
		hostKey := opts.HostKey
		if target.Fingerprint != "" {
			hostKey.Fingerprint = target.Fingerprint
		}
		cb, err := remote.HostKeyCallback(hostKey)
		if err != nil {
			return nil, err
		}

		return remote.NewSFTPDialFunc(remote.DialOptions{
			Address:         target.Address,
			User:            target.Username,
			Password:        target.Password,
			PrivateKey:      target.PrivateKey,
			Passphrase:      target.Passphrase,
			HostKeyCallback: cb,
			Timeout:         opts.Timeout,
		}), nil
	}
}
