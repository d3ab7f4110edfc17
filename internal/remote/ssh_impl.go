package remote

// ssh_impl.go 提供 Session 的真实实现（非 mock）：SSH 握手 + SFTP 子系统。

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// openFlags 远端文件打开方式：不存在则创建，存在则截断，读写
const openFlags = os.O_CREATE | os.O_TRUNC | os.O_RDWR

// DialOptions 建立 SFTP 会话所需的全部参数
type DialOptions struct {
	Address         string // host:port
	User            string
	Password        string
	PrivateKey      []byte // 可选，PEM/OpenSSH 格式
	Passphrase      string
	HostKeyCallback ssh.HostKeyCallback
	Timeout         time.Duration // TCP 连接 + SSH 握手超时
}

// sftpSession 真实 Session 实现
type sftpSession struct {
	sftpClient *sftp.Client
	sshClient  *ssh.Client
}

// NewSFTPDialFunc 创建真实 SFTP 会话的 DialFunc
func NewSFTPDialFunc(opts DialOptions) DialFunc {
	return func(ctx context.Context) (Session, error) {
		auths, err := authMethods(opts)
		if err != nil {
			return nil, err
		}
		if opts.HostKeyCallback == nil {
			return nil, fmt.Errorf("%w: no host key callback configured", ErrConnect)
		}

		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultConnectTimeout
		}

		config := &ssh.ClientConfig{
			User:            opts.User,
			Auth:            auths,
			HostKeyCallback: opts.HostKeyCallback,
			Timeout:         timeout,
		}

		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", opts.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConnect, opts.Address, err)
		}

		// 握手阶段受 timeout 和 ctx 双重约束
		_ = conn.SetDeadline(time.Now().Add(timeout))
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

		c, chans, reqs, err := ssh.NewClientConn(conn, opts.Address, config)
		if err != nil {
			stop()
			_ = conn.Close()
			return nil, fmt.Errorf("%w: ssh handshake with %s: %w", ErrConnect, opts.Address, err)
		}
		sshConn := ssh.NewClient(c, chans, reqs)

		sftpConn, err := sftp.NewClient(sshConn)
		if !stop() {
			// ctx 已取消，连接已被关闭
			sshConn.Close()
			if err == nil {
				sftpConn.Close()
			}
			return nil, fmt.Errorf("%w: %s: %w", ErrConnect, opts.Address, ctx.Err())
		}
		if err != nil {
			sshConn.Close()
			return nil, fmt.Errorf("%w: sftp subsystem on %s: %w", ErrConnect, opts.Address, err)
		}
		_ = conn.SetDeadline(time.Time{})

		return &sftpSession{
			sftpClient: sftpConn,
			sshClient:  sshConn,
		}, nil
	}
}

func authMethods(opts DialOptions) ([]ssh.AuthMethod, error) {
	var auths []ssh.AuthMethod

	if len(opts.PrivateKey) > 0 {
		signer, err := parseSigner(opts.PrivateKey, opts.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("解析 SSH 私钥失败: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}

	if opts.Password != "" {
		password := opts.Password
		auths = append(auths,
			ssh.Password(password),
			// 部分服务端只开放 keyboard-interactive，每个问题都回答密码
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}

	if len(auths) == 0 {
		return nil, fmt.Errorf("%w: no password or private key for %s", ErrConnect, opts.User)
	}
	return auths, nil
}

func parseSigner(key []byte, passphrase string) (ssh.Signer, error) {
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err == nil {
		return signer, nil
	}
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		return nil, fmt.Errorf("private key is encrypted; set passphrase in credentials")
	}
	return nil, err
}

func (s *sftpSession) OpenForWrite(remotePath string) (RemoteFile, error) {
	f, err := s.sftpClient.OpenFile(remotePath, openFlags)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *sftpSession) MkdirAll(dir string) error {
	return s.sftpClient.MkdirAll(dir)
}

// Alive 通过 keepalive 全局请求探测连接；服务端拒绝请求也说明连接仍在
func (s *sftpSession) Alive() bool {
	_, _, err := s.sshClient.SendRequest("keepalive@openssh.com", true, nil)
	return err == nil
}

func (s *sftpSession) Close() error {
	s.sftpClient.Close()
	return s.sshClient.Close()
}
