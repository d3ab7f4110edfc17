// Package remotetest 提供进程内的 SSH + SFTP 测试服务端，文件保存在内存中。
package remotetest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/hwuu/pftp/internal/remote"
)

var errPermissionDenied = errors.New("permission denied")

// Server 监听 127.0.0.1 随机端口，接受指定用户名/密码登录，
// 所有连接共享同一份内存文件系统。
type Server struct {
	Addr        string
	Fingerprint string
	User        string
	Password    string

	listener net.Listener
	handlers sftp.Handlers

	mu    sync.Mutex
	conns []net.Conn
	wg    sync.WaitGroup
}

// Start 启动测试服务端，测试结束时自动关闭
func Start(t testing.TB, user, password string) *Server {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("host key signer: %v", err)
	}

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == user && string(pass) == password {
				return nil, nil
			}
			return nil, errPermissionDenied
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &Server{
		Addr:        ln.Addr().String(),
		Fingerprint: ssh.FingerprintSHA256(signer.PublicKey()),
		User:        user,
		Password:    password,
		listener:    ln,
		handlers:    sftp.InMemHandler(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns = append(s.conns, conn)
			s.mu.Unlock()
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleConn(conn, cfg)
			}()
		}
	}()

	t.Cleanup(s.Close)
	return s
}

func (s *Server) handleConn(raw net.Conn, cfg *ssh.ServerConfig) {
	sc, chans, reqs, err := ssh.NewServerConn(raw, cfg)
	if err != nil {
		_ = raw.Close()
		return
	}
	defer sc.Close()
	go ssh.DiscardRequests(reqs)

	for ch := range chans {
		if ch.ChannelType() != "session" {
			_ = ch.Reject(ssh.UnknownChannelType, "")
			continue
		}
		c, in, err := ch.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(c, in)
	}
}

func (s *Server) handleSession(ch ssh.Channel, in <-chan *ssh.Request) {
	defer ch.Close()
	for req := range in {
		if req.Type != "subsystem" || subsystemName(req.Payload) != "sftp" {
			_ = req.Reply(false, nil)
			continue
		}
		_ = req.Reply(true, nil)

		server := sftp.NewRequestServer(ch, s.handlers)
		if err := server.Serve(); err != nil && err != io.EOF {
			_ = server.Close()
			return
		}
		_ = server.Close()
		return
	}
}

// subsystemName 解析 subsystem 请求的 payload（uint32 长度 + 字符串）
func subsystemName(payload []byte) string {
	if len(payload) < 4 {
		return ""
	}
	n := binary.BigEndian.Uint32(payload)
	if int(n) > len(payload)-4 {
		return ""
	}
	return string(payload[4 : 4+n])
}

// Close 关闭监听和所有已建立的连接
func (s *Server) Close() {
	_ = s.listener.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// DialOptions 返回连接本服务端所需的参数（按指纹校验主机公钥）
func (s *Server) DialOptions() remote.DialOptions {
	return remote.DialOptions{
		Address:         s.Addr,
		User:            s.User,
		Password:        s.Password,
		HostKeyCallback: remote.FingerprintCallback(s.Fingerprint),
		Timeout:         5 * time.Second,
	}
}

// ReadFile 通过一条独立的 SFTP 连接读取远端文件内容
func (s *Server) ReadFile(t testing.TB, path string) []byte {
	t.Helper()
	client := s.client(t)
	defer client.Close()

	f, err := client.Open(path)
	if err != nil {
		t.Fatalf("open remote %s: %v", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read remote %s: %v", path, err)
	}
	return data
}

// Exists 判断远端路径是否存在
func (s *Server) Exists(t testing.TB, path string) bool {
	t.Helper()
	client := s.client(t)
	defer client.Close()

	_, err := client.Stat(path)
	return err == nil
}

// MkdirAll 预先在服务端创建目录
func (s *Server) MkdirAll(t testing.TB, dir string) {
	t.Helper()
	client := s.client(t)
	defer client.Close()

	if err := client.MkdirAll(dir); err != nil {
		t.Fatalf("mkdir remote %s: %v", dir, err)
	}
}

func (s *Server) client(t testing.TB) *sftp.Client {
	t.Helper()
	conn, err := ssh.Dial("tcp", s.Addr, &ssh.ClientConfig{
		User:            s.User,
		Auth:            []ssh.AuthMethod{ssh.Password(s.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	if err != nil {
		t.Fatalf("dial test server: %v", err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		t.Fatalf("sftp client: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return client
}

// ClosedAddr 返回一个当前无人监听的本地地址，用于模拟不可达主机
func ClosedAddr(t testing.TB) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}
