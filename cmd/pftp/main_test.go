package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hwuu/pftp/internal/remote/remotetest"
)

// 辅助函数：在进程内运行 CLI，返回退出码和输出
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// 辅助函数：隔离 HOME，写入配置文件并返回路径
func setupHome(t *testing.T, configYAML string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PFTP_PASSWORD", "secret")
	t.Setenv(envLogLevel, "")

	path := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRootCommandHelp(t *testing.T) {
	code, output, _ := runCLI(t, "--help")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}

	for _, s := range []string{"pftp", "push", "groups", "status", "version"} {
		if !strings.Contains(output, s) {
			t.Errorf("help 输出缺少 %q\n实际输出:\n%s", s, output)
		}
	}
}

func TestVersionOutput(t *testing.T) {
	code, output, _ := runCLI(t, "version")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, s := range []string{"pftp", "commit:", "built:", "go:"} {
		if !strings.Contains(output, s) {
			t.Errorf("version 输出缺少 %q\n实际输出:\n%s", s, output)
		}
	}
}

func TestPush_MissingGroupArg(t *testing.T) {
	code, _, stderr := runCLI(t, "push")
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "Error") {
		t.Errorf("expected error message, got %q", stderr)
	}
}

func TestPush_ConfigNotFound(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	code, _, stderr := runCLI(t, "push", "web", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "config file not found") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestPush_InvalidLogLevel(t *testing.T) {
	code, _, stderr := runCLI(t, "push", "web", "--log-level", "chatty")
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "invalid log level") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func pushConfig(t *testing.T, srv *remotetest.Server, input string) string {
	return fmt.Sprintf(`
input:
  input_dir: %s
  default_output_dir: /deploy
transfer:
  connect_timeout: 5s
hosts:
  live: sftp://%s
  dead: %s
servers:
  "1": {name: web-1, host: live, username: deploy, fingerprint: "%s"}
  "2": {name: web-2, host: dead, username: deploy, fingerprint: "%s"}
server_groups:
  web: [1, 2]
  down: [2]
`, input, srv.Addr, remotetest.ClosedAddr(t), srv.Fingerprint, srv.Fingerprint)
}

func TestPush_EndToEnd(t *testing.T) {
	srv := remotetest.Start(t, "deploy", "secret")
	input := t.TempDir()
	os.MkdirAll(filepath.Join(input, "sub"), 0755)
	os.WriteFile(filepath.Join(input, "x.txt"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(input, "sub", "y.txt"), []byte("y"), 0644)
	cfgPath := setupHome(t, pushConfig(t, srv, input))

	code, stdout, _ := runCLI(t, "push", "web", "--config", cfgPath)
	if code != 0 {
		t.Fatalf("expected exit 0 when one host connects, got %d\n%s", code, stdout)
	}
	if got := string(srv.ReadFile(t, "/deploy/sub/y.txt")); got != "y" {
		t.Errorf("expected remote y.txt content y, got %q", got)
	}

	code, _, _ = runCLI(t, "push", "web", "--config", cfgPath, "--strict")
	if code != 3 {
		t.Errorf("expected exit 3 with --strict and a failed host, got %d", code)
	}

	code, _, stderr := runCLI(t, "push", "down", "--config", cfgPath)
	if code != 2 {
		t.Errorf("expected exit 2 when all hosts fail, got %d", code)
	}
	if !strings.Contains(stderr, "all hosts failed") {
		t.Errorf("unexpected stderr %q", stderr)
	}

	code, _, _ = runCLI(t, "push", "nope", "--config", cfgPath)
	if code != 1 {
		t.Errorf("expected exit 1 for unknown group, got %d", code)
	}

	// status 显示最近一次记录的推送（down 组）
	code, stdout, _ = runCLI(t, "status")
	if code != 0 {
		t.Fatalf("status: expected exit 0, got %d", code)
	}
	if !strings.Contains(stdout, "服务器组: down") {
		t.Errorf("status 输出缺少最近一次推送\n%s", stdout)
	}
}

func TestPush_NoHistory(t *testing.T) {
	srv := remotetest.Start(t, "deploy", "secret")
	cfgPath := setupHome(t, pushConfig(t, srv, t.TempDir()))

	code, _, _ := runCLI(t, "push", "web", "--config", cfgPath, "--no-history")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}

	_, stdout, _ := runCLI(t, "status")
	if !strings.Contains(stdout, "还没有推送记录") {
		t.Errorf("expected no history\n%s", stdout)
	}
}

func TestGroups(t *testing.T) {
	srv := remotetest.Start(t, "deploy", "secret")
	cfgPath := setupHome(t, pushConfig(t, srv, t.TempDir()))

	code, stdout, _ := runCLI(t, "groups", "--config", cfgPath)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, s := range []string{"web", "web-1, web-2", "down"} {
		if !strings.Contains(stdout, s) {
			t.Errorf("groups 输出缺少 %q\n%s", s, stdout)
		}
	}
}
