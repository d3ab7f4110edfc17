package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	CredentialsFileName      = "credentials" // SSH 登录凭证
	CloudCredentialsFileName = "alicloud"    // 阿里云 AccessKey
	EnvPassword              = "PFTP_PASSWORD"
)

var (
	ErrMissingCredential   = errors.New("no SSH credential: set PFTP_PASSWORD or ~/.pftp/credentials")
	ErrCredentialsNotFound = errors.New("credentials file not found")
)

// Credential 所有目标主机共用的 SSH 登录凭证
type Credential struct {
	Password     string
	IdentityFile string
	PrivateKey   []byte
	Passphrase   string
}

// Empty 既没有密码也没有私钥
func (c *Credential) Empty() bool {
	return c == nil || (c.Password == "" && len(c.PrivateKey) == 0)
}

// Apply 把凭证写入目标主机
func (c *Credential) Apply(target *HostTarget) {
	if c == nil {
		return
	}
	target.Password = c.Password
	target.PrivateKey = c.PrivateKey
	target.Passphrase = c.Passphrase
}

// LoadCredential 按优先级加载 SSH 凭证：
// 环境变量 PFTP_PASSWORD → ~/.pftp/credentials → 交互式输入（prompter 非 nil 时）。
func LoadCredential(prompter *Prompter) (*Credential, error) {
	if password := os.Getenv(EnvPassword); password != "" {
		return &Credential{Password: password}, nil
	}

	stateDir, err := GetStateDir()
	if err != nil {
		return nil, err
	}
	cred, err := LoadCredentialFrom(filepath.Join(stateDir, CredentialsFileName))
	if err == nil {
		return cred, nil
	}
	if !errors.Is(err, ErrCredentialsNotFound) {
		return nil, err
	}

	if prompter == nil {
		return nil, ErrMissingCredential
	}
	password, err := prompter.PromptPassword("SSH password: ")
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return nil, ErrMissingCredential
	}
	return &Credential{Password: password}, nil
}

// LoadCredentialFrom 从指定路径加载 SSH 凭证文件。
// 支持 password / identity_file / passphrase 三个键；identity_file 会被立即读取。
func LoadCredentialFrom(path string) (*Credential, error) {
	kv, err := readKeyValueFile(path)
	if err != nil {
		return nil, err
	}

	cred := &Credential{
		Password:     kv["password"],
		IdentityFile: kv["identity_file"],
		Passphrase:   kv["passphrase"],
	}
	if cred.IdentityFile != "" {
		keyPath, err := ExpandHome(cred.IdentityFile)
		if err != nil {
			return nil, err
		}
		key, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("读取私钥文件失败: %w", err)
		}
		cred.IdentityFile = keyPath
		cred.PrivateKey = key
	}

	if cred.Empty() {
		return nil, fmt.Errorf("%w: %s has neither password nor identity_file", ErrMissingCredential, path)
	}
	return cred, nil
}

// CloudCredentials 阿里云凭证，从 ~/.pftp/alicloud 文件加载
type CloudCredentials struct {
	AccessKeyID     string
	AccessKeySecret string
	Region          string
}

// LoadCloudCredentials 从 ~/.pftp/alicloud 加载阿里云凭证
func LoadCloudCredentials() (*CloudCredentials, error) {
	stateDir, err := GetStateDir()
	if err != nil {
		return nil, err
	}
	return LoadCloudCredentialsFrom(filepath.Join(stateDir, CloudCredentialsFileName))
}

// LoadCloudCredentialsFrom 从指定路径加载阿里云凭证
func LoadCloudCredentialsFrom(path string) (*CloudCredentials, error) {
	kv, err := readKeyValueFile(path)
	if err != nil {
		return nil, err
	}

	cred := &CloudCredentials{
		AccessKeyID:     kv["access_key_id"],
		AccessKeySecret: kv["access_key_secret"],
		Region:          kv["region"],
	}
	if cred.AccessKeyID == "" {
		return nil, fmt.Errorf("凭证文件缺少 access_key_id: %s", path)
	}
	if cred.AccessKeySecret == "" {
		return nil, fmt.Errorf("凭证文件缺少 access_key_secret: %s", path)
	}
	return cred, nil
}

// readKeyValueFile 解析 key=value 文件（只取第一个 = 分割，# 开头为注释）
func readKeyValueFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, path)
		}
		return nil, fmt.Errorf("读取凭证文件失败: %w", err)
	}
	defer f.Close()

	kv := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		kv[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取凭证文件失败: %w", err)
	}
	return kv, nil
}
