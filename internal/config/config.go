package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "PFTP"

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid config")
)

// InputConfig 本地输入目录和默认远端目录
type InputConfig struct {
	InputDir         string `mapstructure:"input_dir"`
	DefaultOutputDir string `mapstructure:"default_output_dir"`
}

// TransferConfig 传输行为参数
type TransferConfig struct {
	MaxConcurrency       int           `mapstructure:"max_concurrency"` // 0 表示每台主机一个并发
	ConnectTimeout       time.Duration `mapstructure:"connect_timeout"`
	FileTimeout          time.Duration `mapstructure:"file_timeout"` // 0 表示不限制
	ConnectRetries       int           `mapstructure:"connect_retries"`
	FileRetries          int           `mapstructure:"file_retries"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `mapstructure:"retry_max_interval"`
	BufferSize           int           `mapstructure:"buffer_size"`
	SkipPolicy           string        `mapstructure:"skip_policy"` // silent / warn
	FollowSymlinks       bool          `mapstructure:"follow_symlinks"`
}

// SecurityConfig 主机公钥校验
type SecurityConfig struct {
	KnownHosts            string `mapstructure:"known_hosts"`
	InsecureIgnoreHostKey bool   `mapstructure:"insecure_ignore_host_key"`
}

// ServerInfo servers 下的一条服务器记录，Host 是 hosts 中的别名
type ServerInfo struct {
	Name        string `mapstructure:"name"`
	Host        string `mapstructure:"host"`
	Username    string `mapstructure:"username"`
	OutputDir   string `mapstructure:"output_dir"`
	Fingerprint string `mapstructure:"fingerprint"`
}

// CloudGroup 按 ECS 标签动态发现的服务器组
type CloudGroup struct {
	Region       string `mapstructure:"region"`
	TagKey       string `mapstructure:"tag_key"`
	TagValue     string `mapstructure:"tag_value"`
	VPCName      string `mapstructure:"vpc_name"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	UsePrivateIP bool   `mapstructure:"use_private_ip"`
	OutputDir    string `mapstructure:"output_dir"`
}

// Config 配置文件的完整内容
type Config struct {
	Input        InputConfig           `mapstructure:"input"`
	Transfer     TransferConfig        `mapstructure:"transfer"`
	Security     SecurityConfig        `mapstructure:"security"`
	Hosts        map[string]string     `mapstructure:"hosts"`
	Servers      map[string]ServerInfo `mapstructure:"servers"`
	ServerGroups map[string][]int      `mapstructure:"server_groups"`
	CloudGroups  map[string]CloudGroup `mapstructure:"cloud_groups"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.input_dir", "")
	v.SetDefault("input.default_output_dir", "")
	v.SetDefault("transfer.max_concurrency", 0)
	v.SetDefault("transfer.connect_timeout", 10*time.Second)
	v.SetDefault("transfer.file_timeout", time.Duration(0))
	v.SetDefault("transfer.connect_retries", 0)
	v.SetDefault("transfer.file_retries", 0)
	v.SetDefault("transfer.retry_initial_interval", time.Second)
	v.SetDefault("transfer.retry_max_interval", 10*time.Second)
	v.SetDefault("transfer.buffer_size", 1<<20)
	v.SetDefault("transfer.skip_policy", "warn")
	v.SetDefault("transfer.follow_symlinks", true)
	v.SetDefault("security.known_hosts", "~/.ssh/known_hosts")
	v.SetDefault("security.insecure_ignore_host_key", false)
}

// Load 读取配置文件，path 为空时使用 ~/.pftp/config.yaml。
// 环境变量 PFTP_<SECTION>_<KEY>（如 PFTP_TRANSFER_MAX_CONCURRENCY）覆盖文件中的值。
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查与具体服务器组无关的配置项
func (c *Config) Validate() error {
	if c.Input.InputDir == "" {
		return fmt.Errorf("%w: input.input_dir is required", ErrInvalidConfig)
	}
	t := c.Transfer
	if t.MaxConcurrency < 0 {
		return fmt.Errorf("%w: transfer.max_concurrency must be >= 0", ErrInvalidConfig)
	}
	if t.ConnectRetries < 0 || t.FileRetries < 0 {
		return fmt.Errorf("%w: retries must be >= 0", ErrInvalidConfig)
	}
	if t.BufferSize < 0 {
		return fmt.Errorf("%w: transfer.buffer_size must be >= 0", ErrInvalidConfig)
	}
	if t.ConnectTimeout < 0 || t.FileTimeout < 0 {
		return fmt.Errorf("%w: timeouts must be >= 0", ErrInvalidConfig)
	}
	switch t.SkipPolicy {
	case "", "silent", "warn":
	default:
		return fmt.Errorf("%w: transfer.skip_policy must be silent or warn, got %q", ErrInvalidConfig, t.SkipPolicy)
	}
	for name := range c.CloudGroups {
		if _, ok := c.ServerGroups[name]; ok {
			return fmt.Errorf("%w: group %q defined in both server_groups and cloud_groups", ErrInvalidConfig, name)
		}
	}
	return nil
}

// GroupNames 返回所有服务器组名（静态组 + 云组），按字母排序
func (c *Config) GroupNames() []string {
	names := make([]string, 0, len(c.ServerGroups)+len(c.CloudGroups))
	for name := range c.ServerGroups {
		names = append(names, name)
	}
	for name := range c.CloudGroups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CloudGroup 按名称查找云组
func (c *Config) CloudGroup(name string) (CloudGroup, bool) {
	g, ok := c.CloudGroups[strings.ToLower(name)]
	return g, ok
}
