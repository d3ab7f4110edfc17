// Package config 管理 pftp 的配置文件、服务器组解析和登录凭证。
// 所有本地状态（配置、凭证、运行历史）都放在 ~/.pftp/ 下。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	StateDirName    = ".pftp"       // 状态目录，位于用户 home 下
	ConfigFileName  = "config.yaml" // 默认配置文件名
	HistoryFileName = "history.db"  // 运行历史数据库
)

// GetStateDir 返回状态目录路径（~/.pftp/）
func GetStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, StateDirName), nil
}

// EnsureStateDir 确保状态目录存在（权限 0700，仅当前用户可访问）
func EnsureStateDir() error {
	stateDir, err := GetStateDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(stateDir, 0700)
}

// DefaultConfigPath 返回默认配置文件路径（~/.pftp/config.yaml）
func DefaultConfigPath() (string, error) {
	stateDir, err := GetStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, ConfigFileName), nil
}

// GetHistoryPath 返回运行历史数据库路径（~/.pftp/history.db）
func GetHistoryPath() (string, error) {
	stateDir, err := GetStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, HistoryFileName), nil
}

// ExpandHome 把开头的 ~ 展开为用户 home 目录，其它路径原样返回
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
