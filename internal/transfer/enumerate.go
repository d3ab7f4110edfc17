package transfer

import (
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
)

// SkipPolicy 枚举时遇到不可读子目录的处理策略
type SkipPolicy string

const (
	SkipSilent SkipPolicy = "silent" // 静默跳过
	SkipWarn   SkipPolicy = "warn"   // 跳过并记录到 HostOutcome、输出警告
)

// ParseSkipPolicy 解析配置中的策略，空字符串视为 warn
func ParseSkipPolicy(s string) (SkipPolicy, bool) {
	switch SkipPolicy(s) {
	case "", SkipWarn:
		return SkipWarn, true
	case SkipSilent:
		return SkipSilent, true
	}
	return "", false
}

// EnumerateOptions 目录枚举选项
type EnumerateOptions struct {
	// FollowSymlinks 为 true 时跟随符号链接（不检测环路）
	FollowSymlinks bool
}

// Enumerate 递归列出 root 下所有普通文件，目录只遍历不输出。
// root 本身是符号链接时总是跟随（如 /srv/current -> releases/xxx），
// 返回的路径仍以 root 为前缀；root 内部的符号链接只在 FollowSymlinks 时跟随。
// 读取失败的子目录被跳过并在第二个返回值中列出，不会中断整个枚举；
// root 本身不可读时返回空列表，并把 root 记为跳过。返回顺序不固定。
func Enumerate(root string, opts EnumerateOptions) ([]FileEntry, []SkippedDir) {
	var (
		files   []FileEntry
		skipped []SkippedDir
	)

	root = filepath.Clean(root)
	walkRoot := root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		walkRoot = resolved
	}
	// 把遍历得到的真实路径换回 root 前缀
	under := func(p string) string {
		if walkRoot == root {
			return p
		}
		rel, err := filepath.Rel(walkRoot, p)
		if err != nil {
			return p
		}
		return filepath.Join(root, rel)
	}

	err := godirwalk.Walk(walkRoot, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			switch {
			case de.IsRegular():
				files = append(files, FileEntry{Path: under(osPathname)})
			case de.IsSymlink() && opts.FollowSymlinks:
				info, err := os.Stat(osPathname)
				if err != nil {
					return err
				}
				if info.Mode().IsRegular() {
					files = append(files, FileEntry{Path: under(osPathname)})
				}
			}
			return nil
		},
		ErrorCallback: func(osPathname string, err error) godirwalk.ErrorAction {
			skipped = append(skipped, SkippedDir{Path: under(osPathname), Err: err})
			return godirwalk.SkipNode
		},
		FollowSymbolicLinks: opts.FollowSymlinks,
		Unsorted:            true,
	})
	if err != nil {
		// root 不可读，或目录读取中途出错：保留已枚举的部分
		skipped = append(skipped, SkippedDir{Path: root, Err: err})
	}

	return files, skipped
}
