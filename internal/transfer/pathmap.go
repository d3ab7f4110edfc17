package transfer

import (
	"path"
	"path/filepath"
	"strings"
)

// MapPath 计算远端路径：outputRoot + (localPath 去掉 inputRoot 前缀)，
// 本地分隔符统一转换为 /。localPath 必须位于 inputRoot 之下。
func MapPath(localPath, inputRoot, outputRoot string) string {
	rel := strings.TrimPrefix(filepath.Clean(localPath), filepath.Clean(inputRoot))
	rel = filepath.ToSlash(rel)
	if outputRoot == "" {
		return strings.TrimPrefix(path.Clean("/"+rel), "/")
	}
	return path.Join(outputRoot, rel)
}
