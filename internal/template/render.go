// Package template 渲染服务器配置中的 output_dir 模板。
package template

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"text/template"
)

// OutputDirData output_dir 模板可用的字段
type OutputDirData struct {
	Name     string // 服务器名
	Host     string // 解析后的主机地址（不含端口）
	Username string
	Group    string // 本次推送的服务器组
}

// RenderOutputDir 渲染 output_dir 模板，返回清理后的远端路径。
// 不含 "{{" 的字符串原样返回（只做 path.Clean）。
// 引用未知字段或渲染结果为空时报错。
func RenderOutputDir(tmpl string, data OutputDirData) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return cleanDir(tmpl), nil
	}

	t, err := template.New("output_dir").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse output_dir template %q: %w", tmpl, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render output_dir template %q: %w", tmpl, err)
	}

	out := strings.TrimSpace(buf.String())
	if out == "" {
		return "", fmt.Errorf("output_dir template %q rendered to empty path", tmpl)
	}
	return cleanDir(out), nil
}

// cleanDir 远端路径总是使用 /
func cleanDir(dir string) string {
	if dir == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(dir, "\\", "/"))
}
