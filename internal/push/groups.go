package push

import (
	"fmt"
	"io"
	"strings"

	"github.com/hwuu/pftp/internal/config"
)

// PrintGroups 列出所有服务器组及其成员（云组只显示筛选条件）
func PrintGroups(w io.Writer, cfg *config.Config) {
	names := cfg.GroupNames()
	if len(names) == 0 {
		fmt.Fprintf(w, "没有配置任何服务器组\n")
		return
	}

	for _, name := range names {
		if cg, ok := cfg.CloudGroup(name); ok {
			filter := fmt.Sprintf("tag %s=%s", cg.TagKey, cg.TagValue)
			if cg.VPCName != "" {
				filter += ", vpc " + cg.VPCName
			}
			fmt.Fprintf(w, "%-16s [cloud] %s (%s)\n", name, cg.Region, filter)
			continue
		}

		ids := cfg.ServerGroups[name]
		members := make([]string, 0, len(ids))
		for _, id := range ids {
			if s, ok := cfg.Servers[fmt.Sprint(id)]; ok && s.Name != "" {
				members = append(members, s.Name)
			} else {
				members = append(members, fmt.Sprintf("#%d", id))
			}
		}
		fmt.Fprintf(w, "%-16s %s\n", name, strings.Join(members, ", "))
	}
}
