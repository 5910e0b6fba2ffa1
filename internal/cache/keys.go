// Package cache redis 上的快照缓存、消息幂等标记、分布式锁和熔断器
package cache

import "strings"

// DefaultPrefix 未配置前缀时使用
const DefaultPrefix = "attendify"

// Key 拼接 prefix:part1:part2，空片段跳过
func Key(prefix string, parts ...string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	var sb strings.Builder
	sb.WriteString(prefix)
	for _, part := range parts {
		if part != "" {
			sb.WriteString(":")
			sb.WriteString(part)
		}
	}
	return sb.String()
}
