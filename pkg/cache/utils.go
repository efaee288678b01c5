package cache

import (
	"fmt"
	"strings"
)

// JoinKey builds a colon separated key, e.g. JoinKey("strategy", id, symbol).
func JoinKey(prefix string, parts ...any) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// PrefixPattern matches every key starting with prefix.
func PrefixPattern(prefix string) string {
	return prefix + "*"
}
