package util

import (
	"strconv"
	"strings"

	"github.com/unkn0wn-root/vercache/backend"
)

const versionSuffix = backend.CounterSuffix

// VersionKey is where a group's counter lives: "<group>_version".
func VersionKey(group string) string {
	return group + versionSuffix
}

// Compose builds "<group>_<version>" and appends "_<raw>" when raw is non-empty.
func Compose(group string, version uint64, raw string) string {
	var sb strings.Builder
	sb.Grow(len(group) + 21 + len(raw))
	sb.WriteString(group)
	sb.WriteByte('_')
	sb.WriteString(strconv.FormatUint(version, 10))
	if raw != "" {
		sb.WriteByte('_')
		sb.WriteString(raw)
	}
	return sb.String()
}

// ValidKeyChars reports whether s is usable as part of a memcached text-protocol
// key: no whitespace and no control characters.
func ValidKeyChars(s string) bool {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c <= ' ' || c == 0x7f {
			return false
		}
	}
	return true
}

// ReservedRaw reports whether raw would compose into another group's counter
// key: "<g>_<v>_version" is the counter of group "<g>_<v>".
func ReservedRaw(raw string) bool {
	return raw == versionSuffix[1:] || strings.HasSuffix(raw, versionSuffix)
}
