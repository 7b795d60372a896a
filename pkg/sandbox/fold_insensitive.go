//go:build darwin || windows

package sandbox

import "strings"

// Default filesystems on these platforms compare names case-insensitively.
const caseInsensitive = true

func equalPath(a, b string) bool {
	return strings.EqualFold(a, b)
}
