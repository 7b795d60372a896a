//go:build !darwin && !windows

package sandbox

const caseInsensitive = false

func equalPath(a, b string) bool {
	return a == b
}
