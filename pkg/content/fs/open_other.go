//go:build !unix

package fs

const openNonblock = 0
