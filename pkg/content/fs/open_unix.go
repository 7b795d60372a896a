//go:build unix

package fs

import "syscall"

// openNonblock keeps opening a FIFO that raced in after Lstat from blocking
// until a reader appears.
const openNonblock = syscall.O_NONBLOCK
